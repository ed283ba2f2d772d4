package Models

import (
	"time"

	"gorm.io/gorm"
)

// ShopChecklistItem is one line of the shop's daily opening checklist.
// A fresh set is generated each morning and posted to Slack; items get
// ticked off from Slack or from the dashboard.
type ShopChecklistItem struct {
	gorm.Model
	Date        string     `json:"date" gorm:"type:varchar(10);index;not null"`
	ItemOrder   int        `json:"item_order"`
	Description string     `json:"description" gorm:"size:200;not null"`
	Completed   bool       `json:"completed"`
	CompletedBy string     `json:"completed_by" gorm:"size:60"`
	CompletedAt *time.Time `json:"completed_at"`
	SlackTS     string     `json:"-" gorm:"size:30"`
}

// ChecklistForDate loads the ordered checklist of one day.
func ChecklistForDate(db *gorm.DB, date string) ([]ShopChecklistItem, error) {
	var items []ShopChecklistItem
	err := db.Where("date = ?", date).Order("item_order ASC").Find(&items).Error
	return items, err
}

// CompleteChecklistItem marks one item done, recording who and when.
// Completing an already-done item is a no-op so double taps from Slack
// don't clobber the original completer.
func CompleteChecklistItem(db *gorm.DB, id uint, by string) (ShopChecklistItem, error) {
	var item ShopChecklistItem
	if err := db.First(&item, id).Error; err != nil {
		return item, err
	}
	if item.Completed {
		return item, nil
	}
	now := time.Now()
	item.Completed = true
	item.CompletedBy = by
	item.CompletedAt = &now
	err := db.Save(&item).Error
	return item, err
}
