package Models

import (
	"Aegis/Constants"

	"gorm.io/gorm"
)

// ShopSettings is a single-row table (id = 1) holding the knobs an admin
// can change at runtime without redeploying: photo requirements, working
// hours and the autosave debounce pushed to clients.
type ShopSettings struct {
	gorm.Model
	MinZonePhotos   int    `json:"min_zone_photos" gorm:"default:1"`
	DayStart        string `json:"day_start" gorm:"size:5"`
	DayEnd          string `json:"day_end" gorm:"size:5"`
	AutosaveQuietMS int    `json:"autosave_quiet_ms" gorm:"default:800"`
	ReminderHour    int    `json:"reminder_hour" gorm:"default:18"`
}

// GetShopSettings returns the settings row, creating it with defaults on
// first use.
func GetShopSettings(db *gorm.DB) (ShopSettings, error) {
	settings := ShopSettings{
		MinZonePhotos:   1,
		DayStart:        Constants.Shop.DayStart,
		DayEnd:          Constants.Shop.DayEnd,
		AutosaveQuietMS: 800,
		ReminderHour:    Constants.Shop.ReminderHour,
	}
	settings.ID = 1
	err := db.Where(ShopSettings{Model: gorm.Model{ID: 1}}).FirstOrCreate(&settings).Error
	return settings, err
}
