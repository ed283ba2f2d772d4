package Models

import (
	"gorm.io/gorm"
)

// AppNotification is the in-app copy of every push we send, so the bell
// icon works even when FCM drops a message.
type AppNotification struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"index;not null"`
	TaskID uint   `json:"task_id"`
	Title  string `json:"title" gorm:"size:120"`
	Body   string `json:"body" gorm:"size:400"`
	Read   bool   `json:"read"`
}
