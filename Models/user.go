package Models

import "time"

// Permission levels: 1 technician, 2 scheduler, 3 manager, 4 admin.
const (
	PermissionTechnician = 1
	PermissionScheduler  = 2
	PermissionManager    = 3
	PermissionAdmin      = 4
)

type User struct {
	Id         uint      `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Name       string    `json:"name"`
	Username   string    `json:"username" gorm:"uniqueIndex;size:64"`
	Password   []byte    `json:"-"`
	Phone      string    `json:"phone"`
	Permission int       `json:"permission"`
	IsApproved int       `json:"is_approved"`
}
