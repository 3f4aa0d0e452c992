package models

import "time"

// User & role administration models.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"unique;not null;index" json:"email"`
	Password  string `gorm:"not null" json:"-"` // bcrypt hash
	FirstName string `gorm:"size:100;index" json:"first_name"`
	LastName  string `gorm:"size:100;index" json:"last_name"`
	RoleID    uint   `json:"role_id"`
	Role      Role   `gorm:"foreignKey:RoleID" json:"role"`
	Language  string `gorm:"size:5;default:'en'" json:"language"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role groups permissions. Permissions is a comma-separated list of
// "resource:action" entries; "*:*" grants everything.
type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"unique;not null" json:"name"` // admin, manager, viewer
	Description string `json:"description,omitempty"`
	Permissions string `gorm:"size:1000" json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
