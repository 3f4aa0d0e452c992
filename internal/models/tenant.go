package models

import "time"

// Tenant is a person renting a room.
type Tenant struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `gorm:"size:100;not null;index" json:"first_name"`
	LastName  string `gorm:"size:100;not null;index" json:"last_name"`
	Email     string `gorm:"size:255;index" json:"email,omitempty"`
	Phone     string `gorm:"size:40" json:"phone,omitempty"`
	IDNumber  string `gorm:"size:60" json:"id_number,omitempty"`

	RoomID *uint `gorm:"index" json:"room_id,omitempty"`
	Room   *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`

	MoveInDate  *time.Time `json:"move_in_date,omitempty"`
	MoveOutDate *time.Time `json:"move_out_date,omitempty"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the tenant currently occupies a room.
func (t *Tenant) IsActive() bool {
	return t.RoomID != nil && t.MoveOutDate == nil
}
