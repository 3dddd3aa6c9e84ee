package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a booking made by a signed-in user from their dashboard.
type Event struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;index;not null" json:"user_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Date        string    `gorm:"size:10;not null" json:"date"`
	Location    string    `gorm:"size:255;not null" json:"location"`
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
}

// BeforeCreate assigns the identifier.
func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
