package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a note left through the contact form.
type Message struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Text      string    `gorm:"column:message;type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// TableName overrides the table name.
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns the identifier.
func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
