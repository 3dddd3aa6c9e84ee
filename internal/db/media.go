package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media categories. Each category is an independent position ordering.
const (
	CategoryPhoto = "photo"
	CategoryVideo = "video"
)

// MediaCategories lists every category in display order.
var MediaCategories = []string{CategoryPhoto, CategoryVideo}

// IsMediaCategory reports whether category names a media partition.
func IsMediaCategory(category string) bool {
	return category == CategoryPhoto || category == CategoryVideo
}

// MediaItem is a photo or video maintained from the admin area.
// Src is fixed at upload. Visible only affects the public gallery.
// Position orders items within one Type and may have gaps.
type MediaItem struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Src         string    `gorm:"size:1024;not null" json:"src"`
	Type        string    `gorm:"size:16;not null;index:idx_media_type_position,priority:1" json:"type"`
	Visible     bool      `gorm:"not null" json:"visible"`
	Position    int       `gorm:"not null;index:idx_media_type_position,priority:2" json:"position"`
	ContentType string    `gorm:"size:100" json:"content_type,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name.
func (MediaItem) TableName() string {
	return "media_items"
}

// BeforeCreate assigns the opaque identifier.
func (m *MediaItem) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
