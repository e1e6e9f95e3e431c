package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image is an uploaded picture referenced by a post or an account.
// Orphans are not collected.
type Image struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContentType string    `gorm:"not null" json:"contentType"`
	Data        []byte    `gorm:"not null" json:"-"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (i *Image) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ImageURL returns the public path of an image, or "" without one.
func ImageURL(id *uuid.UUID) string {
	if id == nil || *id == uuid.Nil {
		return ""
	}
	return "/api/images/" + id.String()
}
