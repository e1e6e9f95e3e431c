// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxTopics is the largest topic list a post may carry.
const MaxTopics = 5

// Post represents a blog post.
type Post struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID     uuid.UUID                   `gorm:"type:uuid;not null;index" json:"authorId"`
	Author       *User                       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title        string                      `gorm:"not null" json:"title"`
	Description  string                      `gorm:"not null" json:"description"`
	BlogContents string                      `gorm:"type:text;not null" json:"blogContents"`
	Topics       datatypes.JSONSlice[string] `json:"topics"`
	IsPublished  bool                        `gorm:"not null;default:false;index" json:"isPublished"`
	ImageID      *uuid.UUID                  `gorm:"type:uuid" json:"imageId,omitempty"`
	ImageURL     string                      `gorm:"-" json:"imageUrl,omitempty"`
	CommentCount int                         `gorm:"not null;default:0" json:"commentCount"`
	// Comments holds top-level comments only; replies hang off each comment.
	Comments  []*Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	URL       string     `gorm:"-" json:"url"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Post) BeforeSave(_ *gorm.DB) error {
	if p.Topics == nil {
		p.Topics = datatypes.JSONSlice[string]{}
	}
	return nil
}

func (p *Post) AfterFind(_ *gorm.DB) error {
	p.Decorate()
	return nil
}

func (p *Post) AfterSave(_ *gorm.DB) error {
	p.Decorate()
	return nil
}

// Decorate fills the computed url fields.
func (p *Post) Decorate() {
	p.URL = "posts/" + p.ID.String()
	p.ImageURL = ImageURL(p.ImageID)
	if p.Topics == nil {
		p.Topics = datatypes.JSONSlice[string]{}
	}
}
