package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxCommentText = 1500
	MaxCommentName = 50
)

// Comment is an anonymous comment on a post. Replies share the PostID of
// their parent and point at it through ParentID; nesting stops at one level.
type Comment struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PostID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"postId"`
	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parentId,omitempty"`
	Name     string     `gorm:"size:50;not null" json:"name"`
	Text     string     `gorm:"size:1500;not null" json:"text"`
	// ClientIP identifies a returning commenter and authorizes deletion.
	ClientIP   string     `gorm:"column:client_ip;index;not null" json:"-"`
	ReplyCount int        `gorm:"not null;default:0" json:"replyCount"`
	Replies    []*Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
}

// IsReply reports whether the comment hangs off another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
