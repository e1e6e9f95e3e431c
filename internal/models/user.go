package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role gates what an account may publish.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// User is a registered account. Email is stored lowercased and is unique.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	DisplayName string     `gorm:"not null" json:"displayName"`
	Role        Role       `gorm:"type:varchar(16);not null;default:standard" json:"role"`
	PfpID       *uuid.UUID `gorm:"type:uuid" json:"pfpId,omitempty"`
	PfpURL      string     `gorm:"-" json:"pfpUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsAdmin reports whether the account has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleStandard
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func (u *User) AfterFind(_ *gorm.DB) error {
	u.PfpURL = ImageURL(u.PfpID)
	return nil
}

func (u *User) AfterSave(_ *gorm.DB) error {
	u.PfpURL = ImageURL(u.PfpID)
	return nil
}

// NormalizeEmail lowercases and trims an address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
