package testutil

import (
	"testing"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateUser inserts an account with the given role. The password hash is a
// placeholder; tests that log in hash their own.
func CreateUser(t testing.TB, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Email:       email,
		Password:    "$2a$10$placeholderplaceholderplaceholderplaceholderplacehold",
		DisplayName: "User " + email,
		Role:        role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePost inserts a post authored by author.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, title string, published bool) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID:     author.ID,
		Title:        title,
		Description:  "About " + title,
		BlogContents: "Body of " + title,
		Topics:       []string{"go"},
		IsPublished:  published,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreateComment inserts a comment without touching counters.
func CreateComment(t testing.TB, db *gorm.DB, postID uuid.UUID, parentID *uuid.UUID, name, origin string) *models.Comment {
	t.Helper()
	c := &models.Comment{
		PostID:   postID,
		ParentID: parentID,
		Name:     name,
		Text:     "comment from " + name,
		ClientIP: origin,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}
