// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	FindNameByOrigin(ctx context.Context, origin string) (string, error)
	Append(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, comment *models.Comment) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// GetByID loads a comment with its replies, oldest first.
func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		First(&comment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// FindNameByOrigin returns the name of the earliest comment left from origin,
// or "" if there is none.
func (r *commentRepository) FindNameByOrigin(ctx context.Context, origin string) (string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("client_ip = ?", origin).
		Order("created_at ASC").
		Limit(1).
		Pluck("name", &names).Error
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

// Append inserts the comment and bumps its parent's counter in one
// transaction: the parent comment's reply count for replies, the post's
// comment count otherwise.
func (r *commentRepository) Append(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Replies").Create(comment).Error; err != nil {
			return err
		}
		return bumpParent(tx, comment, 1)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", comment.PostID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the comment and its replies and decrements the parent's
// counter in one transaction.
func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", comment.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, "id = ?", comment.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return bumpParent(tx, comment, -1)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", comment.ID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func bumpParent(tx *gorm.DB, comment *models.Comment, delta int) error {
	var res *gorm.DB
	if comment.ParentID != nil {
		res = tx.Model(&models.Comment{}).
			Where("id = ?", *comment.ParentID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + ?", delta))
	} else {
		res = tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta))
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
