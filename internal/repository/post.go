package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, image *models.Image) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	GetWithComments(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context, includeUnpublished bool) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post, image *models.Image) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("Author", func(tx *gorm.DB) *gorm.DB {
		return tx.Omit("password")
	})
}

// Create stores the post and, when given, its image in one transaction.
func (r *postRepository) Create(ctx context.Context, post *models.Post, image *models.Image) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if image != nil {
			if err := tx.Create(image).Error; err != nil {
				return err
			}
			post.ImageID = &image.ID
		}
		return tx.Omit("Author", "Comments").Create(post).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID loads the post with its author only.
func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := withAuthor(r.db.WithContext(ctx)).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// GetWithComments loads the post, its author, its top-level comments newest
// first, and their replies oldest first.
func (r *postRepository) GetWithComments(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := withAuthor(r.db.WithContext(ctx)).
		Preload("Comments", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("parent_id IS NULL").Order("created_at DESC")
		}).
		Preload("Comments.Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// List returns posts newest first; unpublished ones only when asked.
func (r *postRepository) List(ctx context.Context, includeUnpublished bool) ([]*models.Post, error) {
	var posts []*models.Post
	q := withAuthor(r.db.WithContext(ctx)).Order("created_at DESC")
	if !includeUnpublished {
		q = q.Where("is_published = ?", true)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Update replaces the editable fields of an existing post, keeping its ID,
// author and creation time. A non-nil image is stored first and attached.
func (r *postRepository) Update(ctx context.Context, post *models.Post, image *models.Image) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if image != nil {
			if err := tx.Create(image).Error; err != nil {
				return err
			}
			post.ImageID = &image.ID
		}
		res := tx.Model(post).
			Select("title", "description", "blog_contents", "topics", "is_published", "image_id", "updated_at").
			Updates(post)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", post.ID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the post and every comment on it in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}
