package service

import (
	"context"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PostService holds the post use cases. Writes are admin-only.
type PostService struct {
	posts  repository.PostRepository
	images *ImageService
	feed   FeedPublisher
}

// PostRequest carries a create or update form.
type PostRequest struct {
	Input  validation.PostInput
	Image  *UploadImageInput
	Errors models.FieldErrors
}

func NewPostService(posts repository.PostRepository, images *ImageService, feed FeedPublisher) *PostService {
	return &PostService{posts: posts, images: images, feed: feed}
}

// List returns published posts newest first; admins also see drafts.
func (s *PostService) List(ctx context.Context, id auth.Identity) ([]*models.Post, error) {
	return s.posts.List(ctx, id.IsAdmin())
}

// Get returns a post with its comment threads. Drafts are forbidden to
// everyone but admins.
func (s *PostService) Get(ctx context.Context, id auth.Identity, postID uuid.UUID) (*models.Post, error) {
	post, err := s.posts.GetWithComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished && !id.IsAdmin() {
		observability.AccessDenied.WithLabelValues("unpublished").Inc()
		return nil, models.NewForbiddenError("Post is not published")
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, id auth.Identity, req PostRequest) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "PostService.Create")
	defer func() { end(err) }()

	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	img, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		AuthorID:     id.AccountID(),
		Title:        req.Input.Title,
		Description:  req.Input.Description,
		BlogContents: req.Input.BlogContents,
		Topics:       datatypes.JSONSlice[string](req.Input.TopicList()),
		IsPublished:  req.Input.Published(),
	}
	if err = s.posts.Create(ctx, post, img); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("post", "create").Inc()
	middleware.Logger.InfoContext(ctx, "post created", "post_id", post.ID, "published", post.IsPublished)

	if post.IsPublished {
		s.announce(ctx, post)
	}
	return s.posts.GetByID(ctx, post.ID)
}

// Update replaces every editable field. The image changes only when a new
// one is uploaded or the form clears it.
func (s *PostService) Update(ctx context.Context, id auth.Identity, postID uuid.UUID, req PostRequest) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "PostService.Update")
	defer func() { end(err) }()

	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	existing, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	img, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	wasPublished := existing.IsPublished
	existing.Title = req.Input.Title
	existing.Description = req.Input.Description
	existing.BlogContents = req.Input.BlogContents
	existing.Topics = datatypes.JSONSlice[string](req.Input.TopicList())
	existing.IsPublished = req.Input.Published()
	if img == nil && req.Input.ClearImage {
		existing.ImageID = nil
	}

	if err = s.posts.Update(ctx, existing, img); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("post", "update").Inc()

	if existing.IsPublished && !wasPublished {
		s.announce(ctx, existing)
	}
	return s.posts.GetByID(ctx, postID)
}

// Delete removes the post with all its comments and returns it as it was.
func (s *PostService) Delete(ctx context.Context, id auth.Identity, postID uuid.UUID) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "PostService.Delete")
	defer func() { end(err) }()

	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	post, err = s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err = s.posts.Delete(ctx, postID); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("post", "delete").Inc()

	if post.IsPublished {
		publish(ctx, s.feed, notifications.FeedEvent{
			Type:   notifications.EventPostDeleted,
			PostID: post.ID,
			Title:  post.Title,
		})
	}
	return post, nil
}

func (s *PostService) validate(ctx context.Context, req PostRequest) (*models.Image, error) {
	errs := validation.Merge(req.Input.Validate(), req.Errors)
	img, errs, err := s.images.PrepareInto(ctx, req.Image, errs)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return img, nil
}

func (s *PostService) announce(ctx context.Context, post *models.Post) {
	publish(ctx, s.feed, notifications.FeedEvent{
		Type:   notifications.EventPostPublished,
		PostID: post.ID,
		Title:  post.Title,
	})
}

func requireAdmin(id auth.Identity) error {
	if !id.IsAuthenticated() {
		return models.NewForbiddenError("Login required")
	}
	if !id.IsAdmin() {
		observability.AccessDenied.WithLabelValues("not_admin").Inc()
		return models.NewForbiddenError("Admin role required")
	}
	return nil
}
