package service

import (
	"context"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/google/uuid"
)

// NameGenerator invents a display name for a first-time commenter.
type NameGenerator interface {
	Name() string
}

// CommentService appends and removes anonymous comments. A commenter is
// identified by origin (the client IP) only.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	cache    *cache.Store
	names    NameGenerator
	feed     FeedPublisher
}

// CommentRequest is one comment or reply submission.
type CommentRequest struct {
	PostID uuid.UUID
	// ParentID is set for replies.
	ParentID *uuid.UUID
	Origin   string
	Input    validation.CommentInput
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	store *cache.Store,
	names NameGenerator,
	feed FeedPublisher,
) *CommentService {
	return &CommentService{comments: comments, posts: posts, cache: store, names: names, feed: feed}
}

// Create appends a top-level comment, or a reply when ParentID is set.
// Replies attach to top-level comments only.
func (s *CommentService) Create(ctx context.Context, id auth.Identity, req CommentRequest) (comment *models.Comment, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "CommentService.Create")
	defer func() { end(err) }()

	post, err := s.posts.GetByID(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, models.NewNotFoundError("Comment", *req.ParentID)
		}
		if parent.IsReply() {
			return nil, models.NewBadRequestError("Replies can only be added to top-level comments")
		}
	}
	if !post.IsPublished && !id.IsAdmin() {
		observability.AccessDenied.WithLabelValues("unpublished").Inc()
		return nil, models.NewForbiddenError("Post is not published")
	}

	in := req.Input
	if errs := in.Validate(); len(errs) > 0 {
		return nil, errs
	}

	name := in.Name
	if name == "" {
		name, err = s.nameFor(ctx, req.Origin)
		if err != nil {
			return nil, err
		}
	}

	comment = &models.Comment{
		PostID:   post.ID,
		ParentID: req.ParentID,
		Name:     name,
		Text:     in.Text,
		ClientIP: req.Origin,
	}
	if err = s.comments.Append(ctx, comment); err != nil {
		return nil, err
	}

	action := "create"
	if comment.IsReply() {
		action = "reply"
	}
	observability.ContentWrites.WithLabelValues("comment", action).Inc()

	if post.IsPublished {
		publish(ctx, s.feed, notifications.FeedEvent{
			Type:      notifications.EventCommentCreated,
			PostID:    post.ID,
			CommentID: &comment.ID,
			ParentID:  comment.ParentID,
			Name:      comment.Name,
		})
	}
	return comment, nil
}

// Delete removes a comment, and its replies, left from origin. The comment
// must belong to postID.
func (s *CommentService) Delete(ctx context.Context, postID, commentID uuid.UUID, origin string) (comment *models.Comment, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "CommentService.Delete")
	defer func() { end(err) }()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	comment, err = s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != post.ID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	if comment.ClientIP != origin {
		observability.AccessDenied.WithLabelValues("origin_mismatch").Inc()
		return nil, models.NewForbiddenError("Comments can only be deleted from where they were posted")
	}

	if err = s.comments.Delete(ctx, comment); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("comment", "delete").Inc()

	if post.IsPublished {
		publish(ctx, s.feed, notifications.FeedEvent{
			Type:      notifications.EventCommentDeleted,
			PostID:    post.ID,
			CommentID: &comment.ID,
			ParentID:  comment.ParentID,
		})
	}
	return comment, nil
}

// nameFor returns the name origin used before, or a new one. The answer is
// cached per origin.
func (s *CommentService) nameFor(ctx context.Context, origin string) (string, error) {
	var name string
	err := s.cache.Aside(ctx, cache.CommenterNameKey(origin), &name, cache.CommenterNameTTL, func() error {
		prior, err := s.comments.FindNameByOrigin(ctx, origin)
		if err != nil {
			return err
		}
		if prior == "" {
			prior = s.names.Name()
			middleware.Logger.DebugContext(ctx, "generated commenter name", "name", prior)
		}
		name = prior
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}
