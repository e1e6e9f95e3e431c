package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/service"
	"inkwell/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateComment handles POST /api/posts/:postId/comments
// @Summary Comment on a post
// @Description Anonymous. Without a name the commenter's previous name, or a generated one, is used.
// @Tags comments
// @Accept json
// @Produce json
// @Param postId path string true "Post ID"
// @Param request body validation.CommentInput true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} object{errors=[]models.FieldError}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /posts/{postId}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	return s.createComment(c, postID, nil)
}

// CreateReply handles POST /api/posts/:postId/comments/:commentId/reply
// @Summary Reply to a top-level comment
// @Tags comments
// @Accept json
// @Produce json
// @Param postId path string true "Post ID"
// @Param commentId path string true "Comment ID"
// @Param request body validation.CommentInput true "Reply"
// @Success 201 {object} models.Comment
// @Router /posts/{postId}/comments/{commentId}/reply [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	parentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}
	return s.createComment(c, postID, &parentID)
}

func (s *Server) createComment(c *fiber.Ctx, postID uuid.UUID, parentID *uuid.UUID) error {
	var in validation.CommentInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}

	comment, err := s.commentService.Create(c.UserContext(), middleware.IdentityFrom(c), service.CommentRequest{
		PostID:   postID,
		ParentID: parentID,
		Origin:   c.IP(),
		Input:    in,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:postId/comments/:commentId
// @Summary Delete a comment
// @Description Only from the address the comment was posted from. Replies are removed with it.
// @Tags comments
// @Produce json
// @Param postId path string true "Post ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId}/comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.Delete(c.UserContext(), postID, commentID, c.IP())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}
