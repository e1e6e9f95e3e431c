package server

import (
	"bytes"
	"encoding/json"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Published posts, newest first. Admins also see drafts.
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.List(c.UserContext(), middleware.IdentityFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:postId
// @Summary Get a post with its comment threads
// @Tags posts
// @Produce json
// @Param postId path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(c.UserContext(), middleware.IdentityFrom(c), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Admin only. Accepts JSON or a multipart form with an optional image.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Post
// @Failure 400 {object} object{errors=[]models.FieldError}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, err := s.readPostRequest(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), middleware.IdentityFrom(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:postId
// @Summary Replace a post
// @Description Admin only. Send image=null to remove the image.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Success 200 {object} models.Post
// @Router /posts/{postId} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	req, err := s.readPostRequest(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), middleware.IdentityFrom(c), postID, req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:postId
// @Summary Delete a post and its comments
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Success 200 {object} models.Post
// @Router /posts/{postId} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	post, err := s.postService.Delete(c.UserContext(), middleware.IdentityFrom(c), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// readPostRequest decodes a post form from JSON or multipart. On a malformed
// body it writes the 400 itself and returns errResponseWritten.
func (s *Server) readPostRequest(c *fiber.Ctx) (service.PostRequest, error) {
	var req service.PostRequest

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			_ = badBody(c)
			return req, errResponseWritten
		}
		req.Input.Title, _ = formValue(form, "title")
		req.Input.Description, _ = formValue(form, "description")
		req.Input.BlogContents, _ = formValue(form, "blogContents")
		if v, ok := formValue(form, "isPublished"); ok {
			req.Input.IsPublished = v
		}
		if topics, ok := form.Value["topics"]; ok {
			req.Input.Topics = formTopics(topics)
		}

		upload, remove, errs, err := readUpload(form, "image", s.uploadLimit())
		if err != nil {
			_ = respondServiceError(c, err)
			return req, errResponseWritten
		}
		req.Image, req.Input.ClearImage, req.Errors = upload, remove, errs
		return req, nil
	}

	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req.Input); err != nil {
		_ = badBody(c)
		return req, errResponseWritten
	}
	req.Input.ClearImage = jsonNull(body, "image")
	return req, nil
}

// formTopics accepts repeated topics fields or a single JSON array.
func formTopics(values []string) any {
	if len(values) == 1 {
		v := strings.TrimSpace(values[0])
		if strings.HasPrefix(v, "[") {
			var decoded any
			if err := json.Unmarshal([]byte(v), &decoded); err == nil {
				return decoded
			}
		}
	}
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
