package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"unicode"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name ("postId" -> "Invalid post id").
func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewBadRequestError("Invalid "+humanizeParam(param)))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "id", "userId" -> "user id", "commentId" -> "comment id".
func humanizeParam(param string) string {
	if param == "id" {
		return "id"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " id"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// mapServiceError picks the status for an error returned by a service.
func mapServiceError(err error) int {
	var fieldErrs models.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fiber.StatusBadRequest
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeBadRequest:
		return fiber.StatusBadRequest
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. Internal errors are
// logged and reach the client without their cause.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		logRequestError(c, err)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

func logRequestError(c *fiber.Ctx, err error) {
	middleware.Logger.ErrorContext(c.UserContext(), "request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
}

func badBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewBadRequestError("Invalid request body"))
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// jsonNull reports whether the JSON object body sets key to null.
func jsonNull(body []byte, key string) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	v, ok := raw[key]
	return ok && string(bytes.TrimSpace(v)) == "null"
}

// formValue returns the first value of a multipart field and whether it was sent.
func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// readUpload pulls an optional image from a multipart form. A text field of
// the same name set to "null" asks for the current image to be removed.
// Size and type problems come back as field errors.
func readUpload(form *multipart.Form, field string, maxBytes int64) (upload *service.UploadImageInput, remove bool, errs models.FieldErrors, err error) {
	if v, ok := formValue(form, field); ok && strings.EqualFold(strings.TrimSpace(v), "null") {
		remove = true
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, remove, nil, nil
	}
	fh := files[0]
	if errs = validation.CheckUpload(field, fh, maxBytes); len(errs) > 0 {
		return nil, false, errs, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, false, nil, err
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, false, nil, err
	}
	return &service.UploadImageInput{
		Field:       field,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, false, nil, nil
}

func (s *Server) uploadLimit() int64 {
	if s.config.UploadMaxBytes > 0 {
		return s.config.UploadMaxBytes
	}
	return 4 * 1024 * 1024
}
