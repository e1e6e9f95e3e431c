package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetImage handles GET /api/images/:imageId
// @Summary Stream a stored image
// @Tags images
// @Produce image/png,image/jpeg,image/gif,image/webp
// @Param imageId path string true "Image ID"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{imageId} [get]
func (s *Server) GetImage(c *fiber.Ctx) error {
	imageID, err := parseID(c, "imageId")
	if err != nil {
		return nil
	}

	img, err := s.imageService.Get(c.UserContext(), imageID)
	if err != nil {
		return respondServiceError(c, err)
	}

	// Images are immutable: a change always produces a new id.
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderContentLength, strconv.Itoa(len(img.Data)))
	return c.Send(img.Data)
}
