package validation

import (
	"fmt"
	"mime/multipart"
	"strings"

	"inkwell/internal/models"
)

// CheckUpload turns an unacceptable file into a field error on field.
// A nil header is accepted: the upload is optional everywhere.
func CheckUpload(field string, fh *multipart.FileHeader, maxBytes int64) models.FieldErrors {
	if fh == nil {
		return nil
	}
	if fh.Size > maxBytes {
		return models.NewFieldError(field,
			fmt.Sprintf("File too large (max %s)", humanSize(maxBytes)), fh.Filename)
	}
	ct := strings.ToLower(fh.Header.Get("Content-Type"))
	if !strings.HasPrefix(ct, "image/") {
		return models.NewFieldError(field, "Only image uploads are allowed", fh.Filename)
	}
	return nil
}

func humanSize(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n >= 1024 {
		return fmt.Sprintf("%dKB", n/1024)
	}
	return fmt.Sprintf("%dB", n)
}
