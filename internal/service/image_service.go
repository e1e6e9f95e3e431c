package service

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxDimension = 1600
	WebPQuality              = 80
)

// MaxDecodePixels bounds the raster allocated when an upload is decoded.
const MaxDecodePixels = 40_000_000

// UploadImageInput is a file read from a multipart form.
type UploadImageInput struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

type ImageService struct {
	repo         repository.ImageRepository
	maxDimension int
}

func NewImageService(repo repository.ImageRepository, cfg *config.Config) *ImageService {
	maxDimension := DefaultImageMaxDimension
	if cfg != nil && cfg.ImageMaxDimension > 0 {
		maxDimension = cfg.ImageMaxDimension
	}
	return &ImageService{repo: repo, maxDimension: maxDimension}
}

// Prepare turns an upload into an unsaved image record. The record is written
// by the repository that attaches it, inside that repository's transaction.
// Images wider or taller than the configured maximum are scaled down and
// re-encoded as WebP; anything else is kept byte for byte.
func (s *ImageService) Prepare(ctx context.Context, in *UploadImageInput) (*models.Image, error) {
	if in == nil || len(in.Content) == 0 {
		return nil, nil
	}
	_, end := observability.StartSpan(ctx, "service", "ImageService.Prepare")
	var err error
	defer func() { end(err) }()

	sniffed := http.DetectContentType(in.Content)
	if !strings.HasPrefix(sniffed, "image/") {
		err = models.NewFieldError(in.Field, "Only image uploads are allowed", in.Filename)
		return nil, err
	}

	record := &models.Image{
		ContentType: sniffed,
		Data:        in.Content,
		SizeBytes:   int64(len(in.Content)),
	}

	// Formats the decoders do not know (icons, bmp) are stored as sent.
	cfg, format, decErr := image.DecodeConfig(bytes.NewReader(in.Content))
	if decErr != nil {
		return record, nil
	}
	record.Width, record.Height = cfg.Width, cfg.Height
	if record.ContentType == "application/octet-stream" {
		record.ContentType = decodedFormatToMime(format)
	}
	if cfg.Width <= s.maxDimension && cfg.Height <= s.maxDimension {
		return record, nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxDecodePixels {
		err = models.NewFieldError(in.Field, "Invalid image file", in.Filename)
		return nil, err
	}

	decoded, _, decErr := image.Decode(bytes.NewReader(in.Content))
	if decErr != nil {
		err = models.NewFieldError(in.Field, "Invalid image file", in.Filename)
		return nil, err
	}
	resized := resizeToFit(decoded, s.maxDimension, s.maxDimension)
	encoded, encErr := encodeWebP(resized, WebPQuality)
	if encErr != nil {
		err = models.NewInternalError(encErr)
		return nil, err
	}

	b := resized.Bounds()
	record.ContentType = "image/webp"
	record.Data = encoded
	record.SizeBytes = int64(len(encoded))
	record.Width, record.Height = b.Dx(), b.Dy()
	return record, nil
}

// PrepareInto runs Prepare unless the upload's field already failed. Bad
// image content joins errs; anything else is returned as err.
func (s *ImageService) PrepareInto(ctx context.Context, in *UploadImageInput, errs models.FieldErrors) (*models.Image, models.FieldErrors, error) {
	if in == nil || hasPath(errs, in.Field) {
		return nil, errs, nil
	}
	img, err := s.Prepare(ctx, in)
	if fe, ok := asFieldErrors(err); ok {
		return nil, append(errs, fe...), nil
	}
	if err != nil {
		return nil, errs, err
	}
	return img, errs, nil
}

// Get returns a stored image with its bytes.
func (s *ImageService) Get(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	return s.repo.GetByID(ctx, id)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
