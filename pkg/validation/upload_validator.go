package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "go-opening-detector/internal/errors"
	"go-opening-detector/pkg/naming"
)

// decodableTypes are the sniffed MIME types the annotator can decode
var decodableTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/webp"}

// UploadValidator rejects uploads that cannot be images before any inference runs
type UploadValidator struct {
	allowedExtensions map[string]struct{}
}

// NewUploadValidator creates a validator for the given extensions (without dots)
func NewUploadValidator(extensions []string) *UploadValidator {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &UploadValidator{allowedExtensions: allowed}
}

// ValidateFilename checks the claimed filename carries a supported extension
func (v *UploadValidator) ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.NewClientInputError("uploaded file has no name", nil)
	}

	ext := strings.ToLower(naming.Extension(filename))
	if ext == "" {
		return apperrors.NewClientInputError("uploaded file has no extension", nil).
			WithDetails(filename)
	}
	if _, ok := v.allowedExtensions[ext]; !ok {
		return apperrors.NewClientInputError(fmt.Sprintf("unsupported file extension %q", ext), nil).
			WithStatus(http.StatusUnsupportedMediaType)
	}
	return nil
}

// ValidateContent sniffs a staged file and requires an image format the
// service can decode
func (v *UploadValidator) ValidateContent(path string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return apperrors.NewStorageError("failed to read staged upload", err)
	}

	if !strings.HasPrefix(mt.String(), "image/") {
		return apperrors.NewClientInputError(fmt.Sprintf("uploaded content is %s, not an image", mt.String()), nil).
			WithStatus(http.StatusUnsupportedMediaType)
	}
	if !mimetype.EqualsAny(mt.String(), decodableTypes...) {
		return apperrors.NewClientInputError(fmt.Sprintf("unsupported image format %s", mt.String()), nil).
			WithStatus(http.StatusUnsupportedMediaType)
	}
	return nil
}
