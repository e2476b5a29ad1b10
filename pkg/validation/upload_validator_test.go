package validation

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	apperrors "go-opening-detector/internal/errors"
)

func TestValidateFilename(t *testing.T) {
	validator := NewUploadValidator([]string{"jpg", ".png"})

	tests := []struct {
		name       string
		filename   string
		wantStatus int
	}{
		{"jpg", "sample.jpg", 0},
		{"upper case", "SAMPLE.JPG", 0},
		{"png with dots", "house.front.png", 0},
		{"empty", "", http.StatusBadRequest},
		{"no extension", "sample", http.StatusBadRequest},
		{"unsupported", "doc.pdf", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFilename(tt.filename)
			if tt.wantStatus == 0 {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeClientInput) {
				t.Fatalf("Expected client input error, got %v", err)
			}
			if got := apperrors.GetStatusCode(err); got != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, got)
			}
		})
	}
}

func TestValidateContent(t *testing.T) {
	dir := t.TempDir()
	validator := NewUploadValidator([]string{"png"})

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	pngPath := filepath.Join(dir, "ok.png")
	if err := os.WriteFile(pngPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	textPath := filepath.Join(dir, "fake.png")
	if err := os.WriteFile(textPath, []byte("just some text, not pixels"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := validator.ValidateContent(pngPath); err != nil {
		t.Errorf("Expected png to pass, got %v", err)
	}

	err := validator.ValidateContent(textPath)
	if !apperrors.IsType(err, apperrors.ErrorTypeClientInput) {
		t.Fatalf("Expected client input error for text content, got %v", err)
	}
	if apperrors.GetStatusCode(err) != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415, got %d", apperrors.GetStatusCode(err))
	}

	err = validator.ValidateContent(filepath.Join(dir, "missing.png"))
	if !apperrors.IsType(err, apperrors.ErrorTypeStorage) {
		t.Errorf("Expected storage error for missing file, got %v", err)
	}
}

func TestValidateContent_UndecodableImageFormats(t *testing.T) {
	dir := t.TempDir()
	validator := NewUploadValidator([]string{"jpg"})

	tests := []struct {
		name    string
		content []byte
	}{
		{"tiff", append([]byte("II*\x00\x08\x00\x00\x00"), make([]byte, 64)...)},
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"></svg>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".jpg")
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatal(err)
			}

			err := validator.ValidateContent(path)
			if !apperrors.IsType(err, apperrors.ErrorTypeClientInput) {
				t.Fatalf("Expected client input error, got %v", err)
			}
			if got := apperrors.GetStatusCode(err); got != http.StatusUnsupportedMediaType {
				t.Errorf("Expected 415, got %d", got)
			}
		})
	}
}
