package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	apperrors "go-opening-detector/internal/errors"
)

// HTTPDetector delegates inference to an out-of-process model server. The
// server receives the image as multipart field "file" together with the
// weights location in field "model" and answers with the model's raw boxes.
type HTTPDetector struct {
	client    *http.Client
	endpoint  string
	modelPath string
}

// HTTPDetectorOptions configures the inference client
type HTTPDetectorOptions struct {
	URL       string
	ModelPath string
	Timeout   time.Duration
}

// rawBox mirrors one entry of the model server's "boxes" array. Each field
// is a per-box tensor flattened to JSON, hence the extra nesting.
type rawBox struct {
	Cls  []float64   `json:"cls"`
	XYXY [][]float64 `json:"xyxy"`
	Conf []float64   `json:"conf"`
}

type inferenceResponse struct {
	Boxes []rawBox `json:"boxes"`
}

// NewHTTPDetector creates an inference client. No request is retried.
func NewHTTPDetector(opts HTTPDetectorOptions) *HTTPDetector {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPDetector{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		endpoint:  opts.URL,
		modelPath: opts.ModelPath,
	}
}

// Detect uploads the image and decodes the reported boxes in order
func (d *HTTPDetector) Detect(ctx context.Context, imagePath string) ([]RawDetection, error) {
	body, contentType, err := d.buildRequestBody(imagePath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read staged image", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build inference request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, apperrors.NewTimeoutError("inference timed out", err)
		}
		return nil, apperrors.NewInferenceError("inference service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
			return nil, apperrors.NewMalformedImageError("image could not be processed by the model", cause)
		default:
			return nil, apperrors.NewInferenceError("inference service failed", cause)
		}
	}

	var decoded inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.NewInferenceError("invalid inference response", err)
	}

	raw := make([]RawDetection, 0, len(decoded.Boxes))
	for i, box := range decoded.Boxes {
		det, err := box.toRaw()
		if err != nil {
			return nil, apperrors.NewInferenceError(fmt.Sprintf("invalid box %d in inference response", i), err)
		}
		raw = append(raw, det)
	}
	return raw, nil
}

func (b rawBox) toRaw() (RawDetection, error) {
	if len(b.Cls) == 0 || len(b.Conf) == 0 || len(b.XYXY) == 0 {
		return RawDetection{}, fmt.Errorf("box is missing cls, conf or xyxy")
	}
	if len(b.XYXY[0]) != 4 {
		return RawDetection{}, fmt.Errorf("xyxy has %d coordinates, want 4", len(b.XYXY[0]))
	}

	if b.Cls[0] != math.Trunc(b.Cls[0]) {
		return RawDetection{}, fmt.Errorf("class id %v is not an integer", b.Cls[0])
	}

	var box [4]float64
	copy(box[:], b.XYXY[0])
	return RawDetection{
		ClassID:    int(b.Cls[0]),
		Box:        box,
		Confidence: b.Conf[0],
	}, nil
}

func (d *HTTPDetector) buildRequestBody(imagePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}
	if d.modelPath != "" {
		if err := writer.WriteField("model", d.modelPath); err != nil {
			return nil, "", fmt.Errorf("write model field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// CheckHealth probes the model server's /health endpoint on the same host
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return err
	}
	u.Path = "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections
func (d *HTTPDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
