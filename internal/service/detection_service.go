package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go-opening-detector/internal/detector"
	apperrors "go-opening-detector/internal/errors"
	"go-opening-detector/internal/observer"
	"go-opening-detector/internal/storage"
	"go-opening-detector/internal/strategy"
	"go-opening-detector/pkg/models"
	"go-opening-detector/pkg/naming"
	"go-opening-detector/pkg/validation"
)

// RequestState is the lifecycle position of a detection request
type RequestState string

const (
	StateReceived     RequestState = "received"
	StateStaged       RequestState = "staged"
	StateDetected     RequestState = "detected"
	StateMaterialized RequestState = "materialized"
	StateResponded    RequestState = "responded"
	StateFailed       RequestState = "failed"
)

// Upload is one inbound file
type Upload struct {
	Filename string
	Body     io.Reader
	// Annotate requests an annotated copy of the image
	Annotate bool
}

// DetectionService defines the interface for running one detection request
type DetectionService interface {
	Detect(ctx context.Context, upload Upload) (*models.DetectResponse, error)
}

// Dependencies groups the collaborators of the detection service
type Dependencies struct {
	Validator    *validation.UploadValidator
	Stager       *storage.Stager
	Detector     detector.Detector
	Classes      detector.ClassTable
	Materializer Materializer
	Links        strategy.LinkStrategy
	Events       observer.Subject
	RequestIDs   naming.IDGenerator
}

// detectionService implements DetectionService
type detectionService struct {
	deps Dependencies
}

// NewDetectionService creates a new detection service
func NewDetectionService(deps Dependencies) DetectionService {
	return &detectionService{deps: deps}
}

// request tracks one call through the state machine
type request struct {
	id       string
	filename string
	start    time.Time
	state    RequestState
}

// Detect runs stage, detect, materialize and respond in order. The staged
// upload is released on every path out of this method. Work already started
// is not abandoned when ctx is cancelled.
func (s *detectionService) Detect(ctx context.Context, upload Upload) (*models.DetectResponse, error) {
	ctx = context.WithoutCancel(ctx)

	req := &request{
		id:       s.deps.RequestIDs.NewID(),
		filename: upload.Filename,
		start:    time.Now(),
		state:    StateReceived,
	}
	s.publish(ctx, req, observer.RequestReceived, nil)

	resp, err := s.process(ctx, req, upload)
	if err != nil {
		s.fail(ctx, req, err)
		return nil, err
	}

	req.state = StateResponded
	s.publish(ctx, req, observer.RequestResponded, map[string]interface{}{
		"detections": len(resp.Detections),
	})
	return resp, nil
}

func (s *detectionService) process(ctx context.Context, req *request, upload Upload) (*models.DetectResponse, error) {
	if err := s.deps.Validator.ValidateFilename(upload.Filename); err != nil {
		return nil, err
	}

	staged, err := s.deps.Stager.Stage(upload.Filename, upload.Body)
	if err != nil {
		return nil, err
	}
	defer staged.Release()

	req.state = StateStaged
	s.publish(ctx, req, observer.UploadStaged, map[string]interface{}{
		"staged_name": staged.Name(),
		"bytes":       staged.Size(),
	})

	if err := s.deps.Validator.ValidateContent(staged.Path()); err != nil {
		return nil, err
	}

	raw, err := s.deps.Detector.Detect(ctx, staged.Path())
	if err != nil {
		return nil, asInferenceError(err)
	}

	detections, err := detector.Normalize(raw, s.deps.Classes)
	if err != nil {
		return nil, err
	}

	req.state = StateDetected
	s.publish(ctx, req, observer.DetectionCompleted, map[string]interface{}{
		"detections": len(detections),
	})

	result := models.NewDetectionResult(detections)
	artifacts, err := s.deps.Materializer.Materialize(ctx, result, staged.Path(), upload.Annotate)
	if err != nil {
		return nil, err
	}

	req.state = StateMaterialized
	meta := map[string]interface{}{"result": artifacts.Result.Name}
	if artifacts.Image != nil {
		meta["image"] = artifacts.Image.Name
	}
	s.publish(ctx, req, observer.ArtifactsMaterialized, meta)

	resp := &models.DetectResponse{
		Detections:    result.Detections,
		JSONResultURL: s.deps.Links.Link(artifacts.Result.Name),
	}
	if artifacts.Image != nil {
		resp.DetectedImageURL = s.deps.Links.Link(artifacts.Image.Name)
	}
	return resp, nil
}

func (s *detectionService) fail(ctx context.Context, req *request, err error) {
	failedIn := req.state
	req.state = StateFailed
	s.deps.Events.NotifyObservers(ctx, observer.DetectionEvent{
		EventType:      observer.RequestFailed,
		RequestID:      req.id,
		Filename:       req.filename,
		ProcessingTime: time.Since(req.start),
		Success:        false,
		ErrorType:      string(apperrors.GetType(err)),
		ErrorMessage:   err.Error(),
		Metadata: map[string]interface{}{
			"failed_after": string(failedIn),
			"status_code":  apperrors.GetStatusCode(err),
		},
	})
}

func (s *detectionService) publish(ctx context.Context, req *request, eventType observer.EventType, meta map[string]interface{}) {
	s.deps.Events.NotifyObservers(ctx, observer.DetectionEvent{
		EventType:      eventType,
		RequestID:      req.id,
		Filename:       req.filename,
		ProcessingTime: time.Since(req.start),
		Success:        true,
		Metadata:       meta,
	})
}

// asInferenceError keeps classified errors and classifies the rest as an
// unhealthy collaborator
func asInferenceError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewInferenceError("inference failed", err)
}
