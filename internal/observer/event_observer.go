package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-opening-detector/internal/logger"
)

// DetectionEvent represents one lifecycle transition of a detection request
type DetectionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id"`
	Filename       string                 `json:"filename,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of detection event
type EventType string

const (
	// RequestReceived when an upload arrives
	RequestReceived EventType = "request_received"
	// UploadStaged when the upload is fully on disk
	UploadStaged EventType = "upload_staged"
	// DetectionCompleted when the model output has been normalized
	DetectionCompleted EventType = "detection_completed"
	// ArtifactsMaterialized when every artifact has been persisted
	ArtifactsMaterialized EventType = "artifacts_materialized"
	// RequestResponded when the success response has been built
	RequestResponded EventType = "request_responded"
	// RequestFailed when any stage fails
	RequestFailed EventType = "request_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event DetectionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event DetectionEvent)
}

// LoggingObserver logs detection events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles detection events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"request_id":      event.RequestID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Filename != "" {
		fields["filename"] = event.Filename
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case RequestReceived:
		o.logger.WithFields(fields).Info("Detection request received")
	case RequestResponded:
		o.logger.WithFields(fields).Info("Detection request completed")
	case RequestFailed:
		o.logger.WithFields(fields).Error("Detection request failed")
	case UploadStaged, DetectionCompleted, ArtifactsMaterialized:
		o.logger.WithFields(fields).Debug("Detection request advanced")
	default:
		o.logger.WithFields(fields).Info("Detection event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects request counters from detection events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	totalDetections     int64
	failuresByType      map[string]int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{failuresByType: make(map[string]int64)}
}

// OnEvent handles detection events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RequestReceived:
		o.totalRequests++
	case DetectionCompleted:
		if n, ok := event.Metadata["detections"].(int); ok {
			o.totalDetections += int64(n)
		}
	case RequestResponded:
		o.successfulRequests++
		o.totalProcessingTime += event.ProcessingTime
	case RequestFailed:
		o.failedRequests++
		o.failuresByType[event.ErrorType]++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulRequests > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulRequests)
	}

	failures := make(map[string]int64, len(o.failuresByType))
	for k, v := range o.failuresByType {
		failures[k] = v
	}

	return map[string]interface{}{
		"total_requests":        o.totalRequests,
		"successful_requests":   o.successfulRequests,
		"failed_requests":       o.failedRequests,
		"failures_by_type":      failures,
		"total_detections":      o.totalDetections,
		"total_processing_time": o.totalProcessingTime.String(),
		"avg_processing_time":   avgProcessingTime.String(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer in subscription
// order before returning, so a request's events are observed in sequence.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event DetectionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, observer := range observers {
		notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event DetectionEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't fail the request
			logger.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
