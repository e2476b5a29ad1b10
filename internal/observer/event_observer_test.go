package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"go-opening-detector/internal/logger"
)

func init() {
	logger.SetOutput(io.Discard)
}

type recordingObserver struct {
	name   string
	mu     sync.Mutex
	events []EventType
}

func (o *recordingObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event.EventType)
}

func (o *recordingObserver) GetObserverName() string { return o.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event DetectionEvent) { panic("observer bug") }
func (panickingObserver) GetObserverName() string                           { return "panicking" }

func TestEventPublisher_DeliversInOrder(t *testing.T) {
	p := NewEventPublisher()
	rec := &recordingObserver{name: "rec"}
	p.Subscribe(panickingObserver{})
	p.Subscribe(rec)

	sequence := []EventType{RequestReceived, UploadStaged, DetectionCompleted, ArtifactsMaterialized, RequestResponded}
	for _, et := range sequence {
		p.NotifyObservers(context.Background(), DetectionEvent{EventType: et, RequestID: "r1"})
	}

	// delivery is synchronous, no waiting needed
	if len(rec.events) != len(sequence) {
		t.Fatalf("Expected %d events, got %d", len(sequence), len(rec.events))
	}
	for i, et := range sequence {
		if rec.events[i] != et {
			t.Errorf("Event %d: expected %s, got %s", i, et, rec.events[i])
		}
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	p := NewEventPublisher()
	rec := &recordingObserver{name: "rec"}
	p.Subscribe(rec)
	p.Unsubscribe(rec)

	p.NotifyObservers(context.Background(), DetectionEvent{EventType: RequestReceived})
	if len(rec.events) != 0 {
		t.Errorf("Expected no events after unsubscribe, got %v", rec.events)
	}
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	m.OnEvent(ctx, DetectionEvent{EventType: RequestReceived})
	m.OnEvent(ctx, DetectionEvent{EventType: DetectionCompleted, Metadata: map[string]interface{}{"detections": 3}})
	m.OnEvent(ctx, DetectionEvent{EventType: RequestResponded, ProcessingTime: 2 * time.Second})
	m.OnEvent(ctx, DetectionEvent{EventType: RequestReceived})
	m.OnEvent(ctx, DetectionEvent{EventType: RequestFailed, ErrorType: "client_input"})

	metrics := m.GetMetrics()
	if metrics["total_requests"] != int64(2) {
		t.Errorf("Expected 2 requests, got %v", metrics["total_requests"])
	}
	if metrics["successful_requests"] != int64(1) || metrics["failed_requests"] != int64(1) {
		t.Errorf("Unexpected success/failure counts: %v", metrics)
	}
	if metrics["total_detections"] != int64(3) {
		t.Errorf("Expected 3 detections, got %v", metrics["total_detections"])
	}
	if metrics["avg_processing_time"] != "2s" {
		t.Errorf("Expected 2s average, got %v", metrics["avg_processing_time"])
	}
	failures := metrics["failures_by_type"].(map[string]int64)
	if failures["client_input"] != 1 {
		t.Errorf("Expected one client_input failure, got %v", failures)
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	o := NewLoggingObserver(l)
	o.OnEvent(context.Background(), DetectionEvent{
		EventType:    RequestFailed,
		RequestID:    "r9",
		ErrorType:    "inference",
		ErrorMessage: "model unavailable",
		Metadata:     map[string]interface{}{"stage": "detected"},
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q", buf.String())
	}
	if entry["level"] != "error" || entry["request_id"] != "r9" || entry["stage"] != "detected" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
	if !strings.Contains(entry["error"].(string), "model unavailable") {
		t.Errorf("Expected error message in log entry: %v", entry)
	}
}
