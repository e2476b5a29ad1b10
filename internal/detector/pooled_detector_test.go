package detector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingDetector records how many calls overlap
type countingDetector struct {
	mu         sync.Mutex
	running    int
	maxRunning int
	calls      atomic.Int64
	closed     atomic.Bool
	delay      time.Duration
	panicOn    string
}

func (d *countingDetector) Detect(ctx context.Context, imagePath string) ([]RawDetection, error) {
	if imagePath == d.panicOn {
		panic("boom")
	}
	d.calls.Add(1)
	d.mu.Lock()
	d.running++
	if d.running > d.maxRunning {
		d.maxRunning = d.running
	}
	d.mu.Unlock()

	time.Sleep(d.delay)

	d.mu.Lock()
	d.running--
	d.mu.Unlock()
	return []RawDetection{{ClassID: 0, Box: [4]float64{1, 2, 3, 4}, Confidence: 0.5}}, nil
}

func (d *countingDetector) Close() error {
	d.closed.Store(true)
	return nil
}

func TestPooledDetector_SerializesWithOneWorker(t *testing.T) {
	inner := &countingDetector{delay: 2 * time.Millisecond}
	pooled := NewPooledDetector(inner, 1)
	defer pooled.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := pooled.Detect(context.Background(), "img.jpg")
			if err != nil || len(raw) != 1 {
				t.Errorf("Unexpected result %v, %v", raw, err)
			}
		}()
	}
	wg.Wait()

	if inner.maxRunning != 1 {
		t.Errorf("Expected serialized inference, saw %d concurrent calls", inner.maxRunning)
	}
	if inner.calls.Load() != 10 {
		t.Errorf("Expected 10 calls, got %d", inner.calls.Load())
	}
	if stats := pooled.Stats(); stats.CompletedJobs != 10 {
		t.Errorf("Expected 10 completed jobs, got %d", stats.CompletedJobs)
	}
}

func TestPooledDetector_Panic(t *testing.T) {
	inner := &countingDetector{panicOn: "bad.jpg"}
	pooled := NewPooledDetector(inner, 1)
	defer pooled.Close()

	if _, err := pooled.Detect(context.Background(), "bad.jpg"); err == nil {
		t.Error("Expected error from panicking detector")
	}
	if _, err := pooled.Detect(context.Background(), "good.jpg"); err != nil {
		t.Errorf("Expected pool to keep working, got %v", err)
	}
}

func TestPooledDetector_Close(t *testing.T) {
	inner := &countingDetector{}
	pooled := NewPooledDetector(inner, 2)

	if err := pooled.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !inner.closed.Load() {
		t.Error("Expected inner detector to be closed")
	}
	if _, err := pooled.Detect(context.Background(), "img.jpg"); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}

type probingDetector struct {
	countingDetector
	healthErr error
}

func (d *probingDetector) CheckHealth(ctx context.Context) error { return d.healthErr }

func TestPooledDetector_CheckHealth(t *testing.T) {
	plain := NewPooledDetector(&countingDetector{}, 1)
	defer plain.Close()
	if err := plain.CheckHealth(context.Background()); err != nil {
		t.Errorf("Expected nil for detector without a probe, got %v", err)
	}

	down := errors.New("connection refused")
	probing := NewPooledDetector(&probingDetector{healthErr: down}, 1)
	defer probing.Close()
	if err := probing.CheckHealth(context.Background()); !errors.Is(err, down) {
		t.Errorf("Expected probe error, got %v", err)
	}
}
