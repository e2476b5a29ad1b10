package container

import (
	"context"
	"fmt"
	"net/http"

	"go-opening-detector/internal/annotate"
	"go-opening-detector/internal/config"
	"go-opening-detector/internal/detector"
	"go-opening-detector/internal/factory"
	"go-opening-detector/internal/logger"
	"go-opening-detector/internal/observer"
	"go-opening-detector/internal/repository"
	"go-opening-detector/internal/service"
	"go-opening-detector/internal/storage"
	"go-opening-detector/internal/strategy"
	"go-opening-detector/internal/transport"
	"go-opening-detector/pkg/naming"
	"go-opening-detector/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	detector         detector.Detector
	store            *storage.LocalStore
	mirror           storage.Mirror
	metrics          *observer.MetricsObserver
	detectionService service.DetectionService
	handler          http.Handler
}

// NewContainer builds the dependency graph with the HTTP inference client
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	det, err := components.DetectorFactory.CreateDetector(factory.HTTPDetector)
	if err != nil {
		return nil, err
	}
	return NewContainerWithDetector(ctx, cfg, det)
}

// NewContainerWithDetector builds the dependency graph around an existing
// detector. The container takes ownership of det.
func NewContainerWithDetector(ctx context.Context, cfg *config.Config, det detector.Detector) (*Container, error) {
	classes, err := detector.NewClassTable(cfg.ClassNames)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("invalid class table: %w", err)
	}

	store, err := storage.NewLocalStore(cfg.ResultsDir)
	if err != nil {
		det.Close()
		return nil, err
	}

	components := factory.NewComponentFactory(cfg)
	mirror, err := components.MirrorFactory.CreateMirror(ctx, factory.MirrorType(cfg.Mirror.Type))
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("failed to create artifact mirror: %w", err)
	}

	ids := naming.NewUUIDGenerator()
	repo := repository.NewArtifactRepository(store, mirror, ids)
	materializer := service.NewMaterializer(repo, annotate.NewBoxAnnotator(cfg.AnnotatedMaxWidth))

	links := strategy.NewLinkStrategy(cfg.PublicBaseURL)

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	detectionService := service.NewDetectionService(service.Dependencies{
		Validator:    validation.NewUploadValidator(cfg.AllowedExtensions),
		Stager:       storage.NewStager(cfg.StagingDir, ids),
		Detector:     det,
		Classes:      classes,
		Materializer: materializer,
		Links:        links,
		Events:       publisher,
		RequestIDs:   ids,
	})

	deps := transport.Dependencies{
		Service:   detectionService,
		Artifacts: store,
		Metrics:   metrics,
	}
	if pool, ok := det.(transport.PoolSource); ok {
		deps.Pool = pool
	}

	mirrorName := "none"
	if mirror != nil {
		mirrorName = mirror.Name()
	}
	logger.WithFields(logrus.Fields{
		"classes":           []string(classes),
		"results_dir":       store.Root(),
		"mirror":            mirrorName,
		"links":             links.GetStrategyName(),
		"inference_workers": cfg.InferenceWorkers,
	}).Info("Detection pipeline configured")

	return &Container{
		config:           cfg,
		detector:         det,
		store:            store,
		mirror:           mirror,
		metrics:          metrics,
		detectionService: detectionService,
		handler:          transport.NewHandler(deps, cfg),
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// DetectionService returns the request pipeline
func (c *Container) DetectionService() service.DetectionService {
	return c.detectionService
}

// CheckInference probes the detection collaborator when it supports it
func (c *Container) CheckInference(ctx context.Context) error {
	if hc, ok := c.detector.(detector.HealthChecker); ok {
		return hc.CheckHealth(ctx)
	}
	return nil
}

// Close waits for in-flight inferences and releases the detector
func (c *Container) Close() error {
	return c.detector.Close()
}
