package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-opening-detector/internal/config"
	"go-opening-detector/internal/detector"
	apperrors "go-opening-detector/internal/errors"
	"go-opening-detector/internal/logger"
	"go-opening-detector/internal/service"
	"go-opening-detector/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// ArtifactFiles resolves persisted artifact names to local files
type ArtifactFiles interface {
	Path(name string) (string, error)
	Exists(name string) bool
}

// MetricsSource reports request counters
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

// PoolSource reports inference worker pool counters
type PoolSource interface {
	Stats() detector.PoolStats
}

// Dependencies groups what the HTTP layer needs
type Dependencies struct {
	Service   service.DetectionService
	Artifacts ArtifactFiles
	Metrics   MetricsSource
	Pool      PoolSource // optional
}

func NewHandler(deps Dependencies, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/", landing)
	r.GET("/health", healthCheck(deps))
	r.POST("/detect", detect(deps.Service, cfg))
	r.GET("/results/:name", serveArtifact(deps.Artifacts))

	return r
}

func landing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Door and window detection service. POST an image as multipart field \"file\" to /detect.",
	})
}

func detect(svc service.DetectionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// Log request start
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing detection request")

		annotate := cfg.Annotate
		if q := c.Query("annotate"); q != "" {
			v, err := strconv.ParseBool(q)
			if err != nil {
				respondError(c, apperrors.NewClientInputError("annotate must be true or false", err))
				return
			}
			annotate = v
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondError(c, uploadError(err))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, apperrors.NewClientInputError("failed to open uploaded file", err))
			return
		}
		defer file.Close()

		resp, err := svc.Detect(c.Request.Context(), service.Upload{
			Filename: fileHeader.Filename,
			Body:     file,
			Annotate: annotate,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		// Log successful completion
		logger.WithFields(logrus.Fields{
			"filename":           fileHeader.Filename,
			"size":               fileHeader.Size,
			"detections":         len(resp.Detections),
			"annotated":          annotate,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Detection request completed successfully")

		c.JSON(http.StatusOK, resp)
	}
}

// uploadError classifies a failure to extract the "file" form field
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return apperrors.NewClientInputError("no file part in the request", err)
	case errors.As(err, &maxErr):
		return apperrors.NewClientInputError("request body exceeds the size limit", err).
			WithStatus(http.StatusRequestEntityTooLarge)
	default:
		return apperrors.NewClientInputError("invalid multipart request", err)
	}
}

func serveArtifact(files ArtifactFiles) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		// in-progress writes are dot files
		if strings.HasPrefix(name, ".") || !files.Exists(name) {
			respondError(c, apperrors.NewNotFoundError("artifact not found", nil).WithDetails(name))
			return
		}
		path, err := files.Path(name)
		if err != nil {
			respondError(c, apperrors.NewNotFoundError("artifact not found", err))
			return
		}
		c.File(path)
	}
}

func healthCheck(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "available",
			Version: Version,
			Time:    time.Now().UTC().Format(time.RFC3339),
		}
		if deps.Metrics != nil {
			resp.Requests = deps.Metrics.GetMetrics()
		}
		if deps.Pool != nil {
			stats := deps.Pool.Stats()
			resp.Inference = map[string]interface{}{
				"workers":        stats.Workers,
				"total_jobs":     stats.TotalJobs,
				"completed_jobs": stats.CompletedJobs,
				"active_workers": stats.ActiveWorkers,
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Message + ": " + appErr.Details
		}
		return appErr.Message
	}
	return "internal server error"
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	errType := apperrors.GetType(err)

	// Log the error with context
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"error_type":  errType,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error: errorMessage(err),
		Type:  string(errType),
	})
}
