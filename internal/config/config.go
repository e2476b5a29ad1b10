package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-opening-detector/pkg/validation"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	// Detection collaborator
	ModelPath        string
	InferenceURL     string
	InferenceTimeout time.Duration
	InferenceWorkers int
	ClassNames       []string

	// Staging and results
	ResultsDir        string
	StagingDir        string
	PublicBaseURL     string
	Annotate          bool
	AnnotatedMaxWidth int
	AllowedExtensions []string

	// AllowedURLHosts restricts INFERENCE_URL and PUBLIC_BASE_URL hosts; empty allows any
	AllowedURLHosts []string

	Mirror MirrorConfig
}

// MirrorConfig selects an optional remote copy of every persisted artifact
type MirrorConfig struct {
	Type string // "none", "azure" or "s3"

	AzureAccount   string
	AzureKey       string
	AzureContainer string

	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", 60*time.Second)
	v.SetDefault("MAX_REQUEST_BODY_SIZE", 20*1024*1024) // 20MB
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("MODEL_PATH", "models/best.pt")
	v.SetDefault("INFERENCE_URL", "http://localhost:5000/predict")
	v.SetDefault("INFERENCE_TIMEOUT", 45*time.Second)
	v.SetDefault("INFERENCE_WORKERS", 1)
	v.SetDefault("CLASS_NAMES", []string{"Door", "Window"})

	v.SetDefault("RESULTS_DIR", "results")
	v.SetDefault("STAGING_DIR", filepath.Join(os.TempDir(), "opening-detector"))
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("ANNOTATE", true)
	v.SetDefault("ANNOTATED_MAX_WIDTH", 0)
	v.SetDefault("ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "bmp", "webp"})
	v.SetDefault("ALLOWED_URL_HOSTS", []string{})

	v.SetDefault("MIRROR_TYPE", "none")
	v.SetDefault("AZURE_CONTAINER", "detections")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_BUCKET", "detections")
}

// LoadFromEnv reads configuration from the environment and, when CONFIG_FILE
// is set, from that file first. Environment variables take precedence.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := strings.TrimSpace(os.Getenv("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Host:               v.GetString("HOST"),
		Port:               v.GetString("PORT"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		MaxRequestBodySize: v.GetInt64("MAX_REQUEST_BODY_SIZE"),
		LogLevel:           v.GetString("LOG_LEVEL"),

		ModelPath:        strings.TrimSpace(v.GetString("MODEL_PATH")),
		InferenceURL:     strings.TrimSpace(v.GetString("INFERENCE_URL")),
		InferenceTimeout: v.GetDuration("INFERENCE_TIMEOUT"),
		InferenceWorkers: v.GetInt("INFERENCE_WORKERS"),
		ClassNames:       stringList(v, "CLASS_NAMES"),

		ResultsDir:        strings.TrimSpace(v.GetString("RESULTS_DIR")),
		StagingDir:        strings.TrimSpace(v.GetString("STAGING_DIR")),
		PublicBaseURL:     strings.TrimRight(strings.TrimSpace(v.GetString("PUBLIC_BASE_URL")), "/"),
		Annotate:          v.GetBool("ANNOTATE"),
		AnnotatedMaxWidth: v.GetInt("ANNOTATED_MAX_WIDTH"),
		AllowedExtensions: normalizeExtensions(stringList(v, "ALLOWED_EXTENSIONS")),
		AllowedURLHosts:   stringList(v, "ALLOWED_URL_HOSTS"),

		Mirror: MirrorConfig{
			Type:              strings.ToLower(strings.TrimSpace(v.GetString("MIRROR_TYPE"))),
			AzureAccount:      v.GetString("AZURE_STORAGE_ACCOUNT"),
			AzureKey:          v.GetString("AZURE_STORAGE_KEY"),
			AzureContainer:    v.GetString("AZURE_CONTAINER"),
			S3Endpoint:        v.GetString("S3_ENDPOINT"),
			S3Region:          v.GetString("S3_REGION"),
			S3Bucket:          v.GetString("S3_BUCKET"),
			S3AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			S3SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := createDirs(cfg); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.InferenceTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, inference=%s)",
			c.RequestTimeout, c.InferenceTimeout)
	}
	if c.InferenceWorkers < 1 {
		return fmt.Errorf("INFERENCE_WORKERS must be >= 1 (got %d)", c.InferenceWorkers)
	}
	if len(c.ClassNames) == 0 {
		return fmt.Errorf("CLASS_NAMES must list at least one class")
	}
	for i, name := range c.ClassNames {
		if name == "" {
			return fmt.Errorf("CLASS_NAMES entry %d is empty", i)
		}
	}
	if c.ResultsDir == "" || c.StagingDir == "" {
		return fmt.Errorf("RESULTS_DIR and STAGING_DIR must be set")
	}
	if c.AnnotatedMaxWidth < 0 {
		return fmt.Errorf("ANNOTATED_MAX_WIDTH must be >= 0 (got %d)", c.AnnotatedMaxWidth)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must list at least one extension")
	}

	urls := validation.NewURLValidator(c.AllowedURLHosts...)
	if err := urls.ValidateURL(c.InferenceURL); err != nil {
		return fmt.Errorf("invalid INFERENCE_URL: %w", err)
	}
	if c.PublicBaseURL != "" {
		if err := urls.ValidateURL(c.PublicBaseURL); err != nil {
			return fmt.Errorf("invalid PUBLIC_BASE_URL: %w", err)
		}
	}

	switch c.Mirror.Type {
	case "", "none":
		c.Mirror.Type = "none"
	case "azure":
		if c.Mirror.AzureAccount == "" || c.Mirror.AzureKey == "" || c.Mirror.AzureContainer == "" {
			return fmt.Errorf("azure mirror requires AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_CONTAINER")
		}
	case "s3":
		if c.Mirror.S3Bucket == "" || c.Mirror.S3Region == "" {
			return fmt.Errorf("s3 mirror requires S3_BUCKET and S3_REGION")
		}
	default:
		return fmt.Errorf("unsupported MIRROR_TYPE: %q", c.Mirror.Type)
	}
	return nil
}

// stringList reads an ordered list. Environment values arrive as a single
// comma separated string; config files may provide a real list.
func stringList(v *viper.Viper, key string) []string {
	var items []string
	if s, ok := v.Get(key).(string); ok {
		items = strings.Split(s, ",")
	} else {
		items = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.TrimSpace(item))
	}
	// A trailing comma in the env value should not produce a phantom class.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

func createDirs(cfg *Config) error {
	for _, dir := range []string{cfg.ResultsDir, cfg.StagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
