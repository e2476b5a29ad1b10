package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func setDirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	results := filepath.Join(root, "results")
	staging := filepath.Join(root, "staging")
	t.Setenv("RESULTS_DIR", results)
	t.Setenv("STAGING_DIR", staging)
	return results, staging
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	results, staging := setDirs(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if !reflect.DeepEqual(cfg.ClassNames, []string{"Door", "Window"}) {
		t.Errorf("Unexpected default class names: %v", cfg.ClassNames)
	}
	if cfg.InferenceWorkers != 1 {
		t.Errorf("Expected 1 inference worker, got %d", cfg.InferenceWorkers)
	}
	if !cfg.Annotate {
		t.Error("Expected annotation enabled by default")
	}
	if cfg.PublicBaseURL != "" {
		t.Errorf("Expected relative links by default, got base %q", cfg.PublicBaseURL)
	}
	if cfg.Mirror.Type != "none" {
		t.Errorf("Expected no mirror, got %q", cfg.Mirror.Type)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Unexpected address %s", cfg.ServerAddress())
	}

	for _, dir := range []string{results, staging} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s to be created", dir)
		}
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setDirs(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CLASS_NAMES", "Door, Window ,Skylight,")
	t.Setenv("PUBLIC_BASE_URL", "https://detect.example.com/")
	t.Setenv("INFERENCE_TIMEOUT", "5s")
	t.Setenv("INFERENCE_WORKERS", "3")
	t.Setenv("ANNOTATE", "false")
	t.Setenv("ALLOWED_EXTENSIONS", ".JPG,png")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if !reflect.DeepEqual(cfg.ClassNames, []string{"Door", "Window", "Skylight"}) {
		t.Errorf("Unexpected class names: %v", cfg.ClassNames)
	}
	if cfg.PublicBaseURL != "https://detect.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.PublicBaseURL)
	}
	if cfg.InferenceTimeout != 5*time.Second {
		t.Errorf("Expected 5s inference timeout, got %s", cfg.InferenceTimeout)
	}
	if cfg.InferenceWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.InferenceWorkers)
	}
	if cfg.Annotate {
		t.Error("Expected annotation disabled")
	}
	if !reflect.DeepEqual(cfg.AllowedExtensions, []string{"jpg", "png"}) {
		t.Errorf("Unexpected extensions: %v", cfg.AllowedExtensions)
	}
}

func TestLoadFromEnv_ConfigFile(t *testing.T) {
	setDirs(t)
	file := filepath.Join(t.TempDir(), "detector.yaml")
	content := "CLASS_NAMES:\n  - Door\n  - Window\n  - Gate\nPORT: \"7070\"\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", file)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.ClassNames, []string{"Door", "Window", "Gate"}) {
		t.Errorf("Unexpected class names from file: %v", cfg.ClassNames)
	}
	if cfg.Port != "7070" {
		t.Errorf("Expected port from file, got %s", cfg.Port)
	}
}

func TestLoadFromEnv_AllowedURLHosts(t *testing.T) {
	setDirs(t)
	t.Setenv("ALLOWED_URL_HOSTS", "models.internal, detect.example.com")
	t.Setenv("INFERENCE_URL", "http://models.internal:5000/predict")
	t.Setenv("PUBLIC_BASE_URL", "https://detect.example.com")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.AllowedURLHosts, []string{"models.internal", "detect.example.com"}) {
		t.Errorf("Unexpected allowed hosts: %v", cfg.AllowedURLHosts)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"PORT": "99999"}, "invalid PORT"},
		{"zero body size", map[string]string{"MAX_REQUEST_BODY_SIZE": "0"}, "MAX_REQUEST_BODY_SIZE"},
		{"zero workers", map[string]string{"INFERENCE_WORKERS": "0"}, "INFERENCE_WORKERS"},
		{"empty class", map[string]string{"CLASS_NAMES": "Door,,Window"}, "CLASS_NAMES entry 1"},
		{"bad inference url", map[string]string{"INFERENCE_URL": "ftp://models"}, "INFERENCE_URL"},
		{"bad base url", map[string]string{"PUBLIC_BASE_URL": "not a url"}, "PUBLIC_BASE_URL"},
		{"unknown mirror", map[string]string{"MIRROR_TYPE": "gcs"}, "unsupported MIRROR_TYPE"},
		{"azure without key", map[string]string{"MIRROR_TYPE": "azure", "AZURE_STORAGE_ACCOUNT": "acct"}, "azure mirror"},
		{"negative width", map[string]string{"ANNOTATED_MAX_WIDTH": "-1"}, "ANNOTATED_MAX_WIDTH"},
		{"inference host not allowed", map[string]string{"ALLOWED_URL_HOSTS": "models.internal"}, "INFERENCE_URL"},
		{"base host not allowed", map[string]string{
			"ALLOWED_URL_HOSTS": "localhost",
			"PUBLIC_BASE_URL":   "https://cdn.example.com",
		}, "PUBLIC_BASE_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setDirs(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
