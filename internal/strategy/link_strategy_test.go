package strategy

import "testing"

func TestNewLinkStrategy(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		wantName string
		wantLink string
	}{
		{"relative by default", "", "relative", "/results/result_abc.json"},
		{"blank base is relative", "   ", "relative", "/results/result_abc.json"},
		{"absolute", "https://detect.example.com", "absolute", "https://detect.example.com/results/result_abc.json"},
		{"absolute trailing slash", "http://localhost:8080/", "absolute", "http://localhost:8080/results/result_abc.json"},
		{"absolute with path prefix", "https://example.com/api", "absolute", "https://example.com/api/results/result_abc.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLinkStrategy(tt.baseURL)
			if s.GetStrategyName() != tt.wantName {
				t.Errorf("Expected %s strategy, got %s", tt.wantName, s.GetStrategyName())
			}
			if got := s.Link("result_abc.json"); got != tt.wantLink {
				t.Errorf("Expected %s, got %s", tt.wantLink, got)
			}
		})
	}
}
