package models

// DetectResponse is the body returned by POST /detect
type DetectResponse struct {
	Detections       []Detection `json:"detections"`
	JSONResultURL    string      `json:"json_result_url"`
	DetectedImageURL string      `json:"detected_image_url,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// HealthResponse is the body returned by GET /health
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Time      string                 `json:"time"`
	Requests  map[string]interface{} `json:"requests,omitempty"`
	Inference map[string]interface{} `json:"inference,omitempty"`
}
