// Package server provides the HTTP surface over the transformation engine.
// It includes handlers, routes, and DTOs separated from domain types.
package server

// EditRequest is the HTTP request body for a single transformation.
type EditRequest struct {
	// SourceURL is the media blob to transform.
	SourceURL string `json:"source_url" validate:"required,url"`
	// Operation is the edit operation name.
	Operation string `json:"operation" validate:"required"`
	// Params holds the operation's parameters.
	Params map[string]any `json:"params"`
	// IsImage marks the source as an image rather than a video.
	IsImage bool `json:"is_image"`
}

// EditResponse is the HTTP response for a completed transformation.
type EditResponse struct {
	// ResultURL is the public URL of the transformed media.
	ResultURL string `json:"result_url"`
	// Warning is set when the operation degraded to a pass-through copy.
	Warning string `json:"warning,omitempty"`
}

// MergeRequest is the HTTP request body for concatenating clips.
type MergeRequest struct {
	// ClipURLs lists the source clips; order defines the final sequence.
	ClipURLs []string `json:"clip_urls" validate:"required,min=2,dive,url"`
}

// HistoryEntry is one recorded edit in the history listing.
type HistoryEntry struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	SourceURL string `json:"source_url"`
	ResultURL string `json:"result_url,omitempty"`
	Status    string `json:"status"`
	Warning   string `json:"warning,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
