// Package server provides the HTTP server for the audio downloader API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// DownloadRequest is the HTTP request body for POST /api/download.
type DownloadRequest struct {
	// URL is the video page or short link. It is checked by the download
	// service so an empty value gets the same message as a foreign host.
	URL string `json:"url"`
	// Format is the target audio format. Defaults to mp3.
	Format string `json:"format" validate:"omitempty,oneof=mp3 wav m4a flac ogg"`
	// Quality is the quality tier (high, medium, low). Defaults to high;
	// unknown values fall back to the best available stream.
	Quality string `json:"quality"`
	// PushToS3 also uploads the finished file to S3 when configured.
	PushToS3 bool `json:"push_to_s3"`
}

// DownloadResponse is the HTTP response of a successful download.
type DownloadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// FileID is the opaque token for GET /api/download-file/{id}.
	FileID string `json:"file_id"`
	// FileName is the name the file will be served under.
	FileName string `json:"file_name"`
	Title    string `json:"title"`
	// DownloadURL is the relative URL that serves the file.
	DownloadURL string `json:"download_url"`
	// URL is the S3 URL of the file (if push_to_s3=true and publishing succeeded).
	URL string `json:"url,omitempty"`
}

// CreateStatusRequest is the HTTP request body for POST /api/status.
type CreateStatusRequest struct {
	ClientName string `json:"client_name" validate:"required"`
}

// StatusResponse is a single status check record.
type StatusResponse struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// RootResponse is the HTTP response of GET /api/.
type RootResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Detail is the human-readable error message.
	Detail string `json:"detail"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
