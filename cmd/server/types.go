package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/QuizMix/pkg/models"
	"github.com/himanishpuri/QuizMix/pkg/quizmix"
)

// ItemDTO represents one playlist entry in API responses
type ItemDTO struct {
	Position    int       `json:"position"`
	Fingerprint string    `json:"fingerprint"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title,omitempty"`
	Artist      string    `json:"artist,omitempty"`
	PreviewURL  string    `json:"preview_url"`
	AddedAt     time.Time `json:"added_at"`
}

// NoticeDTO is a transient message for the UI
type NoticeDTO struct {
	Kind        string `json:"kind"`
	FileName    string `json:"file_name,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Message     string `json:"message"`
	DurationMs  int64  `json:"duration_ms"`
}

// SessionResponse is the response for GET /api/sessions/{id} and most
// mutating session endpoints
type SessionResponse struct {
	ID             string      `json:"id"`
	Items          []ItemDTO   `json:"items"`
	Count          int         `json:"count"`
	CanConcatenate bool        `json:"can_concatenate"`
	Notices        []NoticeDTO `json:"notices,omitempty"`
}

// UploadResponse is the response for POST /api/sessions/{id}/clips
type UploadResponse struct {
	SessionResponse
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// ReorderRequest is the request body for POST /api/sessions/{id}/reorder
type ReorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

// Validate checks if the request is valid
func (r *ReorderRequest) Validate() error {
	if r.From == nil || r.To == nil {
		return fmt.Errorf("from and to are required")
	}
	return nil
}

// ReorderResponse reports the indices that were applied after clamping
type ReorderResponse struct {
	SessionResponse
	From int `json:"from"`
	To   int `json:"to"`
}

// ExportResponse is the response for POST /api/sessions/{id}/concatenate
type ExportResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	DurationMs  int64  `json:"duration_ms"`
	Segments    int    `json:"segments"`
	DownloadURL string `json:"download_url"`
}

// ConfirmationResponse is returned with 409 when an action needs the user's
// consent. Repeat the request with ?confirm=true to proceed.
type ConfirmationResponse struct {
	Error    string `json:"error"`
	Question string `json:"question"`
	Confirm  string `json:"confirm"`
}

// HealthResponse provides server health and storage metrics
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Sessions int    `json:"sessions"`
	Clips    int64  `json:"clips"`
	Database string `json:"database"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func toItemDTOs(sessionID string, items []models.Item) []ItemDTO {
	out := make([]ItemDTO, len(items))
	for i, it := range items {
		out[i] = ItemDTO{
			Position:    i,
			Fingerprint: it.Fingerprint,
			Name:        it.Name,
			DisplayName: it.DisplayName(),
			Size:        it.Size,
			ContentType: it.ContentType,
			PreviewURL:  fmt.Sprintf("/api/sessions/%s/clips/%s/audio", sessionID, it.Fingerprint),
			AddedAt:     it.AddedAt,
		}
		if it.Tags != nil {
			out[i].Title = it.Tags.Title
			out[i].Artist = it.Tags.Artist
		}
	}
	return out
}

func toNoticeDTOs(notices []models.Notice) []NoticeDTO {
	if len(notices) == 0 {
		return nil
	}
	out := make([]NoticeDTO, len(notices))
	for i, n := range notices {
		out[i] = NoticeDTO{
			Kind:        string(n.Kind),
			FileName:    n.FileName,
			Fingerprint: n.Fingerprint,
			Message:     n.Message,
			DurationMs:  n.Duration.Milliseconds(),
		}
	}
	return out
}

func sessionResponse(sess *quizmix.Session) SessionResponse {
	items := sess.Items()
	return SessionResponse{
		ID:             sess.ID,
		Items:          toItemDTOs(sess.ID, items),
		Count:          len(items),
		CanConcatenate: len(items) > 0,
		Notices:        toNoticeDTOs(sess.Notices()),
	}
}

func exportResponse(exp *quizmix.Export) ExportResponse {
	return ExportResponse{
		ID:          exp.ID,
		FileName:    exp.FileName,
		ContentType: exp.ContentType,
		Size:        exp.Size(),
		DurationMs:  exp.Duration.Milliseconds(),
		Segments:    exp.Segments,
		DownloadURL: "/api/exports/" + exp.ID,
	}
}
