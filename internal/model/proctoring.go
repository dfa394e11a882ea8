package model

import (
	"time"

	"github.com/google/uuid"
)

// ProctoringEvent is an append-only proctoring signal reported by the exam
// client (tab switch, face missing, fullscreen exit, ...). The event type is
// an open enumeration — any tag is accepted.
type ProctoringEvent struct {
	ID         int64     `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	EventType  string    `json:"event_type"`
	Details    string    `json:"details,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Snapshot is an append-only webcam capture tied to a session. ImageData is
// an opaque base64-encoded payload; the server never decodes it.
type Snapshot struct {
	ID         int64     `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	ImageData  string    `json:"image_data"`
	RecordedAt time.Time `json:"recorded_at"`
}

// LogActivityRequest is the payload for reporting a proctoring event.
type LogActivityRequest struct {
	EventType string `json:"event_type" binding:"required,min=1,max=50"`
	Details   string `json:"details" binding:"max=2000"`
}

// UploadSnapshotRequest is the payload for uploading a webcam snapshot.
type UploadSnapshotRequest struct {
	ImageData string `json:"image_data" binding:"required"`
}
