package model

import (
	"github.com/google/uuid"
)

// Question is a single multiple-choice question belonging to one exam
// session. Immutable after creation. CorrectAnswer is never serialized to
// clients — correctness is checked server-side only.
type Question struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"-"`
}
