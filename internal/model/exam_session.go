package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamMode selects how many questions a session starts with and whether it
// may grow question-by-question afterwards.
type ExamMode string

const (
	ExamModeNormal  ExamMode = "normal"
	ExamModeEndless ExamMode = "endless"
)

// InitialQuestionCount returns how many questions are generated at session
// creation for this mode. Normal exams start with a full set, endless exams
// start with a single question and grow on demand.
func (m ExamMode) InitialQuestionCount() int {
	if m == ExamModeEndless {
		return 1
	}
	return 5
}

// ExamSession represents one user's exam attempt, from setup to result.
type ExamSession struct {
	ID             uuid.UUID  `json:"id"`
	UserID         int        `json:"user_id"`
	Subject        string     `json:"subject"`
	Difficulty     string     `json:"difficulty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	IsCompleted    bool       `json:"is_completed"`
	IsEndless      bool       `json:"is_endless"`
}

// CreateSessionRequest is the payload for starting a new exam session.
type CreateSessionRequest struct {
	Subject    string `json:"subject" binding:"required,min=1,max=100"`
	Difficulty string `json:"difficulty" binding:"required,min=1,max=20"`
	Mode       string `json:"mode" binding:"required,oneof=normal endless"`
}
