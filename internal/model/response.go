package model

import (
	"github.com/google/uuid"
)

// Response records the answer a user selected for one question. There is at
// most one Response per (session, question) pair: re-answering the same
// question overwrites the previous row, the latest write wins.
type Response struct {
	ID             int64     `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      bool      `json:"is_correct"`
}

// SaveAnswerRequest is the payload for answering a question.
type SaveAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer string    `json:"selected_answer" binding:"required,max=255"`
}
