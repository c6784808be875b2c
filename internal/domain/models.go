package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quiz is an authored, timed quiz addressable by its access code.
type Quiz struct {
	ID        string
	Title     string
	Code      string
	Active    bool
	OwnerID   int64
	CreatedAt time.Time
	Deadline  time.Time
}

// QuestionKey holds the canonical answer for one question of a quiz.
// Numbers are unique within a quiz but not necessarily contiguous.
type QuestionKey struct {
	Number int
	Answer string
	Weight decimal.Decimal
}

// Participant is a chat user identified by the transport.
type Participant struct {
	ID          int64
	DisplayName string
	Username    string
}

// Submission is the single accepted answer block of a participant for a quiz.
// The raw block keeps the normalized "number answer" lines as entered.
type Submission struct {
	Participant Participant
	QuizID      string
	RawAnswers  string
	SubmittedAt time.Time
}

// QuizSummary is the admin-facing view of a quiz: its definition, the full
// answer key, and how many participants have submitted.
type QuizSummary struct {
	Quiz        Quiz
	Questions   []QuestionKey
	Submissions int
}
