package domain

import "errors"

var (
	// ErrQuizNotFound indicates no active quiz matches the given code or id.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAlreadySubmitted is returned when a participant already has a
	// submission for the quiz; one submission per (participant, quiz) is final.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrDeadlinePassed is returned when the quiz deadline is over.
	ErrDeadlinePassed = errors.New("quiz deadline passed")
	// ErrNotAuthorized is returned when the actor is neither the owner nor
	// on the admin list.
	ErrNotAuthorized = errors.New("not authorized")
)

// IsEligibility reports whether err is one of the terminal per-attempt
// rejections. They end the conversation; everything else is either a
// recoverable input error or a store failure.
func IsEligibility(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrAlreadySubmitted) ||
		errors.Is(err, ErrDeadlinePassed) ||
		errors.Is(err, ErrNotAuthorized)
}
