package domain

import "errors"

var (
	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuestionNotFound indicates the question could not be loaded.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions is returned when no category has any question to serve.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInvalidOption indicates the selected option is outside the question's options.
	ErrInvalidOption = errors.New("selected option out of range")
	// ErrAttemptNotAllowed is returned when the attempt number exceeds the user's allowance.
	ErrAttemptNotAllowed = errors.New("attempt not allowed")
	// ErrVersionConflict signals a concurrent write to the same user record.
	ErrVersionConflict = errors.New("user record was modified concurrently")
	// ErrRoundAlreadySettled is returned when a prize window was already paid out.
	ErrRoundAlreadySettled = errors.New("round already settled")
)
