package domain

import "errors"

var (
	// ErrNoQuestions is returned when a quiz payload contains no usable questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptAlreadyActive is returned when a student starts an attempt
	// while another attempt for the same quiz is still live.
	ErrAttemptAlreadyActive = errors.New("attempt already active")
	// ErrAttemptNotStarted is returned when an operation requires a running attempt.
	ErrAttemptNotStarted = errors.New("attempt not started")
	// ErrAttemptFinished is returned when an operation arrives after the
	// attempt has entered submission or completed.
	ErrAttemptFinished = errors.New("attempt already finished")
	// ErrDuplicateSubmit indicates a second submission trigger was rejected.
	ErrDuplicateSubmit = errors.New("submission already in flight")
)
