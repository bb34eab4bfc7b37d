package domain

import "time"

// QuestionType is the closed set of question shapes the engine understands.
type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
)

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models a normalized quiz question. Correct holds the set of
// correct option IDs; scoring compares the student's selection against it
// with exact set equality.
type Question struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Points  int          `json:"points"` // defaults to 1 if zero
	Options []Option     `json:"options"`
	Correct []string     `json:"correct,omitempty"`
}

// Quiz is the canonical quiz shape produced by the normalizer. Immutable for
// the life of any attempt that references it.
type Quiz struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	DurationMinutes     int        `json:"durationMinutes"`
	PassingScorePercent int        `json:"passingScorePercent"`
	Questions           []Question `json:"questions"`
}

// AttemptStatus is the lifecycle state of an attempt.
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "not_started"
	StatusInProgress AttemptStatus = "in_progress"
	StatusSubmitting AttemptStatus = "submitting"
	StatusCompleted  AttemptStatus = "completed"
	StatusExpired    AttemptStatus = "expired"
	StatusError      AttemptStatus = "error"
)

// Attempt is one student's single timed run through a quiz. The lifecycle
// controller owns it exclusively; nothing mutates it once a Result exists.
type Attempt struct {
	ID        string        `json:"id"`
	QuizID    string        `json:"quizId"`
	StudentID string        `json:"studentId"`
	Status    AttemptStatus `json:"status"`
	StartTime time.Time     `json:"startTime"`
	// Answers maps question ID to the set of selected option IDs.
	Answers map[string][]string `json:"answers"`
}

// Result is the final outcome of an attempt, created exactly once.
// Degraded marks a score computed locally without server confirmation.
type Result struct {
	AttemptID        string `json:"attemptId"`
	RawScore         int    `json:"rawScore"`
	PercentageScore  int    `json:"percentageScore"`
	CorrectAnswers   int    `json:"correctAnswers"`
	TotalQuestions   int    `json:"totalQuestions"`
	Passed           bool   `json:"passed"`
	Degraded         bool   `json:"degraded"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}
