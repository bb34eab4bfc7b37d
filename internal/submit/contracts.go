package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assessment-attempt-service/internal/backend"
	"assessment-attempt-service/internal/domain"
)

// Request carries everything a contract needs to phrase a submission.
type Request struct {
	AttemptID        string
	QuizID           string
	StudentID        string
	Answers          map[string][]string
	TimeSpentSeconds int
}

// Contract is one named wire shape for the submit operation. The backend
// surface is inconsistent across deployments; each contract owns its own
// request and response mapping for the same semantic operation.
type Contract interface {
	Name() string
	Submit(ctx context.Context, client *backend.Client, req Request) (domain.Result, error)
}

// errUnmappableResponse marks a 2xx response whose body carried no
// recognizable score; the next contract shape is worth trying.
var errUnmappableResponse = errors.New("response carried no recognizable score")

// PrimaryContract is the current assessment-service shape: attempt-scoped
// URL, answers as an array of objects.
type PrimaryContract struct{}

func (PrimaryContract) Name() string { return "primary" }

func (PrimaryContract) Submit(ctx context.Context, client *backend.Client, req Request) (domain.Result, error) {
	answers := make([]map[string]any, 0, len(req.Answers))
	for questionID, optionIDs := range req.Answers {
		answers = append(answers, map[string]any{
			"questionId": questionID,
			"optionIds":  optionIDs,
		})
	}
	payload, err := client.PostJSON(ctx, "/api/v1/attempts/"+req.AttemptID+"/submit", map[string]any{
		"answers":          answers,
		"timeSpentSeconds": req.TimeSpentSeconds,
	})
	if err != nil {
		return domain.Result{}, err
	}
	return resultFromPayload(payload)
}

// LegacyContract is the older quiz-scoped shape: answers keyed by question
// ID, time reported as timeSpent.
type LegacyContract struct{}

func (LegacyContract) Name() string { return "legacy" }

func (LegacyContract) Submit(ctx context.Context, client *backend.Client, req Request) (domain.Result, error) {
	payload, err := client.PostJSON(ctx, "/api/quizzes/"+req.QuizID+"/attempts/"+req.AttemptID+"/submit", map[string]any{
		"studentId": req.StudentID,
		"answers":   req.Answers,
		"timeSpent": req.TimeSpentSeconds,
	})
	if err != nil {
		return domain.Result{}, err
	}
	return resultFromPayload(payload)
}

// CompatContract is the flat shape some deployments still expose: a single
// submissions endpoint, selections joined into comma-separated strings.
type CompatContract struct{}

func (CompatContract) Name() string { return "compat" }

func (CompatContract) Submit(ctx context.Context, client *backend.Client, req Request) (domain.Result, error) {
	responses := make([]map[string]any, 0, len(req.Answers))
	for questionID, optionIDs := range req.Answers {
		responses = append(responses, map[string]any{
			"question": questionID,
			"selected": strings.Join(optionIDs, ","),
		})
	}
	payload, err := client.PostJSON(ctx, "/api/v1/quiz-submissions", map[string]any{
		"attemptId":       req.AttemptID,
		"quizId":          req.QuizID,
		"studentId":       req.StudentID,
		"responses":       responses,
		"durationSeconds": req.TimeSpentSeconds,
	})
	if err != nil {
		return domain.Result{}, err
	}
	return resultFromPayload(payload)
}

// resultFromPayload maps a confirmation body onto a Result, probing the
// field aliases seen across deployments.
func resultFromPayload(payload map[string]any) (domain.Result, error) {
	for _, key := range []string{"result", "data"} {
		if inner, ok := payload[key].(map[string]any); ok {
			payload = inner
			break
		}
	}

	pct, pctOK := intAlias(payload, "percentageScore", "percentage", "percent", "scorePercent")
	raw, rawOK := intAlias(payload, "score", "rawScore", "points")
	if !pctOK && !rawOK {
		return domain.Result{}, fmt.Errorf("%w: %v", errUnmappableResponse, payload)
	}

	correct, _ := intAlias(payload, "correctAnswers", "correct", "correctCount")
	total, _ := intAlias(payload, "totalQuestions", "total", "questionCount")
	passed, _ := payload["passed"].(bool)
	if !passed {
		if b, ok := payload["isPassed"].(bool); ok {
			passed = b
		}
	}

	return domain.Result{
		RawScore:        raw,
		PercentageScore: pct,
		CorrectAnswers:  correct,
		TotalQuestions:  total,
		Passed:          passed,
	}, nil
}

func intAlias(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		if f, ok := m[key].(float64); ok {
			return int(f), true
		}
	}
	return 0, false
}
