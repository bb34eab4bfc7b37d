// Package normalize converts raw quiz payloads of unknown shape into the
// canonical domain.Quiz. Backend deployments disagree on field names, so
// every lookup probes an ordered list of aliases and defaults instead of
// failing; the only hard error is a payload with no questions at all.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"assessment-attempt-service/internal/domain"
)

var questionListKeys = []string{"questions", "items", "quizQuestions", "data"}

// Quiz normalizes a raw JSON quiz payload. Pure function of its input:
// repeated calls on the same payload produce identical quizzes, including
// synthesized option IDs.
func Quiz(quizID string, raw []byte) (domain.Quiz, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz payload: %w", err)
	}
	return QuizFromMap(quizID, payload)
}

// QuizFromMap normalizes an already-decoded payload.
func QuizFromMap(quizID string, payload map[string]any) (domain.Quiz, error) {
	quiz := domain.Quiz{
		ID:                  stringField(payload, quizID, "id", "_id", "quizId"),
		Title:               stringField(payload, "", "title", "name"),
		Description:         stringField(payload, "", "description", "summary"),
		DurationMinutes:     intField(payload, 0, "durationMinutes", "duration", "timeLimit", "timeLimitMinutes"),
		PassingScorePercent: intField(payload, 0, "passingScorePercent", "passingScore", "passPercent"),
	}

	rawQuestions := questionList(payload)
	for i, rq := range rawQuestions {
		qm, ok := rq.(map[string]any)
		if !ok {
			continue
		}
		quiz.Questions = append(quiz.Questions, question(quiz.ID, i, qm))
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, domain.ErrNoQuestions
	}
	return quiz, nil
}

func questionList(payload map[string]any) []any {
	for _, key := range questionListKeys {
		if list, ok := payload[key].([]any); ok && len(list) > 0 {
			return list
		}
	}
	// Some deployments nest the quiz under a wrapper object.
	for _, key := range []string{"quiz", "result", "payload"} {
		if inner, ok := payload[key].(map[string]any); ok {
			if list := questionList(inner); list != nil {
				return list
			}
		}
	}
	return nil
}

func question(quizID string, ordinal int, qm map[string]any) domain.Question {
	q := domain.Question{
		ID:     stringField(qm, fmt.Sprintf("%s-q%d", quizID, ordinal+1), "id", "_id", "questionId"),
		Text:   stringField(qm, "", "text", "question", "prompt", "questionText", "title"),
		Type:   questionType(stringField(qm, "", "type", "questionType")),
		Points: intField(qm, 1, "points", "score", "weight"),
	}
	if q.Points <= 0 {
		q.Points = 1
	}

	if q.Type == domain.TrueFalse {
		// Canonical two-option set regardless of what the server sent.
		q.Options = []domain.Option{
			{ID: "true", Text: "True"},
			{ID: "false", Text: "False"},
		}
		q.Correct = trueFalseCorrect(qm)
		return q
	}

	q.Options = options(q.ID, qm)
	q.Correct = correctSet(qm, q.Options)
	return q
}

func options(questionID string, qm map[string]any) []domain.Option {
	var rawList []any
	for _, key := range []string{"options", "answers", "choices"} {
		if list, ok := qm[key].([]any); ok && len(list) > 0 {
			rawList = list
			break
		}
	}

	opts := make([]domain.Option, 0, len(rawList))
	for i, ro := range rawList {
		switch v := ro.(type) {
		case map[string]any:
			opt := domain.Option{
				ID:   stringField(v, synthOptionID(questionID, i), "id", "_id", "optionId", "value"),
				Text: stringField(v, fmt.Sprintf("Option %d", i+1), "text", "label", "optionText", "title"),
			}
			opts = append(opts, opt)
		case string:
			// Bare-string options carry no identity of their own.
			opts = append(opts, domain.Option{ID: synthOptionID(questionID, i), Text: v})
		}
	}
	if len(opts) == 0 {
		// A question must have at least one option to be answerable.
		opts = append(opts, domain.Option{ID: synthOptionID(questionID, 0), Text: "Option 1"})
	}
	return opts
}

// synthOptionID derives a stable option identity from the question ID and
// ordinal, so repeated normalization of the same payload keeps answer-store
// identity comparisons valid.
func synthOptionID(questionID string, ordinal int) string {
	return fmt.Sprintf("%s-opt-%d", questionID, ordinal+1)
}

func correctSet(qm map[string]any, opts []domain.Option) []string {
	for _, key := range []string{"correctOptionIds", "correctAnswers", "correctOptions"} {
		if list, ok := qm[key].([]any); ok {
			out := make([]string, 0, len(list))
			for _, v := range list {
				if s := anyToString(v); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	for _, key := range []string{"correctAnswer", "correctOptionId", "answer"} {
		if s := anyToString(qm[key]); s != "" {
			return []string{s}
		}
	}
	// Fall back to option-level correct flags.
	var out []string
	if rawList, ok := qm["options"].([]any); ok {
		for i, ro := range rawList {
			om, ok := ro.(map[string]any)
			if !ok || i >= len(opts) {
				continue
			}
			if boolField(om, "correct", "isCorrect") {
				out = append(out, opts[i].ID)
			}
		}
	}
	return out
}

func trueFalseCorrect(qm map[string]any) []string {
	for _, key := range []string{"correctAnswer", "answer", "correct"} {
		switch v := qm[key].(type) {
		case bool:
			return []string{strconv.FormatBool(v)}
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "t", "yes", "1":
				return []string{"true"}
			case "false", "f", "no", "0":
				return []string{"false"}
			}
		}
	}
	return nil
}

func questionType(raw string) domain.QuestionType {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")) {
	case "multiple-choice", "multiple", "multi", "checkbox", "multi-select":
		return domain.MultipleChoice
	case "true-false", "truefalse", "boolean", "tf":
		return domain.TrueFalse
	default:
		return domain.SingleChoice
	}
}

func stringField(m map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if s := anyToString(m[key]); s != "" {
			return s
		}
	}
	return fallback
}

func intField(m map[string]any, fallback int, keys ...string) int {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			if v > 0 {
				return int(v)
			}
		case int:
			if v > 0 {
				return v
			}
		case string:
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return fallback
}

func boolField(m map[string]any, keys ...string) bool {
	for _, key := range keys {
		if b, ok := m[key].(bool); ok {
			return b
		}
	}
	return false
}

func anyToString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}
