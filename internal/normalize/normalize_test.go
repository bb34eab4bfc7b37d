package normalize

import (
	"errors"
	"testing"

	"assessment-attempt-service/internal/domain"
)

func TestNormalizeCanonicalPayload(t *testing.T) {
	raw := []byte(`{
		"id": "quiz-1",
		"title": "Networking Basics",
		"durationMinutes": 15,
		"passingScorePercent": 70,
		"questions": [
			{
				"id": "q1",
				"text": "Which port does HTTPS use?",
				"type": "single-choice",
				"points": 2,
				"options": [
					{"id": "o1", "text": "80"},
					{"id": "o2", "text": "443", "correct": true}
				]
			}
		]
	}`)

	quiz, err := Quiz("quiz-1", raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if quiz.Title != "Networking Basics" || quiz.DurationMinutes != 15 || quiz.PassingScorePercent != 70 {
		t.Fatalf("unexpected quiz header: %+v", quiz)
	}
	if len(quiz.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(quiz.Questions))
	}
	q := quiz.Questions[0]
	if q.Type != domain.SingleChoice || q.Points != 2 {
		t.Fatalf("unexpected question: %+v", q)
	}
	if len(q.Correct) != 1 || q.Correct[0] != "o2" {
		t.Fatalf("expected correct set [o2], got %v", q.Correct)
	}
}

func TestNormalizeAliasedFields(t *testing.T) {
	raw := []byte(`{
		"quizId": "quiz-2",
		"name": "Aliases",
		"timeLimit": 10,
		"passingScore": 50,
		"items": [
			{
				"questionId": "q1",
				"question": "Pick one",
				"questionType": "single",
				"answers": [
					{"optionId": "a", "label": "A"},
					{"optionId": "b", "label": "B"}
				],
				"correctAnswer": "b"
			}
		]
	}`)

	quiz, err := Quiz("quiz-2", raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if quiz.DurationMinutes != 10 || quiz.PassingScorePercent != 50 {
		t.Fatalf("alias extraction failed: %+v", quiz)
	}
	q := quiz.Questions[0]
	if q.Text != "Pick one" || len(q.Options) != 2 || q.Options[1].ID != "b" {
		t.Fatalf("unexpected question: %+v", q)
	}
	if len(q.Correct) != 1 || q.Correct[0] != "b" {
		t.Fatalf("expected correct [b], got %v", q.Correct)
	}
}

func TestNormalizeSynthesizesStableOptionIDs(t *testing.T) {
	raw := []byte(`{
		"questions": [
			{"id": "q1", "text": "Choose", "options": [{"text": "first"}, {"text": "second"}]}
		]
	}`)

	first, err := Quiz("quiz-3", raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	second, err := Quiz("quiz-3", raw)
	if err != nil {
		t.Fatalf("normalize again: %v", err)
	}

	for i := range first.Questions[0].Options {
		a := first.Questions[0].Options[i].ID
		b := second.Questions[0].Options[i].ID
		if a == "" || a != b {
			t.Fatalf("option %d id not stable: %q vs %q", i, a, b)
		}
	}
	if first.Questions[0].Options[0].ID == first.Questions[0].Options[1].ID {
		t.Fatalf("synthesized ids must be unique within a question")
	}
}

func TestNormalizeTrueFalseCanonicalOptions(t *testing.T) {
	raw := []byte(`{
		"questions": [
			{"id": "q1", "text": "Go has generics", "type": "true_false", "correctAnswer": true}
		]
	}`)

	quiz, err := Quiz("quiz-4", raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	q := quiz.Questions[0]
	if q.Type != domain.TrueFalse {
		t.Fatalf("expected true-false, got %s", q.Type)
	}
	if len(q.Options) != 2 || q.Options[0].ID != "true" || q.Options[1].ID != "false" {
		t.Fatalf("expected canonical true/false options, got %+v", q.Options)
	}
	if len(q.Correct) != 1 || q.Correct[0] != "true" {
		t.Fatalf("expected correct [true], got %v", q.Correct)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	raw := []byte(`{"questions": [{"id": "q1", "text": "No type, no points", "options": [{"id": "o1"}]}]}`)

	quiz, err := Quiz("quiz-5", raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	q := quiz.Questions[0]
	if q.Type != domain.SingleChoice {
		t.Fatalf("expected single-choice default, got %s", q.Type)
	}
	if q.Points != 1 {
		t.Fatalf("expected default 1 point, got %d", q.Points)
	}
	if q.Options[0].Text == "" {
		t.Fatalf("expected placeholder option text")
	}
}

func TestNormalizeNoQuestions(t *testing.T) {
	for _, raw := range []string{`{}`, `{"questions": []}`, `{"title": "empty"}`} {
		_, err := Quiz("quiz-6", []byte(raw))
		if !errors.Is(err, domain.ErrNoQuestions) {
			t.Fatalf("payload %s: expected ErrNoQuestions, got %v", raw, err)
		}
	}
}

func TestNormalizeNestedWrapper(t *testing.T) {
	raw := []byte(`{"quiz": {"questions": [{"id": "q1", "text": "Nested", "options": [{"id": "o1", "text": "x"}]}]}}`)

	quiz, err := Quiz("quiz-7", raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].ID != "q1" {
		t.Fatalf("expected nested question list located, got %+v", quiz.Questions)
	}
}
