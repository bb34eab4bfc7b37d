package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"assessment-attempt-service/internal/domain"
)

func TestQuizRepositoryNormalizesAndCaches(t *testing.T) {
	source := &countingSource{
		PayloadSource: NewStaticQuizSource(map[string]map[string]any{
			"quiz-1": samplePayload(),
		}),
	}
	repo := NewQuizRepository(source, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source once, got %d", source.calls)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].Type != domain.SingleChoice {
		t.Fatalf("normalization missing: %+v", quiz)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}
}

func TestQuizRepositoryPropagatesNoQuestions(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizSource(map[string]map[string]any{
		"empty": {"title": "empty quiz"},
	}), time.Minute)

	_, err := repo.GetQuiz(context.Background(), "empty")
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizSource(nil), time.Minute)

	_, err := repo.GetQuiz(context.Background(), "missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

type countingSource struct {
	PayloadSource
	calls int
}

func (s *countingSource) FetchQuiz(ctx context.Context, quizID string) (map[string]any, error) {
	s.calls++
	return s.PayloadSource.FetchQuiz(ctx, quizID)
}

func samplePayload() map[string]any {
	return map[string]any{
		"id":                  "quiz-1",
		"title":               "Arithmetic",
		"durationMinutes":     float64(5),
		"passingScorePercent": float64(70),
		"questions": []any{
			map[string]any{
				"id":   "q1",
				"text": "What is 2 + 2?",
				"options": []any{
					map[string]any{"id": "o1", "text": "3"},
					map[string]any{"id": "o2", "text": "4", "correct": true},
				},
			},
		},
	}
}
