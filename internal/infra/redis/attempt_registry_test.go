package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"assessment-attempt-service/internal/attempt"
	"assessment-attempt-service/internal/backend"
	"assessment-attempt-service/internal/domain"
	"assessment-attempt-service/internal/submit"
	"assessment-attempt-service/internal/timer"
)

type stubOpener struct{}

func (stubOpener) StartAttempt(context.Context, string, string) (backend.StartAttemptResponse, error) {
	return backend.StartAttemptResponse{AttemptID: "att-1"}, nil
}

type stubSubmitter struct{}

func (stubSubmitter) Submit(_ context.Context, _ domain.Quiz, req submit.Request) domain.Result {
	return domain.Result{AttemptID: req.AttemptID, Degraded: true}
}

func buildController() *attempt.Controller {
	quiz := domain.Quiz{
		ID:              "quiz-1",
		DurationMinutes: 1,
		Questions: []domain.Question{
			{ID: "q1", Type: domain.SingleChoice, Options: []domain.Option{{ID: "o1"}}, Correct: []string{"o1"}},
		},
	}
	return attempt.New(quiz, "student-1", stubOpener{}, stubSubmitter{}, timer.NewManualClock(), attempt.Events{})
}

func TestRegistrySetsAndClearsLivenessMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	registry := NewAttemptRegistry(newClient(mr), time.Minute)

	ctrl, err := registry.Acquire(ctx, "quiz-1", "student-1", buildController)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("attempt:live:quiz-1:student-1") {
		t.Fatalf("expected liveness marker in redis")
	}

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.Abandon()
	registry.Release(ctx, "quiz-1", "student-1", ctrl)

	if mr.Exists("attempt:live:quiz-1:student-1") {
		t.Fatalf("expected liveness marker removed")
	}
}

func TestRegistryRejectsSecondAcquireBeforeStart(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	registry := NewAttemptRegistry(newClient(mr), time.Minute)

	ctrl, err := registry.Acquire(ctx, "quiz-1", "student-1", buildController)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// The slot is occupied from Acquire onward, not from Start; a second
	// Acquire in that window must not replace the held controller.
	if _, err := registry.Acquire(ctx, "quiz-1", "student-1", buildController); !errors.Is(err, domain.ErrAttemptAlreadyActive) {
		t.Fatalf("expected ErrAttemptAlreadyActive before start, got %v", err)
	}

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.Abandon()
	registry.Release(ctx, "quiz-1", "student-1", ctrl)
}

func TestRegistryBlocksSecondInstance(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	first := NewAttemptRegistry(newClient(mr), time.Minute)
	second := NewAttemptRegistry(newClient(mr), time.Minute)

	ctrl, err := first.Acquire(ctx, "quiz-1", "student-1", buildController)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The marker held by the first instance blocks the second one.
	if _, err := second.Acquire(ctx, "quiz-1", "student-1", buildController); !errors.Is(err, domain.ErrAttemptAlreadyActive) {
		t.Fatalf("expected ErrAttemptAlreadyActive across instances, got %v", err)
	}

	ctrl.Abandon()
	first.Release(ctx, "quiz-1", "student-1", ctrl)

	if _, err := second.Acquire(ctx, "quiz-1", "student-1", buildController); err != nil {
		t.Fatalf("slot not released across instances: %v", err)
	}
}
