package answers

import (
	"reflect"
	"testing"

	"assessment-attempt-service/internal/domain"
)

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:   "q1",
				Type: domain.SingleChoice,
				Options: []domain.Option{
					{ID: "a"}, {ID: "b"}, {ID: "c"},
				},
			},
			{
				ID:   "q2",
				Type: domain.MultipleChoice,
				Options: []domain.Option{
					{ID: "x"}, {ID: "y"}, {ID: "z"},
				},
			},
			{
				ID:   "q3",
				Type: domain.TrueFalse,
				Options: []domain.Option{
					{ID: "true"}, {ID: "false"},
				},
			},
		},
	}
}

func TestSingleChoiceReplacement(t *testing.T) {
	store := NewStore(testQuiz())

	store.Select("q1", "a")
	store.Select("q1", "b")
	store.Select("q1", "c")
	store.Select("q1", "a")

	got := store.Get("q1")
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("expected singleton [a], got %v", got)
	}
}

func TestTrueFalseReplacement(t *testing.T) {
	store := NewStore(testQuiz())

	store.Select("q3", "true")
	store.Select("q3", "false")

	got := store.Get("q3")
	if !reflect.DeepEqual(got, []string{"false"}) {
		t.Fatalf("expected [false], got %v", got)
	}
}

func TestMultipleChoiceToggle(t *testing.T) {
	store := NewStore(testQuiz())

	store.Select("q2", "x")
	store.Select("q2", "y")
	if got := store.Get("q2"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("expected [x y], got %v", got)
	}

	// Selecting the same option again toggles it off.
	store.Select("q2", "x")
	if got := store.Get("q2"); !reflect.DeepEqual(got, []string{"y"}) {
		t.Fatalf("expected [y] after toggle, got %v", got)
	}

	store.Select("q2", "y")
	if got := store.Get("q2"); got != nil {
		t.Fatalf("expected empty set after full round-trip, got %v", got)
	}
}

func TestUnknownIDsAreIgnored(t *testing.T) {
	store := NewStore(testQuiz())

	store.Select("nope", "a")
	store.Select("q1", "nope")

	if got := store.Get("q1"); got != nil {
		t.Fatalf("unknown ids must not record selections, got %v", got)
	}
	if p := store.Progress(); p != 0 {
		t.Fatalf("expected zero progress, got %f", p)
	}
}

func TestProgress(t *testing.T) {
	store := NewStore(testQuiz())

	if p := store.Progress(); p != 0 {
		t.Fatalf("expected 0, got %f", p)
	}

	store.Select("q1", "a")
	if p := store.Progress(); p < 0.33 || p > 0.34 {
		t.Fatalf("expected 1/3, got %f", p)
	}

	store.Select("q2", "x")
	store.Select("q3", "true")
	if p := store.Progress(); p != 1 {
		t.Fatalf("expected 1, got %f", p)
	}

	// Toggling the multiple-choice answer off reduces progress again.
	store.Select("q2", "x")
	if p := store.Progress(); p < 0.66 || p > 0.67 {
		t.Fatalf("expected 2/3, got %f", p)
	}
}

func TestSnapshotOmitsEmptySets(t *testing.T) {
	store := NewStore(testQuiz())

	store.Select("q2", "x")
	store.Select("q2", "x") // toggled back off
	store.Select("q1", "b")

	snap := store.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected only q1 in snapshot, got %v", snap)
	}
	if !reflect.DeepEqual(snap["q1"], []string{"b"}) {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
}
