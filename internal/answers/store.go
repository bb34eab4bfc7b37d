// Package answers holds per-question selections for one attempt and enforces
// single versus multiple selection semantics.
package answers

import (
	"log"
	"sort"
	"sync"

	"assessment-attempt-service/internal/domain"
)

// Store tracks a student's selections against a normalized quiz. Methods are
// safe for concurrent use, though the lifecycle controller is the only caller.
type Store struct {
	mu        sync.RWMutex
	questions map[string]questionMeta
	order     []string
	selected  map[string]map[string]struct{}
}

type questionMeta struct {
	qType   domain.QuestionType
	options map[string]struct{}
}

// NewStore builds a store keyed by the quiz's question and option identities.
func NewStore(quiz domain.Quiz) *Store {
	s := &Store{
		questions: make(map[string]questionMeta, len(quiz.Questions)),
		selected:  make(map[string]map[string]struct{}, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		opts := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			opts[o.ID] = struct{}{}
		}
		s.questions[q.ID] = questionMeta{qType: q.Type, options: opts}
		s.order = append(s.order, q.ID)
	}
	return s
}

// Select records an option selection. Single-choice and true-false questions
// replace any existing selection; multiple-choice toggles membership.
// Unknown question or option IDs are logged and ignored so a malformed
// client message cannot crash the attempt.
func (s *Store) Select(questionID, optionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.questions[questionID]
	if !ok {
		log.Printf("answers: ignoring selection for unknown question %q", questionID)
		return
	}
	if _, ok := meta.options[optionID]; !ok {
		log.Printf("answers: ignoring unknown option %q for question %q", optionID, questionID)
		return
	}

	switch meta.qType {
	case domain.MultipleChoice:
		set := s.selected[questionID]
		if set == nil {
			set = make(map[string]struct{})
			s.selected[questionID] = set
		}
		if _, on := set[optionID]; on {
			delete(set, optionID)
		} else {
			set[optionID] = struct{}{}
		}
	default:
		s.selected[questionID] = map[string]struct{}{optionID: {}}
	}
}

// Get returns the selected option IDs for a question, sorted for stable output.
func (s *Store) Get(questionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.selected[questionID])
}

// Snapshot returns all non-empty answer sets, keyed by question ID.
func (s *Store) Snapshot() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.selected))
	for questionID, set := range s.selected {
		if len(set) == 0 {
			continue
		}
		out[questionID] = sortedIDs(set)
	}
	return out
}

// Progress reports the fraction of questions with a non-empty answer set.
// Display only; scoring never consults it.
func (s *Store) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return 0
	}
	answered := 0
	for _, questionID := range s.order {
		if len(s.selected[questionID]) > 0 {
			answered++
		}
	}
	return float64(answered) / float64(len(s.order))
}

func sortedIDs(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
