package memory

import (
	"context"
	"sync"

	"assessment-attempt-service/internal/attempt"
	"assessment-attempt-service/internal/domain"
)

// AttemptRegistry enforces the one-live-attempt-per-(student, quiz)
// invariant inside a single process.
type AttemptRegistry struct {
	mu       sync.Mutex
	attempts map[string]*attempt.Controller
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{
		attempts: make(map[string]*attempt.Controller),
	}
}

// Acquire claims the live slot for the pair and stores the controller built
// by build. Any held controller that has not reached a terminal state still
// occupies the slot, including one built but not yet started; only a finished
// attempt (or a released slot) is replaced.
func (r *AttemptRegistry) Acquire(_ context.Context, quizID, studentID string, build func() *attempt.Controller) (*attempt.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(quizID, studentID)
	if existing, ok := r.attempts[key]; ok && !existing.Finished() {
		return nil, domain.ErrAttemptAlreadyActive
	}
	ctrl := build()
	r.attempts[key] = ctrl
	return ctrl, nil
}

// Release frees the slot if it is still held by ctrl and ctrl is no longer
// live.
func (r *AttemptRegistry) Release(_ context.Context, quizID, studentID string, ctrl *attempt.Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(quizID, studentID)
	if existing, ok := r.attempts[key]; ok && existing == ctrl && !existing.Live() {
		delete(r.attempts, key)
	}
}

func registryKey(quizID, studentID string) string {
	return quizID + "/" + studentID
}
