package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"assessment-attempt-service/internal/attempt"
	"assessment-attempt-service/internal/domain"
)

// AttemptRegistry is a Redis-aware registry of live attempts.
// Notes:
//   - Controllers are in-process objects, so a local map still owns them;
//     Redis holds a liveness marker (SET NX with TTL) so a second instance
//     cannot open a concurrent attempt for the same (student, quiz) pair.
//   - The TTL bounds how long an orphaned marker can block a student after
//     a crash; it should exceed the longest quiz duration.
type AttemptRegistry struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.Mutex
	attempts map[string]*attempt.Controller
}

func NewAttemptRegistry(client *redis.Client, ttl time.Duration) *AttemptRegistry {
	return &AttemptRegistry{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*attempt.Controller),
	}
}

func (r *AttemptRegistry) Acquire(ctx context.Context, quizID, studentID string, build func() *attempt.Controller) (*attempt.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(quizID, studentID)
	// A held controller occupies the slot until it reaches a terminal state,
	// including one built but not yet started.
	if existing, ok := r.attempts[key]; ok && !existing.Finished() {
		return nil, domain.ErrAttemptAlreadyActive
	}

	ok, err := r.client.SetNX(ctx, r.markerKey(quizID, studentID), "1", r.ttl).Result()
	if err == nil && !ok {
		if _, held := r.attempts[key]; !held {
			// Another instance holds the slot.
			return nil, domain.ErrAttemptAlreadyActive
		}
		// The local controller is finished, so the marker is our own stale
		// one; refresh below.
	}
	if err == nil {
		_ = r.client.Expire(ctx, r.markerKey(quizID, studentID), r.ttl).Err()
	}
	// A Redis outage degrades to per-instance enforcement rather than
	// blocking students.

	ctrl := build()
	r.attempts[key] = ctrl
	return ctrl, nil
}

func (r *AttemptRegistry) Release(ctx context.Context, quizID, studentID string, ctrl *attempt.Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(quizID, studentID)
	if existing, ok := r.attempts[key]; ok && existing == ctrl && !existing.Live() {
		delete(r.attempts, key)
		_ = r.client.Del(ctx, r.markerKey(quizID, studentID)).Err()
	}
}

func (r *AttemptRegistry) markerKey(quizID, studentID string) string {
	return "attempt:live:" + quizID + ":" + studentID
}

func registryKey(quizID, studentID string) string {
	return quizID + "/" + studentID
}
