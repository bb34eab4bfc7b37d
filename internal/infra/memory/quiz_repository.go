package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"assessment-attempt-service/internal/domain"
	"assessment-attempt-service/internal/normalize"
)

// PayloadSource fetches raw quiz payloads from a backing store (content
// service, document DB). *backend.Client satisfies this.
type PayloadSource interface {
	FetchQuiz(ctx context.Context, quizID string) (map[string]any, error)
}

// QuizRepository normalizes payloads once and caches the result with TTL so
// a quiz is fetched a single time per attempt session.
type QuizRepository struct {
	source PayloadSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(source PayloadSource, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		r.mu.RUnlock()

		payload, err := r.source.FetchQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz, err := normalize.QuizFromMap(quizID, payload)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizSource serves raw payloads from an in-memory map (useful for
// tests/demos without a content service).
type StaticQuizSource struct {
	payloads map[string]map[string]any
}

func NewStaticQuizSource(payloads map[string]map[string]any) *StaticQuizSource {
	return &StaticQuizSource{payloads: payloads}
}

func (s *StaticQuizSource) FetchQuiz(_ context.Context, quizID string) (map[string]any, error) {
	if payload, ok := s.payloads[quizID]; ok {
		return payload, nil
	}
	return nil, domain.ErrQuizNotFound
}
