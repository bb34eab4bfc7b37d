package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"assessment-attempt-service/internal/domain"
	"assessment-attempt-service/internal/normalize"
)

// PayloadSource fetches raw quiz payloads from a backing store (content
// service, document DB).
type PayloadSource interface {
	FetchQuiz(ctx context.Context, quizID string) (map[string]any, error)
}

// QuizRepository caches normalized quizzes in Redis as JSON and falls back
// to the payload source on a miss. Normalization runs once per cache fill,
// so every instance sharing the cache sees identical question and option
// identities.
type QuizRepository struct {
	client *redis.Client
	source PayloadSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, source PayloadSource, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := r.key(quizID)

	if cached, err := r.client.Get(ctx, key).Bytes(); err == nil && len(cached) > 0 {
		var quiz domain.Quiz
		if err := json.Unmarshal(cached, &quiz); err == nil {
			return quiz, nil
		}
		// Corrupt cache entry: fall through and refill.
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := r.client.Get(ctx, key).Bytes(); err == nil && len(cached) > 0 {
			var quiz domain.Quiz
			if err := json.Unmarshal(cached, &quiz); err == nil {
				return quiz, nil
			}
		}

		payload, err := r.source.FetchQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz, err := normalize.QuizFromMap(quizID, payload)
		if err != nil {
			return domain.Quiz{}, err
		}

		if data, err := json.Marshal(quiz); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) key(quizID string) string {
	return "quiz:" + quizID + ":normalized"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
