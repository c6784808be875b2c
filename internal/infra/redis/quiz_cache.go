// Package redis caches quiz content in Redis so repeated code redemptions
// do not hit the backing store. Only data that is immutable after commit is
// cached; submission checks always go to the store.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/app"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

// QuizCache stores quizzes as JSON under quiz:code:{CODE} and their answer
// keys under quiz:{id}:keys, falling back to the loader on a miss.
type QuizCache struct {
	client *redis.Client
	loader app.QuizReader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizCache(client *redis.Client, loader app.QuizReader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) FindQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	key := c.codeKey(code)

	if quiz, ok := c.getQuiz(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if quiz, ok := c.getQuiz(ctx, key); ok {
			return quiz, nil
		}

		quiz, err := c.loader.FindQuizByCode(ctx, code)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.setJSON(ctx, key, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) GetQuestionKeys(ctx context.Context, quizID string) ([]domain.QuestionKey, error) {
	key := c.keysKey(quizID)

	if keys, ok := c.getKeys(ctx, key); ok {
		return keys, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if keys, ok := c.getKeys(ctx, key); ok {
			return keys, nil
		}

		keys, err := c.loader.GetQuestionKeys(ctx, quizID)
		if err != nil {
			return nil, err
		}
		c.setJSON(ctx, key, keys)
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionKey), nil
}

func (c *QuizCache) getQuiz(ctx context.Context, key string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *QuizCache) getKeys(ctx context.Context, key string) ([]domain.QuestionKey, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var keys []domain.QuestionKey
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, false
	}
	return keys, true
}

// setJSON is best effort; a failed cache write only costs a reload later.
func (c *QuizCache) setJSON(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
}

// InvalidateQuiz removes both cache keys of a deleted quiz so its access
// code stops resolving before the TTL runs out.
func (c *QuizCache) InvalidateQuiz(ctx context.Context, code, quizID string) error {
	return c.client.Del(ctx, c.codeKey(code), c.keysKey(quizID)).Err()
}

func (c *QuizCache) codeKey(code string) string {
	return "quiz:code:" + code
}

func (c *QuizCache) keysKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:keys", quizID)
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
