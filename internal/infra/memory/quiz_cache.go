package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/app"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

// QuizCache is a TTL cache in front of a QuizReader. Quiz definitions and
// question keys never change after commit, so bounded staleness is safe;
// submission checks never go through here.
type QuizCache struct {
	loader app.QuizReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	byCode  map[string]cachedQuiz
	keyByID map[string]cachedKeys
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

type cachedKeys struct {
	keys      []domain.QuestionKey
	expiresAt time.Time
}

func NewQuizCache(loader app.QuizReader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		byCode:  make(map[string]cachedQuiz),
		keyByID: make(map[string]cachedKeys),
	}
}

func (c *QuizCache) FindQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.byCode[code]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("code:"+code, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.byCode[code]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.loader.FindQuizByCode(ctx, code)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.byCode[code] = cachedQuiz{quiz: quiz, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) GetQuestionKeys(ctx context.Context, quizID string) ([]domain.QuestionKey, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.keyByID[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.keys, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("keys:"+quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.keyByID[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.keys, nil
		}
		c.mu.RUnlock()

		keys, err := c.loader.GetQuestionKeys(ctx, quizID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.keyByID[quizID] = cachedKeys{keys: keys, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionKey), nil
}

// InvalidateQuiz drops the cached entries of a deleted quiz so its access
// code stops resolving before the TTL runs out.
func (c *QuizCache) InvalidateQuiz(_ context.Context, code, quizID string) error {
	c.mu.Lock()
	delete(c.byCode, code)
	delete(c.keyByID, quizID)
	c.mu.Unlock()
	return nil
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
