package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/app"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

type countingReader struct {
	app.QuizReader
	codeCalls int
	keyCalls  int
}

func (r *countingReader) FindQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	r.codeCalls++
	return r.QuizReader.FindQuizByCode(ctx, code)
}

func (r *countingReader) GetQuestionKeys(ctx context.Context, quizID string) ([]domain.QuestionKey, error) {
	r.keyCalls++
	return r.QuizReader.GetQuestionKeys(ctx, quizID)
}

func TestQuizCacheCachesCodeLookups(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedQuiz(t, store)

	reader := &countingReader{QuizReader: store}
	cache := NewQuizCache(reader, time.Minute)

	if _, err := cache.FindQuizByCode(ctx, "ABC123"); err != nil {
		t.Fatalf("find: %v", err)
	}
	if reader.codeCalls != 1 {
		t.Fatalf("expected loader called once, got %d", reader.codeCalls)
	}

	if _, err := cache.FindQuizByCode(ctx, "ABC123"); err != nil {
		t.Fatalf("find 2: %v", err)
	}
	if reader.codeCalls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", reader.codeCalls)
	}
}

func TestQuizCacheCachesQuestionKeys(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	quiz := seedQuiz(t, store)

	reader := &countingReader{QuizReader: store}
	cache := NewQuizCache(reader, time.Minute)

	keys, err := cache.GetQuestionKeys(ctx, quiz.ID)
	if err != nil || len(keys) != 1 {
		t.Fatalf("keys: %v %v", keys, err)
	}
	if _, err := cache.GetQuestionKeys(ctx, quiz.ID); err != nil {
		t.Fatalf("keys 2: %v", err)
	}
	if reader.keyCalls != 1 {
		t.Fatalf("expected one loader call, got %d", reader.keyCalls)
	}
}

func TestQuizCacheInvalidateEvictsDeletedQuiz(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	quiz := seedQuiz(t, store)

	reader := &countingReader{QuizReader: store}
	cache := NewQuizCache(reader, time.Minute)

	if _, err := cache.FindQuizByCode(ctx, "ABC123"); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if _, err := cache.GetQuestionKeys(ctx, quiz.ID); err != nil {
		t.Fatalf("fill keys: %v", err)
	}

	if err := store.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cache.InvalidateQuiz(ctx, quiz.Code, quiz.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	// The code must stop resolving right away, not after the TTL.
	if _, err := cache.FindQuizByCode(ctx, "ABC123"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected deleted quiz to stop resolving, got %v", err)
	}
}

func TestQuizCacheMissesDoNotPoison(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	reader := &countingReader{QuizReader: store}
	cache := NewQuizCache(reader, time.Minute)

	if _, err := cache.FindQuizByCode(ctx, "NOPE99"); err == nil {
		t.Fatalf("expected miss error")
	}
	seedQuiz(t, store)
	if _, err := cache.FindQuizByCode(ctx, "ABC123"); err != nil {
		t.Fatalf("expected hit after seeding: %v", err)
	}
}
