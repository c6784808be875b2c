// Package memory provides in-process implementations of the persistence and
// conversation collaborators, used in tests and when the service runs
// without Postgres.
package memory

import (
	"context"
	"sync"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

// Store is an in-memory implementation of app.Store. It mirrors the schema
// of the Postgres store: quizzes, question keys, submissions (no uniqueness
// constraint), the admin list, and the participant registry.
type Store struct {
	mu           sync.RWMutex
	order        []string
	quizzes      map[string]domain.Quiz
	keys         map[string][]domain.QuestionKey
	submissions  []domain.Submission
	admins       map[int64]struct{}
	participants map[int64]domain.Participant
}

func NewStore() *Store {
	return &Store{
		quizzes:      make(map[string]domain.Quiz),
		keys:         make(map[string][]domain.QuestionKey),
		admins:       make(map[int64]struct{}),
		participants: make(map[int64]domain.Participant),
	}
}

func (s *Store) FindQuizByCode(_ context.Context, code string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.Code == code && q.Active {
			return q, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	s.order = append(s.order, quiz.ID)
	return nil
}

func (s *Store) AddQuestionKey(_ context.Context, quizID string, key domain.QuestionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[quizID] = append(s.keys[quizID], key)
	return nil
}

func (s *Store) GetQuestionKeys(_ context.Context, quizID string) ([]domain.QuestionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]domain.QuestionKey, len(s.keys[quizID]))
	copy(keys, s.keys[quizID])
	return keys, nil
}

func (s *Store) HasSubmission(_ context.Context, participantID int64, quizID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.Participant.ID == participantID && sub.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SaveSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return nil
}

func (s *Store) SubmissionsWithParticipants(_ context.Context, quizID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Submission
	for _, sub := range s.submissions {
		if sub.QuizID != quizID {
			continue
		}
		if p, ok := s.participants[sub.Participant.ID]; ok {
			sub.Participant = p
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *Store) IsAdmin(_ context.Context, actorID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[actorID]
	return ok, nil
}

func (s *Store) AddAdmin(_ context.Context, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[actorID] = struct{}{}
	return nil
}

func (s *Store) RemoveAdmin(_ context.Context, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, actorID)
	return nil
}

func (s *Store) ListAdmins(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.admins))
	for id := range s.admins {
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) QuizzesByAdmin(_ context.Context, adminID int64) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Quiz
	for _, id := range s.order {
		if q := s.quizzes[id]; q.OwnerID == adminID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) QuizSummary(ctx context.Context, quizID string) (domain.QuizSummary, error) {
	s.mu.RLock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		s.mu.RUnlock()
		return domain.QuizSummary{}, domain.ErrQuizNotFound
	}
	count := 0
	for _, sub := range s.submissions {
		if sub.QuizID == quizID {
			count++
		}
	}
	s.mu.RUnlock()

	keys, err := s.GetQuestionKeys(ctx, quizID)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return domain.QuizSummary{Quiz: quiz, Questions: keys, Submissions: count}, nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, quizID)
	delete(s.keys, quizID)
	for i := range s.order {
		if s.order[i] == quizID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	kept := s.submissions[:0]
	for _, sub := range s.submissions {
		if sub.QuizID != quizID {
			kept = append(kept, sub)
		}
	}
	s.submissions = kept
	return nil
}

func (s *Store) UpsertParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
	return nil
}
