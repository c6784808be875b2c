// Package postgres persists quizzes, answer keys, participants, and
// submissions in Postgres via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

// Store implements the persistence surface of the conversation engine.
// The single-submission rule is checked by the flows before writing, so
// the submissions table deliberately carries no uniqueness constraint.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, code, active, owner_id, created_at, deadline
		 FROM quizzes WHERE code=$1 AND active`, code).
		Scan(&quiz.ID, &quiz.Title, &quiz.Code, &quiz.Active, &quiz.OwnerID, &quiz.CreatedAt, &quiz.Deadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("find quiz by code: %w", err)
	}
	return quiz, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, title, code, active, owner_id, created_at, deadline)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		quiz.ID, quiz.Title, quiz.Code, quiz.Active, quiz.OwnerID, quiz.CreatedAt, quiz.Deadline)
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

func (s *Store) AddQuestionKey(ctx context.Context, quizID string, key domain.QuestionKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO question_keys (quiz_id, number, answer, weight)
		 VALUES ($1, $2, $3, $4::numeric)
		 ON CONFLICT (quiz_id, number) DO UPDATE SET answer=EXCLUDED.answer, weight=EXCLUDED.weight`,
		quizID, key.Number, key.Answer, key.Weight.String())
	if err != nil {
		return fmt.Errorf("add question key: %w", err)
	}
	return nil
}

func (s *Store) GetQuestionKeys(ctx context.Context, quizID string) ([]domain.QuestionKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT number, answer, weight::text FROM question_keys
		 WHERE quiz_id=$1 ORDER BY number`, quizID)
	if err != nil {
		return nil, fmt.Errorf("get question keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.QuestionKey
	for rows.Next() {
		var key domain.QuestionKey
		var weight string
		if err := rows.Scan(&key.Number, &key.Answer, &weight); err != nil {
			return nil, fmt.Errorf("scan question key: %w", err)
		}
		key.Weight, err = decimal.NewFromString(weight)
		if err != nil {
			return nil, fmt.Errorf("parse weight %q: %w", weight, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *Store) HasSubmission(ctx context.Context, participantID int64, quizID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE participant_id=$1 AND quiz_id=$2)`,
		participantID, quizID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

func (s *Store) SaveSubmission(ctx context.Context, sub domain.Submission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (participant_id, quiz_id, raw_answers, submitted_at)
		 VALUES ($1, $2, $3, $4)`,
		sub.Participant.ID, sub.QuizID, sub.RawAnswers, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (s *Store) SubmissionsWithParticipants(ctx context.Context, quizID string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.participant_id, COALESCE(p.display_name, ''), COALESCE(p.username, ''),
		        s.quiz_id, s.raw_answers, s.submitted_at
		 FROM submissions s
		 LEFT JOIN participants p ON p.id = s.participant_id
		 WHERE s.quiz_id=$1
		 ORDER BY s.submitted_at, s.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(&sub.Participant.ID, &sub.Participant.DisplayName, &sub.Participant.Username,
			&sub.QuizID, &sub.RawAnswers, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) IsAdmin(ctx context.Context, actorID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE id=$1)`, actorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return exists, nil
}

func (s *Store) AddAdmin(ctx context.Context, actorID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admins (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, actorID)
	if err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	return nil
}

func (s *Store) RemoveAdmin(ctx context.Context, actorID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM admins WHERE id=$1`, actorID)
	if err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	return nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM admins ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) QuizzesByAdmin(ctx context.Context, adminID int64) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, code, active, owner_id, created_at, deadline
		 FROM quizzes WHERE owner_id=$1 AND active ORDER BY created_at`, adminID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var quiz domain.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.Title, &quiz.Code, &quiz.Active, &quiz.OwnerID, &quiz.CreatedAt, &quiz.Deadline); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *Store) QuizSummary(ctx context.Context, quizID string) (domain.QuizSummary, error) {
	var summary domain.QuizSummary
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, code, active, owner_id, created_at, deadline
		 FROM quizzes WHERE id=$1`, quizID).
		Scan(&summary.Quiz.ID, &summary.Quiz.Title, &summary.Quiz.Code, &summary.Quiz.Active,
			&summary.Quiz.OwnerID, &summary.Quiz.CreatedAt, &summary.Quiz.Deadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSummary{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizSummary{}, fmt.Errorf("load quiz: %w", err)
	}

	summary.Questions, err = s.GetQuestionKeys(ctx, quizID)
	if err != nil {
		return domain.QuizSummary{}, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT participant_id) FROM submissions WHERE quiz_id=$1`, quizID).
		Scan(&summary.Submissions)
	if err != nil {
		return domain.QuizSummary{}, fmt.Errorf("count submissions: %w", err)
	}
	return summary, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM submissions WHERE quiz_id=$1`,
		`DELETE FROM question_keys WHERE quiz_id=$1`,
		`DELETE FROM quizzes WHERE id=$1`,
	} {
		if _, err := tx.Exec(ctx, stmt, quizID); err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) UpsertParticipant(ctx context.Context, p domain.Participant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants (id, display_name, username)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET display_name=EXCLUDED.display_name, username=EXCLUDED.username`,
		p.ID, p.DisplayName, p.Username)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}
