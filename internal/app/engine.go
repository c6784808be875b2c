// Package app contains the conversational core: the quiz authoring and quiz
// taking state machines, the owner's admin-management flow, and the menu
// routing that feeds them. Transports deliver one Input per turn and render
// the returned Prompts; persistence and reminders are injected collaborators.
package app

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/reminder"
)

// Store is the persistence collaborator consumed by the flows. Reads after
// writes are immediately visible within the process; the single-submission
// rule is enforced by query-before-write, not by a storage constraint.
type Store interface {
	FindQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	AddQuestionKey(ctx context.Context, quizID string, key domain.QuestionKey) error
	GetQuestionKeys(ctx context.Context, quizID string) ([]domain.QuestionKey, error)
	HasSubmission(ctx context.Context, participantID int64, quizID string) (bool, error)
	SaveSubmission(ctx context.Context, sub domain.Submission) error
	SubmissionsWithParticipants(ctx context.Context, quizID string) ([]domain.Submission, error)
	IsAdmin(ctx context.Context, actorID int64) (bool, error)
	AddAdmin(ctx context.Context, actorID int64) error
	RemoveAdmin(ctx context.Context, actorID int64) error
	ListAdmins(ctx context.Context) ([]int64, error)
	QuizzesByAdmin(ctx context.Context, adminID int64) ([]domain.Quiz, error)
	QuizSummary(ctx context.Context, quizID string) (domain.QuizSummary, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	UpsertParticipant(ctx context.Context, p domain.Participant) error
}

// QuizReader resolves quiz content for the taking flow. It may be the Store
// itself or a TTL cache in front of it; only immutable-after-commit data goes
// through here so submission checks stay uncached.
type QuizReader interface {
	FindQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
	GetQuestionKeys(ctx context.Context, quizID string) ([]domain.QuestionKey, error)
}

// QuizInvalidator is the eviction side of a caching QuizReader. Deletion is
// the one mutation a quiz sees after commit; the cached copy must not outlive
// the stored row.
type QuizInvalidator interface {
	InvalidateQuiz(ctx context.Context, code, quizID string) error
}

// State is one step of a conversation. Each concrete type carries only the
// draft fields valid for that step.
type State interface{ conversationState() }

// ConversationStore keeps the current State per actor. A conversation exists
// between the first message of a flow and its commit or cancellation.
type ConversationStore interface {
	Get(actorID int64) (State, bool)
	Put(actorID int64, state State)
	Clear(actorID int64)
}

// Input is one inbound turn: either free text or a single pressed action.
type Input struct {
	Text   string
	Action string
}

// Button is one action offered alongside a prompt.
type Button struct {
	Action string
	Label  string
}

// Prompt is an outbound message with its enumerated available actions.
type Prompt struct {
	Text    string
	Buttons [][]Button
}

func text(s string) Prompt { return Prompt{Text: s} }

// Config carries the process-wide read-only settings of the engine.
type Config struct {
	OwnerID    int64
	CodeLength int
	Location   *time.Location
}

// Engine routes inbound turns to the flow owning the actor's conversation.
type Engine struct {
	store         Store
	quizzes       QuizReader
	conversations ConversationStore
	reminders     *reminder.Scheduler

	ownerID int64
	codeLen int
	loc     *time.Location

	now   func() time.Time
	newID func() string
}

func NewEngine(store Store, quizzes QuizReader, conversations ConversationStore, reminders *reminder.Scheduler, cfg Config) *Engine {
	codeLen := cfg.CodeLength
	if codeLen <= 0 {
		codeLen = 6
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		store:         store,
		quizzes:       quizzes,
		conversations: conversations,
		reminders:     reminders,
		ownerID:       cfg.OwnerID,
		codeLen:       codeLen,
		loc:           loc,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// HandleText processes a free-text turn from an actor.
func (e *Engine) HandleText(ctx context.Context, actor domain.Participant, msg string) ([]Prompt, error) {
	return e.handle(ctx, actor, Input{Text: msg})
}

// HandleAction processes a button press from an actor.
func (e *Engine) HandleAction(ctx context.Context, actor domain.Participant, action string) ([]Prompt, error) {
	return e.handle(ctx, actor, Input{Action: action})
}

func (e *Engine) handle(ctx context.Context, actor domain.Participant, in Input) ([]Prompt, error) {
	if state, ok := e.conversations.Get(actor.ID); ok {
		switch state.(type) {
		case titleEntry, titleConfirm, questionEntry, questionConfirm, deadlineEntry, deadlineConfirm:
			return e.handleAuthoring(ctx, actor, state, in)
		case codeEntry, answerEntry, answerConfirm:
			return e.handleTaking(ctx, actor, state, in)
		case adminAdding, adminRemoving:
			return e.handleAdminEdit(ctx, actor, state, in)
		}
	}
	return e.handleIdle(ctx, actor, in)
}

// handleIdle routes menu commands and the inventory actions that do not need
// conversation state.
func (e *Engine) handleIdle(ctx context.Context, actor domain.Participant, in Input) ([]Prompt, error) {
	if in.Action != "" {
		return e.handleInventoryAction(ctx, actor, in.Action)
	}

	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case "/start":
		return e.welcome(ctx, actor)
	case cmdCreateQuiz:
		return e.startAuthoring(ctx, actor)
	case cmdTakeQuiz:
		return e.startTaking(actor)
	case cmdMyQuizzes:
		return e.listOwnQuizzes(ctx, actor)
	case cmdAddAdmin:
		return e.startAdminEdit(actor, adminAdding{})
	case cmdRemoveAdmin:
		return e.startAdminEdit(actor, adminRemoving{})
	case cmdListAdmins:
		return e.listAdmins(ctx, actor)
	}
	return []Prompt{text(menuHint)}, nil
}

func (e *Engine) welcome(ctx context.Context, actor domain.Participant) ([]Prompt, error) {
	if err := e.store.UpsertParticipant(ctx, actor); err != nil {
		return nil, err
	}
	role, err := e.roleOf(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return []Prompt{text(welcomeText(actor.DisplayName, role))}, nil
}

func (e *Engine) isAdminOrOwner(ctx context.Context, actorID int64) (bool, error) {
	if actorID == e.ownerID {
		return true, nil
	}
	return e.store.IsAdmin(ctx, actorID)
}

// requireAdmin is the guard form of isAdminOrOwner for entry points that
// treat lack of privilege as an error.
func (e *Engine) requireAdmin(ctx context.Context, actorID int64) error {
	allowed, err := e.isAdminOrOwner(ctx, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrNotAuthorized
	}
	return nil
}

// evictQuiz drops a deleted quiz from the cache when one is wired in. A
// failed eviction is logged; the stale entry still ages out by TTL.
func (e *Engine) evictQuiz(ctx context.Context, quiz domain.Quiz) {
	inv, ok := e.quizzes.(QuizInvalidator)
	if !ok {
		return
	}
	if err := inv.InvalidateQuiz(ctx, quiz.Code, quiz.ID); err != nil {
		log.Printf("evicting quiz %s from cache failed: %v", quiz.ID, err)
	}
}

func (e *Engine) roleOf(ctx context.Context, actorID int64) (string, error) {
	if actorID == e.ownerID {
		return roleOwner, nil
	}
	admin, err := e.store.IsAdmin(ctx, actorID)
	if err != nil {
		return "", err
	}
	if admin {
		return roleAdmin, nil
	}
	return roleParticipant, nil
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCode draws random codes until one is unused. Collisions are rare
// at the default length, so the loop almost always runs once.
func (e *Engine) generateCode(ctx context.Context) (string, error) {
	for {
		b := make([]byte, e.codeLen)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		_, err := e.store.FindQuizByCode(ctx, code)
		if errors.Is(err, domain.ErrQuizNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
}
