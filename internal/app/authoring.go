package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/answer"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

// Authoring flow states. Drafts accumulate step by step; the only durable
// write happens on the final confirm.
type (
	titleEntry      struct{}
	titleConfirm    struct{ Title string }
	questionEntry   struct{ Title string }
	questionConfirm struct {
		Title     string
		Questions []answer.Line
	}
	deadlineEntry struct {
		Title     string
		Questions []answer.Line
	}
	deadlineConfirm struct {
		Title     string
		Questions []answer.Line
		Deadline  time.Time
	}
)

func (titleEntry) conversationState()      {}
func (titleConfirm) conversationState()    {}
func (questionEntry) conversationState()   {}
func (questionConfirm) conversationState() {}
func (deadlineEntry) conversationState()   {}
func (deadlineConfirm) conversationState() {}

const (
	actionConfirmTitle     = "confirm_title"
	actionEditTitle        = "edit_title"
	actionConfirmQuestions = "confirm_questions"
	actionEditQuestions    = "edit_questions"
	actionConfirmCreate    = "confirm_create"
	actionEditDeadline     = "edit_deadline"
	actionCancelCreate     = "cancel_create"
)

func (e *Engine) startAuthoring(ctx context.Context, actor domain.Participant) ([]Prompt, error) {
	if err := e.requireAdmin(ctx, actor.ID); errors.Is(err, domain.ErrNotAuthorized) {
		return []Prompt{text("🚫 You are not allowed to create quizzes.")}, nil
	} else if err != nil {
		return nil, err
	}
	e.conversations.Put(actor.ID, titleEntry{})
	return []Prompt{text("📝 Enter the quiz title:")}, nil
}

func (e *Engine) handleAuthoring(ctx context.Context, actor domain.Participant, state State, in Input) ([]Prompt, error) {
	if in.Action == actionCancelCreate {
		e.conversations.Clear(actor.ID)
		return []Prompt{text("❌ Quiz creation cancelled.")}, nil
	}

	switch st := state.(type) {
	case titleEntry:
		return e.authoringTitle(actor, in)
	case titleConfirm:
		return e.authoringTitleConfirm(actor, st, in)
	case questionEntry:
		return e.authoringQuestions(actor, st, in)
	case questionConfirm:
		return e.authoringQuestionsConfirm(actor, st, in)
	case deadlineEntry:
		return e.authoringDeadline(actor, st, in)
	case deadlineConfirm:
		return e.authoringCommit(ctx, actor, st, in)
	}
	return nil, fmt.Errorf("authoring: unexpected state %T", state)
}

func (e *Engine) authoringTitle(actor domain.Participant, in Input) ([]Prompt, error) {
	title := strings.TrimSpace(in.Text)
	if title == "" {
		return []Prompt{text("📝 Enter the quiz title:")}, nil
	}
	e.conversations.Put(actor.ID, titleConfirm{Title: title})
	return []Prompt{titleConfirmPrompt(title)}, nil
}

func (e *Engine) authoringTitleConfirm(actor domain.Participant, st titleConfirm, in Input) ([]Prompt, error) {
	switch in.Action {
	case actionConfirmTitle:
		e.conversations.Put(actor.ID, questionEntry{Title: st.Title})
		return []Prompt{text("✅ Title confirmed. Now enter the questions."), text(authoringInstructions)}, nil
	case actionEditTitle:
		e.conversations.Put(actor.ID, titleEntry{})
		return []Prompt{text("✏️ Send a new title, please:")}, nil
	}
	return []Prompt{titleConfirmPrompt(st.Title)}, nil
}

func (e *Engine) authoringQuestions(actor domain.Participant, st questionEntry, in Input) ([]Prompt, error) {
	lines, err := answer.ParseBlock(in.Text, answer.Authoring)
	var fe *answer.FormatError
	if errors.As(err, &fe) {
		return []Prompt{text("❌ " + fe.Error() + "\n\n" + authoringInstructions)}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []Prompt{text(authoringInstructions)}, nil
	}

	e.conversations.Put(actor.ID, questionConfirm{Title: st.Title, Questions: lines})
	preview := keyPreview(lines)
	return []Prompt{{
		Text: "Here is what I got:\n\n" + preview + "\n\nConfirm?",
		Buttons: [][]Button{
			{{Action: actionConfirmQuestions, Label: "✅ Confirm"}, {Action: actionEditQuestions, Label: "🔁 Re-enter"}},
			{{Action: actionCancelCreate, Label: "❌ Cancel creation"}},
		},
	}}, nil
}

func (e *Engine) authoringQuestionsConfirm(actor domain.Participant, st questionConfirm, in Input) ([]Prompt, error) {
	switch in.Action {
	case actionConfirmQuestions:
		e.conversations.Put(actor.ID, deadlineEntry{Title: st.Title, Questions: st.Questions})
		return []Prompt{text("✅ Questions confirmed. Now enter the deadline."), text(deadlineInstructions)}, nil
	case actionEditQuestions:
		e.conversations.Put(actor.ID, questionEntry{Title: st.Title})
		return []Prompt{text(authoringInstructions)}, nil
	}
	return []Prompt{text("Use the buttons above to confirm or re-enter the questions.")}, nil
}

func (e *Engine) authoringDeadline(actor domain.Participant, st deadlineEntry, in Input) ([]Prompt, error) {
	deadline, err := ParseDeadline(in.Text, e.now(), e.loc)
	if errors.Is(err, errBadDeadline) {
		return []Prompt{text("❌ Invalid format. Examples: 22:00 or 22:00 07.07.2025")}, nil
	}
	if err != nil {
		return nil, err
	}

	e.conversations.Put(actor.ID, deadlineConfirm{Title: st.Title, Questions: st.Questions, Deadline: deadline})
	return []Prompt{{
		Text: fmt.Sprintf("🔍 Please confirm:\n%s\n⏰ Deadline: %s\n\n%s",
			st.Title, deadline.In(e.loc).Format(deadlineFormat), keyPreview(st.Questions)),
		Buttons: [][]Button{
			{{Action: actionConfirmCreate, Label: "✅ Confirm"}, {Action: actionEditDeadline, Label: "🔁 Change deadline"}},
			{{Action: actionCancelCreate, Label: "❌ Cancel creation"}},
		},
	}}, nil
}

// authoringCommit performs the flow's only durable write: the quiz row plus
// its question keys, under a freshly generated unique access code.
func (e *Engine) authoringCommit(ctx context.Context, actor domain.Participant, st deadlineConfirm, in Input) ([]Prompt, error) {
	switch in.Action {
	case actionEditDeadline:
		e.conversations.Put(actor.ID, deadlineEntry{Title: st.Title, Questions: st.Questions})
		return []Prompt{text(deadlineInstructions)}, nil
	case actionConfirmCreate:
	default:
		return []Prompt{text("Use the buttons above to confirm or change the deadline.")}, nil
	}

	code, err := e.generateCode(ctx)
	if err != nil {
		return nil, err
	}
	quiz := domain.Quiz{
		ID:        e.newID(),
		Title:     st.Title,
		Code:      code,
		Active:    true,
		OwnerID:   actor.ID,
		CreatedAt: e.now(),
		Deadline:  st.Deadline,
	}
	if err := e.store.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	for _, q := range dedupeLastWins(st.Questions) {
		key := domain.QuestionKey{Number: q.Number, Answer: q.Answer, Weight: q.Weight}
		if err := e.store.AddQuestionKey(ctx, quiz.ID, key); err != nil {
			return nil, err
		}
	}

	e.conversations.Clear(actor.ID)
	return []Prompt{text(fmt.Sprintf("✅ Quiz created!\nCode: %s", code))}, nil
}

func titleConfirmPrompt(title string) Prompt {
	return Prompt{
		Text: fmt.Sprintf("Quiz title: %s\nConfirm?", title),
		Buttons: [][]Button{
			{{Action: actionConfirmTitle, Label: "✅ Confirm"}, {Action: actionEditTitle, Label: "✏️ Enter another"}},
			{{Action: actionCancelCreate, Label: "❌ Cancel creation"}},
		},
	}
}

func keyPreview(lines []answer.Line) string {
	rows := make([]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, fmt.Sprintf("%d. %s (+%s)", l.Number, l.Answer, l.Weight))
	}
	return strings.Join(rows, "\n")
}

// dedupeLastWins keeps one entry per question number, the last occurrence
// winning, in first-appearance order. Question numbers are unique within a
// quiz even though the parser accepts repeats.
func dedupeLastWins(lines []answer.Line) []answer.Line {
	index := make(map[int]int, len(lines))
	out := make([]answer.Line, 0, len(lines))
	for _, l := range lines {
		if i, seen := index[l.Number]; seen {
			out[i] = l
			continue
		}
		index[l.Number] = len(out)
		out = append(out, l)
	}
	return out
}
