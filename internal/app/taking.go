package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/answer"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/reminder"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/scoring"
)

// Taking flow states. The reminder group travels with the draft so every
// terminal transition can tear it down.
type (
	codeEntry   struct{}
	answerEntry struct {
		Quiz      domain.Quiz
		Reminders *reminder.Group
	}
	answerConfirm struct {
		Quiz      domain.Quiz
		Raw       string
		Lines     []answer.Line
		Reminders *reminder.Group
	}
)

func (codeEntry) conversationState()     {}
func (answerEntry) conversationState()   {}
func (answerConfirm) conversationState() {}

const (
	actionConfirmAnswers = "confirm_answers"
	actionRetryAnswers   = "retry_answers"
	actionCancelTaking   = "cancel_taking"
)

func (e *Engine) startTaking(actor domain.Participant) ([]Prompt, error) {
	e.conversations.Put(actor.ID, codeEntry{})
	return []Prompt{{
		Text:    "🔐 Enter the quiz code:",
		Buttons: [][]Button{{{Action: actionCancelTaking, Label: "❌ Cancel"}}},
	}}, nil
}

func (e *Engine) handleTaking(ctx context.Context, actor domain.Participant, state State, in Input) ([]Prompt, error) {
	if in.Action == actionCancelTaking {
		cancelReminders(state)
		e.conversations.Clear(actor.ID)
		return []Prompt{text("❌ Quiz attempt cancelled. Send \"take quiz\" to start over.")}, nil
	}

	switch st := state.(type) {
	case codeEntry:
		return e.takingCode(ctx, actor, in)
	case answerEntry:
		return e.takingAnswers(actor, st, in)
	case answerConfirm:
		return e.takingCommit(ctx, actor, st, in)
	}
	return nil, fmt.Errorf("taking: unexpected state %T", state)
}

// takingCode resolves the access code and runs the eligibility checks. Any
// rejection here is terminal: the conversation returns to idle.
func (e *Engine) takingCode(ctx context.Context, actor domain.Participant, in Input) ([]Prompt, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Text))

	quiz, err := e.quizzes.FindQuizByCode(ctx, code)
	if err == nil {
		err = e.eligibility(ctx, actor.ID, quiz)
	}
	if domain.IsEligibility(err) {
		e.conversations.Clear(actor.ID)
		return []Prompt{text(rejectionText(err))}, nil
	}
	if err != nil {
		return nil, err
	}

	group := e.reminders.Schedule(actor.ID, quiz.ID, quiz.Deadline)
	e.conversations.Put(actor.ID, answerEntry{Quiz: quiz, Reminders: group})
	return []Prompt{text(takingInstructions)}, nil
}

// eligibility decides whether an attempt may proceed against the persisted
// state. It runs at code entry and again right before the commit write.
func (e *Engine) eligibility(ctx context.Context, actorID int64, quiz domain.Quiz) error {
	submitted, err := e.store.HasSubmission(ctx, actorID, quiz.ID)
	if err != nil {
		return err
	}
	if submitted {
		return domain.ErrAlreadySubmitted
	}
	if e.now().After(quiz.Deadline) {
		return domain.ErrDeadlinePassed
	}
	return nil
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		return "❌ Invalid code. Check it and start over."
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "⚠️ You already took this quiz. Submitting again is not allowed."
	case errors.Is(err, domain.ErrDeadlinePassed):
		return "⏰ The submission deadline has passed."
	}
	return "❌ The attempt cannot continue."
}

func (e *Engine) takingAnswers(actor domain.Participant, st answerEntry, in Input) ([]Prompt, error) {
	lines, err := answer.ParseBlock(in.Text, answer.Taking)
	var fe *answer.FormatError
	if errors.As(err, &fe) {
		return []Prompt{text("❌ " + fe.Error() + "\n\n" + takingInstructions)}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []Prompt{text(takingInstructions)}, nil
	}

	rows := make([]string, 0, len(lines))
	raw := make([]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, fmt.Sprintf("%d. %s", l.Number, l.Answer))
		raw = append(raw, fmt.Sprintf("%d %s", l.Number, l.Answer))
	}

	e.conversations.Put(actor.ID, answerConfirm{
		Quiz:      st.Quiz,
		Raw:       strings.Join(raw, "\n"),
		Lines:     lines,
		Reminders: st.Reminders,
	})
	return []Prompt{{
		Text: "Here is what I got:\n\n" + strings.Join(rows, "\n") + "\n\nConfirm?",
		Buttons: [][]Button{
			{{Action: actionConfirmAnswers, Label: "✅ Confirm"}, {Action: actionRetryAnswers, Label: "🔁 Re-enter"}},
			{{Action: actionCancelTaking, Label: "❌ Cancel attempt"}},
		},
	}}, nil
}

// takingCommit re-runs the submission and deadline checks against current
// persisted state before the single durable write, then renders the
// per-question breakdown and tears the reminders down.
func (e *Engine) takingCommit(ctx context.Context, actor domain.Participant, st answerConfirm, in Input) ([]Prompt, error) {
	switch in.Action {
	case actionRetryAnswers:
		e.conversations.Put(actor.ID, answerEntry{Quiz: st.Quiz, Reminders: st.Reminders})
		return []Prompt{text(takingInstructions)}, nil
	case actionConfirmAnswers:
	default:
		return []Prompt{text("Use the buttons above to confirm or re-enter your answers.")}, nil
	}

	// The quiz may have been deleted and another device of the same
	// participant may have committed since code entry; the persisted state,
	// not the conversation draft, decides.
	_, err := e.store.FindQuizByCode(ctx, st.Quiz.Code)
	if err == nil {
		err = e.eligibility(ctx, actor.ID, st.Quiz)
	}
	if domain.IsEligibility(err) {
		st.Reminders.Cancel()
		e.conversations.Clear(actor.ID)
		return []Prompt{text(rejectionText(err))}, nil
	} else if err != nil {
		return nil, err
	}

	keys, err := e.quizzes.GetQuestionKeys(ctx, st.Quiz.ID)
	if err != nil {
		return nil, err
	}
	result := scoring.Score(keys, answer.AsMap(st.Lines))

	if err := e.store.UpsertParticipant(ctx, actor); err != nil {
		return nil, err
	}
	if err := e.store.SaveSubmission(ctx, domain.Submission{
		Participant: actor,
		QuizID:      st.Quiz.ID,
		RawAnswers:  st.Raw,
		SubmittedAt: e.now(),
	}); err != nil {
		return nil, err
	}

	st.Reminders.Cancel()
	e.conversations.Clear(actor.ID)
	return []Prompt{text(resultBreakdown(result))}, nil
}

func resultBreakdown(res scoring.Result) string {
	var b strings.Builder
	for _, q := range res.PerQuestion {
		shown := q.Submitted
		if !q.Answered {
			shown = "—"
		}
		mark := "❌"
		if q.Correct {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d: %s %s\n", q.Number, shown, mark)
	}
	fmt.Fprintf(&b, "\n🎯 Result: %d of %d correct\n", res.Solved, len(res.PerQuestion))
	fmt.Fprintf(&b, "Total score: %s of %s", res.Score, res.MaxScore)
	return b.String()
}

func cancelReminders(state State) {
	switch st := state.(type) {
	case answerEntry:
		st.Reminders.Cancel()
	case answerConfirm:
		st.Reminders.Cancel()
	}
}
