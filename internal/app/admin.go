package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/answer"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/scoring"
)

// Owner-only admin-list editing states.
type (
	adminAdding   struct{}
	adminRemoving struct{}
)

func (adminAdding) conversationState()   {}
func (adminRemoving) conversationState() {}

// Inventory action prefixes; the suffix carries the quiz (and participant) id.
const (
	actionViewQuiz    = "view_quiz:"
	actionViewResults = "view_results:"
	actionViewAnswers = "view_answers:"
	actionAskDelete   = "confirm_delete_quiz:"
	actionDeleteQuiz  = "delete_quiz:"
)

func (e *Engine) startAdminEdit(actor domain.Participant, st State) ([]Prompt, error) {
	if actor.ID != e.ownerID {
		return []Prompt{text(menuHint)}, nil
	}
	e.conversations.Put(actor.ID, st)
	if _, ok := st.(adminAdding); ok {
		return []Prompt{text("🔢 Send the user id to add as admin:")}, nil
	}
	return []Prompt{text("🔢 Send the admin id to remove:")}, nil
}

// handleAdminEdit consumes the id entry for either owner flow. The
// conversation ends after one attempt, valid or not.
func (e *Engine) handleAdminEdit(ctx context.Context, actor domain.Participant, state State, in Input) ([]Prompt, error) {
	e.conversations.Clear(actor.ID)

	id, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	if err != nil {
		return []Prompt{text("❌ Invalid id.")}, nil
	}

	if _, ok := state.(adminAdding); ok {
		if err := e.store.AddAdmin(ctx, id); err != nil {
			return nil, err
		}
		return []Prompt{text(fmt.Sprintf("✅ Admin %d added.", id))}, nil
	}
	if err := e.store.RemoveAdmin(ctx, id); err != nil {
		return nil, err
	}
	return []Prompt{text(fmt.Sprintf("✅ Admin %d removed.", id))}, nil
}

func (e *Engine) listAdmins(ctx context.Context, actor domain.Participant) ([]Prompt, error) {
	if actor.ID != e.ownerID {
		return []Prompt{text(menuHint)}, nil
	}
	admins, err := e.store.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return []Prompt{text("The admin list is empty.")}, nil
	}
	rows := make([]string, 0, len(admins))
	for _, id := range admins {
		rows = append(rows, fmt.Sprintf("• %d", id))
	}
	return []Prompt{text("📋 Admins:\n" + strings.Join(rows, "\n"))}, nil
}

func (e *Engine) listOwnQuizzes(ctx context.Context, actor domain.Participant) ([]Prompt, error) {
	allowed, err := e.isAdminOrOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []Prompt{text(menuHint)}, nil
	}

	quizzes, err := e.store.QuizzesByAdmin(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(quizzes) == 0 {
		return []Prompt{text("📭 You have no quizzes yet.")}, nil
	}

	buttons := make([][]Button, 0, len(quizzes))
	for _, q := range quizzes {
		buttons = append(buttons, []Button{{Action: actionViewQuiz + q.ID, Label: q.Title}})
	}
	return []Prompt{{Text: "📚 Pick a quiz:", Buttons: buttons}}, nil
}

func (e *Engine) handleInventoryAction(ctx context.Context, actor domain.Participant, action string) ([]Prompt, error) {
	allowed, err := e.isAdminOrOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []Prompt{text(menuHint)}, nil
	}

	switch {
	case strings.HasPrefix(action, actionViewQuiz):
		return e.quizInfo(ctx, strings.TrimPrefix(action, actionViewQuiz), false)
	case strings.HasPrefix(action, actionAskDelete):
		return e.quizInfo(ctx, strings.TrimPrefix(action, actionAskDelete), true)
	case strings.HasPrefix(action, actionDeleteQuiz):
		return e.deleteQuiz(ctx, strings.TrimPrefix(action, actionDeleteQuiz))
	case strings.HasPrefix(action, actionViewResults):
		return e.quizResults(ctx, strings.TrimPrefix(action, actionViewResults))
	case strings.HasPrefix(action, actionViewAnswers):
		return e.participantAnswers(ctx, strings.TrimPrefix(action, actionViewAnswers))
	}
	return []Prompt{text(menuHint)}, nil
}

// deleteQuiz removes the quiz with its keys and submissions, then evicts the
// cached copy so the access code stops resolving right away.
func (e *Engine) deleteQuiz(ctx context.Context, quizID string) ([]Prompt, error) {
	summary, err := e.store.QuizSummary(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return []Prompt{text("❌ Quiz not found.")}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := e.store.DeleteQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	e.evictQuiz(ctx, summary.Quiz)
	return []Prompt{text("✅ Quiz deleted.")}, nil
}

func (e *Engine) quizInfo(ctx context.Context, quizID string, askDelete bool) ([]Prompt, error) {
	summary, err := e.store.QuizSummary(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return []Prompt{text("❌ Quiz not found.")}, nil
	}
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📄 %s\n", summary.Quiz.Title)
	fmt.Fprintf(&b, "🔐 Code: %s\n", summary.Quiz.Code)
	fmt.Fprintf(&b, "⏰ Deadline: %s\n", summary.Quiz.Deadline.In(e.loc).Format(deadlineFormat))
	fmt.Fprintf(&b, "👥 Submitted: %d\n\n", summary.Submissions)
	for _, q := range summary.Questions {
		fmt.Fprintf(&b, "%d. %s (+%s)\n", q.Number, q.Answer, q.Weight)
	}

	if askDelete {
		fmt.Fprintf(&b, "\n\nDELETE QUIZ %q?", summary.Quiz.Title)
		return []Prompt{{
			Text: b.String(),
			Buttons: [][]Button{{
				{Action: actionDeleteQuiz + quizID, Label: "✅ Yes"},
				{Action: actionViewQuiz + quizID, Label: "❌ No"},
			}},
		}}, nil
	}

	return []Prompt{{
		Text: b.String(),
		Buttons: [][]Button{
			{{Action: actionViewResults + quizID, Label: "📊 View results"}},
			{{Action: actionAskDelete + quizID, Label: "🗑 Delete quiz"}},
		},
	}}, nil
}

// quizResults renders the ranked listing, one card per participant, each
// with a drill-down button for the detailed answers.
func (e *Engine) quizResults(ctx context.Context, quizID string) ([]Prompt, error) {
	keys, err := e.store.GetQuestionKeys(ctx, quizID)
	if err != nil {
		return nil, err
	}
	subs, err := e.store.SubmissionsWithParticipants(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return []Prompt{text("📭 Nobody has taken this quiz yet.")}, nil
	}

	results := scoring.Aggregate(keys, subs)
	prompts := []Prompt{text("📊 Participant results:")}
	for _, r := range results {
		var b strings.Builder
		b.WriteString("👤 PARTICIPANT\n\n")
		fmt.Fprintf(&b, "Name: %s\n", r.Participant.DisplayName)
		if r.Participant.Username != "" {
			fmt.Fprintf(&b, "🆔 Username: @%s\n", r.Participant.Username)
		}
		fmt.Fprintf(&b, "🕒 Submitted: %s\n\n", r.SubmittedAt.In(e.loc).Format("02.01.2006 15:04"))
		fmt.Fprintf(&b, "✅ Solved: %d of %d\n", r.Solved, r.Total)
		fmt.Fprintf(&b, "💯 Score: %s of %s\n", r.Score, r.MaxScore)

		prompts = append(prompts, Prompt{
			Text: b.String(),
			Buttons: [][]Button{{{
				Action: fmt.Sprintf("%s%s:%d", actionViewAnswers, quizID, r.Participant.ID),
				Label:  "🔍 View answers",
			}}},
		})
	}
	return prompts, nil
}

// participantAnswers renders the per-question breakdown for one participant.
// The action suffix is "<quizID>:<participantID>".
func (e *Engine) participantAnswers(ctx context.Context, suffix string) ([]Prompt, error) {
	quizID, idStr, ok := strings.Cut(suffix, ":")
	if !ok {
		return []Prompt{text("❌ Malformed request.")}, nil
	}
	participantID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return []Prompt{text("❌ Malformed request.")}, nil
	}

	keys, err := e.store.GetQuestionKeys(ctx, quizID)
	if err != nil {
		return nil, err
	}
	subs, err := e.store.SubmissionsWithParticipants(ctx, quizID)
	if err != nil {
		return nil, err
	}

	var latest *domain.Submission
	for i := range subs {
		s := &subs[i]
		if s.Participant.ID != participantID {
			continue
		}
		if latest == nil || s.SubmittedAt.After(latest.SubmittedAt) {
			latest = s
		}
	}
	if latest == nil {
		return []Prompt{text("❌ No answers found.")}, nil
	}

	result := scoring.Score(keys, answer.ParseStored(latest.RawAnswers))
	var b strings.Builder
	b.WriteString("📋 PARTICIPANT ANSWERS:\n\n")
	for _, q := range result.PerQuestion {
		shown := q.Submitted
		if !q.Answered {
			shown = "—"
		}
		mark := "❌"
		if q.Correct {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %s (%s) %s\n", q.Number, shown, q.Weight, mark)
	}
	return []Prompt{text(b.String())}, nil
}
