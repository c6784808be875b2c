package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

func TestTakingInvalidCodeIsTerminal(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	out := e.sendText(t, participant, "WRONG1")
	if !strings.Contains(out, "Invalid code") {
		t.Fatalf("expected invalid-code rejection, got %q", out)
	}
	if _, active := e.conversations.Get(participant.ID); active {
		t.Fatalf("expected conversation back to idle")
	}
}

func TestTakingAlreadySubmittedIsTerminal(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	quiz := e.seedQuiz(t, e.now().Add(time.Hour))
	_ = e.store.SaveSubmission(ctx, submission(quiz.ID, participant.ID, "1 a"))

	e.sendText(t, participant, "take quiz")
	out := e.sendText(t, participant, "ABC123")
	if !strings.Contains(out, "already took this quiz") {
		t.Fatalf("expected repeat rejection, got %q", out)
	}
	if _, active := e.conversations.Get(participant.ID); active {
		t.Fatalf("expected conversation back to idle")
	}
}

func TestTakingExpiredDeadlineIsTerminal(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(-time.Minute))

	e.sendText(t, participant, "take quiz")
	out := e.sendText(t, participant, "ABC123")
	if !strings.Contains(out, "deadline has passed") {
		t.Fatalf("expected deadline rejection, got %q", out)
	}
	if _, active := e.conversations.Get(participant.ID); active {
		t.Fatalf("expected conversation back to idle")
	}
}

func TestTakingCodeIsCaseInsensitive(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	out := e.sendText(t, participant, "  abc123  ")
	if !strings.Contains(out, "Enter your answers") {
		t.Fatalf("expected answer instructions, got %q", out)
	}
}

func TestTakingHappyPathScoresAndPersists(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	quiz := e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")

	out := e.sendText(t, participant, "1 A\n2 2/3")
	if !strings.Contains(out, "1. A") || !strings.Contains(out, "2. 0.667") {
		t.Fatalf("expected normalized echo, got %q", out)
	}

	out = e.sendAction(t, participant, "confirm_answers")
	if !strings.Contains(out, "Result: 2 of 2 correct") {
		t.Fatalf("expected full score, got %q", out)
	}
	if !strings.Contains(out, "Total score: 3.5 of 3.5") {
		t.Fatalf("expected weighted total, got %q", out)
	}

	has, _ := e.store.HasSubmission(ctx, participant.ID, quiz.ID)
	if !has {
		t.Fatalf("expected persisted submission")
	}
	if _, active := e.conversations.Get(participant.ID); active {
		t.Fatalf("expected conversation cleared after commit")
	}
	if p, ok := e.store.participants[participant.ID]; !ok || p.Username != "ivan" {
		t.Fatalf("expected participant profile stored, got %+v", p)
	}
}

func TestTakingMissingAnswerShownAsDash(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")
	e.sendText(t, participant, "1 A")
	out := e.sendAction(t, participant, "confirm_answers")
	if !strings.Contains(out, "2: — ❌") {
		t.Fatalf("expected dash for unanswered question, got %q", out)
	}
	if !strings.Contains(out, "Result: 1 of 2 correct") {
		t.Fatalf("expected partial score, got %q", out)
	}
}

func TestTakingRetryReentersAnswers(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")
	e.sendText(t, participant, "1 B")
	e.sendAction(t, participant, "retry_answers")

	out := e.sendText(t, participant, "1 A\n2 0.667")
	if !strings.Contains(out, "Confirm?") {
		t.Fatalf("expected confirmation after retry, got %q", out)
	}
	out = e.sendAction(t, participant, "confirm_answers")
	if !strings.Contains(out, "Result: 2 of 2 correct") {
		t.Fatalf("expected corrected answers scored, got %q", out)
	}
}

func TestTakingBadBlockReprompts(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")

	out := e.sendText(t, participant, "1 A extra")
	if !strings.Contains(out, "1 A extra") {
		t.Fatalf("expected offending line echoed, got %q", out)
	}
	if _, ok := e.conversations.states[participant.ID].(answerEntry); !ok {
		t.Fatalf("expected to stay at answer entry")
	}
}

func TestTakingCommitRechecksSubmission(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	quiz := e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")
	e.sendText(t, participant, "1 A")

	// A second device commits between confirmation prompt and button press.
	_ = e.store.SaveSubmission(ctx, submission(quiz.ID, participant.ID, "1 a"))

	out := e.sendAction(t, participant, "confirm_answers")
	if !strings.Contains(out, "already took this quiz") {
		t.Fatalf("expected race re-check rejection, got %q", out)
	}
	if n := len(e.store.submissions); n != 1 {
		t.Fatalf("expected single submission, got %d", n)
	}
}

func TestTakingCommitRechecksDeadline(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")
	e.sendText(t, participant, "1 A")

	// The deadline passes while the confirmation prompt sits unanswered.
	e.now = func() time.Time { return time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC) }

	out := e.sendAction(t, participant, "confirm_answers")
	if !strings.Contains(out, "deadline has passed") {
		t.Fatalf("expected late rejection, got %q", out)
	}
	if len(e.store.submissions) != 0 {
		t.Fatalf("expected nothing persisted after the deadline")
	}
}

func TestTakingCommitRechecksQuizStillExists(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	quiz := e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")
	e.sendText(t, participant, "1 A")

	// The owner deletes the quiz while the confirmation prompt sits unanswered.
	if err := e.store.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	out := e.sendAction(t, participant, "confirm_answers")
	if !strings.Contains(out, "Invalid code") {
		t.Fatalf("expected rejection against the deleted quiz, got %q", out)
	}
	if len(e.store.submissions) != 0 {
		t.Fatalf("expected no submission against the deleted quiz")
	}
	if _, active := e.conversations.Get(participant.ID); active {
		t.Fatalf("expected conversation closed")
	}
}

func TestTakingCancelTearsDownReminders(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")

	st, ok := e.conversations.states[participant.ID].(answerEntry)
	if !ok {
		t.Fatalf("expected answer entry state")
	}

	out := e.sendAction(t, participant, "cancel_taking")
	if !strings.Contains(out, "cancelled") {
		t.Fatalf("expected cancellation message, got %q", out)
	}
	// Cancelled groups release their goroutines promptly.
	st.Reminders.Wait()
	if _, active := e.conversations.Get(participant.ID); active {
		t.Fatalf("expected conversation cleared")
	}
}

func TestTakingCommitTearsDownReminders(t *testing.T) {
	e := newTestEngine(t)
	e.seedQuiz(t, e.now().Add(time.Hour))

	e.sendText(t, participant, "take quiz")
	e.sendText(t, participant, "ABC123")
	e.sendText(t, participant, "1 A")

	st, ok := e.conversations.states[participant.ID].(answerConfirm)
	if !ok {
		t.Fatalf("expected answer confirm state")
	}
	e.sendAction(t, participant, "confirm_answers")
	st.Reminders.Wait()
}

func submission(quizID string, participantID int64, raw string) domain.Submission {
	return domain.Submission{
		Participant: domain.Participant{ID: participantID},
		QuizID:      quizID,
		RawAnswers:  raw,
		SubmittedAt: time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC),
	}
}
