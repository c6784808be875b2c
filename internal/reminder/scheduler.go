// Package reminder schedules the pre-deadline and deadline notices for an
// in-progress quiz attempt. All notices of one attempt share a single
// cancellation scope owned by the conversation that started it.
package reminder

import (
	"context"
	"log"
	"sync"
	"time"
)

// Notifier delivers a reminder text to an actor. Failures are logged and
// swallowed; reminders are never retried.
type Notifier interface {
	Notify(ctx context.Context, actorID int64, text string) error
}

// NotifyFunc adapts a plain function to the Notifier interface.
type NotifyFunc func(ctx context.Context, actorID int64, text string) error

func (f NotifyFunc) Notify(ctx context.Context, actorID int64, text string) error {
	return f(ctx, actorID, text)
}

// SubmissionChecker reports whether the attempt already ended in a commit.
type SubmissionChecker interface {
	HasSubmission(ctx context.Context, participantID int64, quizID string) (bool, error)
}

const (
	fifteenMinuteText = "⏰ 15 minutes left. Budget your time and don't rush."
	threeMinuteText   = "⚠️ 3 minutes left. Time to wrap up."
	deadlineText      = "🕰 Time is up. The quiz can no longer be submitted."
)

// Scheduler spawns the deferred notices for quiz attempts.
type Scheduler struct {
	notifier    Notifier
	submissions SubmissionChecker
	active      func(actorID int64) bool
	now         func() time.Time
	logf        func(format string, args ...any)
}

// NewScheduler wires a scheduler. active reports whether the actor's
// conversation is still in a non-idle state; a fired notice is suppressed
// when the conversation has already moved on.
func NewScheduler(notifier Notifier, submissions SubmissionChecker, active func(actorID int64) bool) *Scheduler {
	return &Scheduler{
		notifier:    notifier,
		submissions: submissions,
		active:      active,
		now:         time.Now,
		logf:        log.Printf,
	}
}

// Group is the cancellation scope for one attempt's notices.
type Group struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Cancel stops every pending notice of the attempt. Safe to call more than
// once and on a nil group.
func (g *Group) Cancel() {
	if g == nil {
		return
	}
	g.cancel()
}

// Wait blocks until all spawned notice goroutines have finished. Test helper.
func (g *Group) Wait() {
	if g == nil {
		return
	}
	g.wg.Wait()
}

// Schedule computes the delays until deadline-15m, deadline-3m and the
// deadline itself, and spawns a deferred notice for each delay that is still
// in the future. Every notice re-checks, at fire time, that the attempt is
// unsubmitted and the conversation still active before sending.
func (s *Scheduler) Schedule(participantID int64, quizID string, deadline time.Time) *Group {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Group{cancel: cancel}

	notices := []struct {
		at   time.Time
		text string
	}{
		{deadline.Add(-15 * time.Minute), fifteenMinuteText},
		{deadline.Add(-3 * time.Minute), threeMinuteText},
		{deadline, deadlineText},
	}

	now := s.now()
	for _, n := range notices {
		delay := n.at.Sub(now)
		if delay < 0 {
			continue
		}
		g.wg.Add(1)
		go s.fireAfter(ctx, g, delay, participantID, quizID, n.text)
	}
	return g
}

func (s *Scheduler) fireAfter(ctx context.Context, g *Group, delay time.Duration, participantID int64, quizID, text string) {
	defer g.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	submitted, err := s.submissions.HasSubmission(ctx, participantID, quizID)
	if err != nil {
		s.logf("reminder: submission check for %d failed: %v", participantID, err)
		return
	}
	if submitted || !s.active(participantID) {
		return
	}
	if err := s.notifier.Notify(ctx, participantID, text); err != nil {
		s.logf("reminder: sending to %d failed: %v", participantID, err)
	}
}
