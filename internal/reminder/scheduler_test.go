package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, _ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("transport rejected send")
	}
	n.sent = append(n.sent, text)
	return nil
}

func (n *recordingNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) first() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[0]
}

type stubSubmissions struct {
	mu        sync.Mutex
	submitted bool
	checks    int
}

func (s *stubSubmissions) HasSubmission(context.Context, int64, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	return s.submitted, nil
}

// checkCount reports how many notices have reached their fire-time check.
func (s *stubSubmissions) checkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

func newTestScheduler(n Notifier, subs SubmissionChecker, active bool) *Scheduler {
	s := NewScheduler(n, subs, func(int64) bool { return active })
	s.logf = func(string, ...any) {}
	return s
}

// waitFor polls cond until it holds. Only the first notice of each test has a
// short enough delay to fire; the later ones are cancelled before Wait so the
// test never sits on a real multi-minute timer.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("%s", msg)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduleFiresFifteenMinuteReminder(t *testing.T) {
	notifier := &recordingNotifier{}
	s := newTestScheduler(notifier, &stubSubmissions{}, true)

	g := s.Schedule(42, "quiz-1", time.Now().Add(15*time.Minute+30*time.Millisecond))
	waitFor(t, func() bool { return notifier.sentCount() > 0 }, "15-minute reminder never fired")
	g.Cancel()
	g.Wait()

	if notifier.first() != fifteenMinuteText {
		t.Fatalf("unexpected reminder text %q", notifier.first())
	}
}

func TestCancelBeforeFireSendsNothing(t *testing.T) {
	notifier := &recordingNotifier{}
	s := newTestScheduler(notifier, &stubSubmissions{}, true)

	g := s.Schedule(42, "quiz-1", time.Now().Add(15*time.Minute+20*time.Millisecond))
	g.Cancel()
	g.Wait()

	time.Sleep(50 * time.Millisecond)
	if notifier.sentCount() != 0 {
		t.Fatalf("expected zero notifications after cancel, got %d", notifier.sentCount())
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s := newTestScheduler(&recordingNotifier{}, &stubSubmissions{}, true)
	g := s.Schedule(42, "quiz-1", time.Now().Add(time.Hour))
	g.Cancel()
	g.Cancel()

	var nilGroup *Group
	nilGroup.Cancel()
}

func TestFiredNoticeSuppressedWhenSubmitted(t *testing.T) {
	notifier := &recordingNotifier{}
	subs := &stubSubmissions{submitted: true}
	s := newTestScheduler(notifier, subs, true)

	g := s.Schedule(42, "quiz-1", time.Now().Add(15*time.Minute+10*time.Millisecond))
	waitFor(t, func() bool { return subs.checkCount() > 0 }, "notice never reached its fire-time check")
	g.Cancel()
	g.Wait()

	if notifier.sentCount() != 0 {
		t.Fatalf("submitted attempt must suppress reminders, got %d", notifier.sentCount())
	}
}

func TestFiredNoticeSuppressedWhenConversationIdle(t *testing.T) {
	notifier := &recordingNotifier{}
	subs := &stubSubmissions{}
	s := newTestScheduler(notifier, subs, false)

	g := s.Schedule(42, "quiz-1", time.Now().Add(15*time.Minute+10*time.Millisecond))
	waitFor(t, func() bool { return subs.checkCount() > 0 }, "notice never reached its fire-time check")
	g.Cancel()
	g.Wait()

	if notifier.sentCount() != 0 {
		t.Fatalf("idle conversation must suppress reminders, got %d", notifier.sentCount())
	}
}

func TestPastNoticesAreNotScheduled(t *testing.T) {
	notifier := &recordingNotifier{}
	s := newTestScheduler(notifier, &stubSubmissions{}, true)

	// Deadline already passed: every delay is negative, nothing spawns.
	g := s.Schedule(42, "quiz-1", time.Now().Add(-time.Minute))
	g.Wait()
	if notifier.sentCount() != 0 {
		t.Fatalf("expected nothing scheduled for past deadline, got %d", notifier.sentCount())
	}
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	notifier := &recordingNotifier{fail: true}
	logged := make(chan struct{}, 3)
	s := NewScheduler(notifier, &stubSubmissions{}, func(int64) bool { return true })
	s.logf = func(string, ...any) { logged <- struct{}{} }

	g := s.Schedule(42, "quiz-1", time.Now().Add(15*time.Minute+10*time.Millisecond))
	select {
	case <-logged:
	case <-time.After(2 * time.Second):
		t.Fatalf("delivery failure was never logged")
	}
	g.Cancel()
	g.Wait()
}
