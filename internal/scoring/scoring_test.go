package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleKey() []domain.QuestionKey {
	return []domain.QuestionKey{
		{Number: 1, Answer: "a", Weight: dec("1")},
		{Number: 2, Answer: "0.667", Weight: dec("2.5")},
	}
}

func TestScoreNormalizedSubmission(t *testing.T) {
	// "A" and "2/3" were normalized at entry to "A" and "0.667".
	res := Score(sampleKey(), map[int]string{1: "A", 2: "0.667"})
	if res.Solved != 2 {
		t.Fatalf("expected 2 solved, got %d", res.Solved)
	}
	if !res.Score.Equal(dec("3.5")) || !res.MaxScore.Equal(dec("3.5")) {
		t.Fatalf("expected 3.5/3.5, got %s/%s", res.Score, res.MaxScore)
	}
}

func TestScoreMissingAnswerIsIncorrect(t *testing.T) {
	res := Score(sampleKey(), map[int]string{1: "a"})
	if res.Solved != 1 || !res.Score.Equal(dec("1")) {
		t.Fatalf("expected 1 solved worth 1, got %d / %s", res.Solved, res.Score)
	}
	if !res.MaxScore.Equal(dec("3.5")) {
		t.Fatalf("max score counts unanswered questions, got %s", res.MaxScore)
	}
	second := res.PerQuestion[1]
	if second.Answered || second.Correct {
		t.Fatalf("question 2 should be unanswered and incorrect: %+v", second)
	}
}

func TestScoreNoNumericTolerance(t *testing.T) {
	res := Score(sampleKey(), map[int]string{2: "0.6667"})
	if res.Solved != 0 {
		t.Fatalf("differently rounded value must not match, got %d solved", res.Solved)
	}
}

func TestScoreOrderIndependent(t *testing.T) {
	key := sampleKey()
	reversed := []domain.QuestionKey{key[1], key[0]}
	submitted := map[int]string{1: "a", 2: "0.667"}

	a := Score(key, submitted)
	b := Score(reversed, submitted)
	if a.Solved != b.Solved || !a.Score.Equal(b.Score) || !a.MaxScore.Equal(b.MaxScore) {
		t.Fatalf("permuting the key changed totals: %+v vs %+v", a, b)
	}
}

func TestAggregateLatestSubmissionWins(t *testing.T) {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	p := domain.Participant{ID: 7, DisplayName: "IVANOV IVAN"}
	subs := []domain.Submission{
		{Participant: p, QuizID: "q", RawAnswers: "1 a\n2 0.667", SubmittedAt: base},
		{Participant: p, QuizID: "q", RawAnswers: "1 b", SubmittedAt: base.Add(time.Minute)},
	}

	results := Aggregate(sampleKey(), subs)
	if len(results) != 1 {
		t.Fatalf("expected one row per participant, got %d", len(results))
	}
	if results[0].Solved != 0 {
		t.Fatalf("latest submission must win, got %d solved", results[0].Solved)
	}
	if !results[0].SubmittedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("expected latest instant, got %v", results[0].SubmittedAt)
	}
}

func TestAggregateRanksDescendingStable(t *testing.T) {
	now := time.Now()
	subs := []domain.Submission{
		{Participant: domain.Participant{ID: 1, DisplayName: "low"}, RawAnswers: "1 x", SubmittedAt: now},
		{Participant: domain.Participant{ID: 2, DisplayName: "tie-first"}, RawAnswers: "1 a", SubmittedAt: now},
		{Participant: domain.Participant{ID: 3, DisplayName: "tie-second"}, RawAnswers: "1 a", SubmittedAt: now},
		{Participant: domain.Participant{ID: 4, DisplayName: "top"}, RawAnswers: "1 a\n2 0.667", SubmittedAt: now},
	}

	results := Aggregate(sampleKey(), subs)
	got := make([]int64, 0, len(results))
	for _, r := range results {
		got = append(got, r.Participant.ID)
	}
	want := []int64{4, 2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranking order %v, want %v", got, want)
		}
	}
}

func TestAggregateDuplicateNumberLastWriteWins(t *testing.T) {
	subs := []domain.Submission{
		{Participant: domain.Participant{ID: 1}, RawAnswers: "1 x\n1 a", SubmittedAt: time.Now()},
	}
	results := Aggregate(sampleKey(), subs)
	if results[0].Solved != 1 {
		t.Fatalf("the later duplicate line should be scored, got %d solved", results[0].Solved)
	}
}
