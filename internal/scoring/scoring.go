// Package scoring compares submitted answers against a quiz's answer key and
// aggregates ranked results across participants.
package scoring

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/answer"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

// QuestionResult is the outcome for one question of the key.
type QuestionResult struct {
	Number    int
	Submitted string
	Answered  bool
	Correct   bool
	Weight    decimal.Decimal
}

// Result is one participant's scored submission.
type Result struct {
	PerQuestion []QuestionResult
	Solved      int
	Score       decimal.Decimal
	MaxScore    decimal.Decimal
}

// Score checks a submitted number->answer map against the key. Comparison is
// exact string equality after lower-casing and trimming both sides; missing
// answers count as incorrect and contribute zero. MaxScore sums all key
// weights regardless of what was submitted.
func Score(key []domain.QuestionKey, submitted map[int]string) Result {
	res := Result{
		PerQuestion: make([]QuestionResult, 0, len(key)),
		Score:       decimal.Zero,
		MaxScore:    decimal.Zero,
	}
	for _, q := range key {
		res.MaxScore = res.MaxScore.Add(q.Weight)

		sub, ok := submitted[q.Number]
		qr := QuestionResult{
			Number:    q.Number,
			Submitted: sub,
			Answered:  ok,
			Weight:    q.Weight,
		}
		if ok && answer.Canonical(sub) == answer.Canonical(q.Answer) {
			qr.Correct = true
			res.Solved++
			res.Score = res.Score.Add(q.Weight)
		}
		res.PerQuestion = append(res.PerQuestion, qr)
	}
	return res
}

// ParticipantResult is one row of a quiz's ranked results listing.
type ParticipantResult struct {
	Participant domain.Participant
	SubmittedAt time.Time
	Solved      int
	Total       int
	Score       decimal.Decimal
	MaxScore    decimal.Decimal
}

// Aggregate scores all submissions of a quiz and ranks them by score,
// descending. When a participant somehow has several submissions the latest
// one wins and the rest are ignored. Ties keep the underlying retrieval
// order; there is no secondary sort key.
func Aggregate(key []domain.QuestionKey, subs []domain.Submission) []ParticipantResult {
	latest := make(map[int64]domain.Submission)
	var order []int64
	for _, s := range subs {
		prev, seen := latest[s.Participant.ID]
		if !seen {
			order = append(order, s.Participant.ID)
			latest[s.Participant.ID] = s
			continue
		}
		if s.SubmittedAt.After(prev.SubmittedAt) {
			latest[s.Participant.ID] = s
		}
	}

	results := make([]ParticipantResult, 0, len(order))
	for _, id := range order {
		s := latest[id]
		scored := Score(key, answer.ParseStored(s.RawAnswers))
		results = append(results, ParticipantResult{
			Participant: s.Participant,
			SubmittedAt: s.SubmittedAt,
			Solved:      scored.Solved,
			Total:       len(key),
			Score:       scored.Score,
			MaxScore:    scored.MaxScore,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score.GreaterThan(results[j].Score)
	})
	return results
}
