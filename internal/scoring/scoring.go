// Package scoring computes attempt results from client-held quiz data. It is
// the fallback path when the assessment backend cannot confirm a submission,
// so it must be deterministic and side-effect-free.
package scoring

import (
	"math"

	"assessment-attempt-service/internal/domain"
)

// Score grades the given answers against the quiz. A question counts as
// correct only when the selected option set exactly equals the correct set;
// partial overlap on multiple-choice awards nothing. Unanswered questions
// are incorrect.
//
// The percentage is point-weighted: round(100 * rawScore / totalPossible).
// With uniform points this coincides with round(100 * correct / total).
func Score(quiz domain.Quiz, answers map[string][]string) domain.Result {
	rawScore := 0
	totalPossible := 0
	correctCount := 0

	for _, q := range quiz.Questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		totalPossible += points
		if setsEqual(answers[q.ID], q.Correct) {
			rawScore += points
			correctCount++
		}
	}

	pct := 0
	if totalPossible > 0 {
		pct = int(math.Round(100 * float64(rawScore) / float64(totalPossible)))
	}

	return domain.Result{
		RawScore:        rawScore,
		PercentageScore: pct,
		CorrectAnswers:  correctCount,
		TotalQuestions:  len(quiz.Questions),
		Passed:          pct >= quiz.PassingScorePercent,
	}
}

// setsEqual compares two option-id sets order-independently. Empty selected
// and empty correct never match: a question without a known correct set
// cannot be answered correctly.
func setsEqual(selected, correct []string) bool {
	if len(correct) == 0 {
		return false
	}
	got := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		got[id] = struct{}{}
	}
	want := make(map[string]struct{}, len(correct))
	for _, id := range correct {
		want[id] = struct{}{}
	}
	if len(got) != len(want) {
		return false
	}
	for id := range want {
		if _, ok := got[id]; !ok {
			return false
		}
	}
	return true
}
