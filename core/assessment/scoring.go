package assessment

import (
	"fmt"
	"math"
	"strings"

	"github.com/trezcool/fightlab/core/catalog"
)

// Submission maps question ids to the learner's answer: an option id for choice questions,
// free text for short answers.
type Submission map[string]string

// QuestionResult is the grading of a single question.
type QuestionResult struct {
	Correct bool `json:"correct"`
	Points  int  `json:"points"` // earned
}

type Result struct {
	Questions    map[string]QuestionResult `json:"questions"`
	EarnedPoints int                       `json:"score"`
	TotalPoints  int                       `json:"total_points"`
	Percentage   int                       `json:"percentage"`
	Passed       bool                      `json:"passed"`
}

// IncompleteSubmissionError lists the questions a submission left unanswered.
type IncompleteSubmissionError struct {
	Missing []string
}

func (err *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("missing answers for %d question(s): %s", len(err.Missing), strings.Join(err.Missing, ", "))
}

// ScoreSubmission grades answers against the questions of test. It does no I/O.
// Every question must have an entry in answers, even an empty one.
func ScoreSubmission(test catalog.Test, questions []catalog.Question, answers Submission) (Result, error) {
	var missing []string
	for _, q := range questions {
		if _, ok := answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		return Result{}, &IncompleteSubmissionError{Missing: missing}
	}

	res := Result{Questions: make(map[string]QuestionResult, len(questions))}
	for _, q := range questions {
		points := q.Points
		if points < 0 {
			points = 0
		}
		res.TotalPoints += points

		qr := QuestionResult{Correct: isCorrect(q, answers[q.ID])}
		if qr.Correct {
			qr.Points = points
			res.EarnedPoints += points
		}
		res.Questions[q.ID] = qr
	}

	if res.TotalPoints > 0 {
		res.Percentage = int(math.Round(float64(res.EarnedPoints) * 100 / float64(res.TotalPoints)))
		res.Passed = res.Percentage >= test.PassingGrade
	}
	return res, nil
}

func isCorrect(q catalog.Question, answer string) bool {
	switch q.Type {
	case catalog.MultipleChoice, catalog.TrueFalse:
		opt, ok := q.CorrectOption()
		return ok && answer == opt.ID
	case catalog.ShortAnswer:
		return matchesAcceptedAnswer(q.Answers, answer)
	}
	return false
}

// matchesAcceptedAnswer compares trimmed text; the case sensitivity of the first accepted answer applies to all.
func matchesAcceptedAnswer(accepted []catalog.AcceptedAnswer, answer string) bool {
	if len(accepted) == 0 {
		return false
	}
	given := strings.TrimSpace(answer)
	caseSensitive := accepted[0].CaseSensitive
	for _, acc := range accepted {
		want := strings.TrimSpace(acc.Text)
		if caseSensitive {
			if want == given {
				return true
			}
		} else if strings.EqualFold(want, given) {
			return true
		}
	}
	return false
}
