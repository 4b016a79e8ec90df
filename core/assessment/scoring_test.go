package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fightlab/core/catalog"
)

func choice(id string, points int, correct ...bool) catalog.Question {
	q := catalog.Question{ID: id, Type: catalog.MultipleChoice, Points: points}
	for i, c := range correct {
		q.Options = append(q.Options, catalog.Option{ID: id + "-opt" + string(rune('a'+i)), IsCorrect: c, Order: i})
	}
	return q
}

func shortAnswer(id string, points int, caseSensitive bool, answers ...string) catalog.Question {
	q := catalog.Question{ID: id, Type: catalog.ShortAnswer, Points: points}
	for _, a := range answers {
		q.Answers = append(q.Answers, catalog.AcceptedAnswer{Text: a, CaseSensitive: caseSensitive})
	}
	return q
}

func TestScoreSubmission(t *testing.T) {
	test := catalog.Test{ID: "t", PassingGrade: 70}
	q1 := choice("q1", 2, false, true)
	q2 := shortAnswer("q2", 1, false, "Hook", "lead hook")
	q3 := catalog.Question{ID: "q3", Type: catalog.TrueFalse, Points: 1, Options: []catalog.Option{
		{ID: "true", Text: "True", IsCorrect: true}, {ID: "false", Text: "False"},
	}}
	questions := []catalog.Question{q1, q2, q3}

	tests := []struct {
		name     string
		answers  Submission
		want     Result
		wantMiss []string
	}{
		{
			name:    "all correct",
			answers: Submission{"q1": "q1-optb", "q2": " hook ", "q3": "true"},
			want: Result{
				Questions:    map[string]QuestionResult{"q1": {true, 2}, "q2": {true, 1}, "q3": {true, 1}},
				EarnedPoints: 4, TotalPoints: 4, Percentage: 100, Passed: true,
			},
		},
		{
			name:    "above the passing grade",
			answers: Submission{"q1": "q1-optb", "q2": "LEAD HOOK", "q3": "false"},
			want: Result{
				Questions:    map[string]QuestionResult{"q1": {true, 2}, "q2": {true, 1}, "q3": {false, 0}},
				EarnedPoints: 3, TotalPoints: 4, Percentage: 75, Passed: true,
			},
		},
		{
			name:    "empty answers count as wrong",
			answers: Submission{"q1": "", "q2": "", "q3": ""},
			want: Result{
				Questions:    map[string]QuestionResult{"q1": {false, 0}, "q2": {false, 0}, "q3": {false, 0}},
				EarnedPoints: 0, TotalPoints: 4, Percentage: 0, Passed: false,
			},
		},
		{
			name:    "option text is not an option id",
			answers: Submission{"q1": "q1-optb", "q2": "uppercut", "q3": "True"},
			want: Result{
				Questions:    map[string]QuestionResult{"q1": {true, 2}, "q2": {false, 0}, "q3": {false, 0}},
				EarnedPoints: 2, TotalPoints: 4, Percentage: 50, Passed: false,
			},
		},
		{
			name:     "missing answers",
			answers:  Submission{"q2": "hook"},
			wantMiss: []string{"q1", "q3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScoreSubmission(test, questions, tt.answers)
			if tt.wantMiss != nil {
				incomplete, ok := err.(*IncompleteSubmissionError)
				if !ok {
					t.Fatalf("ScoreSubmission() error = %v, want *IncompleteSubmissionError", err)
				}
				assert.Equal(t, tt.wantMiss, incomplete.Missing)
				return
			}
			if err != nil {
				t.Fatalf("ScoreSubmission() unexpected error = %v", err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreSubmission_edgeCases(t *testing.T) {
	t.Run("no questions", func(t *testing.T) {
		got, err := ScoreSubmission(catalog.Test{PassingGrade: 0}, nil, Submission{})
		assert.NoError(t, err)
		assert.Equal(t, 0, got.TotalPoints)
		assert.Equal(t, 0, got.Percentage)
		assert.False(t, got.Passed)
	})

	t.Run("zero and negative points", func(t *testing.T) {
		questions := []catalog.Question{choice("a", 0, true), choice("b", -3, true), choice("c", 1, true)}
		got, err := ScoreSubmission(catalog.Test{PassingGrade: 50}, questions, Submission{"a": "a-opta", "b": "b-opta", "c": "wrong"})
		assert.NoError(t, err)
		assert.Equal(t, 1, got.TotalPoints)
		assert.Equal(t, 0, got.EarnedPoints)
		assert.True(t, got.Questions["a"].Correct)
		assert.True(t, got.Questions["b"].Correct)
		assert.Equal(t, 0, got.Questions["b"].Points)
		assert.False(t, got.Passed)
	})

	t.Run("rounds half up", func(t *testing.T) {
		questions := []catalog.Question{choice("a", 1, true), choice("b", 1, true), choice("c", 1, true)}
		got, err := ScoreSubmission(catalog.Test{PassingGrade: 67}, questions, Submission{"a": "a-opta", "b": "b-opta", "c": "x"})
		assert.NoError(t, err)
		assert.Equal(t, 67, got.Percentage)
		assert.True(t, got.Passed)
	})

	t.Run("first flagged option wins", func(t *testing.T) {
		q := choice("a", 1, true, true)
		got, err := ScoreSubmission(catalog.Test{}, []catalog.Question{q}, Submission{"a": "a-optb"})
		assert.NoError(t, err)
		assert.False(t, got.Questions["a"].Correct)
	})

	t.Run("no correct option", func(t *testing.T) {
		q := choice("a", 1, false, false)
		got, err := ScoreSubmission(catalog.Test{}, []catalog.Question{q}, Submission{"a": "a-opta"})
		assert.NoError(t, err)
		assert.False(t, got.Questions["a"].Correct)
	})

	t.Run("case sensitive answers", func(t *testing.T) {
		q := shortAnswer("a", 1, true, "Jab")
		got, err := ScoreSubmission(catalog.Test{}, []catalog.Question{q}, Submission{"a": "jab"})
		assert.NoError(t, err)
		assert.False(t, got.Questions["a"].Correct)

		got, err = ScoreSubmission(catalog.Test{}, []catalog.Question{q}, Submission{"a": " Jab"})
		assert.NoError(t, err)
		assert.True(t, got.Questions["a"].Correct)
	})

	t.Run("unknown question type", func(t *testing.T) {
		q := catalog.Question{ID: "a", Type: "essay", Points: 1}
		got, err := ScoreSubmission(catalog.Test{}, []catalog.Question{q}, Submission{"a": "anything"})
		assert.NoError(t, err)
		assert.False(t, got.Questions["a"].Correct)
	})

	t.Run("extra answers are ignored", func(t *testing.T) {
		q := choice("a", 1, true)
		got, err := ScoreSubmission(catalog.Test{}, []catalog.Question{q}, Submission{"a": "a-opta", "zzz": "?"})
		assert.NoError(t, err)
		assert.Len(t, got.Questions, 1)
		assert.Equal(t, 100, got.Percentage)
	})
}
