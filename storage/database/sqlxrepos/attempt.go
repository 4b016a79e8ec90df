package sqlxrepos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/assessment"
)

type attemptRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	TestID      string    `db:"test_id"`
	Score       int       `db:"score"`
	TotalPoints int       `db:"total_points"`
	Percentage  int       `db:"percentage"`
	Passed      bool      `db:"passed"`
	Answers     []byte    `db:"answers"`
	CompletedAt time.Time `db:"completed_at"`
}

func (r attemptRow) unbox() (assessment.Attempt, error) {
	answers := make(map[string]assessment.QuestionResult)
	if len(r.Answers) > 0 {
		if err := json.Unmarshal(r.Answers, &answers); err != nil {
			return assessment.Attempt{}, errors.Wrapf(err, "decoding answers of attempt %s", r.ID)
		}
	}
	return assessment.Attempt{
		ID:           r.ID,
		UserID:       r.UserID,
		TestID:       r.TestID,
		Answers:      answers,
		EarnedPoints: r.Score,
		TotalPoints:  r.TotalPoints,
		Percentage:   r.Percentage,
		Passed:       r.Passed,
		CompletedAt:  r.CompletedAt.UTC(),
	}, nil
}

type attemptRepository struct {
	db core.DB
}

var _ assessment.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db core.DB) *attemptRepository {
	return &attemptRepository{db: db}
}

func (repo attemptRepository) CreateAttempt(ctx context.Context, attempt assessment.Attempt) (assessment.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "encoding attempt answers")
	}

	attempt.ID = uuid.New().String()
	_, err = repo.db.ExecContext(ctx, `
		INSERT INTO user_test_attempts (id, user_id, test_id, score, total_points, percentage, passed, answers, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)`,
		attempt.ID, attempt.UserID, attempt.TestID, attempt.EarnedPoints, attempt.TotalPoints,
		attempt.Percentage, attempt.Passed, string(answers), attempt.CompletedAt,
	)
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return attempt, nil
}

func (repo attemptRepository) QueryAttempts(ctx context.Context, filter assessment.AttemptFilter) ([]assessment.Attempt, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.TestID != "" {
		if _, err := uuid.Parse(filter.TestID); err != nil {
			return []assessment.Attempt{}, nil
		}
		args = append(args, filter.TestID)
		where = append(where, fmt.Sprintf("test_id = $%d", len(args)))
	}

	q := "SELECT * FROM user_test_attempts"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY completed_at DESC, id DESC"

	var rows []attemptRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting attempts")
	}
	attempts := make([]assessment.Attempt, 0, len(rows))
	for _, r := range rows {
		att, err := r.unbox()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, att)
	}
	return attempts, nil
}
