package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/fightlab/core/assessment"
)

type attemptRepository struct {
	db *attemptTable
}

var _ assessment.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db *DB) *attemptRepository {
	return &attemptRepository{db: db.attempt}
}

func (repo *attemptRepository) CreateAttempt(_ context.Context, attempt assessment.Attempt) (assessment.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	attempt.ID = uuid.New().String()
	answers := make(map[string]assessment.QuestionResult, len(attempt.Answers))
	for qid, res := range attempt.Answers {
		answers[qid] = res
	}
	attempt.Answers = answers
	repo.db.table = append(repo.db.table, attempt)
	return attempt, nil
}

// QueryAttempts walks the table backwards: rows are appended in completion order.
func (repo *attemptRepository) QueryAttempts(_ context.Context, filter assessment.AttemptFilter) ([]assessment.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attempts := make([]assessment.Attempt, 0)
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		att := repo.db.table[i]
		if (filter.UserID != "" && att.UserID != filter.UserID) || (filter.TestID != "" && att.TestID != filter.TestID) {
			continue
		}
		attempts = append(attempts, att)
	}
	return attempts, nil
}
