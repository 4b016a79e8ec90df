package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
)

// NowFunc returns the current time; it is overridden in tests.
var NowFunc = time.Now

// Attempt is a recorded, immutable test submission.
type Attempt struct {
	ID           string                    `json:"id"`
	UserID       string                    `json:"user_id"`
	TestID       string                    `json:"test_id"`
	Answers      map[string]QuestionResult `json:"answers"`
	EarnedPoints int                       `json:"score"`
	TotalPoints  int                       `json:"total_points"`
	Percentage   int                       `json:"percentage"`
	Passed       bool                      `json:"passed"`
	CompletedAt  time.Time                 `json:"completed_at"` // UTC
}

type AttemptFilter struct {
	UserID string
	TestID string
}

type (
	Repository interface {
		// CreateAttempt only ever inserts; attempts are never updated.
		CreateAttempt(ctx context.Context, attempt Attempt) (Attempt, error)
		// QueryAttempts applies AND operation on available AttemptFilter fields; newest first.
		QueryAttempts(ctx context.Context, filter AttemptFilter) ([]Attempt, error)
	}

	TestFinder interface {
		GetTest(ctx context.Context, courseID, id string) (catalog.Test, error)
		QueryQuestions(ctx context.Context, courseID, testID string) ([]catalog.Question, error)
	}

	Service struct {
		repo   Repository
		tests  TestFinder
		logger core.Logger
	}
)

func NewService(repo Repository, tests TestFinder, logger core.Logger) *Service {
	return &Service{repo: repo, tests: tests, logger: logger}
}

// RecordAttempt appends the scored result as a new attempt and returns its id.
func (svc *Service) RecordAttempt(ctx context.Context, userID, testID string, result Result) (string, error) {
	attempt, err := svc.record(ctx, userID, testID, result)
	if err != nil {
		return "", err
	}
	return attempt.ID, nil
}

func (svc *Service) record(ctx context.Context, userID, testID string, result Result) (Attempt, error) {
	if userID == "" {
		return Attempt{}, core.ErrUnauthenticated
	}
	if testID == "" {
		err := errors.New("test id is required")
		return Attempt{}, core.NewValidationError(err, core.FieldError{Field: "test_id", Error: err.Error()})
	}

	attempt, err := svc.repo.CreateAttempt(ctx, Attempt{
		UserID:       userID,
		TestID:       testID,
		Answers:      result.Questions,
		EarnedPoints: result.EarnedPoints,
		TotalPoints:  result.TotalPoints,
		Percentage:   result.Percentage,
		Passed:       result.Passed,
		CompletedAt:  NowFunc().UTC(),
	})
	if err != nil {
		return Attempt{}, errors.Wrap(err, "recording attempt")
	}
	return attempt, nil
}

// Submit scores the answers to a test of the course and records the attempt.
func (svc *Service) Submit(ctx context.Context, userID, courseID, testID string, answers Submission) (Attempt, error) {
	if userID == "" {
		return Attempt{}, core.ErrUnauthenticated
	}
	test, err := svc.tests.GetTest(ctx, courseID, testID)
	if err != nil {
		return Attempt{}, err
	}
	questions, err := svc.tests.QueryQuestions(ctx, courseID, testID)
	if err != nil {
		return Attempt{}, err
	}

	result, err := ScoreSubmission(test, questions, answers)
	if err != nil {
		return Attempt{}, err
	}
	attempt, err := svc.record(ctx, userID, test.ID, result)
	if err != nil {
		return Attempt{}, err
	}

	svc.logger.Info(fmt.Sprintf("attempt %s on test %s: %d%% (passed=%t)", attempt.ID, test.ID, result.Percentage, result.Passed))
	return attempt, nil
}

func (svc *Service) QueryAttempts(ctx context.Context, userID, courseID, testID string) ([]Attempt, error) {
	if userID == "" {
		return nil, core.ErrUnauthenticated
	}
	if _, err := svc.tests.GetTest(ctx, courseID, testID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAttempts(ctx, AttemptFilter{UserID: userID, TestID: testID})
}
