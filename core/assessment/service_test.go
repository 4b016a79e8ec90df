package assessment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/assessment"
	"github.com/trezcool/fightlab/core/catalog"
	logsvc "github.com/trezcool/fightlab/services/logger"
	inmemdb "github.com/trezcool/fightlab/storage/database/inmem"
	"github.com/trezcool/fightlab/tests"
)

func TestService_Submit(t *testing.T) {
	db := inmemdb.Open()
	catalogRepo := inmemdb.NewCatalogRepository(db)
	logger := logsvc.NewNopLogger()
	svc := assessment.NewService(
		inmemdb.NewAttemptRepository(db),
		catalog.NewService(catalogRepo, nil, logger),
		logger,
	)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assessment.NowFunc = func() time.Time { return now }
	defer func() { assessment.NowFunc = time.Now }()

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true)
	test := testutil.CreateTest(t, catalogRepo, course.ID, "Quiz", 50)
	q := testutil.CreateChoiceQuestion(t, catalogRepo, test.ID, "Lead hand?", 1, 0, "Left", "Right")
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := svc.Submit(ctx, "", course.ID, test.ID, assessment.Submission{q.ID: q.Options[0].ID})
		assert.Equal(t, core.ErrUnauthenticated, err)
	})

	t.Run("test of another course", func(t *testing.T) {
		_, err := svc.Submit(ctx, "learner", "other-course", test.ID, assessment.Submission{q.ID: q.Options[0].ID})
		assert.Equal(t, catalog.ErrTestNotFound, err)
	})

	t.Run("incomplete submissions are not recorded", func(t *testing.T) {
		_, err := svc.Submit(ctx, "learner", course.ID, test.ID, assessment.Submission{})
		assert.IsType(t, &assessment.IncompleteSubmissionError{}, err)

		attempts, err := svc.QueryAttempts(ctx, "learner", course.ID, test.ID)
		assert.NoError(t, err)
		assert.Empty(t, attempts)
	})

	first, err := svc.Submit(ctx, "learner", course.ID, test.ID, assessment.Submission{q.ID: q.Options[1].ID})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.False(t, first.Passed)
	assert.Equal(t, now, first.CompletedAt)

	second, err := svc.Submit(ctx, "learner", course.ID, test.ID, assessment.Submission{q.ID: q.Options[0].ID})
	assert.NoError(t, err)
	assert.True(t, second.Passed)
	assert.NotEqual(t, first.ID, second.ID)

	attempts, err := svc.QueryAttempts(ctx, "learner", course.ID, test.ID)
	assert.NoError(t, err)
	assert.Equal(t, []assessment.Attempt{second, first}, attempts)

	others, err := svc.QueryAttempts(ctx, "someone-else", course.ID, test.ID)
	assert.NoError(t, err)
	assert.Empty(t, others)
}

func TestService_RecordAttempt(t *testing.T) {
	db := inmemdb.Open()
	svc := assessment.NewService(inmemdb.NewAttemptRepository(db), nil, logsvc.NewNopLogger())
	ctx := context.Background()
	res := assessment.Result{EarnedPoints: 1, TotalPoints: 2, Percentage: 50, Passed: true}

	_, err := svc.RecordAttempt(ctx, "", "t", res)
	assert.Equal(t, core.ErrUnauthenticated, err)

	_, err = svc.RecordAttempt(ctx, "learner", "", res)
	assert.True(t, core.IsValidationError(err))

	id, err := svc.RecordAttempt(ctx, "learner", "t", res)
	assert.NoError(t, err)
	assert.NotEmpty(t, id)
}
