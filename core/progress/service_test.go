package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/progress"
	logsvc "github.com/trezcool/fightlab/services/logger"
	inmemdb "github.com/trezcool/fightlab/storage/database/inmem"
)

func TestIsComplete(t *testing.T) {
	lesson := catalog.Lesson{DurationSeconds: 100}
	tests := []struct {
		seconds int
		want    bool
	}{
		{seconds: 0, want: false},
		{seconds: 89, want: false},
		{seconds: 90, want: true},
		{seconds: 100, want: true},
	}
	for _, tt := range tests {
		if got := progress.IsComplete(lesson, tt.seconds); got != tt.want {
			t.Errorf("IsComplete(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestService_RecordProgress(t *testing.T) {
	svc := progress.NewService(inmemdb.NewProgressRepository(inmemdb.Open()), logsvc.NewNopLogger())
	ctx := context.Background()
	lesson := catalog.Lesson{ID: "l1", CourseID: "c1", DurationSeconds: 600}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	progress.NowFunc = func() time.Time { return now }
	defer func() { progress.NowFunc = time.Now }()

	_, err := svc.RecordProgress(ctx, "", lesson, 10)
	assert.Equal(t, core.ErrUnauthenticated, err)

	prg, err := svc.RecordProgress(ctx, "learner", lesson, 0)
	assert.NoError(t, err)
	assert.Empty(t, prg.ID)

	prg, err = svc.RecordProgress(ctx, "learner", lesson, 120)
	assert.NoError(t, err)
	assert.NotEmpty(t, prg.ID)
	assert.Equal(t, 120, prg.ProgressSeconds)
	assert.False(t, prg.Completed)
	assert.Equal(t, now, prg.LastWatchedAt)

	// negative positions leave the row untouched
	same, err := svc.RecordProgress(ctx, "learner", lesson, -5)
	assert.NoError(t, err)
	assert.Equal(t, prg, same)

	prg, err = svc.RecordProgress(ctx, "learner", lesson, 9999)
	assert.NoError(t, err)
	assert.Equal(t, 600, prg.ProgressSeconds)
	assert.True(t, prg.Completed)

	prg, err = svc.RecordProgress(ctx, "learner", lesson, 30)
	assert.NoError(t, err)
	assert.Equal(t, 30, prg.ProgressSeconds)
	assert.True(t, prg.Completed, "completion is sticky")
}

func TestService_CompleteLesson(t *testing.T) {
	svc := progress.NewService(inmemdb.NewProgressRepository(inmemdb.Open()), logsvc.NewNopLogger())
	ctx := context.Background()
	l1 := catalog.Lesson{ID: "l1", DurationSeconds: 300}
	l2 := catalog.Lesson{ID: "l2", DurationSeconds: 300}
	l3 := catalog.Lesson{ID: "l3", DurationSeconds: 300}

	prg, err := svc.CompleteLesson(ctx, "learner", l1)
	assert.NoError(t, err)
	assert.True(t, prg.Completed)
	assert.Equal(t, 300, prg.ProgressSeconds)

	_, err = svc.RecordProgress(ctx, "learner", l2, 60)
	assert.NoError(t, err)

	prgs, err := svc.QueryCourseProgress(ctx, "learner", []catalog.Lesson{l1, l2, l3})
	assert.NoError(t, err)
	assert.Len(t, prgs, 2)

	prgs, err = svc.QueryCourseProgress(ctx, "learner", nil)
	assert.NoError(t, err)
	assert.Empty(t, prgs)

	_, err = svc.QueryCourseProgress(ctx, "", []catalog.Lesson{l1})
	assert.Equal(t, core.ErrUnauthenticated, err)
}
