package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/progress"
)

type progressRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	LessonID        string    `db:"lesson_id"`
	Completed       bool      `db:"completed"`
	ProgressSeconds int       `db:"progress_seconds"`
	LastWatchedAt   time.Time `db:"last_watched_at"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r progressRow) unbox() progress.Progress {
	return progress.Progress{
		ID:              r.ID,
		UserID:          r.UserID,
		LessonID:        r.LessonID,
		Completed:       r.Completed,
		ProgressSeconds: r.ProgressSeconds,
		LastWatchedAt:   r.LastWatchedAt.UTC(),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type progressRepository struct {
	db core.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db core.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo progressRepository) UpsertProgress(ctx context.Context, prg progress.Progress) (progress.Progress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO user_progress (id, user_id, lesson_id, completed, progress_seconds, last_watched_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			completed        = user_progress.completed OR EXCLUDED.completed,
			progress_seconds = EXCLUDED.progress_seconds,
			last_watched_at  = EXCLUDED.last_watched_at,
			updated_at       = EXCLUDED.updated_at
		RETURNING *`,
		uuid.New().String(), prg.UserID, prg.LessonID, prg.Completed, prg.ProgressSeconds,
		prg.LastWatchedAt, prg.CreatedAt, prg.UpdatedAt,
	)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return row.unbox(), nil
}

func (repo progressRepository) GetProgress(ctx context.Context, userID, lessonID string) (progress.Progress, error) {
	if _, err := uuid.Parse(lessonID); err != nil {
		return progress.Progress{}, progress.ErrProgressNotFound
	}
	var row progressRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM user_progress WHERE user_id = $1 AND lesson_id = $2`, userID, lessonID)
	if err != nil {
		return progress.Progress{}, trapNoRowsErr(err, progress.ErrProgressNotFound, "getting progress")
	}
	return row.unbox(), nil
}

func (repo progressRepository) QueryProgress(ctx context.Context, userID string, lessonIDs []string) ([]progress.Progress, error) {
	var rows []progressRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM user_progress
		WHERE user_id = $1 AND lesson_id::text = ANY($2)
		ORDER BY last_watched_at DESC, id`,
		userID, pq.Array(lessonIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting progress")
	}
	rowsOut := make([]progress.Progress, 0, len(rows))
	for _, r := range rows {
		rowsOut = append(rowsOut, r.unbox())
	}
	return rowsOut, nil
}
