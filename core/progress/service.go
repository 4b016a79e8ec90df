package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
)

// CompletionRatio is the share of a lesson's duration that must be watched for it to count as completed.
const CompletionRatio = 0.9

var (
	ErrProgressNotFound = core.NewNotFoundError("progress")

	// NowFunc returns the current time; it is overridden in tests.
	NowFunc = time.Now
)

type Progress struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	LessonID        string    `json:"lesson_id"`
	Completed       bool      `json:"completed"`
	ProgressSeconds int       `json:"progress_seconds"`
	LastWatchedAt   time.Time `json:"last_watched_at"` // UTC
	CreatedAt       time.Time `json:"created_at"`      // UTC
	UpdatedAt       time.Time `json:"updated_at"`      // UTC
}

type (
	Repository interface {
		// UpsertProgress inserts or updates the (user, lesson) row. Completed is sticky:
		// once stored as true it is never reset.
		UpsertProgress(ctx context.Context, progress Progress) (Progress, error)
		GetProgress(ctx context.Context, userID, lessonID string) (Progress, error)
		QueryProgress(ctx context.Context, userID string, lessonIDs []string) ([]Progress, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// IsComplete reports whether watching `seconds` of the lesson completes it.
func IsComplete(lesson catalog.Lesson, seconds int) bool {
	return float64(seconds) >= float64(lesson.DurationSeconds)*CompletionRatio
}

// RecordProgress stores how far the user got in the lesson. Non-positive positions are ignored.
func (svc *Service) RecordProgress(ctx context.Context, userID string, lesson catalog.Lesson, seconds int) (Progress, error) {
	if userID == "" {
		return Progress{}, core.ErrUnauthenticated
	}
	if seconds <= 0 {
		prg, err := svc.repo.GetProgress(ctx, userID, lesson.ID)
		if errors.Cause(err) == ErrProgressNotFound {
			return Progress{UserID: userID, LessonID: lesson.ID}, nil
		}
		return prg, err
	}
	if lesson.DurationSeconds > 0 && seconds > lesson.DurationSeconds {
		seconds = lesson.DurationSeconds
	}

	now := NowFunc().UTC()
	prg, err := svc.repo.UpsertProgress(ctx, Progress{
		UserID:          userID,
		LessonID:        lesson.ID,
		Completed:       IsComplete(lesson, seconds),
		ProgressSeconds: seconds,
		LastWatchedAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Progress{}, errors.Wrap(err, "saving progress")
	}
	return prg, nil
}

// CompleteLesson marks the lesson completed regardless of the watched position.
func (svc *Service) CompleteLesson(ctx context.Context, userID string, lesson catalog.Lesson) (Progress, error) {
	if userID == "" {
		return Progress{}, core.ErrUnauthenticated
	}

	now := NowFunc().UTC()
	seconds := lesson.DurationSeconds
	if prg, err := svc.repo.GetProgress(ctx, userID, lesson.ID); err == nil && prg.ProgressSeconds > seconds {
		seconds = prg.ProgressSeconds
	} else if err != nil && errors.Cause(err) != ErrProgressNotFound {
		return Progress{}, err
	}

	prg, err := svc.repo.UpsertProgress(ctx, Progress{
		UserID:          userID,
		LessonID:        lesson.ID,
		Completed:       true,
		ProgressSeconds: seconds,
		LastWatchedAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Progress{}, errors.Wrap(err, "saving progress")
	}
	svc.logger.Debug(fmt.Sprintf("lesson %s completed by %s", lesson.ID, userID))
	return prg, nil
}

// QueryCourseProgress returns the user's progress on the given lessons; lessons never started are omitted.
func (svc *Service) QueryCourseProgress(ctx context.Context, userID string, lessons []catalog.Lesson) ([]Progress, error) {
	if userID == "" {
		return nil, core.ErrUnauthenticated
	}
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	if len(ids) == 0 {
		return []Progress{}, nil
	}
	return svc.repo.QueryProgress(ctx, userID, ids)
}
