package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/fightlab/core/progress"
)

type progressRepository struct {
	db *progressTable
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db.progress}
}

func progressKey(userID, lessonID string) string {
	return userID + "/" + lessonID
}

func (repo *progressRepository) UpsertProgress(_ context.Context, prg progress.Progress) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := progressKey(prg.UserID, prg.LessonID)
	if existing, ok := repo.db.table[key]; ok {
		existing.Completed = existing.Completed || prg.Completed
		existing.ProgressSeconds = prg.ProgressSeconds
		existing.LastWatchedAt = prg.LastWatchedAt
		existing.UpdatedAt = prg.UpdatedAt
		return *existing, nil
	}
	prg.ID = uuid.New().String()
	repo.db.table[key] = &prg
	return prg, nil
}

func (repo *progressRepository) GetProgress(_ context.Context, userID, lessonID string) (progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prg, ok := repo.db.table[progressKey(userID, lessonID)]; ok {
		return *prg, nil
	}
	return progress.Progress{}, progress.ErrProgressNotFound
}

func (repo *progressRepository) QueryProgress(_ context.Context, userID string, lessonIDs []string) ([]progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]progress.Progress, 0, len(lessonIDs))
	for _, lessonID := range lessonIDs {
		if prg, ok := repo.db.table[progressKey(userID, lessonID)]; ok {
			rows = append(rows, *prg)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].LastWatchedAt.After(rows[j].LastWatchedAt) })
	return rows, nil
}
