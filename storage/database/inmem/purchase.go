package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/fightlab/core/entitlement"
)

type purchaseRepository struct {
	db *purchaseTable
}

var _ entitlement.Repository = (*purchaseRepository)(nil) // interface compliance check

func NewPurchaseRepository(db *DB) *purchaseRepository {
	return &purchaseRepository{db: db.purchase}
}

func (repo *purchaseRepository) CreatePurchase(_ context.Context, purchase entitlement.Purchase) (entitlement.Purchase, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	purchase.ID = uuid.New().String()
	repo.db.table[purchase.ID] = &purchase
	return purchase, nil
}

func (repo *purchaseRepository) GetPurchaseByOrderID(_ context.Context, orderID string) (entitlement.Purchase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.table {
		if p.ExternalOrderID == orderID {
			return *p, nil
		}
	}
	return entitlement.Purchase{}, entitlement.ErrPurchaseNotFound
}

func (repo *purchaseRepository) QueryPurchases(_ context.Context, filter entitlement.PurchaseFilter) ([]entitlement.Purchase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	purchases := make([]entitlement.Purchase, 0)
	for _, p := range repo.db.table {
		if (filter.UserID != "" && p.UserID != filter.UserID) ||
			(filter.CourseID != "" && p.CourseID != filter.CourseID) ||
			(filter.Status != "" && p.Status != filter.Status) {
			continue
		}
		purchases = append(purchases, *p)
	}
	sort.Slice(purchases, func(i, j int) bool {
		if !purchases[i].CreatedAt.Equal(purchases[j].CreatedAt) {
			return purchases[i].CreatedAt.After(purchases[j].CreatedAt)
		}
		return purchases[i].ID > purchases[j].ID
	})
	return purchases, nil
}

func (repo *purchaseRepository) HasCompletedPurchase(_ context.Context, userID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.table {
		if p.UserID == userID && p.CourseID == courseID && p.Status == entitlement.StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (repo *purchaseRepository) UpdatePurchaseStatus(_ context.Context, id string, to entitlement.Status, from []entitlement.Status, at time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.table[id]
	if !ok {
		return false, entitlement.ErrPurchaseNotFound
	}
	for _, status := range from {
		if p.Status == status {
			p.Status = to
			p.UpdatedAt = at
			return true, nil
		}
	}
	return false, nil
}
