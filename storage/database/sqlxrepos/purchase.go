package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/entitlement"
)

type purchaseRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	CourseID        string    `db:"course_id"`
	ExternalOrderID string    `db:"external_order_id"`
	CustomerEmail   string    `db:"customer_email"`
	Amount          float64   `db:"amount"`
	Currency        string    `db:"currency"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r purchaseRow) unbox() entitlement.Purchase {
	return entitlement.Purchase{
		ID:              r.ID,
		UserID:          r.UserID,
		CourseID:        r.CourseID,
		ExternalOrderID: r.ExternalOrderID,
		CustomerEmail:   r.CustomerEmail,
		Amount:          r.Amount,
		Currency:        strings.TrimSpace(r.Currency),
		Status:          entitlement.Status(r.Status),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type purchaseRepository struct {
	db core.DB
}

var _ entitlement.Repository = (*purchaseRepository)(nil) // interface compliance check

func NewPurchaseRepository(db core.DB) *purchaseRepository {
	return &purchaseRepository{db: db}
}

func (repo purchaseRepository) CreatePurchase(ctx context.Context, purchase entitlement.Purchase) (entitlement.Purchase, error) {
	purchase.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, course_id, external_order_id, customer_email, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		purchase.ID, purchase.UserID, purchase.CourseID, purchase.ExternalOrderID, purchase.CustomerEmail,
		purchase.Amount, purchase.Currency, string(purchase.Status), purchase.CreatedAt, purchase.UpdatedAt,
	)
	if isUniqueViolation(err, "purchases_external_order_id_key") {
		return entitlement.Purchase{}, errors.Wrapf(err, "order %s already recorded", purchase.ExternalOrderID)
	}
	if err != nil {
		return entitlement.Purchase{}, errors.Wrap(err, "inserting purchase")
	}
	return purchase, nil
}

func (repo purchaseRepository) GetPurchaseByOrderID(ctx context.Context, orderID string) (entitlement.Purchase, error) {
	var row purchaseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM purchases WHERE external_order_id = $1`, orderID); err != nil {
		return entitlement.Purchase{}, trapNoRowsErr(err, entitlement.ErrPurchaseNotFound, "getting purchase by order")
	}
	return row.unbox(), nil
}

func (repo purchaseRepository) QueryPurchases(ctx context.Context, filter entitlement.PurchaseFilter) ([]entitlement.Purchase, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		if _, err := uuid.Parse(filter.CourseID); err != nil {
			return []entitlement.Purchase{}, nil
		}
		args = append(args, filter.CourseID)
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := "SELECT * FROM purchases"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"

	var rows []purchaseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting purchases")
	}
	purchases := make([]entitlement.Purchase, 0, len(rows))
	for _, r := range rows {
		purchases = append(purchases, r.unbox())
	}
	return purchases, nil
}

func (repo purchaseRepository) HasCompletedPurchase(ctx context.Context, userID, courseID string) (bool, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return false, nil
	}
	var exists bool
	err := repo.db.QueryRowxContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM purchases WHERE user_id = $1 AND course_id = $2 AND status = $3
		)`, userID, courseID, string(entitlement.StatusCompleted),
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "checking completed purchase")
	}
	return exists, nil
}

// UpdatePurchaseStatus is a single conditional UPDATE, so concurrent deliveries of the same event apply once.
func (repo purchaseRepository) UpdatePurchaseStatus(ctx context.Context, id string, to entitlement.Status, from []entitlement.Status, at time.Time) (bool, error) {
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE purchases SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)`,
		id, string(to), at, pq.Array(statuses),
	)
	if err != nil {
		return false, errors.Wrap(err, "updating purchase status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "updating purchase status")
	}
	return n > 0, nil
}
