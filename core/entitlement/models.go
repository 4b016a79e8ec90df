package entitlement

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fightlab/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}

// allowedFrom lists the statuses a purchase may move out of when transitioning to s.
// completed is terminal; failed may still be completed by a later provider event.
func (s Status) allowedFrom() []Status {
	switch s {
	case StatusCompleted:
		return []Status{StatusPending, StatusFailed}
	case StatusFailed:
		return []Status{StatusPending}
	}
	return nil
}

type Purchase struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CourseID        string    `json:"course_id"`
	ExternalOrderID string    `json:"order_id"`
	CustomerEmail   string    `json:"-"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// Customer is the authenticated user initiating a checkout.
type Customer struct {
	ID    string
	Email string
}

// CheckoutRequest contains information needed to start paying for a course.
type CheckoutRequest struct {
	CourseID string  `json:"courseId" validate:"required"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,currency"`
}

func (cr *CheckoutRequest) Validate(validate *validator.Validate) error {
	cr.CourseID = core.CleanString(cr.CourseID)
	cr.Currency = strings.ToUpper(core.CleanString(cr.Currency))
	return validate.Struct(cr)
}

// Checkout is what the client needs to redirect the customer to the hosted payment page.
type Checkout struct {
	CheckoutURL string `json:"checkoutUrl"`
	OrderID     string `json:"orderId"`
}

// Order is the payment order sent to the provider.
type Order struct {
	Amount        int64 // minor units
	Currency      string
	CustomerID    string
	CustomerEmail string
	Description   string
	MerchantRef   string
	SuccessURL    string
	CancelURL     string
}

// ProviderOrder is the provider's view of a created order.
type ProviderOrder struct {
	ID          string
	PublicID    string
	CheckoutURL string
	State       string
}

type PurchaseFilter struct {
	UserID   string
	CourseID string
	Status   Status
}

// receiptData feeds the purchase_receipt email templates.
type receiptData struct {
	CourseTitle string
	CourseSlug  string
	Amount      string
	Currency    string
	OrderID     string
}
