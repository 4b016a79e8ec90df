package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
)

var (
	// errors
	ErrPurchaseNotFound = core.NewNotFoundError("purchase")
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// NowFunc returns the current time; it is overridden in tests.
	NowFunc = time.Now
)

// ProviderError is returned when the payment provider rejects a request or cannot be reached.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (err *ProviderError) Error() string {
	switch {
	case err.Err != nil:
		return "payment provider: " + err.Err.Error()
	case err.StatusCode != 0:
		return fmt.Sprintf("payment provider: status %d: %s", err.StatusCode, err.Message)
	}
	return "payment provider: " + err.Message
}

func (err *ProviderError) Unwrap() error { return err.Err }

func IsProviderError(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr)
}

type (
	Repository interface {
		CreatePurchase(ctx context.Context, purchase Purchase) (Purchase, error)
		GetPurchaseByOrderID(ctx context.Context, orderID string) (Purchase, error)
		// QueryPurchases applies AND operation on available PurchaseFilter fields; newest first.
		QueryPurchases(ctx context.Context, filter PurchaseFilter) ([]Purchase, error)
		HasCompletedPurchase(ctx context.Context, userID, courseID string) (bool, error)
		// UpdatePurchaseStatus moves the purchase to status `to` only if its current status is one of `from`.
		// It reports whether a row changed.
		UpdatePurchaseStatus(ctx context.Context, id string, to Status, from []Status, at time.Time) (bool, error)
	}

	// PaymentProvider creates hosted-checkout orders.
	PaymentProvider interface {
		CreateOrder(ctx context.Context, order Order) (ProviderOrder, error)
	}

	// AccessCache remembers positive access decisions.
	AccessCache interface {
		HasAccess(ctx context.Context, userID, courseID string) (bool, error)
		GrantAccess(ctx context.Context, userID, courseID string) error
	}

	CourseFinder interface {
		GetCourse(ctx context.Context, id string) (catalog.Course, error)
	}

	ServiceDeps struct {
		Repo          Repository
		Courses       CourseFinder
		Provider      PaymentProvider
		Cache         AccessCache // optional
		MailSvc       core.EmailService
		Logger        core.Logger
		Validate      *validator.Validate
		WebhookSecret string
		SiteURL       string
	}

	Service struct {
		repo          Repository
		courses       CourseFinder
		provider      PaymentProvider
		cache         AccessCache
		mailSvc       core.EmailService
		logger        core.Logger
		validate      *validator.Validate
		webhookSecret string
		siteURL       string
	}
)

func NewService(deps ServiceDeps) *Service {
	cache := deps.Cache
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{
		repo:          deps.Repo,
		courses:       deps.Courses,
		provider:      deps.Provider,
		cache:         cache,
		mailSvc:       deps.MailSvc,
		logger:        deps.Logger,
		validate:      deps.Validate,
		webhookSecret: deps.WebhookSecret,
		siteURL:       deps.SiteURL,
	}
}

// ToMinorUnits converts a decimal amount to integer minor units, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// InitiateCheckout creates a provider order for the course and records a pending purchase for it.
// Nothing is recorded when the provider call fails.
func (svc *Service) InitiateCheckout(ctx context.Context, customer Customer, req CheckoutRequest) (Checkout, error) {
	if customer.ID == "" {
		return Checkout{}, core.ErrUnauthenticated
	}
	if err := req.Validate(svc.validate); err != nil {
		return Checkout{}, err
	}

	course, err := svc.courses.GetCourse(ctx, req.CourseID)
	if err != nil {
		return Checkout{}, err
	}
	if ToMinorUnits(req.Amount) != ToMinorUnits(course.Price) {
		err = errors.New("amount does not match the course price")
		return Checkout{}, core.NewValidationError(err, core.FieldError{Field: "amount", Error: err.Error()})
	}
	if req.Currency != course.Currency {
		err = errors.New("currency does not match the course currency")
		return Checkout{}, core.NewValidationError(err, core.FieldError{Field: "currency", Error: err.Error()})
	}

	now := NowFunc().UTC()
	order, err := svc.provider.CreateOrder(ctx, Order{
		Amount:        ToMinorUnits(req.Amount),
		Currency:      req.Currency,
		CustomerID:    customer.ID,
		CustomerEmail: customer.Email,
		Description:   "Course purchase: " + course.Title,
		MerchantRef:   fmt.Sprintf("course-%s-%d", course.ID, now.UnixNano()/int64(time.Millisecond)),
		SuccessURL:    svc.siteURL + "/checkout/success?order_id={order_id}",
		CancelURL:     svc.siteURL + "/course/" + course.Slug,
	})
	if err != nil {
		return Checkout{}, errors.Wrap(err, "creating provider order")
	}

	purchase, err := svc.repo.CreatePurchase(ctx, Purchase{
		UserID:          customer.ID,
		CourseID:        course.ID,
		ExternalOrderID: order.ID,
		CustomerEmail:   customer.Email,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Checkout{}, errors.Wrap(err, "recording pending purchase")
	}

	svc.logger.Info(fmt.Sprintf("checkout started: purchase %s, order %s", purchase.ID, order.ID))
	return Checkout{CheckoutURL: order.CheckoutURL, OrderID: order.ID}, nil
}

// Reconcile verifies and applies a provider webhook. Replays and unknown orders are acknowledged without effect.
func (svc *Service) Reconcile(ctx context.Context, body []byte, signature string) error {
	if svc.webhookSecret == "" {
		return core.NewConfigurationError("payment webhook secret")
	}
	if !VerifySignature(svc.webhookSecret, body, signature) {
		svc.logger.Warn("rejected payment webhook: invalid signature")
		return ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return core.NewValidationError(errors.Wrap(err, "decoding webhook payload"))
	}
	status, ok := event.targetStatus()
	if !ok {
		svc.logger.Debug(fmt.Sprintf("ignored payment webhook event %q", event.Type))
		return nil
	}
	if event.Data.ID == "" {
		err := errors.New("webhook payload has no order id")
		return core.NewValidationError(err, core.FieldError{Field: "data.id", Error: err.Error()})
	}

	if _, err := svc.Resolve(ctx, event.Data.ID, status); err != nil {
		if errors.Cause(err) == ErrPurchaseNotFound {
			svc.logger.Warn(fmt.Sprintf("payment webhook for unknown order %s", event.Data.ID))
			return nil
		}
		return err
	}
	return nil
}

// Resolve settles the purchase of an order as completed or failed, and reports whether it changed.
func (svc *Service) Resolve(ctx context.Context, orderID string, status Status) (bool, error) {
	if status != StatusCompleted && status != StatusFailed {
		err := errors.Errorf("cannot resolve a purchase as %q", status)
		return false, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}

	purchase, err := svc.repo.GetPurchaseByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	now := NowFunc().UTC()
	changed, err := svc.repo.UpdatePurchaseStatus(ctx, purchase.ID, status, status.allowedFrom(), now)
	if err != nil {
		return false, errors.Wrap(err, "updating purchase status")
	}
	if !changed {
		svc.logger.Debug(fmt.Sprintf("purchase %s (order %s) not marked %s: already settled", purchase.ID, orderID, status))
		return false, nil
	}

	// purchase.Status predates the conditional update; only the target status is known to hold
	svc.logger.Info(fmt.Sprintf("purchase %s (order %s) marked %s", purchase.ID, orderID, status))
	purchase.Status = status
	purchase.UpdatedAt = now
	if status == StatusCompleted {
		svc.onCompleted(ctx, purchase)
	}
	return true, nil
}

func (svc *Service) onCompleted(ctx context.Context, purchase Purchase) {
	if err := svc.cache.GrantAccess(ctx, purchase.UserID, purchase.CourseID); err != nil {
		svc.logger.Warn(fmt.Sprintf("caching access for purchase %s: %v", purchase.ID, err), err)
	}
	if purchase.CustomerEmail == "" || svc.mailSvc == nil {
		return
	}

	course, err := svc.courses.GetCourse(ctx, purchase.CourseID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("loading course for receipt of purchase %s: %v", purchase.ID, err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: purchase.CustomerEmail}},
		Subject:      "Your course is unlocked: " + course.Title,
		TemplateName: "purchase_receipt",
		Category:     "purchase_receipt",
		Refs:         map[string]string{"order_id": purchase.ExternalOrderID, "course_id": purchase.CourseID},
		TemplateData: receiptData{
			CourseTitle: course.Title,
			CourseSlug:  course.Slug,
			Amount:      strconv.FormatFloat(purchase.Amount, 'f', 2, 64),
			Currency:    purchase.Currency,
			OrderID:     purchase.ExternalOrderID,
		},
	})
}

// HasAccess reports whether the user holds a completed purchase of the course or is its instructor.
func (svc *Service) HasAccess(ctx context.Context, userID, courseID string) (bool, error) {
	if userID == "" || courseID == "" {
		return false, nil
	}

	if ok, err := svc.cache.HasAccess(ctx, userID, courseID); err != nil {
		svc.logger.Warn(fmt.Sprintf("reading access cache: %v", err), err)
	} else if ok {
		return true, nil
	}

	course, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return false, err
	}
	if course.IsInstructor(userID) {
		return true, nil
	}

	ok, err := svc.repo.HasCompletedPurchase(ctx, userID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking completed purchase")
	}
	if ok {
		if err = svc.cache.GrantAccess(ctx, userID, courseID); err != nil {
			svc.logger.Warn(fmt.Sprintf("caching access: %v", err), err)
		}
	}
	return ok, nil
}

// CanViewLesson reports whether the user may watch the lesson: free lessons are open to any signed-in user.
func (svc *Service) CanViewLesson(ctx context.Context, userID string, lesson catalog.Lesson) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if lesson.IsFree {
		return true, nil
	}
	return svc.HasAccess(ctx, userID, lesson.CourseID)
}

func (svc *Service) QueryPurchases(ctx context.Context, userID string) ([]Purchase, error) {
	if userID == "" {
		return nil, core.ErrUnauthenticated
	}
	return svc.repo.QueryPurchases(ctx, PurchaseFilter{UserID: userID})
}

// GetPurchaseByOrder returns the user's purchase for an order; other users' purchases are reported as not found.
func (svc *Service) GetPurchaseByOrder(ctx context.Context, userID, orderID string) (Purchase, error) {
	purchase, err := svc.repo.GetPurchaseByOrderID(ctx, core.CleanString(orderID))
	if err != nil {
		return Purchase{}, err
	}
	if purchase.UserID != userID {
		return Purchase{}, ErrPurchaseNotFound
	}
	return purchase, nil
}

type noopCache struct{}

func (noopCache) HasAccess(context.Context, string, string) (bool, error) { return false, nil }
func (noopCache) GrantAccess(context.Context, string, string) error       { return nil }
