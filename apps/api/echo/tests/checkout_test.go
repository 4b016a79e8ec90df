package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fightlab/core/entitlement"
	"github.com/trezcool/fightlab/tests"
)

func Test_checkoutApi_checkout(t *testing.T) {
	app := setup(t)

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49.99, true)
	token := getToken(t, "buyer", "user")
	body := func(amount, currency string) []byte {
		return []byte(`{"courseId":"` + course.ID + `","amount":` + amount + `,"currency":"` + currency + `"}`)
	}

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/checkout", body("49.99", "EUR"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/checkout", token, body("1", "EUR"))
		app.ServeHTTP(rec, req)
		assertFieldErrors(t, rec, "amount")
	})

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/checkout", token,
			[]byte(`{"courseId":"nope","amount":49.99,"currency":"EUR"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("provider failure records nothing", func(t *testing.T) {
		provider.err = &entitlement.ProviderError{StatusCode: http.StatusBadGateway, Message: "upstream down"}
		defer func() { provider.err = nil }()

		req, rec := newAuthRequest(http.MethodPost, "/v1/checkout", token, body("49.99", "EUR"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusInternalServerError,
			wantData: marchallObj(t, httpErr{Error: http.StatusText(http.StatusInternalServerError)}),
		}, rec)

		purchases, err := purchaseRepo.QueryPurchases(context.Background(), entitlement.PurchaseFilter{UserID: "buyer"})
		assert.NoError(t, err)
		assert.Empty(t, purchases)
	})

	t.Run("started", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/checkout", token, body("49.99", "eur"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, entitlement.Checkout{CheckoutURL: "https://pay.example.com/pub-order-1", OrderID: "order-1"}),
		}, rec)

		if assert.Len(t, provider.orders, 1) {
			order := provider.orders[0]
			assert.Equal(t, int64(4999), order.Amount)
			assert.Equal(t, "EUR", order.Currency)
			assert.Equal(t, "buyer@test.io", order.CustomerEmail)
			assert.Equal(t, "http://localhost:3000/course/boxing-basics", order.CancelURL)
		}

		purchase, err := purchaseRepo.GetPurchaseByOrderID(context.Background(), "order-1")
		if assert.NoError(t, err) {
			assert.Equal(t, entitlement.StatusPending, purchase.Status)
			assert.Equal(t, "buyer", purchase.UserID)
			assert.Equal(t, course.ID, purchase.CourseID)
		}
	})
}

func Test_checkoutApi_webhook(t *testing.T) {
	app := setup(t)

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true)
	testutil.CreatePurchase(t, purchaseRepo, "buyer", course.ID, "order-1", 49, entitlement.StatusPending)
	testutil.CreatePurchase(t, purchaseRepo, "unlucky", course.ID, "order-2", 49, entitlement.StatusPending)

	received := marchallObj(t, map[string]bool{"received": true})
	send := func(body []byte, signature string) httpTestResult {
		req, rec := newRequest(http.MethodPost, "/v1/webhooks/payments", body)
		if signature != "" {
			req.Header.Set(conf.Payment.SignatureHeader, signature)
		}
		app.ServeHTTP(rec, req)
		return httpTestResult{code: rec.Code, body: rec.Body.Bytes()}
	}
	signed := func(body string) ([]byte, string) {
		return []byte(body), entitlement.SignPayload(conf.Payment.WebhookSecret, []byte(body))
	}
	status := func(orderID string) entitlement.Status {
		p, err := purchaseRepo.GetPurchaseByOrderID(context.Background(), orderID)
		if err != nil {
			t.Fatalf("GetPurchaseByOrderID() failed: %v", err)
		}
		return p.Status
	}
	completed := `{"type":"ORDER_COMPLETED","data":{"id":"order-1","state":"COMPLETED"}}`

	t.Run("missing signature", func(t *testing.T) {
		res := send([]byte(completed), "")
		assert.Equal(t, http.StatusUnauthorized, res.code)
		assert.Equal(t, entitlement.StatusPending, status("order-1"))
	})

	t.Run("forged signature", func(t *testing.T) {
		res := send([]byte(completed), entitlement.SignPayload("wrong-secret", []byte(completed)))
		assert.Equal(t, http.StatusUnauthorized, res.code)
		assert.Equal(t, entitlement.StatusPending, status("order-1"))
	})

	t.Run("completed", func(t *testing.T) {
		body, sig := signed(completed)
		res := send(body, sig)
		res.check(t, http.StatusOK, received)
		assert.Equal(t, entitlement.StatusCompleted, status("order-1"))

		sent := mailSvc.SentMessages()
		if assert.Len(t, sent, 1) {
			assert.Equal(t, "buyer@test.io", sent[0].To[0].Address)
			assert.Contains(t, sent[0].TextContent, "Course boxing-basics")
			assert.Equal(t, "purchase_receipt", sent[0].Category)
			assert.Equal(t, "order-1", sent[0].Refs["order_id"])
		}
	})

	t.Run("replay is a no-op", func(t *testing.T) {
		body, sig := signed(completed)
		send(body, sig).check(t, http.StatusOK, received)
		assert.Len(t, mailSvc.SentMessages(), 1)
	})

	t.Run("late failure does not revoke", func(t *testing.T) {
		body, sig := signed(`{"type":"ORDER_PAYMENT_FAILED","data":{"id":"order-1"}}`)
		send(body, sig).check(t, http.StatusOK, received)
		assert.Equal(t, entitlement.StatusCompleted, status("order-1"))
	})

	t.Run("declined", func(t *testing.T) {
		body, sig := signed(`{"type":"ORDER_PAYMENT_DECLINED","data":{"id":"order-2"}}`)
		send(body, sig).check(t, http.StatusOK, received)
		assert.Equal(t, entitlement.StatusFailed, status("order-2"))
	})

	t.Run("unknown order is acknowledged", func(t *testing.T) {
		body, sig := signed(`{"type":"ORDER_COMPLETED","data":{"id":"order-404","state":"COMPLETED"}}`)
		send(body, sig).check(t, http.StatusOK, received)
	})

	t.Run("ignored event", func(t *testing.T) {
		body, sig := signed(`{"type":"ORDER_AUTHORISED","data":{"id":"order-2"}}`)
		send(body, sig).check(t, http.StatusOK, received)
		assert.Equal(t, entitlement.StatusFailed, status("order-2"))
	})

	t.Run("malformed body", func(t *testing.T) {
		body, sig := signed(`{"type":`)
		assert.Equal(t, http.StatusBadRequest, send(body, sig).code)
	})
}

func Test_checkoutApi_purchases(t *testing.T) {
	app := setup(t)

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true)
	mine := testutil.CreatePurchase(t, purchaseRepo, "buyer", course.ID, "order-1", 49, entitlement.StatusCompleted)
	testutil.CreatePurchase(t, purchaseRepo, "other", course.ID, "order-2", 49, entitlement.StatusPending)
	token := getToken(t, "buyer", "user")

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/purchases", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own purchases", path: "/v1/purchases", token: token, wantData: marchallList(t, mine)},
		{name: "by order", path: "/v1/purchases/order-1", token: token, wantData: marchallObj(t, mine)},
		{
			name: "someone else's order", path: "/v1/purchases/order-2", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "purchase not found"}),
		},
	})
}

type httpTestResult struct {
	code int
	body []byte
}

func (res httpTestResult) check(t *testing.T, wantCode int, wantData []byte) {
	t.Helper()
	ok, err := jsonBytesEqual(t, res.body, wantData)
	if res.code != wantCode || err != nil || !ok {
		t.Errorf("failed! code = %v, data = %s; want %v, %s", res.code, res.body, wantCode, wantData)
	}
}

