package paymentsvc

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/entitlement"
)

const (
	ordersEndpoint     = "/api/1.0/orders"
	captureAutomatic   = "AUTOMATIC"
	defaultCheckoutURL = "https://pay.revolut.com"
)

type (
	orderRequest struct {
		Amount        int64  `json:"amount"`
		Currency      string `json:"currency"`
		CustomerID    string `json:"customer_id,omitempty"`
		CustomerEmail string `json:"customer_email,omitempty"`
		Description   string `json:"description"`
		MerchantRef   string `json:"merchant_order_ext_ref"`
		CaptureMode   string `json:"capture_mode"`
		SuccessURL    string `json:"success_url"`
		CancelURL     string `json:"cancel_url"`
	}

	orderResponse struct {
		ID          string `json:"id"`
		PublicID    string `json:"public_id"`
		CheckoutURL string `json:"checkout_url"`
		State       string `json:"state"`
	}

	errorResponse struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

// RevolutClient creates hosted-checkout orders on the Revolut merchant API.
type RevolutClient struct {
	http            *resty.Client
	apiKey          string
	merchantID      string
	checkoutBaseURL string
	logger          core.Logger
}

var _ entitlement.PaymentProvider = (*RevolutClient)(nil)

func NewRevolutClient(conf core.PaymentConfig, logger core.Logger) *RevolutClient {
	client := resty.New().
		SetBaseURL(conf.APIURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if conf.Timeout > 0 {
		client.SetTimeout(conf.Timeout)
	}

	checkoutBaseURL := conf.CheckoutBaseURL
	if checkoutBaseURL == "" {
		checkoutBaseURL = defaultCheckoutURL
	}
	return &RevolutClient{
		http:            client,
		apiKey:          conf.APIKey,
		merchantID:      conf.MerchantID,
		checkoutBaseURL: strings.TrimRight(checkoutBaseURL, "/"),
		logger:          logger,
	}
}

func (c *RevolutClient) CreateOrder(ctx context.Context, order entitlement.Order) (entitlement.ProviderOrder, error) {
	switch {
	case c.apiKey == "":
		return entitlement.ProviderOrder{}, core.NewConfigurationError("payment API key")
	case c.merchantID == "":
		return entitlement.ProviderOrder{}, core.NewConfigurationError("payment merchant id")
	}

	var (
		out    orderResponse
		errOut errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(orderRequest{
			Amount:        order.Amount,
			Currency:      order.Currency,
			CustomerID:    order.CustomerID,
			CustomerEmail: order.CustomerEmail,
			Description:   order.Description,
			MerchantRef:   order.MerchantRef,
			CaptureMode:   captureAutomatic,
			SuccessURL:    order.SuccessURL,
			CancelURL:     order.CancelURL,
		}).
		SetResult(&out).
		SetError(&errOut).
		Post(ordersEndpoint)
	if err != nil {
		return entitlement.ProviderOrder{}, &entitlement.ProviderError{Message: "order request failed", Err: err}
	}
	if resp.IsError() {
		msg := errOut.Message
		if msg == "" {
			msg = resp.String()
		}
		c.logger.Error("payment provider rejected order", map[string]interface{}{
			"status":       resp.StatusCode(),
			"merchant_ref": order.MerchantRef,
			"message":      msg,
		})
		return entitlement.ProviderOrder{}, &entitlement.ProviderError{StatusCode: resp.StatusCode(), Message: msg}
	}
	if out.ID == "" {
		return entitlement.ProviderOrder{}, &entitlement.ProviderError{StatusCode: resp.StatusCode(), Message: "order response has no id"}
	}

	checkoutURL := out.CheckoutURL
	if checkoutURL == "" {
		checkoutURL = c.checkoutBaseURL + "/" + out.PublicID
	}
	return entitlement.ProviderOrder{
		ID:          out.ID,
		PublicID:    out.PublicID,
		CheckoutURL: checkoutURL,
		State:       out.State,
	}, nil
}
