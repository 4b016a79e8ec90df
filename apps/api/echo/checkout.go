package echoapi

import (
	"io"
	"io/ioutil"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core/entitlement"
)

const maxWebhookBody = 1 << 20

type checkoutApi struct {
	svc             *entitlement.Service
	signatureHeader string
}

func registerCheckoutAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *entitlement.Service, signatureHeader string) {
	api := checkoutApi{svc: svc, signatureHeader: signatureHeader}

	// un-authed endpoints
	g.POST("/webhooks/payments", api.webhook)

	// authed endpoints
	g.POST("/checkout", api.checkout, jwt)
	pg := g.Group("/purchases", jwt)
	pg.GET("", api.queryPurchases)
	pg.GET("/:orderId", api.retrievePurchase)
}

// Handlers

func (api *checkoutApi) checkout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data entitlement.CheckoutRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckoutRequest")
	}

	customer := entitlement.Customer{ID: claims.Subject, Email: claims.Email}
	checkout, err := api.svc.InitiateCheckout(ctx.Request().Context(), customer, data)
	if err != nil {
		return errors.Wrap(err, "initiating checkout")
	}
	return ctx.JSON(http.StatusOK, checkout)
}

// webhook reads the raw body: the signature covers the exact bytes sent by the provider.
func (api *checkoutApi) webhook(ctx echo.Context) error {
	body, err := ioutil.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBody))
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}
	sig := ctx.Request().Header.Get(api.signatureHeader)
	if err = api.svc.Reconcile(ctx.Request().Context(), body, sig); err != nil {
		return errors.Wrap(err, "reconciling payment webhook")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"received": true})
}

func (api *checkoutApi) queryPurchases(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	purchases, err := api.svc.QueryPurchases(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying purchases")
	}
	return ctx.JSON(http.StatusOK, purchases)
}

func (api *checkoutApi) retrievePurchase(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	purchase, err := api.svc.GetPurchaseByOrder(ctx.Request().Context(), claims.Subject, ctx.Param("orderId"))
	if err != nil {
		return errors.Wrap(err, "getting purchase")
	}
	return ctx.JSON(http.StatusOK, purchase)
}
