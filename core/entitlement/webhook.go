package entitlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Provider event types and order states.
const (
	EventOrderCompleted       = "ORDER_COMPLETED"
	EventOrderPaymentDeclined = "ORDER_PAYMENT_DECLINED"
	EventOrderPaymentFailed   = "ORDER_PAYMENT_FAILED"
	EventOrderCancelled       = "ORDER_CANCELLED"

	OrderStateCompleted = "COMPLETED"
)

// WebhookEvent is the provider notification body.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID    string `json:"id"`
		State string `json:"state"`
	} `json:"data"`
}

// targetStatus maps the event to the purchase status it settles; ok is false for events that are not acted upon.
func (ev WebhookEvent) targetStatus() (status Status, ok bool) {
	switch ev.Type {
	case EventOrderCompleted:
		if ev.Data.State == OrderStateCompleted {
			return StatusCompleted, true
		}
		return StatusFailed, true
	case EventOrderPaymentDeclined, EventOrderPaymentFailed, EventOrderCancelled:
		return StatusFailed, true
	}
	return "", false
}

// SignPayload returns the lowercase hex HMAC-SHA256 of body keyed with secret.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature with the expected digest of body, byte for byte, in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := SignPayload(secret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
