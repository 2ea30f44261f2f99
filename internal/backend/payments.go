package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// PaymentOrder is a gateway order created for an appointment. Amount is in
// the smallest currency unit.
type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type orderResponse struct {
	Success       bool         `json:"success"`
	Order         PaymentOrder `json:"order"`
	AppointmentID string       `json:"appointmentId"`
}

// CreatePaymentOrder asks the backend to open a gateway order tied to the appointment.
func (c *Client) CreatePaymentOrder(ctx context.Context, appointmentID string) (PaymentOrder, error) {
	body := map[string]string{"appointmentId": appointmentID}
	var resp orderResponse
	if err := c.doJSON(ctx, "create_payment_order", http.MethodPost, "/payments/order", nil, body, &resp); err != nil {
		return PaymentOrder{}, err
	}
	if strings.TrimSpace(resp.Order.ID) == "" {
		return PaymentOrder{}, fmt.Errorf("backend: create_payment_order: response missing order id")
	}
	return resp.Order, nil
}

// PaymentVerification is the gateway's success triple.
type PaymentVerification struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyPayment confirms a completed checkout. A success=false answer is an error.
func (c *Client) VerifyPayment(ctx context.Context, v PaymentVerification) (string, error) {
	var resp verifyResponse
	if err := c.doJSON(ctx, "verify_payment", http.MethodPost, "/payments/verify", nil, v, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
