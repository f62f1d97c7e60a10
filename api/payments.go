package api

import (
	"context"
	"net/http"

	"communityhub/model"
)

// CreatePaymentIntent asks the API for a hosted payment element secret
// covering a ticket order.
func (c *Client) CreatePaymentIntent(ctx context.Context, order model.TicketOrder) (model.PaymentIntent, error) {
	var intent model.PaymentIntent
	err := c.do(ctx, http.MethodPost, "/payments/create-intent", order, &intent)
	return intent, err
}

func (c *Client) ConfirmPayment(ctx context.Context, paymentIntentID string) (model.PaymentConfirmation, error) {
	var conf model.PaymentConfirmation
	body := map[string]string{"paymentIntentId": paymentIntentID}
	err := c.do(ctx, http.MethodPost, "/payments/confirm", body, &conf)
	return conf, err
}
