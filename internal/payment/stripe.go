package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"goodstay/internal/config"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeClient struct {
	sessions      stripeSessionAPI
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *zap.Logger
}

// DI
func NewStripeClient(cfg config.Stripe, logger *zap.Logger) *StripeClient {
	sc := client.New(cfg.SecretKey, nil)
	return &StripeClient{
		sessions:      sc.CheckoutSessions,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		logger:        logger,
	}
}

func (c *StripeClient) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	params.Context = ctx

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	params.LineItems = lineItems

	//注文スナップショットをセッションのmetadataに埋める
	if len(req.Metadata) > 0 {
		params.Metadata = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			params.Metadata[k] = v
		}
	}

	s, err := c.sessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	c.logger.Info("checkout session created",
		zap.String("session_id", s.ID),
	)

	return toSession(s), nil
}

func (c *StripeClient) GetSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	s, err := c.sessions.Get(id, params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe: retrieve checkout session: %w", err)
	}
	return toSession(s), nil
}

// webhookの署名を検証して正規化イベントに変換する。
// 署名不正はここで弾き、後段には何も渡さない
func (c *StripeClient) VerifyEvent(payload []byte, sigHeader string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("stripe: verify webhook signature: %w", err)
	}

	out := Event{Type: string(ev.Type)}

	switch out.Type {
	case EventCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return Event{}, fmt.Errorf("stripe: decode checkout session event: %w", err)
		}
		sess := toSession(&s)
		out.Session = &sess
		out.PaymentIntentID = sess.PaymentIntentID
	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return Event{}, fmt.Errorf("stripe: decode payment intent event: %w", err)
		}
		out.PaymentIntentID = pi.ID
	}

	return out, nil
}

func toSession(s *stripe.CheckoutSession) Session {
	intentID := ""
	if s.PaymentIntent != nil {
		intentID = s.PaymentIntent.ID
	}

	return Session{
		ID:              s.ID,
		URL:             s.URL,
		PaymentIntentID: intentID,
		Paid:            s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:        s.Metadata,
	}
}
