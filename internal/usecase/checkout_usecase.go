package usecase

import (
	"context"
	"net/http"
	"strings"

	"goodstay/internal/payment"

	"go.uber.org/zap"
)

// カートをhosted checkoutのセッションに変換する。
// ここではOrderを一切作らない（離脱カートの注文ゴミを作らないため）。
// セッションのmetadataに載せるスナップショットが、支払い完了までの唯一の記録
type CheckoutUsecase struct {
	provider payment.Provider
	logger   *zap.Logger
}

func NewCheckoutUsecase(provider payment.Provider, logger *zap.Logger) *CheckoutUsecase {
	return &CheckoutUsecase{provider: provider, logger: logger}
}

// クライアント側カートの1行。単価はカート追加時点のもの（再取得しない）
type CheckoutLineInput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type CheckoutAddressInput struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CreateSessionInput struct {
	Items         []CheckoutLineInput  `json:"items"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	Address       CheckoutAddressInput `json:"shipping_address"`
}

type CreateSessionOutput struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (u *CheckoutUsecase) CreateSession(ctx context.Context, in CreateSessionInput) (CreateSessionOutput, error) {
	if len(in.Items) == 0 {
		return CreateSessionOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	if strings.TrimSpace(in.CustomerName) == "" {
		return CreateSessionOutput{}, NewHTTPError(http.StatusBadRequest, "customer_name is required")
	}
	if strings.TrimSpace(in.CustomerEmail) == "" {
		return CreateSessionOutput{}, NewHTTPError(http.StatusBadRequest, "customer_email is required")
	}

	var subtotal int64 = 0
	lines := make([]payment.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return CreateSessionOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be at least 1")
		}
		if item.UnitPrice < 0 {
			return CreateSessionOutput{}, NewHTTPError(http.StatusBadRequest, "invalid unit_price")
		}

		subtotal += item.UnitPrice * item.Quantity
		lines = append(lines, payment.LineItem{
			ProductID:  item.ProductID,
			Name:       item.Name,
			UnitAmount: item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}

	//送料・税は現状0固定（意図した簡略化）
	var shipping int64 = 0
	var tax int64 = 0
	total := subtotal + shipping + tax

	snap := orderSnapshot{
		Items:         in.Items,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		Address:       in.Address,
		Subtotal:      subtotal,
		Shipping:      shipping,
		Tax:           tax,
		Total:         total,
	}
	metadata, err := encodeOrderSnapshot(snap)
	if err != nil {
		u.logger.Error("encode order snapshot", zap.Error(err))
		return CreateSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	s, err := u.provider.CreateSession(ctx, payment.SessionRequest{
		Items:         lines,
		CustomerEmail: in.CustomerEmail,
		Metadata:      metadata,
	})
	if err != nil {
		//リトライはしない。カートからやり直してもらう
		u.logger.Error("create checkout session", zap.Error(err))
		return CreateSessionOutput{}, NewHTTPError(http.StatusBadGateway, "checkout session error")
	}

	return CreateSessionOutput{
		SessionID: s.ID,
		URL:       s.URL,
	}, nil
}
