package repository

import (
	"context"
	"time"

	"goodstay/internal/domain/model"
)

type OrderListFilter struct {
	Page   int
	Limit  int
	Status string
	Email  string
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//冪等キー検索（同じpayment intentなら同じ注文を返す）
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Order, bool, error)

	//payment intent起点のステータス更新（webhook用）。該当なしはfalse
	UpdateStatusByPaymentIntentID(ctx context.Context, paymentIntentID string, status model.OrderStatus) (bool, error)

	//管理画面用の注文一覧
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
}
