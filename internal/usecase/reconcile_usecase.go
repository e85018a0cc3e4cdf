package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"goodstay/internal/domain/model"
	"goodstay/internal/payment"
	repo "goodstay/internal/repository"

	"go.uber.org/zap"
)

// プロバイダのイベントを永続化されたOrder+OrderItemsに変換する。
// 入口は2つ：
//
//	(a) pull: 決済完了後のリダイレクト先がセッションIDで照会してくる
//	(b) push: プロバイダのwebhook（checkout.session.completed）
//
// どちらが先に来ても、同時に来ても、Orderはpayment intentごとに1件しか作らない。
// その保証はアプリ側のチェックではなくstripe_payment_intent_idのunique制約が持つ
type ReconcileUsecase struct {
	provider payment.Provider
	tx       repo.TransactionManager
	logger   *zap.Logger
}

func NewReconcileUsecase(provider payment.Provider, tx repo.TransactionManager, logger *zap.Logger) *ReconcileUsecase {
	return &ReconcileUsecase{provider: provider, tx: tx, logger: logger}
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID              int64                 `json:"id"`
	Status          string                `json:"status"`
	Subtotal        int64                 `json:"subtotal"`
	TaxAmount       int64                 `json:"tax_amount"`
	ShippingAmount  int64                 `json:"shipping_amount"`
	TotalAmount     int64                 `json:"total_amount"`
	CustomerName    string                `json:"customer_name"`
	CustomerEmail   string                `json:"customer_email"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	Notes           string                `json:"notes"`
	CreatedAt       time.Time             `json:"created_at"`
	Items           []OrderItemOutput     `json:"items"`
}

type ReconcileOutput struct {
	//セッションが支払い済みかどうか。falseならOrderは作らない
	Paid  bool         `json:"paid"`
	Order *OrderOutput `json:"order,omitempty"`
}

// pull経路。成功ページがwebhookより先に表示されても注文詳細を出せるようにする
func (u *ReconcileUsecase) ReconcileSession(ctx context.Context, sessionID string) (ReconcileOutput, error) {
	if strings.TrimSpace(sessionID) == "" {
		return ReconcileOutput{}, NewHTTPError(http.StatusBadRequest, "invalid session_id")
	}

	s, err := u.provider.GetSession(ctx, sessionID)
	if err != nil {
		u.logger.Error("retrieve checkout session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return ReconcileOutput{}, NewHTTPError(http.StatusBadGateway, "payment provider error")
	}

	//未払いならまだ何も書かない
	if !s.Paid {
		return ReconcileOutput{Paid: false}, nil
	}

	out, err := u.materialize(ctx, s)
	if err != nil {
		return ReconcileOutput{}, err
	}
	return ReconcileOutput{Paid: true, Order: &out}, nil
}

// push経路。署名検証はprovider側で済ませ、不正なら何も処理しない。
// エラーを返すとプロバイダ側が再配送する
func (u *ReconcileUsecase) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	ev, err := u.provider.VerifyEvent(payload, sigHeader)
	if err != nil {
		u.logger.Warn("webhook signature verification failed", zap.Error(err))
		return NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	switch ev.Type {
	case payment.EventCheckoutSessionCompleted:
		if ev.Session == nil {
			u.logger.Error("checkout.session.completed without session payload")
			return NewHTTPError(http.StatusBadRequest, "invalid event payload")
		}
		_, err := u.materialize(ctx, *ev.Session)
		return err

	case payment.EventPaymentIntentSucceeded:
		return u.updateStatusByIntent(ctx, ev.PaymentIntentID, model.OrderStatusProcessing)

	case payment.EventPaymentIntentFailed:
		return u.updateStatusByIntent(ctx, ev.PaymentIntentID, model.OrderStatusCancelled)

	default:
		//消費しないイベントは受け取って無視（エラーではない）
		return nil
	}
}

// セッションをOrder+OrderItemsとして確定させる。何回呼ばれても結果は1件
func (u *ReconcileUsecase) materialize(ctx context.Context, s payment.Session) (OrderOutput, error) {
	if s.PaymentIntentID == "" {
		u.logger.Error("paid session without payment intent",
			zap.String("session_id", s.ID),
		)
		return OrderOutput{}, NewHTTPError(http.StatusBadGateway, "payment provider error")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//既に確定済みなら既存を返す
		existing, found, err := r.Orders().FindByPaymentIntentID(ctx, s.PaymentIntentID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(ctx, r, existing, items)
			return nil
		}

		//metadataのスナップショットから注文内容を復元する。
		//金額はここで再計算しない（商品価格が後から変わっても注文は変わらない）
		snap, err := decodeOrderSnapshot(s.Metadata)
		if err != nil {
			u.logger.Error("decode order snapshot",
				zap.String("session_id", s.ID),
				zap.String("payment_intent_id", s.PaymentIntentID),
				zap.Error(err),
			)
			return NewHTTPError(http.StatusInternalServerError, "invalid order snapshot")
		}

		order := model.Order{
			StripeSessionID:       s.ID,
			StripePaymentIntentID: s.PaymentIntentID,
			Subtotal:              snap.Subtotal,
			TaxAmount:             snap.Tax,
			ShippingAmount:        snap.Shipping,
			TotalAmount:           snap.Total,
			Status:                model.OrderStatusPaid,
			CustomerName:          snap.CustomerName,
			CustomerEmail:         snap.CustomerEmail,
			ShippingAddress: model.ShippingAddress{
				Line1:      snap.Address.Line1,
				Line2:      snap.Address.Line2,
				City:       snap.Address.City,
				State:      snap.Address.State,
				PostalCode: snap.Address.PostalCode,
				Country:    snap.Address.Country,
			},
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//同時実行でpull/pushが同じintentを挿入した場合。
			//unique制約が裁定者なので、もう一度検索して既存を返す
			ex2, found2, err2 := r.Orders().FindByPaymentIntentID(ctx, s.PaymentIntentID)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(ctx, r, ex2, items2)
				return nil
			}
			u.logger.Error("insert order",
				zap.String("payment_intent_id", s.PaymentIntentID),
				zap.Error(err),
			)
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items := make([]model.OrderItem, 0, len(snap.Items))
		for _, line := range snap.Items {
			items = append(items, model.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.UnitPrice,
			})
		}

		//在庫はここで減らさない（現仕様の確認済みの挙動）
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			//明細なしのOrderはデータ不整合。手動リカバリのためにIDを残す
			u.logger.Error("insert order items failed, order rolled back",
				zap.Int64("order_id", orderID),
				zap.String("payment_intent_id", s.PaymentIntentID),
				zap.Error(err),
			)
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(ctx, r, order, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// payment_intentライフサイクルイベントによる純粋なステータス書き換え。
// こちらで作っていないintentは対象外（再配送ループを避けるため成功扱い）
func (u *ReconcileUsecase) updateStatusByIntent(ctx context.Context, paymentIntentID string, status model.OrderStatus) error {
	if paymentIntentID == "" {
		return nil
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		updated, err := r.Orders().UpdateStatusByPaymentIntentID(ctx, paymentIntentID, status)
		if err != nil {
			u.logger.Error("update order status from webhook",
				zap.String("payment_intent_id", paymentIntentID),
				zap.String("status", string(status)),
				zap.Error(err),
			)
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !updated {
			u.logger.Info("payment intent event for unknown order",
				zap.String("payment_intent_id", paymentIntentID),
			)
		}
		return nil
	})
}

// 明細には商品名のスナップショットを持たないので表示時に引く。
// 商品が消えていても注文は壊さない
func toOrderOutput(ctx context.Context, r repo.TxRepos, o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		name := "Unknown Product"
		if p, err := r.Products().FindByID(ctx, it.ProductID); err == nil {
			name = p.Name
		}
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:              o.ID,
		Status:          string(o.Status),
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		ShippingAmount:  o.ShippingAmount,
		TotalAmount:     o.TotalAmount,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}
