package payment

import "context"

// 消費するイベント種別。その他は受け取って無視する
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)

// Checkoutのラインアイテム（単価はセント）
type LineItem struct {
	ProductID  int64
	Name       string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	Items         []LineItem
	CustomerEmail string

	//注文スナップショット。Orderが作られるまでの唯一の永続データ
	Metadata map[string]string
}

// プロバイダ側セッションのこちらから見える形
type Session struct {
	ID              string
	URL             string
	PaymentIntentID string
	Paid            bool
	Metadata        map[string]string
}

// 署名検証済みwebhookイベント
type Event struct {
	Type string

	//checkout.session.completed のとき
	Session *Session

	//payment_intent.* のとき
	PaymentIntentID string
}

// 決済プロバイダの約束。hosted checkoutの作成・取得とwebhook検証だけを使う
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)

	//署名が不正ならエラー。処理は一切しない
	VerifyEvent(payload []byte, sigHeader string) (Event, error)
}
