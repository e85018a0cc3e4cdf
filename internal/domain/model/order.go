package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// 管理画面のドロップダウンで設定できる値。遷移グラフは持たない（手動訂正を許すため）
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// 配送先住所（Orderに埋め込み）
type ShippingAddress struct {
	Line1      string `gorm:"type:varchar(255)" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2"`
	City       string `gorm:"type:varchar(255)" json:"city"`
	State      string `gorm:"type:varchar(100)" json:"state"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`
	Country    string `gorm:"type:varchar(2)" json:"country"`
}

type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//決済プロバイダ側のセッションID
	StripeSessionID string `gorm:"type:varchar(255);index" json:"stripe_session_id"`

	//冪等キー。pull/pushの二重実行をこのunique制約で防ぐ
	StripePaymentIntentID string `gorm:"type:varchar(255);not null;uniqueIndex" json:"stripe_payment_intent_id"`

	//金額はセッション作成時のスナップショット（セント）
	Subtotal       int64 `gorm:"not null" json:"subtotal"`
	TaxAmount      int64 `gorm:"not null;default:0" json:"tax_amount"`
	ShippingAmount int64 `gorm:"not null;default:0" json:"shipping_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	CustomerName  string `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string `gorm:"type:varchar(255);not null;index" json:"customer_email"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	Notes string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
