package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品（ショップで販売するグッズ）
type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//価格（最小通貨単位の整数。セント）
	Price int64 `gorm:"not null" json:"price"`

	Category string `gorm:"type:varchar(100);index" json:"category"`

	//在庫数（0以上）
	StockQuantity int64 `gorm:"not null;default:0" json:"stock_quantity"`

	ImageURL string `gorm:"type:text" json:"image_url"`

	//falseの商品は購入不可
	IsActive bool `gorm:"not null;default:false" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
