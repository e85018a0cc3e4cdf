package repository

import (
	"context"
	"errors"

	"goodstay/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Category string

	//trueなら公開中（is_active）だけ返す
	ActiveOnly bool
}

// 商品の永続化（保存・取得）だけを約束。
// 注文ライフサイクルは商品を読むだけで、在庫を含めて一切更新しない。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}
