package repository

import (
	"context"

	"goodstay/internal/domain/model"
)

// 管理者アカウントの保存・取得を約束
type AdminUserRepository interface {
	Create(ctx context.Context, u *model.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	//ログイン成功時に最終ログイン時刻を更新
	Update(ctx context.Context, u *model.AdminUser) error
}
