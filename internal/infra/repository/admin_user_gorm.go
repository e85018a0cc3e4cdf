package repository

import (
	"context"
	"errors"

	"goodstay/internal/domain/model"
	domainrepo "goodstay/internal/repository"

	"gorm.io/gorm"
)

type adminUserGormRepository struct {
	db *gorm.DB
}

// DI
func NewAdminUserGormRepository(db *gorm.DB) domainrepo.AdminUserRepository {
	return &adminUserGormRepository{db: db}
}

func (r *adminUserGormRepository) Create(ctx context.Context, u *model.AdminUser) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return err
	}
	return nil
}

// emailで管理者を1件取得。見つからないときはnil
func (r *adminUserGormRepository) FindByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	var u model.AdminUser

	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

func (r *adminUserGormRepository) Update(ctx context.Context, u *model.AdminUser) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		return err
	}
	return nil
}
