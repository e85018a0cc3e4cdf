package repository

import (
	"context"
	"errors"

	"goodstay/internal/domain/model"
	repo "goodstay/internal/repository"

	"gorm.io/gorm"
)

type BookingGormRepository struct {
	db *gorm.DB
}

func NewBookingGormRepository(db *gorm.DB) *BookingGormRepository {
	return &BookingGormRepository{db: db}
}

func (r *BookingGormRepository) FindByID(ctx context.Context, bookingID int64) (model.Booking, error) {
	var b model.Booking
	err := r.db.WithContext(ctx).Where("id = ?", bookingID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Booking{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingGormRepository) Create(ctx context.Context, b model.Booking) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
		return 0, err
	}
	return b.ID, nil
}

func (r *BookingGormRepository) UpdateStatus(ctx context.Context, bookingID int64, status model.BookingStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *BookingGormRepository) List(ctx context.Context, f repo.BookingListFilter) ([]model.Booking, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Booking{})

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	//希望日絞り込み
	if f.Date != "" {
		q = q.Where("preferred_date = ?", f.Date)
	}

	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Booking{}, 0, err
	}

	var items []model.Booking
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("preferred_date asc").Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Booking{}, 0, err
	}

	return items, total, nil
}
