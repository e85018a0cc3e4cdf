package repository

import (
	"context"
	"time"

	"goodstay/internal/domain/model"
)

type BookingListFilter struct {
	Page   int
	Limit  int
	Status string
	Date   string
	From   *time.Time
	To     *time.Time
}

type BookingRepository interface {
	FindByID(ctx context.Context, bookingID int64) (model.Booking, error)
	Create(ctx context.Context, b model.Booking) (int64, error)
	UpdateStatus(ctx context.Context, bookingID int64, status model.BookingStatus) error

	//管理画面用の予約一覧
	List(ctx context.Context, f BookingListFilter) ([]model.Booking, int64, error)
}
