package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"goodstay/internal/domain/model"
	repo "goodstay/internal/repository"
)

// 管理画面の予約操作。注文と同じく遷移グラフは持たない
type AdminBookingUsecase struct {
	tx repo.TransactionManager
}

func NewAdminBookingUsecase(tx repo.TransactionManager) *AdminBookingUsecase {
	return &AdminBookingUsecase{tx: tx}
}

type AdminUpdateBookingStatusInput struct {
	Status string
}

type BookingListOutput struct {
	Items []BookingOutput `json:"items"`
	Total int64           `json:"total"`
}

func (u *AdminBookingUsecase) List(ctx context.Context, f repo.BookingListFilter) (BookingListOutput, error) {
	if f.Page < 1 {
		return BookingListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return BookingListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.ValidBookingStatus(f.Status) {
		return BookingListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out BookingListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		bookings, total, err := r.Bookings().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out.Total = total
		out.Items = make([]BookingOutput, 0, len(bookings))
		for _, b := range bookings {
			//旧データは連絡先がnotesに入ったままのことがある
			if b.Contact.Name == "" {
				if contact, ok := ParseLegacyContact(b.Notes); ok {
					b.Contact = contact
				}
			}
			out.Items = append(out.Items, toBookingOutput(b))
		}
		return nil
	})

	if err != nil {
		return BookingListOutput{}, err
	}
	return out, nil
}

func (u *AdminBookingUsecase) Get(ctx context.Context, bookingID int64) (BookingOutput, error) {
	if bookingID <= 0 {
		return BookingOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out BookingOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		b, err := r.Bookings().FindByID(ctx, bookingID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if b.Contact.Name == "" {
			if contact, ok := ParseLegacyContact(b.Notes); ok {
				b.Contact = contact
			}
		}

		out = toBookingOutput(b)
		return nil
	})

	if err != nil {
		return BookingOutput{}, err
	}
	return out, nil
}

func (u *AdminBookingUsecase) UpdateStatus(ctx context.Context, actorID int64, bookingID int64, in AdminUpdateBookingStatusInput) error {
	if actorID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if bookingID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := strings.TrimSpace(in.Status)
	if !model.ValidBookingStatus(newStatus) {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		b, err := r.Bookings().FindByID(ctx, bookingID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Bookings().UpdateStatus(ctx, bookingID, model.BookingStatus(newStatus)); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ
		beforeJSON, _ := json.Marshal(map[string]string{"status": string(b.Status)})
		afterJSON, _ := json.Marshal(map[string]string{"status": newStatus})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorID:      actorID,
			Action:       model.AuditActionUpdateBookingStatus,
			ResourceType: model.AuditResourceBooking,
			ResourceID:   bookingID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}
