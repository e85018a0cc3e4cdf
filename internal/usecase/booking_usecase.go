package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"goodstay/internal/config"
	"goodstay/internal/domain/model"
	repo "goodstay/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Usecaseが現在時刻に依存するときの約束（テストで差し替える）
type Clock interface {
	Now() time.Time
}

// 顔合わせ予約の受付。支払いは発生しない。
// 営業時間・枠間隔・最低リードタイムを検証してpendingで保存する
type BookingUsecase struct {
	bookings repo.BookingRepository
	rules    config.Booking
	clock    Clock
	validate *validator.Validate
	logger   *zap.Logger
}

func NewBookingUsecase(bookings repo.BookingRepository, rules config.Booking, clock Clock, logger *zap.Logger) *BookingUsecase {
	return &BookingUsecase{
		bookings: bookings,
		rules:    rules,
		clock:    clock,
		validate: validator.New(),
		logger:   logger,
	}
}

type SubmitBookingInput struct {
	ContactName  string `json:"contact_name" validate:"required"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	ContactPhone string `json:"contact_phone"`

	DogName  string `json:"dog_name" validate:"required"`
	DogBreed string `json:"dog_breed"`
	DogAge   string `json:"dog_age"`

	PreferredDate string `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	PreferredTime string `json:"preferred_time" validate:"required,datetime=15:04"`

	SpecialRequirements string `json:"special_requirements"`
	Notes               string `json:"notes"`
}

type BookingOutput struct {
	ID                  int64                `json:"id"`
	DogName             string               `json:"dog_name"`
	DogBreed            string               `json:"dog_breed"`
	DogAge              string               `json:"dog_age"`
	PreferredDate       string               `json:"preferred_date"`
	PreferredTime       string               `json:"preferred_time"`
	Status              string               `json:"status"`
	Contact             model.BookingContact `json:"contact"`
	SpecialRequirements string               `json:"special_requirements"`
	Notes               string               `json:"notes"`
	CreatedAt           time.Time            `json:"created_at"`
}

func (u *BookingUsecase) SubmitBooking(ctx context.Context, in SubmitBookingInput) (BookingOutput, error) {
	//旧フォームはcontactをnotesに詰めて送ってくる。構造化カラムへ吸い上げる
	if strings.TrimSpace(in.ContactName) == "" {
		if contact, ok := ParseLegacyContact(in.Notes); ok {
			in.ContactName = contact.Name
			in.ContactEmail = contact.Email
			in.ContactPhone = contact.Phone
		}
	}

	if err := u.validate.Struct(in); err != nil {
		return BookingOutput{}, NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	if err := u.validateSlot(in.PreferredDate, in.PreferredTime); err != nil {
		return BookingOutput{}, err
	}

	b := model.Booking{
		DogName:       strings.TrimSpace(in.DogName),
		DogBreed:      strings.TrimSpace(in.DogBreed),
		DogAge:        strings.TrimSpace(in.DogAge),
		PreferredDate: in.PreferredDate,
		PreferredTime: in.PreferredTime,
		Status:        model.BookingStatusPending,
		Contact: model.BookingContact{
			Name:  strings.TrimSpace(in.ContactName),
			Email: strings.TrimSpace(in.ContactEmail),
			Phone: strings.TrimSpace(in.ContactPhone),
		},
		SpecialRequirements: in.SpecialRequirements,
		Notes:               in.Notes,
	}

	id, err := u.bookings.Create(ctx, b)
	if err != nil {
		u.logger.Error("insert booking", zap.Error(err))
		return BookingOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	b.ID = id
	b.CreatedAt = u.clock.Now()

	return toBookingOutput(b), nil
}

// 指定日の予約可能枠。当日はリードタイムを満たす枠だけ返す
func (u *BookingUsecase) AvailableSlots(date string) ([]string, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid date")
	}

	all, err := GenerateSlots(u.rules.OpenTime, u.rules.CloseTime, u.rules.SlotIntervalMin)
	if err != nil {
		u.logger.Error("generate slots", zap.Error(err))
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := u.clock.Now()
	today := dateOnly(now)

	//過去日は枠なし
	if day.Before(today) {
		return []string{}, nil
	}
	//未来日は全枠有効（残り時間に関係なく）
	if day.After(today) {
		return all, nil
	}

	//当日は「今＋リードタイム」以降の枠だけ
	cutoff := now.Add(time.Duration(u.rules.MinAdvanceHours) * time.Hour)
	out := make([]string, 0, len(all))
	for _, slot := range all {
		st, err := slotTime(day, slot)
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if !st.Before(cutoff) {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (u *BookingUsecase) validateSlot(date, timeLabel string) error {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid preferred_date")
	}

	all, err := GenerateSlots(u.rules.OpenTime, u.rules.CloseTime, u.rules.SlotIntervalMin)
	if err != nil {
		u.logger.Error("generate slots", zap.Error(err))
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	//営業時間内の枠であること
	valid := false
	for _, s := range all {
		if s == timeLabel {
			valid = true
			break
		}
	}
	if !valid {
		return NewHTTPError(http.StatusBadRequest, "preferred_time is outside business hours")
	}

	now := u.clock.Now()
	today := dateOnly(now)

	if day.Before(today) {
		return NewHTTPError(http.StatusBadRequest, "preferred_date is in the past")
	}

	//翌日以降は日付だけで判定（時刻は見ない）
	if day.After(today) {
		return nil
	}

	//当日はリードタイムを満たす必要がある
	st, err := slotTime(day, timeLabel)
	if err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid preferred_time")
	}
	cutoff := now.Add(time.Duration(u.rules.MinAdvanceHours) * time.Hour)
	if st.Before(cutoff) {
		return NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("bookings require at least %d hours notice", u.rules.MinAdvanceHours))
	}

	return nil
}

func toBookingOutput(b model.Booking) BookingOutput {
	return BookingOutput{
		ID:                  b.ID,
		DogName:             b.DogName,
		DogBreed:            b.DogBreed,
		DogAge:              b.DogAge,
		PreferredDate:       b.PreferredDate,
		PreferredTime:       b.PreferredTime,
		Status:              string(b.Status),
		Contact:             b.Contact,
		SpecialRequirements: b.SpecialRequirements,
		Notes:               b.Notes,
		CreatedAt:           b.CreatedAt,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// 最初のフィールドエラーだけをフォーム向けの文言にする
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", snakeField(fe.Field()))
		case "email":
			return fmt.Sprintf("%s must be a valid email", snakeField(fe.Field()))
		case "datetime":
			return fmt.Sprintf("%s has an invalid format", snakeField(fe.Field()))
		}
		return fmt.Sprintf("%s is invalid", snakeField(fe.Field()))
	}
	return "invalid request"
}

// 構造体フィールド名をJSONのsnake_caseに寄せる
func snakeField(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
