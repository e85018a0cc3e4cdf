package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func ValidBookingStatus(s string) bool {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// 予約の連絡先（Bookingに埋め込み）
type BookingContact struct {
	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Email string `gorm:"type:varchar(255);not null" json:"email"`
	Phone string `gorm:"type:varchar(30)" json:"phone"`
}

// 宿泊前の顔合わせ（assessment visit）の予約。支払いは発生しない
type Booking struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	DogName  string `gorm:"type:varchar(255);not null" json:"dog_name"`
	DogBreed string `gorm:"type:varchar(255)" json:"dog_breed"`
	DogAge   string `gorm:"type:varchar(50)" json:"dog_age"`

	//希望日（YYYY-MM-DD）と希望時刻（HH:MM）
	PreferredDate string `gorm:"type:varchar(10);not null;index" json:"preferred_date"`
	PreferredTime string `gorm:"type:varchar(5);not null" json:"preferred_time"`

	Status BookingStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	Contact BookingContact `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`

	SpecialRequirements string `gorm:"type:text" json:"special_requirements"`
	Notes               string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
