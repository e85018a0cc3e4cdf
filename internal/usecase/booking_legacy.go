package usecase

import (
	"regexp"
	"strings"

	"goodstay/internal/domain/model"
)

// 旧システムはnotes欄に「Contact: <name>, Email: <email>, Phone: <phone>」の
// 文字列規約で連絡先を詰めていた。移行境界でだけこの規約を読む
var (
	legacyContactRe = regexp.MustCompile(`Contact:\s*([^,]+)`)
	legacyEmailRe   = regexp.MustCompile(`Email:\s*([^,\s]+)`)
	legacyPhoneRe   = regexp.MustCompile(`Phone:\s*([^,]+)`)
)

// ParseLegacyContactはnotesから旧規約の連絡先を取り出す。
// 名前とメールの両方が取れたときだけ成功扱い
func ParseLegacyContact(notes string) (model.BookingContact, bool) {
	var c model.BookingContact

	if m := legacyContactRe.FindStringSubmatch(notes); m != nil {
		c.Name = strings.TrimSpace(m[1])
	}
	if m := legacyEmailRe.FindStringSubmatch(notes); m != nil {
		c.Email = strings.TrimSpace(m[1])
	}
	if m := legacyPhoneRe.FindStringSubmatch(notes); m != nil {
		c.Phone = strings.TrimSpace(m[1])
	}

	if c.Name == "" || c.Email == "" {
		return model.BookingContact{}, false
	}
	return c, true
}
