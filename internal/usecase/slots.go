package usecase

import (
	"fmt"
	"time"
)

// GenerateSlotsは営業開始から終了まで、interval分刻みの枠ラベル（HH:MM）を返す。
// 終了時刻ちょうども枠に含める（閉店時刻ぴったりの枠を許す現行挙動）
func GenerateSlots(openTime, closeTime string, intervalMin int) ([]string, error) {
	open, err := time.Parse("15:04", openTime)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	close, err := time.Parse("15:04", closeTime)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}
	if intervalMin <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if close.Before(open) {
		return nil, fmt.Errorf("close before open")
	}

	slots := []string{}
	for t := open; !t.After(close); t = t.Add(time.Duration(intervalMin) * time.Minute) {
		slots = append(slots, t.Format("15:04"))
	}
	return slots, nil
}

// 日付と枠ラベルをその日のローカル時刻に組み立てる
func slotTime(day time.Time, label string) (time.Time, error) {
	t, err := time.Parse("15:04", label)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot label: %w", err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
