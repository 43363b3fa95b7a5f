package utils

import (
	"time"

	"github.com/hako/durafmt"
)

func FormatDate(t time.Time, loc *time.Location) string {
	if t.Unix() <= 0 {
		return ""
	}

	return t.In(loc).Format("2006-01-02")
}

func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.Unix() <= 0 {
		return ""
	}

	return t.In(loc).Format("2006-01-02 15:04:05")
}

// FormatDuration renders d for humans, two most significant units only
// e.g. "3 hours 12 minutes"
func FormatDuration(d time.Duration) string {
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String()
}

func GetOkJSON() []byte {
	return []byte(`{"is_ok":true}`)
}
