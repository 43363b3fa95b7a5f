package weather

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var reTemperature = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseTemperature reads the maximum temperature from the tile text.
// The page uses "-" when no value is published, full-width digits
// and the unicode minus sign are accepted.
func ParseTemperature(s string) (*float64, bool) {
	s = width.Narrow.String(strings.TrimSpace(s))
	s = strings.NewReplacer("−", "-", "―", "-", "‐", "-").Replace(s)

	match := reTemperature.FindString(s)
	if match == "" {
		return nil, false
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil, false
	}

	return &v, true
}
