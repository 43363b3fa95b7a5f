package weather

import (
	"strconv"
	"time"
)

// Entry is one city's forecast as extracted from the map
type Entry struct {
	City           string   `json:"city_jp"`
	CityTranslated string   `json:"city_ru"`
	Condition      string   `json:"condition"` // icon alt text as published
	Category       string   `json:"category"`  // condition category in Russian
	MaxC           *float64 `json:"max_c,omitempty"`
}

// HasTemperature reports whether the page published a maximum temperature
func (e Entry) HasTemperature() bool {
	return e.MaxC != nil
}

// FormatMaxC returns the temperature the way it was published ("31", "-2", "7.5")
// or an empty string if there is none
func (e Entry) FormatMaxC() string {
	if e.MaxC == nil {
		return ""
	}

	return strconv.FormatFloat(*e.MaxC, 'f', -1, 64)
}

// Report is everything one run produces
type Report struct {
	Entries []Entry
	Map     []byte // PNG screenshot of the map region
	Date    time.Time
}

// Cities returns source names in page order
func (r Report) Cities() []string {
	cities := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		cities[i] = e.City
	}

	return cities
}

// Find returns the entry for the source city name
func (r Report) Find(city string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.City == city {
			return e, true
		}
	}

	return Entry{}, false
}
