package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"晴れ", "солнечно"},
		{"晴れ時々くもり", "солнечно, временами облачно"},
		{"くもり時々雨", "облачно, временами дождь"},
		{"雨時々やむ", "дождь с прояснениями"},
		{"雨", "дождь"},
		{"くもり", "облачно"},
		{"曇り", "облачно"},
		{"雨で雷を伴う", "гроза"},
		{"雪時々雨", "снег"},
		{"霧", "霧"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.input))
		})
	}
}

func TestParseTemperature(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		want  float64
	}{
		{"31", true, 31},
		{" 31℃ ", true, 31},
		{"３１", true, 31},
		{"-2", true, -2},
		{"−2", true, -2},
		{"7.5", true, 7.5},
		{"-", false, 0},
		{"", false, 0},
		{"---", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseTemperature(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				require.NotNil(t, got)
				assert.Equal(t, tt.want, *got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestEntryFormatMaxC(t *testing.T) {
	v := 31.0
	neg := -2.5

	assert.Equal(t, "31", Entry{MaxC: &v}.FormatMaxC())
	assert.Equal(t, "-2.5", Entry{MaxC: &neg}.FormatMaxC())
	assert.Equal(t, "", Entry{}.FormatMaxC())
	assert.False(t, Entry{}.HasTemperature())
}

func TestReportFind(t *testing.T) {
	r := Report{Entries: []Entry{{City: "東京"}, {City: "札幌"}}}

	e, ok := r.Find("札幌")
	assert.True(t, ok)
	assert.Equal(t, "札幌", e.City)

	_, ok = r.Find("那覇")
	assert.False(t, ok)
	assert.Equal(t, []string{"東京", "札幌"}, r.Cities())
}
