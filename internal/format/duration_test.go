package format

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name  string
		value any
		unit  string
		opts  []Option
		want  string
	}{
		{"Plural", 3, "day/s", nil, "3 days"},
		{"Singular", 1, "day/s", nil, "1 day"},
		{"Short", 3, "day/s", []Option{ShortFormat()}, "3d"},
		{"ShortMonth", 2, "month/s", []Option{ShortFormat()}, "2mo"},
		{"ShortUnknownUnit", 2, "dive/s", []Option{ShortFormat()}, "2d"},
		{"ShortMultibyteUnit", 2, "éclipse/s", []Option{ShortFormat()}, "2é"},
		{"ShortArabicUnit", 2, "يوم", []Option{ShortFormat()}, "2ي"},
		{"PluralInput", 2, "hours", nil, "2 hours"},
		{"BareUnit", 1, "hour", nil, "1 hour"},
		{"Fractional", 1.5, "hour/s", nil, "1.5 hours"},
		{"NumericString", "4", "night/s", nil, "4 nights"},
		{"JSONNumber", json.Number("5"), "day/s", nil, "5 days"},
		{"NoUnit", 3, "", nil, "3"},
		{"Nil", nil, "day/s", nil, DefaultFallback},
		{"Zero", 0, "day/s", nil, DefaultFallback},
		{"Negative", -2, "day/s", nil, DefaultFallback},
		{"Garbage", "abc", "day/s", nil, DefaultFallback},
		{"CustomFallback", nil, "day/s", []Option{WithFallback("TBA")}, "TBA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.value, tt.unit, tt.opts...))
		})
	}
}

func TestDurationHours(t *testing.T) {
	cases := []struct {
		value any
		unit  string
		want  float64
		ok    bool
	}{
		{3, "day/s", 72, true},
		{"90", "minutes", 1.5, true},
		{2, "week", 336, true},
		{5, "", 5, true},
		{nil, "day", 0, false},
		{-1, "day", 0, false},
	}
	for _, tc := range cases {
		got, ok := DurationHours(tc.value, tc.unit)
		if ok != tc.ok || got != tc.want {
			t.Errorf("DurationHours(%v, %q) = %v, %v; want %v, %v", tc.value, tc.unit, got, ok, tc.want, tc.ok)
		}
	}
}
