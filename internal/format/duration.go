// Package format renders activity attributes for display.
package format

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultFallback is returned for a missing or invalid duration.
const DefaultFallback = "Not specified"

type options struct {
	short    bool
	fallback string
}

type Option func(*options)

// ShortFormat renders "3d" instead of "3 days".
func ShortFormat() Option {
	return func(o *options) { o.short = true }
}

// WithFallback overrides DefaultFallback.
func WithFallback(s string) Option {
	return func(o *options) { o.fallback = s }
}

var shortUnits = map[string]string{
	"minute": "m",
	"hour":   "h",
	"day":    "d",
	"night":  "n",
	"week":   "w",
	"month":  "mo",
}

// FormatDuration renders a duration value with a unit such as "day/s" or
// "hour". The value may be any JSON-decoded number or numeric string.
func FormatDuration(value any, unit string, opts ...Option) string {
	o := options{fallback: DefaultFallback}
	for _, opt := range opts {
		opt(&o)
	}

	n, ok := toNumber(value)
	if !ok || n <= 0 {
		return o.fallback
	}

	singular, plural := unitForms(unit)
	num := strconv.FormatFloat(n, 'f', -1, 64)

	if o.short {
		code, ok := shortUnits[singular]
		if !ok && singular != "" {
			r, _ := utf8.DecodeRuneInString(singular)
			code = string(r)
		}
		return num + code
	}
	if singular == "" {
		return num
	}
	if n == 1 {
		return num + " " + singular
	}
	return num + " " + plural
}

// unitForms splits "day/s", "days" or "day" into its singular and plural.
func unitForms(unit string) (string, string) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return "", ""
	}
	if base, suffix, ok := strings.Cut(u, "/"); ok {
		base = strings.TrimSpace(base)
		return base, base + strings.TrimSpace(suffix)
	}
	if strings.HasSuffix(u, "s") && len(u) > 1 {
		if _, known := shortUnits[strings.TrimSuffix(u, "s")]; known {
			return strings.TrimSuffix(u, "s"), u
		}
	}
	return u, u + "s"
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var unitHours = map[string]float64{
	"minute": 1.0 / 60,
	"hour":   1,
	"day":    24,
	"night":  24,
	"week":   24 * 7,
	"month":  24 * 30,
}

// DurationHours converts a duration to hours so activities can be ordered
// by length. Unknown units count as hours.
func DurationHours(value any, unit string) (float64, bool) {
	n, ok := toNumber(value)
	if !ok || n <= 0 {
		return 0, false
	}
	singular, _ := unitForms(unit)
	factor, known := unitHours[singular]
	if !known {
		factor = 1
	}
	return n * factor, true
}
