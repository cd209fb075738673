package models

import (
	"strings"
	"time"
)

type Coupon struct {
	ID                 int64   `json:"id,omitempty"`
	Code               string  `json:"code"`
	Activity           string  `json:"activity"`
	DiscountPercentage float64 `json:"discount_percentage"`
	CanUsedUpTo        int     `json:"can_used_up_to"`
	UserLimit          int     `json:"user_limit"`
	IsActive           bool    `json:"is_active"`
	ExpireDate         string  `json:"expire_date"`
	UsedCount          int     `json:"used_count"`
}

var couponDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// ExpiresAt parses ExpireDate. A bare date expires at the end of that day.
func (c Coupon) ExpiresAt() (time.Time, bool) {
	raw := strings.TrimSpace(c.ExpireDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range couponDateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	return time.Time{}, false
}
