// Package coupon normalizes and validates the admin coupon form.
package coupon

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"topdivers/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	StateActive    = "active"
	StateInactive  = "inactive"
	StateExpired   = "expired"
	StateExhausted = "exhausted"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// Form is the admin create/update coupon form.
type Form struct {
	Code               string  `json:"code" validate:"required,min=3,max=32,coupon_code"`
	Activity           string  `json:"activity" validate:"required,oneof=trip course all"`
	DiscountPercentage float64 `json:"discount_percentage" validate:"gte=0,lte=100"`
	CanUsedUpTo        int     `json:"can_used_up_to" validate:"gte=0"`
	UserLimit          int     `json:"user_limit" validate:"gte=0"`
	IsActive           bool    `json:"is_active"`
	ExpireDate         string  `json:"expire_date" validate:"omitempty,datetime=2006-01-02"`
}

// FieldErrors maps json field names to a message, rendered inline by forms.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for k, v := range fe {
		parts = append(parts, k+": "+v)
	}
	return "invalid coupon: " + strings.Join(parts, ", ")
}

// Validator checks coupon forms. It is safe for concurrent use.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("coupon_code", func(fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v, now: time.Now}
}

// Normalize uppercases and trims the code and lowercases the activity.
func (f *Form) Normalize() {
	f.Code = strings.ToUpper(strings.TrimSpace(f.Code))
	f.Activity = strings.ToLower(strings.TrimSpace(f.Activity))
	if f.Activity == "" {
		f.Activity = models.ActivityAll
	}
	f.ExpireDate = strings.TrimSpace(f.ExpireDate)
}

// Validate normalizes f and returns FieldErrors when it is invalid.
func (val *Validator) Validate(f *Form) error {
	f.Normalize()

	errs := FieldErrors{}
	if err := val.v.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate coupon: %w", err)
		}
		for _, fe := range verrs {
			errs[fe.Field()] = message(fe)
		}
	}

	if _, bad := errs["expire_date"]; !bad && f.ExpireDate != "" {
		exp, _ := time.Parse("2006-01-02", f.ExpireDate)
		today := val.now().UTC().Truncate(24 * time.Hour)
		if exp.Before(today) {
			errs["expire_date"] = "must not be in the past"
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToCoupon converts a validated form into the backend record.
func (f Form) ToCoupon() models.Coupon {
	return models.Coupon{
		Code:               f.Code,
		Activity:           f.Activity,
		DiscountPercentage: f.DiscountPercentage,
		CanUsedUpTo:        f.CanUsedUpTo,
		UserLimit:          f.UserLimit,
		IsActive:           f.IsActive,
		ExpireDate:         f.ExpireDate,
	}
}

// State classifies a coupon for the admin list.
func State(c models.Coupon, now time.Time) string {
	if exp, ok := c.ExpiresAt(); ok && now.After(exp) {
		return StateExpired
	}
	if c.CanUsedUpTo > 0 && c.UsedCount >= c.CanUsedUpTo {
		return StateExhausted
	}
	if !c.IsActive {
		return StateInactive
	}
	return StateActive
}

// Usable reports whether c can still be applied to activity.
func Usable(c models.Coupon, activity string, now time.Time) bool {
	if State(c, now) != StateActive {
		return false
	}
	return c.Activity == "" || c.Activity == models.ActivityAll || c.Activity == activity
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "coupon_code":
		return "may contain only letters, digits, '-' and '_'"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be " + fe.Param() + " or more"
	case "lte":
		return "must be " + fe.Param() + " or less"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	default:
		return "is invalid"
	}
}
