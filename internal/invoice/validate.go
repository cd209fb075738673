package invoice

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"topdivers/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationResult lists every violation found in a payload.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (r ValidationResult) Error() string {
	return strings.Join(r.Errors, "; ")
}

// Validate checks a payload before it is sent to the backend.
func Validate(p Payload) ValidationResult {
	var errs []string

	if strings.TrimSpace(p.BuyerName) == "" {
		errs = append(errs, "buyer name is required")
	}
	switch {
	case strings.TrimSpace(p.BuyerEmail) == "":
		errs = append(errs, "buyer email is required")
	case validate.Var(p.BuyerEmail, "email") != nil:
		errs = append(errs, "buyer email is invalid")
	}

	switch p.Activity {
	case models.ActivityTrip:
		errs = append(errs, validateTrip(p.ActivityDetails)...)
	case models.ActivityCourse:
		errs = append(errs, validateCourse(p.ActivityDetails)...)
	default:
		errs = append(errs, fmt.Sprintf("unknown activity %q", p.Activity))
	}

	if p.Amount <= 0 {
		errs = append(errs, "amount must be greater than zero")
	}
	if p.InvoiceType != models.InvoiceTypeOnline && p.InvoiceType != models.InvoiceTypeCash {
		errs = append(errs, fmt.Sprintf("invalid invoice type %q", p.InvoiceType))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateTrip(details []models.ActivityDetail) []string {
	if len(details) == 0 {
		return []string{"trip details are required"}
	}
	var errs []string
	for i, d := range details {
		prefix := ""
		if len(details) > 1 {
			prefix = fmt.Sprintf("activity %d: ", i+1)
		}
		if d.TripID <= 0 {
			errs = append(errs, prefix+"trip_id is required")
		}
		if d.Adults < 1 {
			errs = append(errs, prefix+"at least one adult is required")
		}
		if d.Children < 0 {
			errs = append(errs, prefix+"children cannot be negative")
		}
		if strings.TrimSpace(d.ActivityDate) == "" {
			errs = append(errs, prefix+"activity date is required")
		}
	}
	return errs
}

func validateCourse(details []models.ActivityDetail) []string {
	if len(details) == 0 {
		return []string{"course details are required"}
	}
	var errs []string
	for i, d := range details {
		prefix := ""
		if len(details) > 1 {
			prefix = fmt.Sprintf("activity %d: ", i+1)
		}
		if d.CourseID <= 0 {
			errs = append(errs, prefix+"course_id is required")
		}
		if d.People < 0 {
			errs = append(errs, prefix+"number of people cannot be negative")
		}
	}
	return errs
}

// statusError is satisfied by backend client errors.
type statusError interface {
	error
	Status() int
	Message() string
}

// IsAmountMismatch reports whether err is the backend rejecting an invoice
// because the submitted amount differs from its own computation.
func IsAmountMismatch(err error) bool {
	var se statusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Status() {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
	default:
		return false
	}
	msg := strings.ToLower(se.Message())
	if !strings.Contains(msg, "amount") {
		return false
	}
	return strings.Contains(msg, "mismatch") || strings.Contains(msg, "does not match") ||
		strings.Contains(msg, "doesn't match")
}
