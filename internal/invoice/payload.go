// Package invoice assembles and checks invoice creation requests.
package invoice

import (
	"strings"

	"topdivers/internal/models"
	"topdivers/internal/pricing"
)

// Payload is the body of POST /invoices.
type Payload struct {
	BuyerName       string                  `json:"buyer_name"`
	BuyerEmail      string                  `json:"buyer_email"`
	BuyerPhone      string                  `json:"buyer_phone,omitempty"`
	Activity        string                  `json:"activity"`
	ActivityDetails []models.ActivityDetail `json:"activity_details"`
	Amount          models.Amount           `json:"amount"`
	Currency        string                  `json:"currency"`
	InvoiceType     string                  `json:"invoice_type"`
	CouponCode      string                  `json:"coupon_code,omitempty"`
}

type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// TripBooking is what the booking form collects for a trip.
type TripBooking struct {
	Trip            models.Trip
	Buyer           Buyer
	Adults          int
	Children        int
	ActivityDate    string
	HotelName       string
	RoomNumber      string
	SpecialRequests string
	CouponCode      string
	InvoiceType     string
	Currency        string
}

// CourseEnrollment is what the enrollment form collects for a course.
type CourseEnrollment struct {
	Course          models.Course
	Buyer           Buyer
	People          int
	ActivityDate    string
	SpecialRequests string
	CouponCode      string
	InvoiceType     string
	Currency        string
}

// NormalizeCode trims and uppercases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewTripPayload builds the invoice request for a trip booking. The amount
// is the discounted party total; the server recomputes and must agree.
func NewTripPayload(b TripBooking) Payload {
	quote := pricing.QuoteTrip(b.Trip, b.Adults, b.Children)
	return Payload{
		BuyerName:  strings.TrimSpace(b.Buyer.Name),
		BuyerEmail: strings.TrimSpace(b.Buyer.Email),
		BuyerPhone: strings.TrimSpace(b.Buyer.Phone),
		Activity:   models.ActivityTrip,
		ActivityDetails: []models.ActivityDetail{{
			TripID:          b.Trip.ID,
			Name:            b.Trip.Name,
			Adults:          b.Adults,
			Children:        b.Children,
			ActivityDate:    strings.TrimSpace(b.ActivityDate),
			HotelName:       strings.TrimSpace(b.HotelName),
			RoomNumber:      strings.TrimSpace(b.RoomNumber),
			SpecialRequests: strings.TrimSpace(b.SpecialRequests),
		}},
		Amount:      models.Amount(quote.Amount()),
		Currency:    currencyOrDefault(b.Currency),
		InvoiceType: invoiceTypeOrDefault(b.InvoiceType),
		CouponCode:  NormalizeCode(b.CouponCode),
	}
}

// NewCoursePayload builds the invoice request for a course enrollment.
func NewCoursePayload(e CourseEnrollment) Payload {
	people := e.People
	if people == 0 {
		people = 1
	}
	quote := pricing.QuoteCourse(e.Course, people)
	return Payload{
		BuyerName:  strings.TrimSpace(e.Buyer.Name),
		BuyerEmail: strings.TrimSpace(e.Buyer.Email),
		BuyerPhone: strings.TrimSpace(e.Buyer.Phone),
		Activity:   models.ActivityCourse,
		ActivityDetails: []models.ActivityDetail{{
			CourseID:        e.Course.ID,
			Name:            e.Course.Name,
			People:          people,
			ActivityDate:    strings.TrimSpace(e.ActivityDate),
			SpecialRequests: strings.TrimSpace(e.SpecialRequests),
		}},
		Amount:      models.Amount(quote.Amount()),
		Currency:    currencyOrDefault(e.Currency),
		InvoiceType: invoiceTypeOrDefault(e.InvoiceType),
		CouponCode:  NormalizeCode(e.CouponCode),
	}
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return models.DefaultCurrency
	}
	return c
}

func invoiceTypeOrDefault(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return models.InvoiceTypeOnline
	}
	return t
}
