package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"topdivers/internal/domain"
	"topdivers/internal/events"
	"topdivers/internal/invoice"
	"topdivers/internal/metrics"
	"topdivers/internal/models"
	"topdivers/internal/pricing"

	"github.com/rs/zerolog"
)

// InvoiceAPI is the part of the backend the checkout flow calls.
type InvoiceAPI interface {
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	CreateInvoice(ctx context.Context, p invoice.Payload) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
}

type BookTripRequest struct {
	TripID          int64         `json:"trip_id"`
	Buyer           invoice.Buyer `json:"buyer"`
	Adults          int           `json:"adults"`
	Children        int           `json:"children"`
	ActivityDate    string        `json:"activity_date"`
	HotelName       string        `json:"hotel_name"`
	RoomNumber      string        `json:"room_number"`
	SpecialRequests string        `json:"special_requests"`
	CouponCode      string        `json:"coupon_code"`
	InvoiceType     string        `json:"invoice_type"`
	Currency        string        `json:"currency"`
}

type EnrollCourseRequest struct {
	CourseID        int64         `json:"course_id"`
	Buyer           invoice.Buyer `json:"buyer"`
	People          int           `json:"number_of_people"`
	ActivityDate    string        `json:"activity_date"`
	SpecialRequests string        `json:"special_requests"`
	CouponCode      string        `json:"coupon_code"`
	InvoiceType     string        `json:"invoice_type"`
	Currency        string        `json:"currency"`
}

// CheckoutResult is the created invoice with the quote it was built from.
type CheckoutResult struct {
	Invoice *models.Invoice `json:"invoice"`
	Quote   pricing.Quote   `json:"quote"`
}

type CheckoutService struct {
	api    InvoiceAPI
	events domain.EventPublisher
	logger *zerolog.Logger
}

func NewCheckoutService(api InvoiceAPI, publisher domain.EventPublisher, logger *zerolog.Logger) *CheckoutService {
	return &CheckoutService{api: api, events: publisher, logger: logger}
}

// BookTrip prices the party, validates the payload and creates the invoice.
// A ValidationResult is returned when the payload is rejected locally.
func (s *CheckoutService) BookTrip(ctx context.Context, req BookTripRequest) (*CheckoutResult, error) {
	trip := models.Trip{}
	if req.TripID != 0 {
		t, err := s.api.GetTrip(ctx, req.TripID)
		if err != nil {
			return nil, err
		}
		trip = *t
	}

	payload := invoice.NewTripPayload(invoice.TripBooking{
		Trip:            trip,
		Buyer:           req.Buyer,
		Adults:          req.Adults,
		Children:        req.Children,
		ActivityDate:    req.ActivityDate,
		HotelName:       req.HotelName,
		RoomNumber:      req.RoomNumber,
		SpecialRequests: req.SpecialRequests,
		CouponCode:      req.CouponCode,
		InvoiceType:     req.InvoiceType,
		Currency:        req.Currency,
	})
	quote := pricing.QuoteTrip(trip, req.Adults, req.Children)
	return s.submit(ctx, payload, quote, trip.ID)
}

// EnrollCourse is BookTrip for courses.
func (s *CheckoutService) EnrollCourse(ctx context.Context, req EnrollCourseRequest) (*CheckoutResult, error) {
	course := models.Course{}
	if req.CourseID != 0 {
		c, err := s.api.GetCourse(ctx, req.CourseID)
		if err != nil {
			return nil, err
		}
		course = *c
	}

	people := req.People
	if people == 0 {
		people = 1
	}
	payload := invoice.NewCoursePayload(invoice.CourseEnrollment{
		Course:          course,
		Buyer:           req.Buyer,
		People:          people,
		ActivityDate:    req.ActivityDate,
		SpecialRequests: req.SpecialRequests,
		CouponCode:      req.CouponCode,
		InvoiceType:     req.InvoiceType,
		Currency:        req.Currency,
	})
	quote := pricing.QuoteCourse(course, people)
	return s.submit(ctx, payload, quote, course.ID)
}

func (s *CheckoutService) submit(ctx context.Context, payload invoice.Payload, quote pricing.Quote, activityID int64) (*CheckoutResult, error) {
	if res := invoice.Validate(payload); !res.Valid {
		return nil, res
	}

	inv, err := s.api.CreateInvoice(ctx, payload)
	if err != nil {
		if invoice.IsAmountMismatch(err) {
			metrics.IncAmountMismatch()
			s.logger.Warn().
				Err(err).
				Str("activity", payload.Activity).
				Int64("activity_id", activityID).
				Float64("amount", payload.Amount.Float()).
				Msg("backend rejected invoice amount")
		}
		return nil, err
	}

	s.publishCreated(inv, payload, activityID)
	return &CheckoutResult{Invoice: inv, Quote: quote}, nil
}

func (s *CheckoutService) publishCreated(inv *models.Invoice, payload invoice.Payload, activityID int64) {
	if s.events == nil {
		return
	}
	ev := events.InvoiceEventPayload{
		InvoiceID:   inv.ID,
		BuyerName:   firstNonEmpty(inv.BuyerName, payload.BuyerName),
		BuyerEmail:  firstNonEmpty(inv.BuyerEmail, payload.BuyerEmail),
		Activity:    firstNonEmpty(inv.Activity, payload.Activity),
		ActivityID:  activityID,
		Amount:      inv.Amount.Float(),
		Currency:    firstNonEmpty(inv.Currency, payload.Currency),
		InvoiceType: firstNonEmpty(inv.InvoiceType, payload.InvoiceType),
		CouponCode:  firstNonEmpty(inv.CouponCode, payload.CouponCode),
		Status:      firstNonEmpty(inv.Status, models.InvoiceStatusPending),
		PickedUp:    inv.PickedUp,
		CreatedAt:   inv.CreatedAt,
	}
	if ev.Amount == 0 {
		ev.Amount = payload.Amount.Float()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if err := s.events.PublishJSON(events.EventInvoiceCreated, ev); err != nil {
		s.logger.Error().Err(err).Int64("invoice_id", inv.ID).Msg("invoice_created handlers failed")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsValidation reports whether err is a local payload rejection.
func IsValidation(err error) (invoice.ValidationResult, bool) {
	var res invoice.ValidationResult
	ok := errors.As(err, &res)
	return res, ok
}

// QuoteRequest prices a party before booking. PromoPercentage comes from a
// coupon the customer already applied.
type QuoteRequest struct {
	Activity        string  `json:"activity"`
	ActivityID      int64   `json:"activity_id"`
	Adults          int     `json:"adults"`
	Children        int     `json:"children"`
	People          int     `json:"number_of_people"`
	CouponCode      string  `json:"coupon_code"`
	PromoPercentage float64 `json:"promo_percentage"`
}

type QuoteResult struct {
	Quote      pricing.Quote            `json:"quote"`
	Breakdown  models.DiscountBreakdown `json:"breakdown"`
	PriceLabel string                   `json:"price_label"`
}

// Quote prices req the way BookTrip and EnrollCourse will.
func (s *CheckoutService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	var (
		quote pricing.Quote
		cfg   models.DiscountConfig
	)
	switch req.Activity {
	case models.ActivityTrip:
		trip, err := s.api.GetTrip(ctx, req.ActivityID)
		if err != nil {
			return nil, err
		}
		quote = pricing.QuoteTrip(*trip, req.Adults, req.Children)
		cfg = trip.DiscountConfig
	case models.ActivityCourse:
		course, err := s.api.GetCourse(ctx, req.ActivityID)
		if err != nil {
			return nil, err
		}
		people := req.People
		if people == 0 {
			people = 1
		}
		quote = pricing.QuoteCourse(*course, people)
		cfg = course.DiscountConfig
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivity, req.Activity)
	}

	breakdown := pricing.PreviewBreakdown(quote.Subtotal, cfg, quote.PartySize(), req.PromoPercentage, req.CouponCode)
	return &QuoteResult{
		Quote:      quote,
		Breakdown:  breakdown,
		PriceLabel: pricing.FormatPrice(breakdown.FinalPrice.Float(), models.DefaultCurrency, ""),
	}, nil
}
