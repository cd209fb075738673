package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"topdivers/internal/apiclient"
	"topdivers/internal/events"
	"topdivers/internal/invoice"
	"topdivers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func captureInvoiceEvents(bus *events.EventBus, eventType string) *[]events.InvoiceEventPayload {
	var got []events.InvoiceEventPayload
	bus.Subscribe(eventType, func(ev *events.Event) error {
		var p events.InvoiceEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		got = append(got, p)
		return nil
	})
	return &got
}

func TestCheckoutService_BookTrip(t *testing.T) {
	api := new(mockBackend)
	bus := events.NewEventBus()
	created := captureInvoiceEvents(bus, events.EventInvoiceCreated)
	svc := NewCheckoutService(api, bus, &testLogger)

	trip := &models.Trip{
		ID: 7, Name: "Reef Safari", AdultPrice: 1000,
		DiscountConfig: models.DiscountConfig{HasDiscount: true, DiscountPercentage: 10, RequiresMinPeople: true, MinPeople: 3},
	}
	api.On("GetTrip", mock.Anything, int64(7)).Return(trip, nil)
	api.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(p invoice.Payload) bool {
		return p.Activity == models.ActivityTrip &&
			p.Amount == 2700 &&
			p.CouponCode == "SUMMER" &&
			len(p.ActivityDetails) == 1 &&
			p.ActivityDetails[0].TripID == 7 &&
			p.ActivityDetails[0].Adults == 2 &&
			p.ActivityDetails[0].Children == 1
	})).Return(&models.Invoice{
		ID: 55, BuyerName: "Mona", Amount: 2700, Currency: "EGP", Status: models.InvoiceStatusPending,
		Activity: models.ActivityTrip, CreatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}, nil)

	res, err := svc.BookTrip(context.Background(), BookTripRequest{
		TripID:       7,
		Buyer:        invoice.Buyer{Name: "Mona", Email: "mona@example.com"},
		Adults:       2,
		Children:     1,
		ActivityDate: "2024-06-10",
		CouponCode:   " summer ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55), res.Invoice.ID)
	assert.Equal(t, int64(2700), res.Quote.Amount())

	require.Len(t, *created, 1)
	ev := (*created)[0]
	assert.Equal(t, int64(55), ev.InvoiceID)
	assert.Equal(t, int64(7), ev.ActivityID)
	assert.Equal(t, 2700.0, ev.Amount)
	assert.Equal(t, "mona@example.com", ev.BuyerEmail)
	assert.Equal(t, models.InvoiceTypeOnline, ev.InvoiceType)
	api.AssertExpectations(t)
}

func TestCheckoutService_ValidationStopsBeforeBackend(t *testing.T) {
	api := new(mockBackend)
	svc := NewCheckoutService(api, nil, &testLogger)

	api.On("GetTrip", mock.Anything, int64(7)).Return(&models.Trip{ID: 7, AdultPrice: 1000}, nil)

	_, err := svc.BookTrip(context.Background(), BookTripRequest{
		TripID: 7,
		Buyer:  invoice.Buyer{Name: "Mona", Email: "not-an-email"},
		Adults: 1,
	})
	require.Error(t, err)
	res, ok := IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, res.Errors, "buyer email is invalid")
	assert.Contains(t, res.Errors, "activity date is required")
	api.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestCheckoutService_AmountMismatch(t *testing.T) {
	api := new(mockBackend)
	bus := events.NewEventBus()
	created := captureInvoiceEvents(bus, events.EventInvoiceCreated)
	svc := NewCheckoutService(api, bus, &testLogger)

	api.On("GetCourse", mock.Anything, int64(4)).Return(&models.Course{ID: 4, Name: "Open Water", Price: 5000}, nil)
	api.On("CreateInvoice", mock.Anything, mock.Anything).Return(nil, &apiclient.APIError{
		StatusCode: 422,
		Detail:     "Amount mismatch: expected 4500",
	})

	_, err := svc.EnrollCourse(context.Background(), EnrollCourseRequest{
		CourseID: 4,
		Buyer:    invoice.Buyer{Name: "Omar", Email: "omar@example.com"},
	})
	require.Error(t, err)
	assert.True(t, invoice.IsAmountMismatch(err))
	_, isValidation := IsValidation(err)
	assert.False(t, isValidation)
	assert.Empty(t, *created)
}

func TestCheckoutService_EnrollCourseDefaultsToOnePerson(t *testing.T) {
	api := new(mockBackend)
	svc := NewCheckoutService(api, nil, &testLogger)

	api.On("GetCourse", mock.Anything, int64(4)).Return(&models.Course{ID: 4, Price: 5000}, nil)
	api.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(p invoice.Payload) bool {
		return p.Amount == 5000 && p.ActivityDetails[0].People == 1 && p.InvoiceType == models.InvoiceTypeCash
	})).Return(&models.Invoice{ID: 8}, nil)

	res, err := svc.EnrollCourse(context.Background(), EnrollCourseRequest{
		CourseID:    4,
		Buyer:       invoice.Buyer{Name: "Omar", Email: "omar@example.com"},
		InvoiceType: "CASH",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.Invoice.ID)
	assert.Equal(t, 1, res.Quote.PartySize())
}

func TestCheckoutService_ActivityLookupFails(t *testing.T) {
	api := new(mockBackend)
	svc := NewCheckoutService(api, nil, &testLogger)
	api.On("GetTrip", mock.Anything, int64(99)).Return(nil, &apiclient.APIError{StatusCode: 404, Detail: "Not found"})

	_, err := svc.BookTrip(context.Background(), BookTripRequest{TripID: 99})
	assert.True(t, apiclient.IsStatus(err, 404))
}

func TestPaymentService_Status(t *testing.T) {
	cases := map[string]string{
		models.InvoiceStatusPaid:     PaymentPaid,
		models.InvoiceStatusPending:  PaymentPending,
		models.InvoiceStatusDraft:    PaymentPending,
		models.InvoiceStatusOverdue:  PaymentPending,
		models.InvoiceStatusCanceled: PaymentFailed,
		models.InvoiceStatusFailed:   PaymentFailed,
	}
	for invoiceStatus, want := range cases {
		api := new(mockBackend)
		api.On("GetInvoice", mock.Anything, int64(3)).Return(&models.Invoice{ID: 3, Status: invoiceStatus}, nil)
		svc := NewPaymentService(api)

		st, err := svc.Status(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, want, st.Status, invoiceStatus)
		assert.NotEmpty(t, st.Message)
	}

	api := new(mockBackend)
	api.On("GetInvoice", mock.Anything, int64(3)).Return(nil, errors.New("boom"))
	_, err := NewPaymentService(api).Status(context.Background(), 3)
	assert.Error(t, err)
}

func TestCheckoutService_Quote(t *testing.T) {
	api := new(mockBackend)
	svc := NewCheckoutService(api, nil, &testLogger)
	api.On("GetTrip", mock.Anything, int64(7)).Return(&models.Trip{
		ID: 7, AdultPrice: 1000,
		DiscountConfig: models.DiscountConfig{HasDiscount: true, DiscountPercentage: 10, AlwaysAvailable: true},
	}, nil)

	res, err := svc.Quote(context.Background(), QuoteRequest{
		Activity: models.ActivityTrip, ActivityID: 7, Adults: 2, CouponCode: "vip", PromoPercentage: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1800), res.Quote.Amount())
	require.NotNil(t, res.Breakdown.GroupDiscount)
	require.NotNil(t, res.Breakdown.PromoDiscount)
	assert.Equal(t, models.Amount(90), res.Breakdown.PromoDiscount.Amount)
	assert.Equal(t, models.Amount(1710), res.Breakdown.FinalPrice)
	assert.Equal(t, "1,710 EGP", res.PriceLabel)

	_, err = svc.Quote(context.Background(), QuoteRequest{Activity: "boat"})
	assert.ErrorIs(t, err, ErrUnknownActivity)
}
