package service

import (
	"context"
	"strings"
	"time"

	"topdivers/internal/apiclient"
	"topdivers/internal/coupon"
	"topdivers/internal/domain"
	"topdivers/internal/events"
	"topdivers/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type AdminAPI interface {
	AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error)
	ListInvoices(ctx context.Context, f apiclient.InvoiceFilter) ([]models.Invoice, error)
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	MarkPickedUp(ctx context.Context, id int64, pickedUp bool) (*models.Invoice, error)
	CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error)
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	SetAvailability(ctx context.Context, a models.Availability) (*models.Availability, error)
}

// Dashboard is the admin landing page.
type Dashboard struct {
	Summary         *models.AnalyticsSummary `json:"summary"`
	PendingInvoices []models.Invoice         `json:"pending_invoices"`
	CouponStates    map[string]int           `json:"coupon_states"`
}

type AdminService struct {
	api    AdminAPI
	events domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewAdminService(api AdminAPI, publisher domain.EventPublisher, logger *zerolog.Logger) *AdminService {
	return &AdminService{api: api, events: publisher, logger: logger, now: time.Now}
}

// Dashboard loads analytics, pending invoices and coupons concurrently.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		summary *models.AnalyticsSummary
		pending []models.Invoice
		coupons []models.Coupon
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary, err = s.api.AnalyticsSummary(gctx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.api.ListInvoices(gctx, apiclient.InvoiceFilter{Status: models.InvoiceStatusPending})
		return err
	})
	g.Go(func() (err error) {
		coupons, err = s.api.ListCoupons(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	states := map[string]int{
		coupon.StateActive:    0,
		coupon.StateInactive:  0,
		coupon.StateExpired:   0,
		coupon.StateExhausted: 0,
	}
	for _, c := range coupons {
		states[coupon.State(c, now)]++
	}
	if pending == nil {
		pending = []models.Invoice{}
	}
	return &Dashboard{Summary: summary, PendingInvoices: pending, CouponStates: states}, nil
}

func (s *AdminService) Invoices(ctx context.Context, f apiclient.InvoiceFilter) ([]models.Invoice, error) {
	return s.api.ListInvoices(ctx, f)
}

// MarkPickedUp flags the invoice and tells the ledger.
func (s *AdminService) MarkPickedUp(ctx context.Context, id int64, pickedUp bool) (*models.Invoice, error) {
	inv, err := s.api.MarkPickedUp(ctx, id, pickedUp)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		ev := events.InvoiceEventPayload{
			InvoiceID: inv.ID,
			Status:    inv.Status,
			PickedUp:  inv.PickedUp,
			CreatedAt: inv.CreatedAt,
		}
		if err := s.events.PublishJSON(events.EventInvoicePickedUp, ev); err != nil {
			s.logger.Error().Err(err).Int64("invoice_id", id).Msg("invoice_picked_up handlers failed")
		}
	}
	return inv, nil
}

func (s *AdminService) Notify(ctx context.Context, n models.Notification) (*models.Notification, error) {
	return s.api.CreateNotification(ctx, n)
}

func (s *AdminService) Notifications(ctx context.Context) ([]models.Notification, error) {
	return s.api.ListNotifications(ctx)
}

// SetAvailability opens or closes one calendar day of an activity.
func (s *AdminService) SetAvailability(ctx context.Context, a models.Availability) (*models.Availability, error) {
	a.ActivityType = strings.ToLower(strings.TrimSpace(a.ActivityType))
	if a.ActivityType != models.ActivityTrip && a.ActivityType != models.ActivityCourse {
		return nil, ErrUnknownActivity
	}
	return s.api.SetAvailability(ctx, a)
}
