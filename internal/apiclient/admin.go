package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"topdivers/internal/invoice"
	"topdivers/internal/models"
)

// InvoiceFilter narrows the admin invoice list.
type InvoiceFilter struct {
	Status   string
	Activity string
	From     string
	To       string
}

func (f InvoiceFilter) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Activity != "" {
		q.Set("activity", f.Activity)
	}
	if f.From != "" {
		q.Set("start_date", f.From)
	}
	if f.To != "" {
		q.Set("end_date", f.To)
	}
	return q
}

// CreateInvoice submits a booking. The backend rejects amounts that differ
// from its own computation; see invoice.IsAmountMismatch.
func (c *Client) CreateInvoice(ctx context.Context, p invoice.Payload) (*models.Invoice, error) {
	var inv models.Invoice
	if err := c.post(ctx, "/invoices/", p, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	if err := c.get(ctx, fmt.Sprintf("/invoices/%d", id), &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	return getList[models.Invoice](ctx, c, withQuery("/invoices/", f.query()), false)
}

func (c *Client) MarkPickedUp(ctx context.Context, id int64, pickedUp bool) (*models.Invoice, error) {
	var inv models.Invoice
	body := map[string]bool{"picked_up": pickedUp}
	if err := c.patch(ctx, fmt.Sprintf("/invoices/%d/picked-up", id), body, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return getList[models.Coupon](ctx, c, "/coupons/", false)
}

func (c *Client) CreateCoupon(ctx context.Context, coupon models.Coupon) (*models.Coupon, error) {
	var out models.Coupon
	if err := c.post(ctx, "/coupons/", coupon, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCoupon(ctx context.Context, id int64, coupon models.Coupon) (*models.Coupon, error) {
	var out models.Coupon
	if err := c.put(ctx, fmt.Sprintf("/coupons/%d", id), coupon, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCoupon(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/coupons/%d", id))
}

func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	return getList[models.Notification](ctx, c, "/notifications/", false)
}

func (c *Client) CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error) {
	var out models.Notification
	if err := c.post(ctx, "/notifications/", n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAvailability lists the configured dates for one activity.
func (c *Client) GetAvailability(ctx context.Context, activityType string, activityID int64) ([]models.Availability, error) {
	path := fmt.Sprintf("/activity-availability/%s/%d", url.PathEscape(activityType), activityID)
	return getList[models.Availability](ctx, c, path, false)
}

func (c *Client) SetAvailability(ctx context.Context, a models.Availability) (*models.Availability, error) {
	var out models.Availability
	if err := c.post(ctx, "/activity-availability/", a, &out); err != nil {
		return nil, err
	}
	// Cached detail pages carry the activity's open days.
	c.InvalidateCache(ctx, fmt.Sprintf("/%ss/%d", strings.ToLower(a.ActivityType), a.ActivityID))
	return &out, nil
}

func (c *Client) AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	var out models.AnalyticsSummary
	if err := c.get(ctx, "/analytics/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
