package service

import (
	"context"

	"topdivers/internal/models"
)

const (
	PaymentPaid    = "paid"
	PaymentPending = "pending"
	PaymentFailed  = "failed"
)

// PaymentStatus is the data behind the payment return page.
type PaymentStatus struct {
	InvoiceID int64           `json:"invoice_id"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Invoice   *models.Invoice `json:"invoice"`
}

type PaymentService struct {
	api InvoiceAPI
}

func NewPaymentService(api InvoiceAPI) *PaymentService {
	return &PaymentService{api: api}
}

// Status reads the invoice back from the backend; the provider's redirect
// parameters are not trusted.
func (s *PaymentService) Status(ctx context.Context, invoiceID int64) (*PaymentStatus, error) {
	inv, err := s.api.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	status := PaymentOutcome(inv.Status)
	return &PaymentStatus{
		InvoiceID: inv.ID,
		Status:    status,
		Message:   paymentMessages[status],
		Invoice:   inv,
	}, nil
}

var paymentMessages = map[string]string{
	PaymentPaid:    "Payment received. Your booking is confirmed.",
	PaymentPending: "Your payment is being processed.",
	PaymentFailed:  "Payment failed or was canceled.",
}

// PaymentOutcome folds an invoice status into paid, pending or failed.
func PaymentOutcome(invoiceStatus string) string {
	switch invoiceStatus {
	case models.InvoiceStatusPaid:
		return PaymentPaid
	case models.InvoiceStatusFailed, models.InvoiceStatusCanceled:
		return PaymentFailed
	default:
		return PaymentPending
	}
}
