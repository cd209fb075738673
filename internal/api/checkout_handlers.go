package api

import (
	"net/http"
	"strconv"

	"topdivers/internal/auth"
	"topdivers/internal/invoice"
	"topdivers/internal/models"
	"topdivers/internal/service"
)

type checkoutResponse struct {
	Invoice *models.Invoice `json:"invoice"`
	Amount  int64           `json:"amount"`
	PayURL  string          `json:"pay_url,omitempty"`
}

func (s *Server) handleBookTrip(w http.ResponseWriter, r *http.Request) {
	var req service.BookTripRequest
	if err := decodeInput(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fillBuyer(r, &req.Buyer)

	res, err := s.deps.Checkout.BookTrip(r.Context(), req)
	s.writeCheckout(w, r, res, err)
}

func (s *Server) handleEnrollCourse(w http.ResponseWriter, r *http.Request) {
	var req service.EnrollCourseRequest
	if err := decodeInput(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fillBuyer(r, &req.Buyer)

	res, err := s.deps.Checkout.EnrollCourse(r.Context(), req)
	s.writeCheckout(w, r, res, err)
}

func (s *Server) writeCheckout(w http.ResponseWriter, r *http.Request, res *service.CheckoutResult, err error) {
	if v, ok := service.IsValidation(err); ok {
		writeValidation(w, "Invalid booking", v.Errors)
		return
	}
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		Invoice: res.Invoice,
		Amount:  res.Quote.Amount(),
		PayURL:  res.Invoice.PayURL,
	})
}

// fillBuyer defaults the buyer to the logged in customer.
func fillBuyer(r *http.Request, b *invoice.Buyer) {
	p := auth.StateFromContext(r.Context()).Principal()
	if p == nil {
		return
	}
	if b.Name == "" {
		b.Name = p.FullName
	}
	if b.Email == "" {
		b.Email = p.Email
	}
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("invoice_id")
	if raw == "" {
		raw = r.URL.Query().Get("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invoice_id is required")
		return
	}

	st, err := s.deps.Payments.Status(r.Context(), id)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	me, err := s.deps.Auth.Me(r.Context())
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	userType := models.UserTypeUser
	if state := auth.StateFromContext(r.Context()); state != nil {
		userType = state.UserType
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      me,
		"user_type": userType,
	})
}

func (s *Server) handleMyInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.deps.Auth.MyInvoices(r.Context())
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}
