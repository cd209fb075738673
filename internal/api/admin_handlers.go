package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"topdivers/internal/apiclient"
	"topdivers/internal/coupon"
	"topdivers/internal/export"
	"topdivers/internal/models"
	"topdivers/internal/service"

	"github.com/rs/zerolog"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Admin.Dashboard(r.Context())
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.deps.Coupons.List(r.Context())
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	if coupons == nil {
		coupons = []service.CouponView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupons": coupons})
}

func (s *Server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var form coupon.Form
	if err := decodeInput(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c, err := s.deps.Coupons.Create(r.Context(), form)
	if s.couponError(w, r, err) {
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form coupon.Form
	if err := decodeInput(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c, err := s.deps.Coupons.Update(r.Context(), id, form)
	if s.couponError(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Coupons.Delete(r.Context(), id); err != nil {
		writeBackendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) couponError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	var fe coupon.FieldErrors
	if errors.As(err, &fe) {
		writeValidation(w, "Invalid coupon", fe)
		return true
	}
	writeBackendError(w, r, err)
	return true
}

func invoiceFilter(r *http.Request) apiclient.InvoiceFilter {
	q := r.URL.Query()
	return apiclient.InvoiceFilter{
		Status:   q.Get("status"),
		Activity: q.Get("activity"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
}

func (s *Server) handleAdminInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.deps.Admin.Invoices(r.Context(), invoiceFilter(r))
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (s *Server) handleExportInvoices(w http.ResponseWriter, r *http.Request) {
	f := invoiceFilter(r)
	var period export.Period
	for _, p := range []struct {
		raw string
		dst *time.Time
	}{{f.From, &period.From}, {f.To, &period.To}} {
		if p.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", p.raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from and to must be dates (YYYY-MM-DD)")
			return
		}
		*p.dst = t
	}

	invoices, err := s.deps.Admin.Invoices(r.Context(), f)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.InvoicesXLSX(&buf, invoices, period); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("invoice export failed")
		writeError(w, http.StatusInternalServerError, apiclient.GenericMessage)
		return
	}
	if s.deps.ExportDir != "" {
		if path, err := export.SaveInvoices(s.deps.ExportDir, invoices, period); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("invoice export archive failed")
		} else {
			zerolog.Ctx(r.Context()).Info().Str("path", path).Int("invoices", len(invoices)).Msg("invoice export archived")
		}
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+period.FileName()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handlePickedUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		PickedUp *bool `json:"picked_up"`
	}
	if err := decodeInput(w, r, &body); err != nil || body.PickedUp == nil {
		writeError(w, http.StatusBadRequest, "picked_up is required")
		return
	}
	inv, err := s.deps.Admin.MarkPickedUp(r.Context(), id, *body.PickedUp)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type notificationForm struct {
	Title    string `json:"title" validate:"required,max=120"`
	Body     string `json:"body" validate:"required"`
	IsActive bool   `json:"is_active"`
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	var form notificationForm
	if !s.readForm(w, r, &form) {
		return
	}
	n, err := s.deps.Admin.Notify(r.Context(), models.Notification{
		Title:    form.Title,
		Body:     form.Body,
		IsActive: form.IsActive,
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Admin.Notifications(r.Context())
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type availabilityForm struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	ActivityType string `json:"activity_type" validate:"required,oneof=trip course"`
	ActivityID   int64  `json:"activity_id" validate:"required,gt=0"`
	IsAvailable  bool   `json:"is_available"`
}

func (s *Server) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	var form availabilityForm
	if !s.readForm(w, r, &form) {
		return
	}
	day, err := s.deps.Admin.SetAvailability(r.Context(), models.Availability{
		Date:         form.Date,
		ActivityType: form.ActivityType,
		ActivityID:   form.ActivityID,
		IsAvailable:  form.IsAvailable,
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) handleLedgerStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "Ledger sync is disabled")
		return
	}
	stats, err := s.deps.Ledger.Stats(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("ledger stats failed")
		writeError(w, http.StatusInternalServerError, apiclient.GenericMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": stats})
}

func (s *Server) handleLedgerRequeue(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "Ledger sync is disabled")
		return
	}
	n, err := s.deps.Ledger.RequeueFailed(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("requeued", n).Msg("ledger requeue failed")
		writeError(w, http.StatusInternalServerError, apiclient.GenericMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requeued": n})
}
