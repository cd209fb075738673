package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"topdivers/internal/format"
	"topdivers/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.Filter{
		Search:       q.Get("search"),
		Sort:         q.Get("sort"),
		ZeroLabel:    q.Get("zero_label"),
		DiscountOnly: parseBool(q.Get("discount")),
	}
	if raw := q.Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "max_price must be a positive number")
			return
		}
		f.MaxPrice = v
	}
	if raw := q.Get("people"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "people must be a positive integer")
			return
		}
		f.PartySize = v
	}

	items, err := s.deps.Catalog.List(r.Context(), chi.URLParam(r, "kind"), f)
	switch {
	case errors.Is(err, service.ErrUnknownKind):
		writeError(w, http.StatusNotFound, "Not found")
		return
	case errors.Is(err, service.ErrUnknownSort):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeBackendError(w, r, err)
		return
	}
	if items == nil {
		items = []service.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := s.deps.Catalog.PackageDetail(r.Context(), id)
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req service.QuoteRequest
	if err := decodeInput(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := s.deps.Checkout.Quote(r.Context(), req)
	if errors.Is(err, service.ErrUnknownActivity) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, unit := q.Get("value"), q.Get("unit")

	var opts []format.Option
	if parseBool(q.Get("short")) {
		opts = append(opts, format.ShortFormat())
	}
	if fb := q.Get("fallback"); fb != "" {
		opts = append(opts, format.WithFallback(fb))
	}

	resp := map[string]any{"text": format.FormatDuration(value, unit, opts...)}
	if hours, ok := format.DurationHours(value, unit); ok {
		resp["hours"] = hours
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.deps.Content.Home(r.Context())
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	dates, err := s.deps.Content.AvailableDates(r.Context(), chi.URLParam(r, "activity"), id)
	switch {
	case errors.Is(err, service.ErrUnknownActivity):
		writeError(w, http.StatusNotFound, "Not found")
		return
	case err != nil:
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
