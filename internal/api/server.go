package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"topdivers/internal/apiclient"
	"topdivers/internal/auth"
	"topdivers/internal/config"
	"topdivers/internal/domain"
	"topdivers/internal/models"
	"topdivers/internal/service"
	"topdivers/internal/sitemap"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AuthAPI is the slice of the backend the login and account pages use.
type AuthAPI interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.LoginResponse, error)
	AdminLogin(ctx context.Context, req apiclient.LoginRequest) (*apiclient.LoginResponse, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.LoginResponse, error)
	Me(ctx context.Context) (*models.AuthUser, error)
	MyInvoices(ctx context.Context) ([]models.Invoice, error)
}

// LedgerQueue is the invoice ledger sync queue, absent when the ledger is
// not configured.
type LedgerQueue interface {
	Stats(ctx context.Context) (map[string]int, error)
	RequeueFailed(ctx context.Context) (int, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Auth     AuthAPI
	Catalog  *service.CatalogService
	Content  *service.ContentService
	Checkout *service.CheckoutService
	Payments *service.PaymentService
	Coupons  *service.CouponService
	Admin    *service.AdminService
	Sitemap  *sitemap.Generator
	Gate     *auth.Gate
	Cookie   auth.CookieConfig
	Attempts domain.AuthRepository
	Ledger   LedgerQueue
	Checks   map[string]func(context.Context) error

	// ExportDir keeps a copy of every invoice export when set.
	ExportDir string
}

// Server is the storefront HTTP server.
type Server struct {
	httpCfg  config.HTTPConfig
	authCfg  config.AuthConfig
	deps     Deps
	logger   *zerolog.Logger
	limiter  *rateLimiter
	validate *formValidator
	server   *http.Server
	now      func() time.Time
}

func NewServer(httpCfg config.HTTPConfig, authCfg config.AuthConfig, deps Deps, logger *zerolog.Logger) *Server {
	s := &Server{
		httpCfg:  httpCfg,
		authCfg:  authCfg,
		deps:     deps,
		logger:   logger,
		limiter:  newRateLimiter(httpCfg.RateLimit),
		validate: newFormValidator(),
		now:      time.Now,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", httpCfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler builds the router with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		requestID(s.logger),
		accessLog,
		middleware.Recoverer,
		securityHeaders(s.httpCfg.PublicBaseURL),
		s.limiter.middleware,
		countRequests,
	)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/sitemap.xml", s.handleSitemap)

	r.Group(func(r chi.Router) {
		if s.deps.Gate != nil {
			r.Use(s.deps.Gate.Middleware)
		}
		r.Use(backendToken)

		r.Post(auth.LoginPath, s.handleLogin)
		r.Post(auth.RegisterPath, s.handleRegister)
		r.Post(auth.AdminLoginPath, s.handleAdminLogin)
		r.Post("/logout", s.handleLogout)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/home", s.handleHome)
			r.Get("/availability/{activity}/{id}", s.handleAvailability)
			r.Get("/packages/{id}", s.handlePackage)
			r.Get("/duration", s.handleDuration)
			r.Post("/quote", s.handleQuote)
			r.Get("/{kind}", s.handleCatalog)
		})

		r.Post("/book", s.handleBookTrip)
		r.Post("/enroll", s.handleEnrollCourse)
		r.Get("/payment/status", s.handlePaymentStatus)
		r.Get(auth.ProfilePath, s.handleProfile)
		r.Get("/invoices", s.handleMyInvoices)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/coupons", s.handleListCoupons)
			r.Post("/coupons", s.handleCreateCoupon)
			r.Put("/coupons/{id}", s.handleUpdateCoupon)
			r.Delete("/coupons/{id}", s.handleDeleteCoupon)
			r.Get("/invoices", s.handleAdminInvoices)
			r.Get("/invoices/export", s.handleExportInvoices)
			r.Patch("/invoices/{id}/picked-up", s.handlePickedUp)
			r.Get("/notifications", s.handleListNotifications)
			r.Post("/notifications", s.handleNotification)
			r.Put("/availability", s.handleSetAvailability)
			r.Get("/ledger", s.handleLedgerStats)
			r.Post("/ledger/requeue", s.handleLedgerRequeue)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("storefront listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"checks": results})
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.deps.Sitemap.Generate(r.Context()))
}
