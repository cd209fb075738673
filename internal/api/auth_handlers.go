package api

import (
	"net/http"

	"topdivers/internal/apiclient"
	"topdivers/internal/auth"
	"topdivers/internal/models"

	"github.com/rs/zerolog"
)

type loginForm struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	Redirect        string `json:"redirect"`
}

type registerForm struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Username string `json:"username" validate:"omitempty,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

type sessionResponse struct {
	UserType string           `json:"user_type"`
	User     *models.AuthUser `json:"user"`
	Redirect string           `json:"redirect"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if !s.readForm(w, r, &form) {
		return
	}
	if !s.allowLogin(r, models.UserTypeUser) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	resp, err := s.deps.Auth.Login(r.Context(), apiclient.LoginRequest{
		UsernameOrEmail: form.UsernameOrEmail,
		Password:        form.Password,
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	if resp.User == nil || resp.BearerToken() == "" {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.resetLogin(r, models.UserTypeUser)

	state := auth.NewUserState(resp.User, resp.BearerToken(), s.now())
	s.startSession(w, r, state, auth.SafeRedirect(form.Redirect, auth.ProfilePath))
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if !s.readForm(w, r, &form) {
		return
	}
	if !s.allowLogin(r, models.UserTypeAdmin) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	resp, err := s.deps.Auth.AdminLogin(r.Context(), apiclient.LoginRequest{
		UsernameOrEmail: form.UsernameOrEmail,
		Password:        form.Password,
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	if resp.Admin == nil || resp.BearerToken() == "" {
		writeError(w, http.StatusUnauthorized, "Invalid admin credentials")
		return
	}
	s.resetLogin(r, models.UserTypeAdmin)

	state := auth.NewAdminState(resp.Admin, resp.BearerToken(), s.now())
	s.startSession(w, r, state, auth.SafeRedirect(form.Redirect, auth.AdminDashboardPath))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if !s.readForm(w, r, &form) {
		return
	}

	resp, err := s.deps.Auth.Register(r.Context(), apiclient.RegisterRequest{
		FullName: form.FullName,
		Username: form.Username,
		Email:    form.Email,
		Phone:    form.Phone,
		Password: form.Password,
	})
	if err != nil {
		writeBackendError(w, r, err)
		return
	}

	if resp.User == nil || resp.BearerToken() == "" {
		// account created, the customer logs in separately
		if wantsJSON(r) {
			writeJSON(w, http.StatusCreated, map[string]string{"detail": "Account created", "redirect": auth.LoginPath})
			return
		}
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}
	state := auth.NewUserState(resp.User, resp.BearerToken(), s.now())
	s.startSession(w, r, state, auth.ProfilePath)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Cookie.Clear(w)
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// startSession stores state in the auth cookie and sends the browser on.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, state *models.AuthState, target string) {
	if err := s.deps.Cookie.WriteState(w, state); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("write auth cookie")
		writeError(w, http.StatusInternalServerError, apiclient.GenericMessage)
		return
	}
	if s.deps.Gate != nil {
		s.deps.Gate.RecordLogin(r.Context(), state)
	}
	zerolog.Ctx(r.Context()).Info().
		Str("user_type", state.UserType).
		Int64("user_id", state.Principal().ID).
		Msg("login")

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, sessionResponse{UserType: state.UserType, User: state.Principal(), Redirect: target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// readForm decodes and validates dst, writing the 400 itself on failure.
func (s *Server) readForm(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeInput(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if errs := s.validate.Struct(dst); errs != nil {
		writeValidation(w, "Invalid input", errs)
		return false
	}
	return true
}
