package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dentora/dentora-backend/internal/auth/service"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService   *service.AuthService
	signupService *service.SignupService
	logger        *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService, signupSvc *service.SignupService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authSvc,
		signupService: signupSvc,
		logger:        log,
	}
}

// PublicRoutes mounts the unauthenticated auth routes
func (h *AuthHandler) PublicRoutes(r chi.Router) {
	r.Post("/register-clinic", h.RegisterClinic)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
}

// ProtectedRoutes mounts the authenticated auth routes
func (h *AuthHandler) ProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
	r.Post("/logout-all", h.LogoutAll)
	r.Get("/me", h.Me)
}

// RegisterClinic handles clinic self-registration
func (h *AuthHandler) RegisterClinic(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterClinicRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	resp, err := h.signupService.RegisterClinic(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, resp)
}

// Login handles email and password login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req, r.UserAgent(), remoteIP(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh rotates the refresh token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken, r.UserAgent(), remoteIP(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tokens)
}

// LogoutRequest represents a logout request
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	// Body is optional: logout with just the access token still
	// denylists it.
	_ = httputil.DecodeJSON(r, &req)

	accessToken := bearerToken(r)
	if err := h.authService.Logout(r.Context(), accessToken, req.RefreshToken); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// LogoutAll revokes every session of the current user
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	if err := h.authService.LogoutAll(r.Context(), userID); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	user, err := h.authService.CurrentUser(r.Context(), userID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
