package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/response"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

type AuthHandler struct {
	service      domain.AuthService
	auth         *middleware.Authenticator
	limit        func(http.Handler) http.Handler
	cookieTTL    time.Duration
	cookieSecure bool
	logger       logger.Logger
}

type AuthHandlerConfig struct {
	CookieTTL    time.Duration
	CookieSecure bool
	// RateLimit wraps the credential endpoints; nil disables limiting.
	RateLimit func(http.Handler) http.Handler
}

func NewAuthHandler(service domain.AuthService, auth *middleware.Authenticator, cfg AuthHandlerConfig, logger logger.Logger) *AuthHandler {
	limit := cfg.RateLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	return &AuthHandler{
		service:      service,
		auth:         auth,
		limit:        limit,
		cookieTTL:    cfg.CookieTTL,
		cookieSecure: cfg.CookieSecure,
		logger:       logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password,max=72"`
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Role     string `json:"role" validate:"omitempty,oneof=BUYER SELLER ADMIN"`
}

// loginRequest accepts the account by email, username or a generic
// identifier holding either.
type loginRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Identifier string `json:"identifier"`
	Password   string `json:"password" validate:"required"`
}

func (l loginRequest) identifier() string {
	switch {
	case l.Identifier != "":
		return l.Identifier
	case l.Email != "":
		return l.Email
	default:
		return l.Username
	}
}

type updateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Username  *string `json:"username" validate:"omitempty,username"`
	FullName  *string `json:"fullName" validate:"omitempty,min=2,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,len=0|phone"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,len=0|url"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password,max=72"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.Register(r.Context(), domain.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	response.Created(w, "Registration successful", result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	identifier := strings.TrimSpace(req.identifier())
	if identifier == "" {
		response.Error(w, r, h.logger, domain.NewValidationError("Validation failed",
			domain.FieldError{Field: "email", Message: "email or username is required"}))
		return
	}

	result, err := h.service.Login(r.Context(), identifier, req.Password)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	response.OK(w, "Login successful", result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	response.OK(w, "Logged out", nil)
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetProfile(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), middleware.UserID(r.Context()), domain.ProfilePatch{
		Email:     req.Email,
		Username:  req.Username,
		FullName:  req.FullName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Address:   req.Address,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Profile updated", user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), middleware.UserID(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Password changed", nil)
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(h.limit).Post("/register", h.Register)
		r.With(h.limit).Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireAuth)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Put("/change-password", h.ChangePassword)
		})
	})
}
