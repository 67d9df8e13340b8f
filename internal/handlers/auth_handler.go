package handlers

import (
	"log/slog"
	"net/http"

	"github.com/shrdaa/backend/internal/middleware"
	"github.com/shrdaa/backend/internal/models"
	"github.com/shrdaa/backend/internal/services"
)

type AuthHandler struct {
	service   *services.AuthService
	validator *services.ValidationHelper
	logger    *slog.Logger
}

func NewAuthHandler(service *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		logger:    logger.With("module", "auth"),
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	AccountNo string `json:"account_no" validate:"required" example:"A00001"`
	Password  string `json:"password" validate:"required" example:"password123"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token   string         `json:"token"`
	Account models.Account `json:"account"`
}

// Login authenticates an account
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Login attempt", "remote_addr", r.RemoteAddr)

	var req LoginRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	token, acc, err := h.service.Login(r.Context(), req.AccountNo, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, Account: acc})
}

// Logout revokes the bearer token
// @Summary Logout
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
