package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-auth/internal/api/dto"
	"github.com/spec-kit/staff-auth/internal/auth"
	"github.com/spec-kit/staff-auth/internal/domain"
	"github.com/spec-kit/staff-auth/internal/observability"
	"github.com/spec-kit/staff-auth/internal/service"
	apperrors "github.com/spec-kit/staff-auth/pkg/util"
)

// StaffHandler exposes staff authentication endpoints.
type StaffHandler struct {
	authService    *service.AuthService
	sessionService *service.SessionService
	metrics        *observability.Metrics
	sessionTTL     int64
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, sessionService *service.SessionService, metrics *observability.Metrics, sessionTTL int64) *StaffHandler {
	return &StaffHandler{
		authService:    authService,
		sessionService: sessionService,
		metrics:        metrics,
		sessionTTL:     sessionTTL,
	}
}

// Auth handles POST /staff/auth.
func (h *StaffHandler) Auth(c *fiber.Ctx) error {
	var req dto.StaffAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Login == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "login and password required")
	}

	session, err := h.authService.Authenticate(c.UserContext(), req.Login, req.Password, h.sessionTTL)
	if err != nil {
		h.metrics.RecordAuthAttempt(false)
		return err
	}
	h.metrics.RecordAuthAttempt(true)

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{Token: session.Token, ExpireAt: session.ExpireAt},
	})
}

// Add handles POST /staff/add. The supplied email doubles as the login,
// matching how accounts are looked up at authentication time.
func (h *StaffHandler) Add(c *fiber.Ctx) error {
	var req dto.StaffAddRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, err := h.authService.Register(c.UserContext(), req.Email, req.Email, req.Password, req.ProjectID)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(user)})
}

// Logout handles POST /staff/logout. Locks the presented session so it is
// invalid immediately, regardless of remaining lifetime.
func (h *StaffHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	locked, err := h.sessionService.Lock(c.UserContext(), principal.Session)
	if err != nil {
		return err
	}
	if !locked {
		return apperrors.NewNotFound("session")
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

func staffResponse(user *domain.StaffUser) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        user.ID,
		ProjectID: user.ProjectID,
		Email:     user.Email,
		Login:     user.Login,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}
}
