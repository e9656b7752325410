package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staff-auth/internal/domain"
	apperrors "github.com/spec-kit/staff-auth/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Staff   *domain.StaffUser
	Session *domain.Session
}

// SessionSource resolves bearer tokens to sessions.
type SessionSource interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	IsValid(ctx context.Context, token string) (bool, error)
}

// StaffSource loads staff accounts by id.
type StaffSource interface {
	GetByID(ctx context.Context, id uint64) (*domain.StaffUser, error)
}

// SessionMiddleware validates opaque bearer tokens and loads principals.
type SessionMiddleware struct {
	sessions SessionSource
	staff    StaffSource
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(sessions SessionSource, staff StaffSource) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	token := parts[1]

	valid, err := m.sessions.IsValid(c.UserContext(), token)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !valid {
		return apperrors.NewUnauthorized("invalid or expired session")
	}

	session, err := m.sessions.GetByToken(c.UserContext(), token)
	if err != nil {
		if isMissing(err) {
			return apperrors.NewUnauthorized("invalid or expired session")
		}
		return apperrors.MapError(err)
	}

	staff, err := m.staff.GetByID(c.UserContext(), session.StaffID)
	if err != nil {
		if isMissing(err) {
			return apperrors.NewUnauthorized("staff not found")
		}
		return apperrors.MapError(err)
	}
	if !staff.CanAuthenticate() {
		return apperrors.NewUnauthorized("staff inactive")
	}

	c.Locals(principalKey, &Principal{Staff: staff, Session: session})
	return c.Next()
}

// isMissing matches a missing row whether it arrives as a wrapped domain
// error or as the raw repository pgx.ErrNoRows.
func isMissing(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
