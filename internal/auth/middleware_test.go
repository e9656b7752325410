package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/staff-auth/internal/api/http"
	"github.com/spec-kit/staff-auth/internal/auth"
	"github.com/spec-kit/staff-auth/internal/domain"
	apperrors "github.com/spec-kit/staff-auth/pkg/util"
)

type stubSessions struct {
	session *domain.Session
	valid   bool
}

func (s *stubSessions) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	if s.session == nil || s.session.Token != token {
		return nil, apperrors.NewNotFound("session")
	}
	return s.session, nil
}

func (s *stubSessions) IsValid(_ context.Context, token string) (bool, error) {
	return s.valid && s.session != nil && s.session.Token == token, nil
}

type stubStaff struct {
	staff *domain.StaffUser
	err   error
}

func (s *stubStaff) GetByID(_ context.Context, id uint64) (*domain.StaffUser, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.staff == nil || s.staff.ID != id {
		return nil, apperrors.NewNotFound("staff user")
	}
	return s.staff, nil
}

func newTestApp(sessions *stubSessions, staff *stubStaff) *fiber.App {
	app := fiber.New()
	apihttp.RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	middleware := auth.NewSessionMiddleware(sessions, staff)
	app.Get("/protected", middleware.Handle, func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusInternalServerError, "no principal")
		}
		return c.JSON(fiber.Map{"staff_id": principal.Staff.ID})
	})
	return app
}

func liveSession(token string, staffID uint64) *domain.Session {
	now := time.Now().Unix()
	return &domain.Session{
		ID:        1,
		StaffID:   staffID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
		ExpireAt:  now + 3600,
	}
}

func TestSessionMiddleware(t *testing.T) {
	activeStaff := &domain.StaffUser{ID: 7, Login: "a@b.com", Active: true}

	t.Run("valid bearer token passes", func(t *testing.T) {
		app := newTestApp(
			&stubSessions{session: liveSession("tok-1", 7), valid: true},
			&stubStaff{staff: activeStaff},
		)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		app := newTestApp(&stubSessions{}, &stubStaff{})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		app := newTestApp(&stubSessions{}, &stubStaff{})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token tok-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid session is rejected", func(t *testing.T) {
		app := newTestApp(
			&stubSessions{session: liveSession("tok-1", 7), valid: false},
			&stubStaff{staff: activeStaff},
		)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("a raw missing staff row is unauthorized, not a missing resource", func(t *testing.T) {
		// Repositories surface absent rows as pgx.ErrNoRows without any
		// wrapping; a dangling session must still read as 401, not 404.
		app := newTestApp(
			&stubSessions{session: liveSession("tok-1", 7), valid: true},
			&stubStaff{err: pgx.ErrNoRows},
		)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("inactive staff is rejected even with a live session", func(t *testing.T) {
		app := newTestApp(
			&stubSessions{session: liveSession("tok-1", 7), valid: true},
			&stubStaff{staff: &domain.StaffUser{ID: 7, Login: "a@b.com", Active: false}},
		)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
