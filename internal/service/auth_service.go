package service

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-auth/internal/auth"
	"github.com/spec-kit/staff-auth/internal/domain"
	"github.com/spec-kit/staff-auth/internal/repository"
	apperrors "github.com/spec-kit/staff-auth/pkg/util"
)

// Password length bounds, inclusive, checked before hashing.
const (
	PasswordMinLen = 12
	PasswordMaxLen = 64
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthService coordinates registration and login flows.
type AuthService struct {
	staff    repository.StaffRepository
	sessions *SessionService
	logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(staff repository.StaffRepository, sessions *SessionService, logger *zap.Logger) *AuthService {
	return &AuthService{staff: staff, sessions: sessions, logger: logger}
}

// Authenticate verifies the login/password pair and issues a new session
// with the given lifetime. An unknown login and a wrong password return the
// identical error value; nothing distinguishes the two to the caller. No
// session row is created on failure.
func (s *AuthService) Authenticate(ctx context.Context, login, password string, lifetimeSeconds int64) (*domain.Session, error) {
	user, err := s.staff.FindActiveByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewAuthError()
		}
		return nil, apperrors.NewStoreError(err)
	}

	if !auth.VerifyPassword(user.Password, password) {
		return nil, apperrors.NewAuthError()
	}

	session, err := s.sessions.Create(ctx, user.ID, lifetimeSeconds)
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff authenticated", zap.Uint64("staff_id", user.ID))
	return session, nil
}

// Register validates input, rejects duplicate logins and creates the
// account with a freshly salted argon2 hash. Validation runs before the
// existence check, so malformed probes learn nothing about stored logins.
func (s *AuthService) Register(ctx context.Context, login, email, password string, projectID int32) (*domain.StaffUser, error) {
	if details := validateRegistration(login, email, password); len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid registration input", details)
	}

	exists, err := s.staff.ExistsByLogin(ctx, login)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("user already exists", map[string]any{"login": login})
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, apperrors.NewCryptoFailure(err)
	}
	hashed, err := auth.HashPassword(password, salt)
	if err != nil {
		return nil, apperrors.NewCryptoFailure(err)
	}

	user, err := s.staff.Create(ctx, &domain.StaffUser{
		ProjectID: projectID,
		Email:     email,
		Login:     login,
		Password:  hashed,
		Salt:      salt,
	})
	if err != nil {
		// Two concurrent registrations can both pass ExistsByLogin; the
		// partial unique index decides the race, and its violation is a
		// duplicate login, not a store outage.
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("user already exists", map[string]any{"login": login})
		}
		return nil, apperrors.NewStoreError(err)
	}

	s.logger.Info("staff registered", zap.Uint64("staff_id", user.ID), zap.Int32("project_id", user.ProjectID))
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func validateRegistration(login, email, password string) map[string]any {
	details := map[string]any{}
	if !emailPattern.MatchString(login) {
		details["login"] = "must be a valid email address"
	}
	if !emailPattern.MatchString(email) {
		details["email"] = "must be a valid email address"
	}
	if len(password) < PasswordMinLen || len(password) > PasswordMaxLen {
		details["password"] = "length must be between 12 and 64 characters"
	}
	return details
}
