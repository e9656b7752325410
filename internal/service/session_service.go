package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-auth/internal/domain"
	"github.com/spec-kit/staff-auth/internal/repository"
	apperrors "github.com/spec-kit/staff-auth/pkg/util"
)

const sessionCachePrefix = "session:"

// Cached expiries were computed on the store clock; only trust a hit while
// it is comfortably ahead of the local clock, otherwise let the store
// decide. Keeps skew between the two clocks from invalidating live
// sessions.
const cacheSkewSlackSeconds = 2

// SessionCache is the subset of redis.Client the session service uses.
type SessionCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionService fronts the session store with a best-effort Redis cache.
// The database row stays the source of truth: cache entries exist only for
// live sessions, and every state transition (lock, expire) removes the entry
// before touching the row is reported back. A cache outage degrades to plain
// store reads.
type SessionService struct {
	repo   repository.SessionRepository
	cache  SessionCache
	logger *zap.Logger
}

// NewSessionService builds the service. cache may be nil.
func NewSessionService(repo repository.SessionRepository, cache SessionCache, logger *zap.Logger) *SessionService {
	return &SessionService{repo: repo, cache: cache, logger: logger}
}

// Create issues a new session for the staff account and caches its expiry
// keyed by token.
func (s *SessionService) Create(ctx context.Context, staffID uint64, lifetimeSeconds int64) (*domain.Session, error) {
	session, err := s.repo.Create(ctx, staffID, lifetimeSeconds)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	s.cacheSet(ctx, session)
	return session, nil
}

// GetByToken loads the session row for a bearer token.
func (s *SessionService) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session")
		}
		return nil, apperrors.NewStoreError(err)
	}
	return session, nil
}

// GetByID loads the session row by its identifier.
func (s *SessionService) GetByID(ctx context.Context, id uint64) (*domain.Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session")
		}
		return nil, apperrors.NewStoreError(err)
	}
	return session, nil
}

// IsValid reports whether the token names a live session. A cache hit can
// only confirm validity; near or past the cached expiry the store clock
// decides. Locked sessions are never in the cache because Lock and Expire
// remove the entry first.
func (s *SessionService) IsValid(ctx context.Context, token string) (bool, error) {
	if expireAt, ok := s.cacheGet(ctx, token); ok {
		if expireAt > time.Now().Unix()+cacheSkewSlackSeconds {
			return true, nil
		}
	}

	valid, err := s.repo.IsValid(ctx, token)
	if err != nil {
		return false, apperrors.NewStoreError(err)
	}
	return valid, nil
}

// Expire cuts the session's remaining lifetime to zero.
func (s *SessionService) Expire(ctx context.Context, session *domain.Session) (bool, error) {
	s.cacheDel(ctx, session.Token)
	done, err := s.repo.Expire(ctx, session.ID)
	if err != nil {
		return false, apperrors.NewStoreError(err)
	}
	return done, nil
}

// Lock revokes the session regardless of remaining lifetime.
func (s *SessionService) Lock(ctx context.Context, session *domain.Session) (bool, error) {
	s.cacheDel(ctx, session.Token)
	done, err := s.repo.Lock(ctx, session.ID)
	if err != nil {
		return false, apperrors.NewStoreError(err)
	}
	return done, nil
}

func (s *SessionService) cacheSet(ctx context.Context, session *domain.Session) {
	if s.cache == nil {
		return
	}
	ttl := time.Duration(session.ExpireAt-session.CreatedAt) * time.Second
	if ttl <= 0 {
		return
	}
	key := sessionCachePrefix + session.Token
	if err := s.cache.Set(ctx, key, strconv.FormatInt(session.ExpireAt, 10), ttl).Err(); err != nil {
		s.logger.Warn("session cache set failed", zap.Error(err))
	}
}

func (s *SessionService) cacheGet(ctx context.Context, token string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	val, err := s.cache.Get(ctx, sessionCachePrefix+token).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("session cache get failed", zap.Error(err))
		}
		return 0, false
	}
	expireAt, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return expireAt, true
}

func (s *SessionService) cacheDel(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, sessionCachePrefix+token).Err(); err != nil {
		s.logger.Warn("session cache del failed", zap.Error(err))
	}
}
