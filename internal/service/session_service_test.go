package service_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-auth/internal/service"
	apperrors "github.com/spec-kit/staff-auth/pkg/util"
)

// fakeSessionCache is an in-memory service.SessionCache. Errors can be
// injected per command to exercise the degradation paths.
type fakeSessionCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	delErr  error
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{entries: map[string]string{}}
}

func (f *fakeSessionCache) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.entries[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeSessionCache) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	val, ok := f.entries[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeSessionCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return redis.NewIntResult(0, f.delErr)
	}
	var removed int64
	for _, key := range keys {
		if _, ok := f.entries[key]; ok {
			delete(f.entries, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeSessionCache) entry(token string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.entries["session:"+token]
	return val, ok
}

func (f *fakeSessionCache) put(token, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries["session:"+token] = value
}

func newSessionService(t *testing.T) (*service.SessionService, *fakeSessionRepo) {
	t.Helper()
	repo := newFakeSessionRepo()
	return service.NewSessionService(repo, nil, zap.NewNop()), repo
}

func TestSessionService_Create(t *testing.T) {
	svc, _ := newSessionService(t)

	session, err := svc.Create(context.Background(), 7, 3600)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), session.StaffID)
	assert.False(t, session.Locked)
	assert.Equal(t, int64(3600), session.Lifetime())
	assert.Greater(t, session.ExpireAt, session.CreatedAt)
}

func TestSessionService_IsValid(t *testing.T) {
	t.Run("valid immediately after creation", func(t *testing.T) {
		svc, _ := newSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		svc, _ := newSessionService(t)
		valid, err := svc.IsValid(context.Background(), "no-such-token")
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("invalid once expiry has passed", func(t *testing.T) {
		svc, repo := newSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		repo.sessions[session.ID].ExpireAt = time.Now().Unix()

		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestSessionService_Lock(t *testing.T) {
	t.Run("locked session is invalid regardless of remaining lifetime", func(t *testing.T) {
		svc, _ := newSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		locked, err := svc.Lock(context.Background(), session)
		require.NoError(t, err)
		assert.True(t, locked)

		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.False(t, valid)

		// The row survives; revocation is a state, not a deletion.
		stored, err := svc.GetByToken(context.Background(), session.Token)
		require.NoError(t, err)
		assert.True(t, stored.Locked)
		assert.Greater(t, stored.ExpireAt, time.Now().Unix())
	})

	t.Run("locking an unknown session reports false", func(t *testing.T) {
		svc, _ := newSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)
		session.ID = 9999

		locked, err := svc.Lock(context.Background(), session)
		require.NoError(t, err)
		assert.False(t, locked)
	})
}

func TestSessionService_Expire(t *testing.T) {
	svc, _ := newSessionService(t)
	session, err := svc.Create(context.Background(), 7, 3600)
	require.NoError(t, err)

	expired, err := svc.Expire(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, expired)

	valid, err := svc.IsValid(context.Background(), session.Token)
	require.NoError(t, err)
	assert.False(t, valid)

	stored, err := svc.GetByToken(context.Background(), session.Token)
	require.NoError(t, err)
	assert.False(t, stored.Locked)
	assert.LessOrEqual(t, stored.ExpireAt, time.Now().Unix())
}

func newCachedSessionService(t *testing.T) (*service.SessionService, *fakeSessionRepo, *fakeSessionCache) {
	t.Helper()
	repo := newFakeSessionRepo()
	cache := newFakeSessionCache()
	return service.NewSessionService(repo, cache, zap.NewNop()), repo, cache
}

func TestSessionService_Cache(t *testing.T) {
	t.Run("create populates the cache and a hit answers without the store", func(t *testing.T) {
		svc, repo, cache := newCachedSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		val, ok := cache.entry(session.Token)
		require.True(t, ok)
		assert.Equal(t, strconv.FormatInt(session.ExpireAt, 10), val)

		// Drop the row; a cached live session must still validate.
		delete(repo.sessions, session.ID)
		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("lock removes the entry so the store decides", func(t *testing.T) {
		svc, _, cache := newCachedSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		locked, err := svc.Lock(context.Background(), session)
		require.NoError(t, err)
		require.True(t, locked)

		_, ok := cache.entry(session.Token)
		assert.False(t, ok)

		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("expire removes the entry so the store decides", func(t *testing.T) {
		svc, _, cache := newCachedSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		expired, err := svc.Expire(context.Background(), session)
		require.NoError(t, err)
		require.True(t, expired)

		_, ok := cache.entry(session.Token)
		assert.False(t, ok)

		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("cache read errors degrade to store reads", func(t *testing.T) {
		svc, _, cache := newCachedSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		cache.getErr = errors.New("i/o timeout")
		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("garbage entry falls through to the store", func(t *testing.T) {
		svc, _, cache := newCachedSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		cache.put(session.Token, "not-a-number")
		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("a hit near its cached expiry defers to the store", func(t *testing.T) {
		svc, repo, cache := newCachedSessionService(t)
		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		// A cached expiry inside the skew margin must not confirm validity
		// on its own; here the store says the session is already dead.
		cache.put(session.Token, strconv.FormatInt(time.Now().Unix()+1, 10))
		repo.sessions[session.ID].ExpireAt = time.Now().Unix()

		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("set failures leave validation working off the store", func(t *testing.T) {
		svc, _, cache := newCachedSessionService(t)
		cache.setErr = errors.New("connection reset")

		session, err := svc.Create(context.Background(), 7, 3600)
		require.NoError(t, err)

		_, ok := cache.entry(session.Token)
		assert.False(t, ok)

		valid, err := svc.IsValid(context.Background(), session.Token)
		require.NoError(t, err)
		assert.True(t, valid)
	})
}

func TestSessionService_GetByToken(t *testing.T) {
	svc, _ := newSessionService(t)

	_, err := svc.GetByToken(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
