//go:build !integration

package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func newUser(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := model.NewUser(email, "Test", "", "hash", model.LocaleEnglish)
	require.NoError(t, err)
	return u
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("create then find by id and email", func(t *testing.T) {
		c, _ := newTestClient(t)
		repo := NewUserRepo(c)
		u := newUser(t, "a@x.sa")

		require.NoError(t, repo.Create(ctx, u))

		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)
		assert.Equal(t, "hash", got.PasswordHash)

		id, err := repo.FindIDByEmail(ctx, "A@X.SA")
		require.NoError(t, err)
		assert.Equal(t, u.ID, id)
	})

	t.Run("second create for the same email fails", func(t *testing.T) {
		c, _ := newTestClient(t)
		repo := NewUserRepo(c)

		require.NoError(t, repo.Create(ctx, newUser(t, "dup@x.sa")))
		err := repo.Create(ctx, newUser(t, "DUP@x.sa"))

		assert.ErrorIs(t, err, domain.ErrEmailExists)
	})

	t.Run("concurrent registrations yield exactly one account", func(t *testing.T) {
		c, _ := newTestClient(t)
		repo := NewUserRepo(c)

		users := make([]*model.User, 10)
		for i := range users {
			users[i] = newUser(t, "race@x.sa")
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for _, u := range users {
			wg.Add(1)
			go func(u *model.User) {
				defer wg.Done()
				if err := repo.Create(ctx, u); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(u)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
	})

	t.Run("missing user is ErrNotFound", func(t *testing.T) {
		c, _ := newTestClient(t)
		repo := NewUserRepo(c)

		_, err := repo.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = repo.FindIDByEmail(ctx, "nope@x.sa")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPaymentSessionRepo(t *testing.T) {
	ctx := context.Background()
	newSession := func(t *testing.T) *model.PaymentSession {
		s, err := model.NewPaymentSession("u1", model.PlanStarter, model.PaymentMethodMada, decimal.NewFromInt(99), "SAR", model.LocaleArabic, model.RequestMetadata{IP: "1.2.3.4"}, time.Now(), 30*time.Minute)
		require.NoError(t, err)
		return s
	}

	t.Run("round trip keeps amount and metadata", func(t *testing.T) {
		c, _ := newTestClient(t)
		repo := NewPaymentSessionRepo(c)
		s := newSession(t)

		require.NoError(t, repo.Create(ctx, s, 30*time.Minute))
		got, err := repo.FindByID(ctx, s.ID)

		require.NoError(t, err)
		assert.True(t, s.Amount.Equal(got.Amount))
		assert.Equal(t, "1.2.3.4", got.Metadata.IP)
		assert.Equal(t, model.PaymentStatusPending, got.Status)
	})

	t.Run("update keeps the remaining ttl", func(t *testing.T) {
		c, mr := newTestClient(t)
		repo := NewPaymentSessionRepo(c)
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s, 30*time.Minute))
		mr.FastForward(10 * time.Minute)

		require.NoError(t, s.Resolve(model.PaymentStatusCompleted, "mada", []byte(`{"status":"completed"}`), time.Now()))
		require.NoError(t, repo.Update(ctx, s))

		ttl := mr.TTL(paymentKey(s.ID))
		assert.Equal(t, 20*time.Minute, ttl)
	})

	t.Run("session is gone after its ttl", func(t *testing.T) {
		c, mr := newTestClient(t)
		repo := NewPaymentSessionRepo(c)
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s, 30*time.Minute))

		mr.FastForward(31 * time.Minute)

		_, err := repo.FindByID(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, repo.Update(ctx, s), domain.ErrNotFound, "update must not resurrect an evicted session")
	})
}

func TestSubscriptionRepo(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	repo := NewSubscriptionRepo(c)

	_, err := repo.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sub, err := model.NewSubscription("u1", model.PlanProfessional, time.Now(), 0)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sub))

	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanProfessional, got.Plan)
	assert.True(t, got.ActivatedAt.Equal(sub.ActivatedAt))
}

func TestEventRepo(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	repo := NewEventRepo(c, 3)

	for i := 0; i < 5; i++ {
		e, err := model.NewEvent("payment_initiated", "u1", "", nil, time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, e))
	}
	anon, _ := model.NewEvent("page_view", "", "", nil, time.Now())
	require.NoError(t, repo.Append(ctx, anon))

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Equal(t, "page_view", recent[0].Name)

	mine, err := repo.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, mine, 5)
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	rl := NewRateLimiter(c)
	key := ClientRateKey("10.0.0.1")

	for i := 0; i < 3; i++ {
		d, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}
	d, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	mr.FastForward(time.Minute)
	d, err = rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window should reset")
}

func TestRateLimiterRestoresMissingExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	rl := NewRateLimiter(c)
	key := ClientRateKey("10.0.0.2")

	require.NoError(t, mr.Set(key, "7"))
	d, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	l := NewLocker(c)
	l.retries = 1
	l.wait = time.Millisecond

	tok, err := l.TryLock(ctx, "lock:test", time.Second)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "lock:test", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)

	require.NoError(t, l.Unlock(ctx, "lock:test", "someone-else"))
	_, err = l.TryLock(ctx, "lock:test", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired, "foreign token must not release the lock")

	require.NoError(t, l.Unlock(ctx, "lock:test", tok))
	_, err = l.TryLock(ctx, "lock:test", time.Second)
	assert.NoError(t, err)
}
