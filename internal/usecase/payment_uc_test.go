//go:build !integration

package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-to-market/internal/config"
	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/infra/adapters/payment"
)

const madaSecret = "mada-secret"

type paymentFixture struct {
	auth     *authFixture
	uc       *paymentUC
	subs     *subscriptionUC
	sessions *memSessionRepo
	locker   *memLocker
	subRepo  *memSubRepo
	events   *recordingEmitter
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	a := newAuthFixture(t)
	f := &paymentFixture{auth: a, sessions: newMemSessionRepo(), locker: newMemLocker(), subRepo: newMemSubRepo(), events: &recordingEmitter{}}
	reg := payment.NewDefaultRegistry(config.PaymentConfig{
		Mada:   config.ProviderConfig{WebhookSecret: madaSecret},
		STCPay: config.ProviderConfig{WebhookSecret: "stc-secret"},
		Stripe: config.ProviderConfig{WebhookSecret: "whsec_test"},
	})
	f.subs = NewSubscriptionUseCase(f.subRepo, a.users, newMemLocker(), f.events, 0, newTestLogger())
	f.uc = NewPaymentUseCase(f.sessions, f.locker, reg, f.subs, NewAuditUseCase(nil, nil, newTestLogger()), f.events, 30*time.Minute, newTestLogger())
	return f
}

func madaWebhook(sessionID, status string) ([]byte, string) {
	body := []byte(fmt.Sprintf(`{"order_id":%q,"status":%q,"payment_id":"pay-1"}`, sessionID, status))
	m := hmac.New(sha256.New, []byte(madaSecret))
	m.Write(body)
	return body, hex.EncodeToString(m.Sum(nil))
}

func stcWebhook(sessionID, status string) ([]byte, string) {
	body := []byte(fmt.Sprintf(`{"order_id":%q,"payment_status":%q,"payment_id":"stc-1"}`, sessionID, status))
	m := hmac.New(sha256.New, []byte("stc-secret"))
	m.Write(body)
	return body, base64.StdEncoding.EncodeToString(m.Sum(nil))
}

func (f *paymentFixture) createMada(t *testing.T, userID string) *model.PaymentSession {
	t.Helper()
	res, err := f.uc.CreateSession(context.Background(), CreateSessionInput{
		UserID: userID, Plan: "professional", Method: "mada", Amount: decimal.NewFromInt(299),
	})
	require.NoError(t, err)
	return res.Session
}

func TestPaymentUseCase_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing payment info", func(t *testing.T) {
		f := newPaymentFixture(t)
		for _, in := range []CreateSessionInput{
			{Plan: "starter", Method: "mada"},
			{Plan: "starter", Method: "mada", Amount: decimal.Zero},
			{Plan: "starter", Method: "mada", Amount: decimal.NewFromInt(-5)},
			{Method: "mada", Amount: decimal.NewFromInt(99)},
			{Plan: "starter", Amount: decimal.NewFromInt(99)},
		} {
			_, err := f.uc.CreateSession(ctx, in)
			assert.ErrorIs(t, err, domain.ErrMissingPaymentInfo, "%+v", in)
		}
	})

	t.Run("every supported method succeeds", func(t *testing.T) {
		f := newPaymentFixture(t)
		for _, m := range []string{"mada", "stc_pay", "apple_pay", "google_pay"} {
			res, err := f.uc.CreateSession(ctx, CreateSessionInput{Plan: "starter", Method: m, Amount: decimal.NewFromInt(99)})
			require.NoError(t, err, m)
			assert.Equal(t, model.PaymentStatusPending, res.Session.Status)
			assert.NotEmpty(t, res.Checkout)
			assert.Equal(t, 30*time.Minute, f.sessions.ttls[res.Session.ID])
		}
		assert.Equal(t, 4, f.events.count(model.EventPaymentInitiated))
	})

	t.Run("unknown method and plan", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.uc.CreateSession(ctx, CreateSessionInput{Plan: "starter", Method: "paypal", Amount: decimal.NewFromInt(99)})
		assert.ErrorIs(t, err, domain.ErrUnsupportedPaymentMethod)
		_, err = f.uc.CreateSession(ctx, CreateSessionInput{Plan: "gold", Method: "mada", Amount: decimal.NewFromInt(99)})
		assert.ErrorIs(t, err, domain.ErrInvalidPlan)
	})

	t.Run("expiry is thirty minutes out", func(t *testing.T) {
		f := newPaymentFixture(t)
		s := f.createMada(t, "")
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), s.ExpiresAt, 5*time.Second)
		assert.Equal(t, model.CurrencySAR, s.Currency)
		assert.True(t, decimal.NewFromInt(299).Equal(s.Amount), "amount is taken from the request")
	})
}

func TestPaymentUseCase_GetStatus(t *testing.T) {
	f := newPaymentFixture(t)
	s := f.createMada(t, "")

	got, err := f.uc.GetStatus(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, got.Status)

	f.sessions.evict(s.ID)
	_, err = f.uc.GetStatus(context.Background(), s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPaymentUseCase_GetStatusPastExpiry(t *testing.T) {
	f := newPaymentFixture(t)
	reg := f.auth.register(t, "a@x.sa")
	pending := f.createMada(t, reg.User.ID)
	done := f.createMada(t, reg.User.ID)
	body, sig := madaWebhook(done.ID, "completed")
	_, err := f.uc.HandleWebhook(context.Background(), "mada", body, sig)
	require.NoError(t, err)

	// the store has not evicted yet but its clock says the TTL is over
	f.uc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	_, err = f.uc.GetStatus(context.Background(), pending.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	got, err := f.uc.GetStatus(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, got.Status)
}

func TestPaymentUseCase_HandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("tampered body is rejected and nothing changes", func(t *testing.T) {
		f := newPaymentFixture(t)
		s := f.createMada(t, "")
		body, sig := madaWebhook(s.ID, "completed")
		body[len(body)-2] = 'X'

		_, err := f.uc.HandleWebhook(ctx, "mada", body, sig)

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		got, _ := f.uc.GetStatus(ctx, s.ID)
		assert.Equal(t, model.PaymentStatusPending, got.Status)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.uc.HandleWebhook(ctx, "paypal", []byte(`{}`), "sig")
		assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
	})

	t.Run("unknown session is acknowledged", func(t *testing.T) {
		f := newPaymentFixture(t)
		body, sig := madaWebhook("does-not-exist", "completed")

		out, err := f.uc.HandleWebhook(ctx, "mada", body, sig)

		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.Equal(t, "session_not_found", out.Reason)
	})

	t.Run("failed payment does not activate", func(t *testing.T) {
		f := newPaymentFixture(t)
		reg := f.auth.register(t, "a@x.sa")
		s := f.createMada(t, reg.User.ID)
		body, sig := madaWebhook(s.ID, "declined")

		out, err := f.uc.HandleWebhook(ctx, "mada", body, sig)

		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusFailed, out.Status)
		user, _ := f.auth.users.FindByID(ctx, reg.User.ID)
		assert.Equal(t, model.PlanFree, user.Subscription)
		assert.Equal(t, 1, f.events.count(model.EventPaymentFailed))
	})

	t.Run("a resolved session never changes terminal state", func(t *testing.T) {
		f := newPaymentFixture(t)
		s := f.createMada(t, "")
		body, sig := madaWebhook(s.ID, "declined")
		_, err := f.uc.HandleWebhook(ctx, "mada", body, sig)
		require.NoError(t, err)

		body, sig = madaWebhook(s.ID, "completed")
		out, err := f.uc.HandleWebhook(ctx, "mada", body, sig)

		require.NoError(t, err)
		assert.Equal(t, "conflict", out.Reason)
		got, _ := f.uc.GetStatus(ctx, s.ID)
		assert.Equal(t, model.PaymentStatusFailed, got.Status)
	})

	t.Run("duplicate completed delivery is idempotent", func(t *testing.T) {
		f := newPaymentFixture(t)
		reg := f.auth.register(t, "a@x.sa")
		s := f.createMada(t, reg.User.ID)
		body, sig := madaWebhook(s.ID, "completed")

		for i := 0; i < 2; i++ {
			_, err := f.uc.HandleWebhook(ctx, "mada", body, sig)
			require.NoError(t, err)

			got, _ := f.uc.GetStatus(ctx, s.ID)
			assert.Equal(t, model.PaymentStatusCompleted, got.Status)
			user, _ := f.auth.users.FindByID(ctx, reg.User.ID)
			assert.Equal(t, model.PlanProfessional, user.Subscription)
			assert.Equal(t, model.PlanProfessional.Features(), user.Features)
		}
		assert.Equal(t, 1, f.subRepo.saves)
		assert.Equal(t, 1, f.events.count(model.EventSubscriptionActivated))
	})

	t.Run("another provider cannot resolve the session", func(t *testing.T) {
		f := newPaymentFixture(t)
		reg := f.auth.register(t, "a@x.sa")
		s := f.createMada(t, reg.User.ID)
		body, sig := stcWebhook(s.ID, "success")

		out, err := f.uc.HandleWebhook(ctx, "stc_pay", body, sig)

		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.Equal(t, "provider_mismatch", out.Reason)
		got, _ := f.uc.GetStatus(ctx, s.ID)
		assert.Equal(t, model.PaymentStatusPending, got.Status)
		user, _ := f.auth.users.FindByID(ctx, reg.User.ID)
		assert.Equal(t, model.PlanFree, user.Subscription)
	})

	t.Run("concurrent deliveries cannot undo a terminal status", func(t *testing.T) {
		f := newPaymentFixture(t)
		reg := f.auth.register(t, "a@x.sa")
		s := f.createMada(t, reg.User.ID)

		// hold the first delivery right after it reads the session
		entered, release := make(chan struct{}), make(chan struct{})
		var once sync.Once
		f.sessions.FindFunc = func(string) {
			first := false
			once.Do(func() { first = true })
			if first {
				close(entered)
				<-release
			}
		}

		declined, declinedSig := madaWebhook(s.ID, "declined")
		firstErr := make(chan error, 1)
		go func() {
			_, err := f.uc.HandleWebhook(ctx, "mada", declined, declinedSig)
			firstErr <- err
		}()
		<-entered

		completed, completedSig := madaWebhook(s.ID, "completed")
		_, err := f.uc.HandleWebhook(ctx, "mada", completed, completedSig)
		assert.ErrorIs(t, err, domain.ErrLockNotAcquired, "second delivery must wait for the first")

		close(release)
		require.NoError(t, <-firstErr)

		// the provider's retry of the second delivery now sees the terminal status
		out, err := f.uc.HandleWebhook(ctx, "mada", completed, completedSig)
		require.NoError(t, err)
		assert.Equal(t, "conflict", out.Reason)

		got, _ := f.uc.GetStatus(ctx, s.ID)
		assert.Equal(t, model.PaymentStatusFailed, got.Status)
		user, _ := f.auth.users.FindByID(ctx, reg.User.ID)
		assert.Equal(t, model.PlanFree, user.Subscription)
	})

	t.Run("activation failure is reported so the provider retries", func(t *testing.T) {
		f := newPaymentFixture(t)
		reg := f.auth.register(t, "a@x.sa")
		s := f.createMada(t, reg.User.ID)
		boom := errors.New("kv down")
		calls := 0
		f.uc.activator = activatorFunc(func(ctx context.Context, userID string, plan model.Plan, at time.Time) (*model.Subscription, error) {
			calls++
			if calls == 1 {
				return nil, boom
			}
			return f.subs.Activate(ctx, userID, plan, at)
		})
		body, sig := madaWebhook(s.ID, "completed")

		_, err := f.uc.HandleWebhook(ctx, "mada", body, sig)
		require.ErrorIs(t, err, boom)

		_, err = f.uc.HandleWebhook(ctx, "mada", body, sig)
		require.NoError(t, err)
		user, _ := f.auth.users.FindByID(ctx, reg.User.ID)
		assert.Equal(t, model.PlanProfessional, user.Subscription)
	})
}

func TestPaymentFlow_RegisterPayActivate(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	// register user A on the free plan
	reg := f.auth.register(t, "a@x.sa")
	require.Equal(t, model.PlanFree, reg.User.Subscription)

	// open a professional checkout with mada
	s := f.createMada(t, reg.User.ID)
	got, err := f.uc.GetStatus(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, got.Status)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), got.ExpiresAt, 5*time.Second)

	// provider reports completion
	body, sig := madaWebhook(s.ID, "completed")
	out, err := f.uc.HandleWebhook(ctx, "mada", body, sig)
	require.NoError(t, err)
	assert.True(t, out.Applied)

	got, err = f.uc.GetStatus(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, got.Status)
	assert.JSONEq(t, string(body), string(got.WebhookData))

	profile, err := NewUserUseCase(f.auth.users, newMemLocker(), newTestLogger()).GetProfile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanProfessional, profile.Subscription)
	assert.Equal(t, model.SubscriptionStatusActive, profile.SubscriptionStatus)
}
