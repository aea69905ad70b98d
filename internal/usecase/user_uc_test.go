//go:build !integration

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
)

func newUserFixture(t *testing.T, plan model.Plan) (*userUC, *memUserRepo, string) {
	t.Helper()
	users := newMemUserRepo()
	u, err := model.NewUser("a@x.sa", "Ali", "", "h:pw", model.LocaleEnglish)
	require.NoError(t, err)
	u.Subscription = plan
	require.NoError(t, users.Create(context.Background(), u))
	return NewUserUseCase(users, newMemLocker(), newTestLogger()), users, u.ID
}

func strPtr(s string) *string { return &s }

func TestUserUseCase_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("updates only given fields", func(t *testing.T) {
		uc, _, id := newUserFixture(t, model.PlanFree)
		off := false

		user, err := uc.UpdateProfile(ctx, id, ProfileUpdate{
			Phone:       strPtr("05 1234 5678"),
			Preferences: &model.PreferencesPatch{Notifications: &off},
		})

		require.NoError(t, err)
		assert.Equal(t, "Ali", user.Name)
		assert.Equal(t, "0512345678", user.Phone)
		assert.False(t, user.Preferences.Notifications)
		assert.Equal(t, model.DefaultTimezone, user.Preferences.Timezone)
	})

	t.Run("empty phone clears it", func(t *testing.T) {
		uc, _, id := newUserFixture(t, model.PlanFree)
		_, err := uc.UpdateProfile(ctx, id, ProfileUpdate{Phone: strPtr("0512345678")})
		require.NoError(t, err)

		user, err := uc.UpdateProfile(ctx, id, ProfileUpdate{Phone: strPtr("")})

		require.NoError(t, err)
		assert.Empty(t, user.Phone)
	})

	t.Run("validation", func(t *testing.T) {
		uc, _, id := newUserFixture(t, model.PlanFree)
		_, err := uc.UpdateProfile(ctx, id, ProfileUpdate{Phone: strPtr("123456")})
		assert.ErrorIs(t, err, domain.ErrInvalidPhone)
		_, err = uc.UpdateProfile(ctx, id, ProfileUpdate{Name: strPtr("  ")})
		assert.ErrorIs(t, err, domain.ErrMissingFields)
	})

	t.Run("unknown user", func(t *testing.T) {
		uc, _, _ := newUserFixture(t, model.PlanFree)
		_, err := uc.UpdateProfile(ctx, "missing", ProfileUpdate{Name: strPtr("X")})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserUseCase_RecordUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("stops at the plan limit", func(t *testing.T) {
		uc, _, id := newUserFixture(t, model.PlanFree)
		for i := 0; i < 3; i++ {
			rep, err := uc.RecordUsage(ctx, id, "brainstormSessions")
			require.NoError(t, err)
			assert.Equal(t, i+1, rep.Usage.BrainstormSessions)
		}

		_, err := uc.RecordUsage(ctx, id, "brainstormSessions")
		assert.ErrorIs(t, err, domain.ErrUsageLimitReached)

		rep, err := uc.GetUsage(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, rep.Usage.BrainstormSessions)
		assert.Equal(t, 3, rep.Limits.BrainstormSessions)
	})

	t.Run("enterprise is unlimited", func(t *testing.T) {
		uc, _, id := newUserFixture(t, model.PlanEnterprise)
		for i := 0; i < 50; i++ {
			_, err := uc.RecordUsage(ctx, id, "prototypesGenerated")
			require.NoError(t, err)
		}
	})

	t.Run("an ended paid period falls back to free limits", func(t *testing.T) {
		uc, users, id := newUserFixture(t, model.PlanFree)
		subs := NewSubscriptionUseCase(newMemSubRepo(), users, newMemLocker(), &recordingEmitter{}, 0, newTestLogger())
		_, err := subs.Activate(ctx, id, model.PlanProfessional, time.Now().Add(-31*24*time.Hour))
		require.NoError(t, err)

		rep, err := uc.GetUsage(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.PlanFree, rep.Subscription)
		assert.Equal(t, model.SubscriptionStatusInactive, rep.SubscriptionStatus)
		assert.Equal(t, model.PlanFree.Limits(), rep.Limits)

		_, err = uc.RecordUsage(ctx, id, "prdDocuments")
		require.NoError(t, err)
		_, err = uc.RecordUsage(ctx, id, "prdDocuments")
		assert.ErrorIs(t, err, domain.ErrUsageLimitReached)

		stored, err := users.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.PlanFree, stored.Subscription, "the write path persists the lapse")
	})

	t.Run("a current paid period keeps its limits", func(t *testing.T) {
		uc, users, id := newUserFixture(t, model.PlanFree)
		subs := NewSubscriptionUseCase(newMemSubRepo(), users, newMemLocker(), &recordingEmitter{}, 0, newTestLogger())
		_, err := subs.Activate(ctx, id, model.PlanProfessional, time.Now().Add(-29*24*time.Hour))
		require.NoError(t, err)

		rep, err := uc.GetUsage(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.PlanProfessional, rep.Subscription)
		assert.Equal(t, model.SubscriptionStatusActive, rep.SubscriptionStatus)
	})

	t.Run("unknown feature", func(t *testing.T) {
		uc, _, id := newUserFixture(t, model.PlanFree)
		_, err := uc.RecordUsage(ctx, id, "videos")
		assert.ErrorIs(t, err, domain.ErrInvalidFeature)
	})
}
