//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"idea-to-market/internal/domain"

	"github.com/shopspring/decimal"
)

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should create a free trial user with normalized email", func(t *testing.T) {
		user, err := NewUser("  A@X.SA ", "Ali", "05 1234 5678", "hash", LocaleEnglish)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if user.ID == "" {
			t.Error("expected user ID to be non-empty")
		}
		if user.Email != "a@x.sa" {
			t.Errorf("expected normalized email, got %q", user.Email)
		}
		if user.Phone != "0512345678" {
			t.Errorf("expected whitespace-free phone, got %q", user.Phone)
		}
		if user.Subscription != PlanFree || !user.IsTrialActive || user.TrialDaysLeft != 1 {
			t.Errorf("unexpected trial state: plan=%s trial=%v days=%d", user.Subscription, user.IsTrialActive, user.TrialDaysLeft)
		}
		if user.Preferences.Timezone != "Asia/Riyadh" || user.Preferences.Currency != "SAR" || user.Preferences.Language != "en-US" {
			t.Errorf("unexpected default preferences: %+v", user.Preferences)
		}
		if len(user.Features) != 3 {
			t.Errorf("expected free features, got %v", user.Features)
		}
	})

	t.Run("should fail without a name", func(t *testing.T) {
		_, err := NewUser("a@x.sa", " ", "", "hash", "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("public projection omits password hash", func(t *testing.T) {
		user, _ := NewUser("a@x.sa", "Ali", "", "secret-hash", "")
		pub := user.Public()
		if pub.ID != user.ID || pub.Email != user.Email {
			t.Error("public projection lost identity fields")
		}
		if user.Locale != LocaleArabic {
			t.Errorf("expected default locale ar-SA, got %s", user.Locale)
		}
	})
}

func TestValidSaudiPhone(t *testing.T) {
	cases := map[string]bool{
		"0512345678":       true,
		"+966512345678":    true,
		"512345678":        true,
		"+966 51 234 5678": true,
		"0412345678":       false,
		"123456":           false,
		"":                 false,
	}
	for in, want := range cases {
		if got := ValidSaudiPhone(in); got != want {
			t.Errorf("ValidSaudiPhone(%q) = %v, want %v", in, got, want)
		}
	}
}

// --- Plan Tests ---

func TestPlanCatalog(t *testing.T) {
	t.Run("parse is case insensitive and rejects unknown plans", func(t *testing.T) {
		p, err := ParsePlan("Professional")
		if err != nil || p != PlanProfessional {
			t.Fatalf("expected professional, got %q err=%v", p, err)
		}
		if _, err := ParsePlan("platinum"); !errors.Is(err, domain.ErrInvalidPlan) {
			t.Errorf("expected ErrInvalidPlan, got %v", err)
		}
	})

	t.Run("features are copies", func(t *testing.T) {
		f := PlanStarter.Features()
		f[0] = "mutated"
		if PlanStarter.Features()[0] != "brainstormer" {
			t.Error("feature table was mutated through a returned slice")
		}
	})

	t.Run("enterprise is unlimited", func(t *testing.T) {
		l := PlanEnterprise.Limits()
		if l.BrainstormSessions != Unlimited || l.PRDDocuments != Unlimited || l.PrototypesGenerated != Unlimited {
			t.Errorf("expected unlimited enterprise limits, got %+v", l)
		}
	})
}

func TestUsageIncrement(t *testing.T) {
	t.Run("stops at the plan limit", func(t *testing.T) {
		var u Usage
		limits := PlanFree.Limits()
		if err := u.Increment(FeaturePRDDocuments, limits); err != nil {
			t.Fatalf("first increment failed: %v", err)
		}
		if err := u.Increment(FeaturePRDDocuments, limits); !errors.Is(err, domain.ErrUsageLimitReached) {
			t.Errorf("expected ErrUsageLimitReached, got %v", err)
		}
		if u.PRDDocuments != 1 {
			t.Errorf("counter changed after refusal: %d", u.PRDDocuments)
		}
	})

	t.Run("unlimited never refuses", func(t *testing.T) {
		u := Usage{BrainstormSessions: 10000}
		if err := u.Increment(FeatureBrainstormSessions, PlanEnterprise.Limits()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// --- Payment Session Tests ---

func TestPaymentSessionLifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	newSession := func(t *testing.T) *PaymentSession {
		t.Helper()
		s, err := NewPaymentSession("u1", PlanProfessional, PaymentMethodMada, decimal.NewFromInt(299), "", LocaleArabic, RequestMetadata{}, now, 0)
		if err != nil {
			t.Fatalf("NewPaymentSession: %v", err)
		}
		return s
	}

	t.Run("starts pending with a 30 minute window", func(t *testing.T) {
		s := newSession(t)
		if s.Status != PaymentStatusPending {
			t.Errorf("expected pending, got %s", s.Status)
		}
		if !s.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
			t.Errorf("unexpected expiry %v", s.ExpiresAt)
		}
		if s.Currency != "SAR" {
			t.Errorf("expected SAR, got %s", s.Currency)
		}
		if s.MinorUnits() != 29900 {
			t.Errorf("expected 29900 halalas, got %d", s.MinorUnits())
		}
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := NewPaymentSession("", PlanStarter, PaymentMethodMada, decimal.Zero, "SAR", "", RequestMetadata{}, now, 0)
		if !errors.Is(err, domain.ErrMissingPaymentInfo) {
			t.Errorf("expected ErrMissingPaymentInfo, got %v", err)
		}
	})

	t.Run("terminal states are sticky", func(t *testing.T) {
		s := newSession(t)
		if err := s.Resolve(PaymentStatusCompleted, "mada", []byte(`{"status":"completed"}`), now); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if err := s.Resolve(PaymentStatusCompleted, "mada", []byte(`{"status":"completed"}`), now.Add(time.Minute)); err != nil {
			t.Errorf("re-delivery should be accepted, got %v", err)
		}
		if !s.ResolvedAt.Equal(now) {
			t.Errorf("resolvedAt moved on re-delivery: %v", s.ResolvedAt)
		}
		if err := s.Resolve(PaymentStatusFailed, "mada", nil, now); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		if s.Status != PaymentStatusCompleted {
			t.Errorf("status changed to %s", s.Status)
		}
	})

	t.Run("unknown method is unsupported", func(t *testing.T) {
		if _, err := ParsePaymentMethod("paypal"); !errors.Is(err, domain.ErrUnsupportedPaymentMethod) {
			t.Errorf("expected ErrUnsupportedPaymentMethod, got %v", err)
		}
	})
}

func TestSubscriptionApply(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sub, err := NewSubscription("u1", PlanProfessional, at, 0)
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	if !sub.ExpiresAt.Equal(at.Add(30 * 24 * time.Hour)) {
		t.Errorf("expected 30 day period, got %v", sub.ExpiresAt)
	}

	user, _ := NewUser("a@x.sa", "Ali", "", "hash", "")
	user.ID = "u1"
	if sub.AppliedTo(user) {
		t.Fatal("fresh user should not carry the subscription yet")
	}
	user.ApplyPlan(sub)
	user.ApplyPlan(sub)
	if !sub.AppliedTo(user) {
		t.Error("expected subscription to be applied")
	}
	if user.Subscription != PlanProfessional || len(user.Features) != 5 {
		t.Errorf("unexpected entitlements: %s %v", user.Subscription, user.Features)
	}
}

func TestUserLapseAt(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sub, _ := NewSubscription("u1", PlanProfessional, at, 0)

	t.Run("inside the period nothing changes", func(t *testing.T) {
		user, _ := NewUser("a@x.sa", "Ali", "", "hash", "")
		user.ApplyPlan(sub)
		if user.LapseAt(sub.ExpiresAt.Add(-time.Second)) {
			t.Error("plan should still be active")
		}
		if user.Subscription != PlanProfessional {
			t.Errorf("expected professional, got %s", user.Subscription)
		}
	})

	t.Run("at expiry the plan falls back to free", func(t *testing.T) {
		user, _ := NewUser("a@x.sa", "Ali", "", "hash", "")
		user.ApplyPlan(sub)
		if !user.LapseAt(sub.ExpiresAt) {
			t.Fatal("expected the plan to lapse")
		}
		if user.Subscription != PlanFree || user.SubscriptionStatus != SubscriptionStatusInactive {
			t.Errorf("unexpected entitlements: %s %s", user.Subscription, user.SubscriptionStatus)
		}
		if user.Subscription.Limits() != PlanFree.Limits() || len(user.Features) != 3 {
			t.Errorf("expected free limits and features, got %v", user.Features)
		}
		if user.LapseAt(sub.ExpiresAt.Add(time.Hour)) {
			t.Error("a lapsed plan must not lapse twice")
		}
	})

	t.Run("records without an expiry use the default period", func(t *testing.T) {
		user, _ := NewUser("a@x.sa", "Ali", "", "hash", "")
		user.ApplyPlan(sub)
		user.SubscriptionExpiresAt = nil
		if !user.LapseAt(at.Add(DefaultSubscriptionPeriod)) {
			t.Error("expected the plan to lapse after the default period")
		}
	})

	t.Run("free users and untimed plans never lapse", func(t *testing.T) {
		user, _ := NewUser("a@x.sa", "Ali", "", "hash", "")
		if user.LapseAt(at.Add(10 * 365 * 24 * time.Hour)) {
			t.Error("free plan must not lapse")
		}
		user.Subscription = PlanEnterprise
		if user.LapseAt(at.Add(10 * 365 * 24 * time.Hour)) {
			t.Error("plan without activation data must not lapse")
		}
	})
}

func TestLocaleFromAcceptLanguage(t *testing.T) {
	cases := map[string]Locale{
		"":                  LocaleArabic,
		"ar":                LocaleArabic,
		"en-US,en;q=0.9":    LocaleEnglish,
		"en-GB,ar-SA;q=0.8": LocaleArabic,
		"fr-FR":             LocaleEnglish,
	}
	for in, want := range cases {
		if got := LocaleFromAcceptLanguage(in); got != want {
			t.Errorf("LocaleFromAcceptLanguage(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("payment_initiated", "", "", nil, time.Now())
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if ev.UserID != AnonymousUser || len(ev.ID) != 26 {
		t.Errorf("unexpected event %+v", ev)
	}
	if _, err := NewEvent(" ", "u1", "", nil, time.Now()); !errors.Is(err, domain.ErrMissingEvent) {
		t.Errorf("expected ErrMissingEvent, got %v", err)
	}
}
