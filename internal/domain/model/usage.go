package model

import "idea-to-market/internal/domain"

// UsageFeature names a metered counter on the user record.
type UsageFeature string

const (
	FeatureBrainstormSessions  UsageFeature = "brainstormSessions"
	FeaturePRDDocuments        UsageFeature = "prdDocuments"
	FeaturePrototypesGenerated UsageFeature = "prototypesGenerated"
)

func ParseUsageFeature(s string) (UsageFeature, error) {
	switch f := UsageFeature(s); f {
	case FeatureBrainstormSessions, FeaturePRDDocuments, FeaturePrototypesGenerated:
		return f, nil
	}
	return "", domain.ErrInvalidFeature
}

// Usage counters only ever grow within a billing period.
type Usage struct {
	BrainstormSessions  int `json:"brainstormSessions"`
	PRDDocuments        int `json:"prdDocuments"`
	PrototypesGenerated int `json:"prototypesGenerated"`
}

func (u Usage) Get(f UsageFeature) int {
	switch f {
	case FeatureBrainstormSessions:
		return u.BrainstormSessions
	case FeaturePRDDocuments:
		return u.PRDDocuments
	case FeaturePrototypesGenerated:
		return u.PrototypesGenerated
	}
	return 0
}

func (u Usage) Total() int {
	return u.BrainstormSessions + u.PRDDocuments + u.PrototypesGenerated
}

// Increment bumps one counter, refusing once the limit is reached.
func (u *Usage) Increment(f UsageFeature, limits Limits) error {
	limit := limits.For(f)
	if limit != Unlimited && u.Get(f) >= limit {
		return domain.ErrUsageLimitReached
	}
	switch f {
	case FeatureBrainstormSessions:
		u.BrainstormSessions++
	case FeaturePRDDocuments:
		u.PRDDocuments++
	case FeaturePrototypesGenerated:
		u.PrototypesGenerated++
	default:
		return domain.ErrInvalidFeature
	}
	return nil
}
