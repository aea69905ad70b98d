package model

import (
	"strings"

	"idea-to-market/internal/domain"
)

// Plan is a subscription tier. The tier alone decides features and usage limits.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// Unlimited marks a usage limit that is never enforced.
const Unlimited = -1

var planFeatures = map[Plan][]string{
	PlanFree:         {"brainstormer", "limited_prd", "limited_prototype"},
	PlanStarter:      {"brainstormer", "prd_creator", "basic_prototype", "export_pdf"},
	PlanProfessional: {"brainstormer", "advanced_prd", "advanced_prototype", "collaboration", "priority_support"},
	PlanEnterprise:   {"all_features", "white_label", "api_access", "dedicated_support", "custom_integrations"},
}

var planLimits = map[Plan]Limits{
	PlanFree:         {BrainstormSessions: 3, PRDDocuments: 1, PrototypesGenerated: 1},
	PlanStarter:      {BrainstormSessions: 20, PRDDocuments: 10, PrototypesGenerated: 5},
	PlanProfessional: {BrainstormSessions: 100, PRDDocuments: 50, PrototypesGenerated: 25},
	PlanEnterprise:   {BrainstormSessions: Unlimited, PRDDocuments: Unlimited, PrototypesGenerated: Unlimited},
}

// ParsePlan accepts a plan name in any case.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := planFeatures[p]; !ok {
		return "", domain.ErrInvalidPlan
	}
	return p, nil
}

func (p Plan) Valid() bool {
	_, ok := planFeatures[p]
	return ok
}

// Features returns a fresh copy of the plan's capability tags.
// Unknown plans resolve to the free tier.
func (p Plan) Features() []string {
	f, ok := planFeatures[p]
	if !ok {
		f = planFeatures[PlanFree]
	}
	out := make([]string, len(f))
	copy(out, f)
	return out
}

func (p Plan) Limits() Limits {
	l, ok := planLimits[p]
	if !ok {
		return planLimits[PlanFree]
	}
	return l
}

// Limits holds per-feature caps for a billing period.
type Limits struct {
	BrainstormSessions  int `json:"brainstormSessions"`
	PRDDocuments        int `json:"prdDocuments"`
	PrototypesGenerated int `json:"prototypesGenerated"`
}

func (l Limits) For(f UsageFeature) int {
	switch f {
	case FeatureBrainstormSessions:
		return l.BrainstormSessions
	case FeaturePRDDocuments:
		return l.PRDDocuments
	case FeaturePrototypesGenerated:
		return l.PrototypesGenerated
	}
	return 0
}
