package model

// PlanType identifies one of the paid plans.
type PlanType string

const (
	PlanPremium     PlanType = "premium"
	PlanPremiumPlus PlanType = "premium_plus"
)

// Valid reports whether t is one of the paid plans.
func (t PlanType) Valid() bool {
	return t == PlanPremium || t == PlanPremiumPlus
}

// Plan describes what a plan costs and grants. Prices are integer KRW.
type Plan struct {
	Type                PlanType
	Price               int64
	ConsultationCredits int
	OrderName           string
}

// DefaultPlans returns the built-in plan catalog. premium_plus includes two
// vet-consultation credits per billing period.
func DefaultPlans() map[PlanType]Plan {
	return map[PlanType]Plan{
		PlanPremium: {
			Type:      PlanPremium,
			Price:     5900,
			OrderName: "펫밀리 프리미엄 구독",
		},
		PlanPremiumPlus: {
			Type:                PlanPremiumPlus,
			Price:               9900,
			ConsultationCredits: 2,
			OrderName:           "펫밀리 프리미엄 플러스 구독",
		},
	}
}
