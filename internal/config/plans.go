package config

import (
	"github.com/Keyzen2/spamguard-v2/internal/models"
)

// UnlimitedLimit is the sentinel allowance for plans without a monthly cap.
// It is a large finite number rather than a true infinity so that remaining
// and percentage arithmetic stays total.
const UnlimitedLimit int64 = 1<<31 - 1

// PlanCatalog maps plan tiers to monthly request allowances. Any tier not
// in the map (enterprise included) falls back to UnlimitedLimit. That
// fallback is a declared policy: callers must not rely on unknown plan
// strings being rejected.
type PlanCatalog struct {
	Limits map[models.Plan]int64
}

func NewPlanCatalog() *PlanCatalog {
	return &PlanCatalog{
		Limits: map[models.Plan]int64{
			models.FreePlan:     500,
			models.ProPlan:      10000,
			models.BusinessPlan: 100000,
		},
	}
}

// LimitFor is total: every plan string maps to an allowance.
func (c *PlanCatalog) LimitFor(plan models.Plan) int64 {
	if limit, ok := c.Limits[plan]; ok {
		return limit
	}
	return UnlimitedLimit
}

// Known reports whether the tier is a recognized plan. Enterprise is
// recognized even though it shares the unlimited fallback with unknown
// tiers; only the latter are worth a warning.
func (c *PlanCatalog) Known(plan models.Plan) bool {
	if plan == models.EnterprisePlan {
		return true
	}
	_, ok := c.Limits[plan]
	return ok
}
