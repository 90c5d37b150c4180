package plan

import (
	"strconv"

	"github.com/Jashneer/HireIQ/pkg/models"
)

// Unlimited is the config sentinel for a plan without a daily limit.
const Unlimited = -1

// Quota is the daily analysis allowance of a plan.
type Quota struct {
	Limit     int
	Unlimited bool
}

// Allows reports whether one more request is admissible at the given count.
func (q Quota) Allows(count int) bool {
	return q.Unlimited || count < q.Limit
}

// String renders the quota for user-facing messages.
func (q Quota) String() string {
	if q.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(q.Limit)
}

// Catalog maps plan names to daily quotas. Plans are static at runtime; a
// user's plan only changes through entitlement updates.
type Catalog struct {
	quotas map[string]Quota
}

// defaultQuotas mirrors the product tiers: free and starter are capped per
// day, pro is unlimited.
var defaultQuotas = map[string]Quota{
	models.PlanFree:    {Limit: 3},
	models.PlanStarter: {Limit: 50},
	models.PlanPro:     {Unlimited: true},
}

// NewCatalog builds a catalog from per-plan limit overrides, where the
// Unlimited sentinel lifts the cap. Plans absent from overrides keep their
// default quota. A nil map yields the default catalog.
func NewCatalog(overrides map[string]int) *Catalog {
	quotas := make(map[string]Quota, len(defaultQuotas))
	for name, q := range defaultQuotas {
		quotas[name] = q
	}
	for name, limit := range overrides {
		if limit == Unlimited {
			quotas[name] = Quota{Unlimited: true}
			continue
		}
		if limit < 0 {
			limit = 0
		}
		quotas[name] = Quota{Limit: limit}
	}
	return &Catalog{quotas: quotas}
}

// QuotaFor resolves the quota for a plan name. Unknown plans resolve to the
// free quota so a corrupt plan value never grants extra access.
func (c *Catalog) QuotaFor(plan string) Quota {
	if q, ok := c.quotas[plan]; ok {
		return q
	}
	return c.quotas[models.PlanFree]
}
