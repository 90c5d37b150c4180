package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jashneer/HireIQ/pkg/models"
)

func TestCatalog_Defaults(t *testing.T) {
	c := NewCatalog(nil)

	free := c.QuotaFor(models.PlanFree)
	assert.Equal(t, 3, free.Limit)
	assert.False(t, free.Unlimited)

	starter := c.QuotaFor(models.PlanStarter)
	assert.Equal(t, 50, starter.Limit)

	pro := c.QuotaFor(models.PlanPro)
	assert.True(t, pro.Unlimited)
}

func TestCatalog_UnknownPlanFailsClosed(t *testing.T) {
	c := NewCatalog(nil)

	q := c.QuotaFor("enterprise-gold")
	assert.Equal(t, c.QuotaFor(models.PlanFree), q)

	q = c.QuotaFor("")
	assert.Equal(t, 3, q.Limit)
	assert.False(t, q.Unlimited)
}

func TestCatalog_Overrides(t *testing.T) {
	c := NewCatalog(map[string]int{
		models.PlanFree:    5,
		models.PlanStarter: Unlimited,
	})

	assert.Equal(t, 5, c.QuotaFor(models.PlanFree).Limit)
	assert.True(t, c.QuotaFor(models.PlanStarter).Unlimited)
	// Untouched plans keep their defaults.
	assert.True(t, c.QuotaFor(models.PlanPro).Unlimited)
}

func TestQuota_Allows(t *testing.T) {
	q := Quota{Limit: 3}
	assert.True(t, q.Allows(0))
	assert.True(t, q.Allows(2))
	assert.False(t, q.Allows(3))
	assert.False(t, q.Allows(500))

	zero := Quota{Limit: 0}
	assert.False(t, zero.Allows(0))

	unlimited := Quota{Unlimited: true}
	assert.True(t, unlimited.Allows(0))
	assert.True(t, unlimited.Allows(1000000))
}

func TestQuota_String(t *testing.T) {
	assert.Equal(t, "3", Quota{Limit: 3}.String())
	assert.Equal(t, "unlimited", Quota{Unlimited: true}.String())
}
