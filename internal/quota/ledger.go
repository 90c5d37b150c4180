package quota

import (
	"fmt"
	"time"

	"github.com/Jashneer/HireIQ/internal/plan"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Admitted bool
	Plan     string
	Quota    plan.Quota
	// EffectiveCount is the usage count the check compared against the
	// quota: 0 when a new window has started, the stored count otherwise.
	EffectiveCount int
	NewWindow      bool
}

// ExceededError is returned when a user has used up the daily quota of
// their plan. It carries the plan name and quota so callers can render a
// precise message.
type ExceededError struct {
	Plan  string
	Quota plan.Quota
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("you have reached your %s plan limit of %s analyses per day", e.Plan, e.Quota)
}

// NewWindow reports whether now falls in a new counting window relative to
// resetAt. Windows roll over at calendar-day boundaries, not after a 24-hour
// duration: a reset at 23:59 followed by a request at 00:01 starts a fresh
// window. The full date is compared, so the same day-of-month a month later
// still counts as a new window. A now earlier than resetAt is treated as the
// same window so clock skew can never reset a count.
func NewWindow(resetAt, now time.Time) bool {
	if now.Before(resetAt) {
		return false
	}
	ry, rm, rd := resetAt.Date()
	ny, nm, nd := now.Date()
	return ry != ny || rm != nm || rd != nd
}

// Ledger decides per-request admission against the plan catalog and advances
// a user's counting window. It never touches storage itself; callers persist
// the mutated usage fields while holding the user's lock.
type Ledger struct {
	catalog *plan.Catalog
}

// NewLedger creates a ledger backed by the given plan catalog.
func NewLedger(catalog *plan.Catalog) *Ledger {
	return &Ledger{catalog: catalog}
}

// Check decides whether the user may make one more request at now. It does
// not mutate the user.
func (l *Ledger) Check(u *models.User, now time.Time) Decision {
	q := l.catalog.QuotaFor(u.Plan)

	fresh := NewWindow(u.UsageResetDate, now)
	count := u.UsageCount
	if fresh {
		count = 0
	}

	return Decision{
		Admitted:       q.Allows(count),
		Plan:           u.Plan,
		Quota:          q,
		EffectiveCount: count,
		NewWindow:      fresh,
	}
}

// Commit records one admitted request on the user, resetting the window
// first when it has rolled over. It uses the same windowing rule as Check so
// the two paths cannot disagree about which window a request lands in. The
// caller persists UsageCount and UsageResetDate afterwards.
func (l *Ledger) Commit(u *models.User, now time.Time) {
	if NewWindow(u.UsageResetDate, now) {
		u.UsageCount = 1
		u.UsageResetDate = now
		return
	}
	u.UsageCount++
}
