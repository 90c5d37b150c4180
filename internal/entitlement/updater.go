package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jashneer/HireIQ/internal/database"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/internal/quota"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// UserStore defines the persistence operations the updater needs.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateEntitlement(ctx context.Context, userID, plan, status string) error
}

// Outcome classifies how an entitlement event was handled.
type Outcome string

const (
	// OutcomeApplied means the change was written to the user's row.
	OutcomeApplied Outcome = "applied"
	// OutcomeUnresolved means no user matched the event's subject and the
	// event was dropped.
	OutcomeUnresolved Outcome = "unresolved"
)

// Updater applies plan-change notifications from the payment provider. The
// per-user lock only serializes writers inside this process; the admission
// path in the API process guards against a change landing mid-request with a
// conditional usage write at the storage layer.
type Updater struct {
	store  UserStore
	locks  *quota.LockRegistry
	logger *logging.Logger
}

// NewUpdater creates an entitlement updater.
func NewUpdater(store UserStore, locks *quota.LockRegistry, logger *logging.Logger) *Updater {
	return &Updater{
		store:  store,
		locks:  locks,
		logger: logger,
	}
}

// ApplyChange applies an entitlement change to the matching user. Events for
// unknown users are reported as OutcomeUnresolved and dropped without error
// so the delivery path never retries them. Replaying an identical event is a
// no-op: the update assigns the event's target values, so the end state is
// the same.
//
// A cancellation always downgrades to the free plan regardless of the plan
// carried by the event. Usage counters are deliberately left untouched, so a
// downgraded user's accrued count is evaluated against the smaller quota on
// their next request.
func (u *Updater) ApplyChange(ctx context.Context, event *models.EntitlementChangeEvent) (Outcome, error) {
	user, err := u.resolve(ctx, event)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			u.logger.Warnf("Dropping entitlement event for unknown subject (user_id=%q customer_id=%q email=%q)",
				event.UserID, event.CustomerID, event.Email)
			return OutcomeUnresolved, nil
		}
		return "", fmt.Errorf("failed to resolve entitlement subject: %w", err)
	}

	targetPlan := event.Plan
	targetStatus := event.Status
	if targetStatus == models.SubscriptionCancelled {
		targetPlan = models.PlanFree
	}

	u.locks.Lock(user.ID)
	defer u.locks.Unlock(user.ID)

	if err := u.store.UpdateEntitlement(ctx, user.ID, targetPlan, targetStatus); err != nil {
		return "", fmt.Errorf("failed to apply entitlement change: %w", err)
	}

	u.logger.LogEntitlementChange(user.ID, targetPlan, targetStatus)
	return OutcomeApplied, nil
}

// resolve finds the target user by id, then by the provider's customer
// association, then by email.
func (u *Updater) resolve(ctx context.Context, event *models.EntitlementChangeEvent) (*models.User, error) {
	if event.UserID != "" {
		user, err := u.store.GetUser(ctx, event.UserID)
		if err == nil || !errors.Is(err, database.ErrNotFound) {
			return user, err
		}
	}

	if event.CustomerID != "" {
		user, err := u.store.GetUserByCustomerID(ctx, event.CustomerID)
		if err == nil || !errors.Is(err, database.ErrNotFound) {
			return user, err
		}
	}

	if event.Email != "" {
		return u.store.GetUserByEmail(ctx, event.Email)
	}

	return nil, database.ErrNotFound
}
