package models

import (
	"time"
)

// Plan names. Quotas for each plan live in the plan catalog.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

// Subscription statuses as reported by the payment provider. Status is
// informational only; admission is gated by the plan alone.
const (
	SubscriptionInactive  = "inactive"
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

// User represents a registered account with its current entitlement and
// usage-window state.
type User struct {
	ID                 string    `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	FirstName          string    `json:"first_name" db:"first_name"`
	LastName           string    `json:"last_name" db:"last_name"`
	Plan               string    `json:"plan" db:"plan"`
	PaymentCustomerID  string    `json:"-" db:"payment_customer_id"`
	SubscriptionStatus string    `json:"subscription_status" db:"subscription_status"`
	UsageCount         int       `json:"usage_count" db:"usage_count"`
	UsageResetDate     time.Time `json:"usage_reset_date" db:"usage_reset_date"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// UserStats summarizes a user's analysis activity for the current
// calendar month.
type UserStats struct {
	MonthlyAnalyses   int `json:"monthly_analyses"`
	AvgMatchScore     int `json:"avg_match_score"`
	MessagesGenerated int `json:"messages_generated"`
	ActiveCandidates  int `json:"active_candidates"`
}
