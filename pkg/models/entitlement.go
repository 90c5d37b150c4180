package models

// EntitlementChangeEvent is a normalized plan-change notification from the
// payment provider. Exactly one of UserID, CustomerID or Email identifies the
// subject; resolution is attempted in that order. Delivery may duplicate, so
// applying the same event twice must leave the same end state.
type EntitlementChangeEvent struct {
	UserID     string `json:"user_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Plan       string `json:"plan"`
	Status     string `json:"status"`
}
