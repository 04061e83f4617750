// Package billing wraps the payment provider's subscription plan swap. The
// rest of the service treats it as an external collaborator behind the
// PlanSwapper capability.
package billing

import (
	"context"
	"errors"
	"time"
)

// ErrNoActiveSubscription is returned when the customer has nothing to swap.
var ErrNoActiveSubscription = errors.New("no active subscription found")

// PlanSwap asks for the customer's active subscription to move to a new price.
type PlanSwap struct {
	CustomerID string
	NewPriceID string
}

// Subscription is the post-swap state reported back to the caller.
type Subscription struct {
	ID               string    `json:"id"`
	PriceID          string    `json:"price_id,omitempty"`
	Status           string    `json:"status,omitempty"`
	CurrentPeriodEnd time.Time `json:"current_period_end,omitempty"`
}

// PlanSwapper swaps the plan on a customer's single active subscription.
type PlanSwapper interface {
	SwapPlan(ctx context.Context, swap PlanSwap) (*Subscription, error)
}
