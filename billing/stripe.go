package billing

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripePlanSwapper implements PlanSwapper against the Stripe API.
type StripePlanSwapper struct {
	api *client.API
}

var _ PlanSwapper = (*StripePlanSwapper)(nil)

func NewStripePlanSwapper(secretKey string) (*StripePlanSwapper, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}

	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripePlanSwapper{api: api}, nil
}

// SwapPlan moves the customer's single active subscription to the new price
// without proration.
func (s *StripePlanSwapper) SwapPlan(ctx context.Context, swap PlanSwap) (*Subscription, error) {
	listParams := &stripe.SubscriptionListParams{
		Customer: stripe.String(swap.CustomerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := s.api.Subscriptions.List(listParams)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("stripe: failed to list subscriptions: %w", err)
		}
		return nil, ErrNoActiveSubscription
	}

	sub := iter.Subscription()
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("stripe: subscription %s has no items", sub.ID)
	}

	updateParams := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(sub.Items.Data[0].ID),
			Price: stripe.String(swap.NewPriceID),
		}},
		ProrationBehavior: stripe.String("none"),
	}
	updateParams.Context = ctx

	updated, err := s.api.Subscriptions.Update(sub.ID, updateParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to update subscription %s: %w", sub.ID, err)
	}

	out := &Subscription{
		ID:      updated.ID,
		PriceID: swap.NewPriceID,
		Status:  string(updated.Status),
	}
	if updated.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(updated.CurrentPeriodEnd, 0).UTC()
	}
	return out, nil
}
