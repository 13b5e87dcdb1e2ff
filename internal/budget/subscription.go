package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/google/uuid"
)

func validateSubscription(s Subscription) error {
	if s.Name == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Subscription name is required",
		}
	}
	if len(s.Name) > MAX_SUBSCRIPTION_NAME_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Subscription name so long, maximum allowed length is: %d", MAX_SUBSCRIPTION_NAME_LENGTH),
		}
	}
	if s.Cost < 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Subscription cost cannot be negative",
		}
	}
	if s.Cost > MAX_SUBSCRIPTION_COST_LIMIT {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Maximum allowed subscription cost is: %.2f", MAX_SUBSCRIPTION_COST_LIMIT),
		}
	}
	if s.BillingCycle != BillingMonthly && s.BillingCycle != BillingYearly {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid billing cycle: '%s', allowed values: %s, %s", s.BillingCycle, BillingMonthly, BillingYearly),
		}
	}
	switch s.UsageFrequency {
	case UsageLow, UsageMedium, UsageHigh:
	default:
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid usage frequency: '%s', allowed values: %s, %s, %s", s.UsageFrequency, UsageLow, UsageMedium, UsageHigh),
		}
	}
	return nil
}

func (bt *BudgetTracker) GetSubscriptions(ctx context.Context, userId string) ([]Subscription, error) {
	subscriptions, err := bt.storage.GetSubscriptions(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}
	if subscriptions == nil {
		subscriptions = []Subscription{}
	}
	return subscriptions, nil
}

func (bt *BudgetTracker) SaveSubscription(ctx context.Context, userId string, req SubscriptionRequest) (Subscription, error) {
	subscription := Subscription{
		ID:             uuid.New().String(),
		UserID:         userId,
		Name:           strings.TrimSpace(req.Name),
		Cost:           auth.RoundCents(req.Cost),
		BillingCycle:   req.BillingCycle,
		NextRenewal:    req.NextRenewal,
		UsageFrequency: req.UsageFrequency,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	if subscription.BillingCycle == "" {
		subscription.BillingCycle = BillingMonthly
	}
	if subscription.UsageFrequency == "" {
		subscription.UsageFrequency = UsageMedium
	}

	if err := validateSubscription(subscription); err != nil {
		return Subscription{}, err
	}

	if err := bt.storage.SaveSubscription(ctx, subscription); err != nil {
		return Subscription{}, fmt.Errorf("failed to save subscription: %w", err)
	}
	return subscription, nil
}

// UpdateSubscription patches a subscription the user owns. Someone else's id is NOT FOUND.
func (bt *BudgetTracker) UpdateSubscription(ctx context.Context, userId string, subscriptionId string, update SubscriptionUpdate) (Subscription, error) {
	subscription, err := bt.storage.GetSubscriptionById(ctx, userId, subscriptionId)
	if err != nil {
		return Subscription{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	if update.Name != nil {
		subscription.Name = strings.TrimSpace(*update.Name)
	}
	if update.Cost != nil {
		subscription.Cost = auth.RoundCents(*update.Cost)
	}
	if update.BillingCycle != nil {
		subscription.BillingCycle = *update.BillingCycle
	}
	if update.NextRenewal != nil {
		renewal := update.NextRenewal.UTC()
		subscription.NextRenewal = &renewal
	}
	if update.UsageFrequency != nil {
		subscription.UsageFrequency = *update.UsageFrequency
	}
	if update.IsActive != nil {
		subscription.IsActive = *update.IsActive
	}

	if err := validateSubscription(subscription); err != nil {
		return Subscription{}, err
	}

	if err := bt.storage.UpdateSubscription(ctx, subscription); err != nil {
		return Subscription{}, fmt.Errorf("failed to update subscription: %w", err)
	}
	return subscription, nil
}
