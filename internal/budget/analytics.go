package budget

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	InsightFoodDelivery      = "food-delivery"
	InsightSubscriptionLimit = "subscriptions-limit"
	InsightSpendingSpikes    = "spending-spikes"

	maxSubscriptionsBeforeInsight = 3
	topWasteAreasCount            = 3
)

var (
	hundred = decimal.NewFromInt(100)

	nonEssentialWeight = decimal.NewFromFloat(0.6)
	subscriptionWeight = decimal.NewFromFloat(0.4)
	foodToGroceryLimit = decimal.NewFromFloat(1.5)
	spikeMultiplier    = decimal.NewFromInt(3)
	foodSavingsRate    = decimal.NewFromFloat(0.4)
	planSavingsRate    = decimal.NewFromFloat(0.2)
	spikeSavingsRate   = decimal.NewFromFloat(0.5)
	overallSavingsRate = decimal.NewFromFloat(0.3)
	maxBurnScore       = decimal.NewFromInt(100)
)

type insightDetector func(expenses []Expense, subscriptions []Subscription, currency string) (Insight, bool)

// Evaluation order is output order.
var insightDetectors = []insightDetector{
	detectFoodDelivery,
	detectSubscriptionOverload,
	detectSpendingSpikes,
}

func isEssential(e Expense) bool    { return e.Category == CategoryEssential }
func isNonEssential(e Expense) bool { return e.Category == CategoryNonEssential }

func subcategoryContains(words ...string) func(Expense) bool {
	return func(e Expense) bool {
		subcategory := strings.ToLower(e.Subcategory)
		for _, word := range words {
			if strings.Contains(subcategory, word) {
				return true
			}
		}
		return false
	}
}

func sumExpenses(expenses []Expense, keep func(Expense) bool) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if keep == nil || keep(e) {
			total = total.Add(decimal.NewFromFloat(e.Amount))
		}
	}
	return total
}

func sumSubscriptionCosts(subscriptions []Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subscriptions {
		total = total.Add(decimal.NewFromFloat(s.Cost))
	}
	return total
}

func activeOnly(subscriptions []Subscription) []Subscription {
	active := make([]Subscription, 0, len(subscriptions))
	for _, s := range subscriptions {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active
}

func formatAmount(currency string, amount decimal.Decimal) string {
	return currency + amount.String()
}

func formatSavings(currency string, amount decimal.Decimal) string {
	return currency + amount.Round(0).String()
}

// CalculateBurnScore rates discretionary spending intensity from 0 to 100.
// No expenses, or expenses that add up to zero, score 0.
func CalculateBurnScore(expenses []Expense, activeSubscriptions []Subscription) int {
	if len(expenses) == 0 {
		return 0
	}

	totalSpend := sumExpenses(expenses, nil)
	if !totalSpend.IsPositive() {
		return 0
	}
	nonEssentialSpend := sumExpenses(expenses, isNonEssential)
	subscriptionSpend := sumSubscriptionCosts(activeSubscriptions)

	// ratio*100*weight, dividing last so exact halves round the same way every time
	weighted := nonEssentialSpend.Mul(hundred).Mul(nonEssentialWeight).
		Add(subscriptionSpend.Mul(hundred).Mul(subscriptionWeight))
	score := weighted.Div(totalSpend).Round(0)

	if score.GreaterThan(maxBurnScore) {
		return 100
	}
	if score.IsNegative() {
		return 0
	}
	return int(score.IntPart())
}

// GetSmartInsights runs every detector in order and returns the insights that fired.
// currency is the literal symbol prefixed to amounts; empty means auth.DefaultCurrency.
func GetSmartInsights(expenses []Expense, activeSubscriptions []Subscription, currency string) []Insight {
	if currency == "" {
		currency = auth.DefaultCurrency
	}

	insights := make([]Insight, 0, len(insightDetectors))
	for _, detect := range insightDetectors {
		if insight, ok := detect(expenses, activeSubscriptions, currency); ok {
			insights = append(insights, insight)
		}
	}
	return insights
}

func detectFoodDelivery(expenses []Expense, _ []Subscription, currency string) (Insight, bool) {
	foodDeliverySpend := sumExpenses(expenses, subcategoryContains("food", "delivery"))
	grocerySpend := sumExpenses(expenses, subcategoryContains("grocery"))

	if !foodDeliverySpend.IsPositive() || !foodDeliverySpend.GreaterThan(grocerySpend.Mul(foodToGroceryLimit)) {
		return Insight{}, false
	}

	multiple := "many"
	if grocerySpend.IsPositive() {
		multiple = foodDeliverySpend.Div(grocerySpend).Round(0).String()
	}

	return Insight{
		ID:    InsightFoodDelivery,
		Title: "Reduce Food Ordering",
		Description: fmt.Sprintf("You spent %s on food delivery this month, %sx your grocery spend. Preparing meals at home more often could save you significantly.",
			formatAmount(currency, foodDeliverySpend), multiple),
		PotentialSavings: formatSavings(currency, foodDeliverySpend.Mul(foodSavingsRate)),
		IconType:         "Zap",
		Category:         "Food",
	}, true
}

func detectSubscriptionOverload(_ []Expense, subscriptions []Subscription, currency string) (Insight, bool) {
	if len(subscriptions) <= maxSubscriptionsBeforeInsight {
		return Insight{}, false
	}

	totalCost := sumSubscriptionCosts(subscriptions)

	return Insight{
		ID:    InsightSubscriptionLimit,
		Title: "Review Active Plans",
		Description: fmt.Sprintf("You have %d active subscriptions costing %s/mo. Switching some to annual billing or cancelling unused ones could help.",
			len(subscriptions), formatAmount(currency, totalCost)),
		PotentialSavings: formatSavings(currency, totalCost.Mul(planSavingsRate)),
		IconType:         "TrendingDown",
		Category:         "Subscriptions",
	}, true
}

func detectSpendingSpikes(expenses []Expense, _ []Subscription, currency string) (Insight, bool) {
	if len(expenses) == 0 {
		return Insight{}, false
	}

	totalSpend := sumExpenses(expenses, nil)
	count := decimal.NewFromInt(int64(len(expenses)))
	threshold := totalSpend.Mul(spikeMultiplier)

	// amount > (total/count)*3, compared without the division
	spikeCount := 0
	spikeSpend := decimal.Zero
	for _, e := range expenses {
		amount := decimal.NewFromFloat(e.Amount)
		if amount.Mul(count).GreaterThan(threshold) {
			spikeCount++
			spikeSpend = spikeSpend.Add(amount)
		}
	}

	if spikeCount == 0 {
		return Insight{}, false
	}

	return Insight{
		ID:    InsightSpendingSpikes,
		Title: "Spending Spikes Detected",
		Description: fmt.Sprintf("We detected %d spending spikes this month. These individual large purchases are the primary drivers of your high burn score.",
			spikeCount),
		PotentialSavings: formatSavings(currency, spikeSpend.Mul(spikeSavingsRate)),
		IconType:         "Target",
		Category:         "Behavior",
	}, true
}

// BuildAnalyticsSummary computes the full analytics payload from already loaded data.
func BuildAnalyticsSummary(expenses []Expense, activeSubscriptions []Subscription, currency string) AnalyticsSummary {
	totalSpend := sumExpenses(expenses, nil)
	essentialSpend := sumExpenses(expenses, isEssential)
	nonEssentialSpend := sumExpenses(expenses, isNonEssential)

	insights := GetSmartInsights(expenses, activeSubscriptions, currency)
	topWasteAreas := make([]Insight, min(topWasteAreasCount, len(insights)))
	copy(topWasteAreas, insights)

	return AnalyticsSummary{
		TotalSpend:        totalSpend.InexactFloat64(),
		EssentialSpend:    essentialSpend.InexactFloat64(),
		NonEssentialSpend: nonEssentialSpend.InexactFloat64(),
		BurnScore:         CalculateBurnScore(expenses, activeSubscriptions),
		Insights:          insights,
		SubscriptionCost:  sumSubscriptionCosts(activeSubscriptions).InexactFloat64(),
		TopWasteAreas:     topWasteAreas,
		SavingsPotential:  nonEssentialSpend.Mul(overallSavingsRate).Round(0).InexactFloat64(),
	}
}

// GetAnalytics loads the user's expenses, active subscriptions and currency concurrently
// and summarizes them. Any storage failure fails the whole call.
func (bt *BudgetTracker) GetAnalytics(ctx context.Context, userId string) (AnalyticsSummary, error) {
	var (
		expenses      []Expense
		subscriptions []Subscription
		user          auth.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := bt.storage.GetExpenses(gctx, userId)
		if err != nil {
			return fmt.Errorf("failed to get expenses: %w", err)
		}
		expenses = result
		return nil
	})
	g.Go(func() error {
		result, err := bt.storage.GetActiveSubscriptions(gctx, userId)
		if err != nil {
			return fmt.Errorf("failed to get active subscriptions: %w", err)
		}
		subscriptions = activeOnly(result)
		return nil
	})
	g.Go(func() error {
		result, err := bt.storage.GetUserByID(gctx, userId)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		user = result
		return nil
	})

	if err := g.Wait(); err != nil {
		return AnalyticsSummary{}, fmt.Errorf("failed to build analytics: %w", err)
	}

	return BuildAnalyticsSummary(expenses, subscriptions, user.Currency), nil
}
