package budget

import (
	"time"
)

const (
	CategoryEssential    = "Essential"
	CategoryNonEssential = "Non-Essential"

	BillingMonthly = "Monthly"
	BillingYearly  = "Yearly"

	UsageLow    = "Low"
	UsageMedium = "Medium"
	UsageHigh   = "High"

	DefaultIconName = "Zap"
)

// REQUESTS START:
type ExpenseRequest struct {
	Amount      float64
	Category    string
	Subcategory string
	Description string
	Date        time.Time
	IsRecurring bool
}

// ExpenseUpdate lists every expense field that may be patched. Nil fields are left untouched.
type ExpenseUpdate struct {
	Amount      *float64
	Category    *string
	Subcategory *string
	Description *string
	Date        *time.Time
	IsRecurring *bool
}

type SubscriptionRequest struct {
	Name           string
	Cost           float64
	BillingCycle   string
	NextRenewal    *time.Time
	UsageFrequency string
}

// SubscriptionUpdate lists every subscription field that may be patched. Nil fields are left untouched.
type SubscriptionUpdate struct {
	Name           *string
	Cost           *float64
	BillingCycle   *string
	NextRenewal    *time.Time
	UsageFrequency *string
	IsActive       *bool
}

type CustomCategoryRequest struct {
	Name     string
	Type     string
	IconName string
}

// REQUESTS END:

// MODELS:

type Expense struct {
	ID          string
	UserID      string
	Amount      float64
	Category    string
	Subcategory string
	Description string
	Date        time.Time
	IsRecurring bool
	CreatedAt   time.Time
}

type Subscription struct {
	ID             string
	UserID         string
	Name           string
	Cost           float64
	BillingCycle   string
	NextRenewal    *time.Time
	UsageFrequency string
	IsActive       bool
	CreatedAt      time.Time
}

type CustomCategory struct {
	ID        string
	UserID    string
	Name      string
	Type      string
	IconName  string
	CreatedAt time.Time
}

// RESPONSES:

type Insight struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	PotentialSavings string `json:"potentialSavings"`
	IconType         string `json:"iconType"`
	Category         string `json:"category"`
}

type AnalyticsSummary struct {
	TotalSpend        float64   `json:"totalSpend"`
	EssentialSpend    float64   `json:"essentialSpend"`
	NonEssentialSpend float64   `json:"nonEssentialSpend"`
	BurnScore         int       `json:"burnScore"`
	Insights          []Insight `json:"insights"`
	SubscriptionCost  float64   `json:"subscriptionCost"`
	TopWasteAreas     []Insight `json:"topWasteAreas"`
	SavingsPotential  float64   `json:"savingsPotential"`
}
