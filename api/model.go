package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/fatali-fataliyev/burn_tracker/internal/budget"
)

// REQUESTS START:

type SaveUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type DeleteUserRequest struct {
	Password string `json:"password"`
	Reason   string `json:"reason"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ProfileUpdateRequest struct {
	DisplayName          *string  `json:"displayName"`
	MonthlyIncome        *float64 `json:"monthlyIncome"`
	Currency             *string  `json:"currency"`
	NotificationsEnabled *bool    `json:"notificationsEnabled"`
	Email                *string  `json:"email"`
	SalaryCreditDate     *int     `json:"salaryCreditDate"`
}

type CustomCategoryRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IconName string `json:"iconName"`
}

type ExpenseRequest struct {
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Description string    `json:"description"`
	Date        *JSONDate `json:"date"`
	IsRecurring bool      `json:"isRecurring"`
}

type ExpenseUpdateRequest struct {
	Amount      *float64  `json:"amount"`
	Category    *string   `json:"category"`
	Subcategory *string   `json:"subcategory"`
	Description *string   `json:"description"`
	Date        *JSONDate `json:"date"`
	IsRecurring *bool     `json:"isRecurring"`
}

type SubscriptionRequest struct {
	Name           string    `json:"name"`
	Cost           float64   `json:"cost"`
	BillingCycle   string    `json:"billingCycle"`
	NextRenewal    *JSONDate `json:"nextRenewal"`
	UsageFrequency string    `json:"usageFrequency"`
}

type SubscriptionUpdateRequest struct {
	Name           *string   `json:"name"`
	Cost           *float64  `json:"cost"`
	BillingCycle   *string   `json:"billingCycle"`
	NextRenewal    *JSONDate `json:"nextRenewal"`
	UsageFrequency *string   `json:"usageFrequency"`
	IsActive       *bool     `json:"isActive"`
}

// REQUESTS END:

// RESPONSES:

type MessageResponse struct {
	Message string `json:"message"`
}

type AuthResponse struct {
	Message string   `json:"message"`
	User    UserItem `json:"user"`
	Token   string   `json:"token"`
}

type UserCountResponse struct {
	Count int `json:"count"`
}

type UserItem struct {
	ID                   string  `json:"id"`
	Email                string  `json:"email"`
	DisplayName          string  `json:"displayName"`
	AuthMethod           string  `json:"authMethod"`
	MonthlyIncome        float64 `json:"monthlyIncome"`
	Currency             string  `json:"currency"`
	NotificationsEnabled bool    `json:"notificationsEnabled"`
	SalaryCreditDate     int     `json:"salaryCreditDate"`
	CreatedAt            string  `json:"createdAt"`
}

type CustomCategoryItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IconName string `json:"iconName"`
}

type ExpenseItem struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	IsRecurring bool    `json:"isRecurring"`
	CreatedAt   string  `json:"createdAt"`
}

type SubscriptionItem struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Cost           float64 `json:"cost"`
	BillingCycle   string  `json:"billingCycle"`
	NextRenewal    *string `json:"nextRenewal"`
	UsageFrequency string  `json:"usageFrequency"`
	IsActive       bool    `json:"isActive"`
	CreatedAt      string  `json:"createdAt"`
}

// RESPONSES END:

// JSONDate accepts either a full RFC 3339 timestamp or a bare 2006-01-02 date.
type JSONDate struct {
	time.Time
}

func (d *JSONDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string")
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			d.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date '%s', expected YYYY-MM-DD or RFC 3339", raw)
}

func (d *JSONDate) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrAccessDenied:
		return 403 // access denied
	case appErrors.ErrConflict:
		return 409 // conflict
	default:
		return 500 //internal error
	}
}

func invalidBody(message string) error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: message,
	}
}

func decodeBody(body io.Reader, dst any) error {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return invalidBody("invalid request body")
	}
	return nil
}

// decodePatch rejects any key outside dst's fields.
func decodePatch(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
			return invalidBody("invalid request body")
		}
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return invalidBody("Invalid updates!")
		}
		return invalidBody(err.Error())
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func UserToHttp(user auth.User) UserItem {
	return UserItem{
		ID:                   user.ID,
		Email:                user.Email,
		DisplayName:          user.DisplayName,
		AuthMethod:           user.AuthMethod,
		MonthlyIncome:        user.MonthlyIncome,
		Currency:             user.Currency,
		NotificationsEnabled: user.NotificationsEnabled,
		SalaryCreditDate:     user.SalaryCreditDate,
		CreatedAt:            formatTime(user.CreatedAt),
	}
}

func CustomCategoriesToHttp(categories []budget.CustomCategory) []CustomCategoryItem {
	items := make([]CustomCategoryItem, 0, len(categories))
	for _, c := range categories {
		items = append(items, CustomCategoryItem{
			ID:       c.ID,
			Name:     c.Name,
			Type:     c.Type,
			IconName: c.IconName,
		})
	}
	return items
}

func ExpenseToHttp(expense budget.Expense) ExpenseItem {
	return ExpenseItem{
		ID:          expense.ID,
		Amount:      expense.Amount,
		Category:    expense.Category,
		Subcategory: expense.Subcategory,
		Description: expense.Description,
		Date:        formatTime(expense.Date),
		IsRecurring: expense.IsRecurring,
		CreatedAt:   formatTime(expense.CreatedAt),
	}
}

func SubscriptionToHttp(subscription budget.Subscription) SubscriptionItem {
	item := SubscriptionItem{
		ID:             subscription.ID,
		Name:           subscription.Name,
		Cost:           subscription.Cost,
		BillingCycle:   subscription.BillingCycle,
		UsageFrequency: subscription.UsageFrequency,
		IsActive:       subscription.IsActive,
		CreatedAt:      formatTime(subscription.CreatedAt),
	}
	if subscription.NextRenewal != nil {
		renewal := formatTime(*subscription.NextRenewal)
		item.NextRenewal = &renewal
	}
	return item
}
