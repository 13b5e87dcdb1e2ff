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

func validateExpense(e Expense) error {
	if e.Amount < 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Expense amount cannot be negative",
		}
	}
	if e.Amount > MAX_EXPENSE_AMOUNT_LIMIT {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Maximum allowed amount per expense is: %.2f", MAX_EXPENSE_AMOUNT_LIMIT),
		}
	}
	if err := validateCategory(e.Category); err != nil {
		return err
	}
	if e.Subcategory == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Subcategory is required",
		}
	}
	if len(e.Subcategory) > MAX_SUBCATEGORY_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Subcategory so long, maximum allowed length is: %d", MAX_SUBCATEGORY_LENGTH),
		}
	}
	if len(e.Description) > MAX_DESCRIPTION_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Description so long, maximum allowed length is: %d", MAX_DESCRIPTION_LENGTH),
		}
	}
	return nil
}

// GetExpenses returns the user's expenses, newest date first.
func (bt *BudgetTracker) GetExpenses(ctx context.Context, userId string) ([]Expense, error) {
	expenses, err := bt.storage.GetExpenses(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	if expenses == nil {
		expenses = []Expense{}
	}
	return expenses, nil
}

func (bt *BudgetTracker) SaveExpense(ctx context.Context, userId string, req ExpenseRequest) (Expense, error) {
	now := time.Now().UTC()

	expense := Expense{
		ID:          uuid.New().String(),
		UserID:      userId,
		Amount:      auth.RoundCents(req.Amount),
		Category:    req.Category,
		Subcategory: strings.TrimSpace(req.Subcategory),
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date.UTC(),
		IsRecurring: req.IsRecurring,
		CreatedAt:   now,
	}
	if expense.Date.IsZero() {
		expense.Date = now
	}

	if err := validateExpense(expense); err != nil {
		return Expense{}, err
	}

	if err := bt.storage.SaveExpense(ctx, expense); err != nil {
		return Expense{}, fmt.Errorf("failed to save expense: %w", err)
	}
	return expense, nil
}

// UpdateExpense patches the fields set in update on an expense the user owns.
func (bt *BudgetTracker) UpdateExpense(ctx context.Context, userId string, expenseId string, update ExpenseUpdate) (Expense, error) {
	expense, err := bt.storage.GetExpenseById(ctx, userId, expenseId)
	if err != nil {
		return Expense{}, fmt.Errorf("failed to get expense: %w", err)
	}

	if update.Amount != nil {
		expense.Amount = auth.RoundCents(*update.Amount)
	}
	if update.Category != nil {
		expense.Category = *update.Category
	}
	if update.Subcategory != nil {
		expense.Subcategory = strings.TrimSpace(*update.Subcategory)
	}
	if update.Description != nil {
		expense.Description = strings.TrimSpace(*update.Description)
	}
	if update.Date != nil {
		expense.Date = update.Date.UTC()
	}
	if update.IsRecurring != nil {
		expense.IsRecurring = *update.IsRecurring
	}

	if err := validateExpense(expense); err != nil {
		return Expense{}, err
	}

	if err := bt.storage.UpdateExpense(ctx, expense); err != nil {
		return Expense{}, fmt.Errorf("failed to update expense: %w", err)
	}
	return expense, nil
}

func (bt *BudgetTracker) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	if err := bt.storage.DeleteExpense(ctx, userId, expenseId); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// ResetExpenses clears every expense of the user.
func (bt *BudgetTracker) ResetExpenses(ctx context.Context, userId string) error {
	if err := bt.storage.DeleteAllExpenses(ctx, userId); err != nil {
		return fmt.Errorf("failed to reset expenses: %w", err)
	}
	return nil
}
