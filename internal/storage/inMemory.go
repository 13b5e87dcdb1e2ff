package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	authModel "github.com/fatali-fataliyev/burn_tracker/internal/auth"
	budgetModel "github.com/fatali-fataliyev/burn_tracker/internal/budget"
)

// InMemoryStorage keeps everything in process memory. Slices are copied on the way in and out.
type InMemoryStorage struct {
	mu            sync.RWMutex
	users         []authModel.User
	sessions      []authModel.Session
	categories    []budgetModel.CustomCategory
	expenses      []budgetModel.Expense
	subscriptions []budgetModel.Subscription
	deleteReasons []string
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{}
}

func (inMem *InMemoryStorage) GetStorageType() string {
	return "inmemory"
}

func cloneSubscription(s budgetModel.Subscription) budgetModel.Subscription {
	if s.NextRenewal != nil {
		renewal := *s.NextRenewal
		s.NextRenewal = &renewal
	}
	return s
}

// --- USERS --- //

func (inMem *InMemoryStorage) SaveUser(ctx context.Context, newUser authModel.User) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, user := range inMem.users {
		if user.Email == newUser.Email || (newUser.GoogleID != "" && user.GoogleID == newUser.GoogleID) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "User already exists",
			}
		}
	}
	inMem.users = append(inMem.users, newUser)
	return nil
}

func (inMem *InMemoryStorage) findUser(match func(authModel.User) bool) (authModel.User, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, user := range inMem.users {
		if match(user) {
			return user, nil
		}
	}
	return authModel.User{}, notFound("User not found")
}

func (inMem *InMemoryStorage) GetUserByID(ctx context.Context, userId string) (authModel.User, error) {
	return inMem.findUser(func(u authModel.User) bool { return u.ID == userId })
}

func (inMem *InMemoryStorage) GetUserByEmail(ctx context.Context, email string) (authModel.User, error) {
	return inMem.findUser(func(u authModel.User) bool { return strings.EqualFold(u.Email, email) })
}

func (inMem *InMemoryStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := inMem.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (inMem *InMemoryStorage) CountUsers(ctx context.Context) (int, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()
	return len(inMem.users), nil
}

func (inMem *InMemoryStorage) UpdateUser(ctx context.Context, updated authModel.User) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, user := range inMem.users {
		if user.ID == updated.ID {
			updated.Email = user.Email
			updated.CreatedAt = user.CreatedAt
			inMem.users[i] = updated
			return nil
		}
	}
	return notFound("User not found")
}

func (inMem *InMemoryStorage) DeleteUser(ctx context.Context, userId string, reason string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	idx := -1
	for i, user := range inMem.users {
		if user.ID == userId {
			idx = i
			break
		}
	}
	if idx == -1 {
		return notFound("User does not exist.")
	}
	inMem.users = append(inMem.users[:idx], inMem.users[idx+1:]...)

	inMem.sessions = filterOut(inMem.sessions, func(s authModel.Session) bool { return s.UserID == userId })
	inMem.categories = filterOut(inMem.categories, func(c budgetModel.CustomCategory) bool { return c.UserID == userId })
	inMem.expenses = filterOut(inMem.expenses, func(e budgetModel.Expense) bool { return e.UserID == userId })
	inMem.subscriptions = filterOut(inMem.subscriptions, func(s budgetModel.Subscription) bool { return s.UserID == userId })
	inMem.deleteReasons = append(inMem.deleteReasons, reason)
	return nil
}

func filterOut[T any](items []T, drop func(T) bool) []T {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if !drop(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

// --- SESSIONS --- //

func (inMem *InMemoryStorage) SaveSession(ctx context.Context, session authModel.Session) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()
	inMem.sessions = append(inMem.sessions, session)
	return nil
}

func (inMem *InMemoryStorage) GetSessionByToken(ctx context.Context, token string) (authModel.Session, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, session := range inMem.sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return authModel.Session{}, notFound("Session does not exist, please login.")
}

func (inMem *InMemoryStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, session := range inMem.sessions {
		if session.Token == token {
			inMem.sessions[i].ExpireAt = expireAt
			return nil
		}
	}
	return notFound("Session does not exist, please login.")
}

func (inMem *InMemoryStorage) LogoutUser(ctx context.Context, userId string, token string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	inMem.sessions = filterOut(inMem.sessions, func(s authModel.Session) bool {
		return s.UserID == userId && s.Token == token
	})
	return nil
}

// --- CUSTOM CATEGORIES --- //

func (inMem *InMemoryStorage) SaveCustomCategory(ctx context.Context, category budgetModel.CustomCategory) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, c := range inMem.categories {
		if c.UserID == category.UserID && strings.EqualFold(c.Name, category.Name) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "Category already exists",
			}
		}
	}
	inMem.categories = append(inMem.categories, category)
	return nil
}

func (inMem *InMemoryStorage) GetCustomCategories(ctx context.Context, userId string) ([]budgetModel.CustomCategory, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	result := []budgetModel.CustomCategory{}
	for _, c := range inMem.categories {
		if c.UserID == userId {
			result = append(result, c)
		}
	}
	return result, nil
}

// --- EXPENSES --- //

func (inMem *InMemoryStorage) SaveExpense(ctx context.Context, expense budgetModel.Expense) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()
	inMem.expenses = append(inMem.expenses, expense)
	return nil
}

func (inMem *InMemoryStorage) GetExpenses(ctx context.Context, userId string) ([]budgetModel.Expense, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	result := []budgetModel.Expense{}
	for _, e := range inMem.expenses {
		if e.UserID == userId {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (inMem *InMemoryStorage) GetExpenseById(ctx context.Context, userId string, expenseId string) (budgetModel.Expense, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, e := range inMem.expenses {
		if e.ID == expenseId && e.UserID == userId {
			return e, nil
		}
	}
	return budgetModel.Expense{}, notFound("Expense not found or unauthorized")
}

func (inMem *InMemoryStorage) UpdateExpense(ctx context.Context, expense budgetModel.Expense) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, e := range inMem.expenses {
		if e.ID == expense.ID && e.UserID == expense.UserID {
			inMem.expenses[i] = expense
			return nil
		}
	}
	return notFound("Expense not found or unauthorized")
}

func (inMem *InMemoryStorage) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, e := range inMem.expenses {
		if e.ID == expenseId && e.UserID == userId {
			inMem.expenses = append(inMem.expenses[:i], inMem.expenses[i+1:]...)
			return nil
		}
	}
	return notFound("Expense not found or unauthorized")
}

func (inMem *InMemoryStorage) DeleteAllExpenses(ctx context.Context, userId string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()
	inMem.expenses = filterOut(inMem.expenses, func(e budgetModel.Expense) bool { return e.UserID == userId })
	return nil
}

// --- SUBSCRIPTIONS --- //

func (inMem *InMemoryStorage) SaveSubscription(ctx context.Context, subscription budgetModel.Subscription) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()
	inMem.subscriptions = append(inMem.subscriptions, cloneSubscription(subscription))
	return nil
}

func (inMem *InMemoryStorage) filterSubscriptions(keep func(budgetModel.Subscription) bool) []budgetModel.Subscription {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	result := []budgetModel.Subscription{}
	for _, s := range inMem.subscriptions {
		if keep(s) {
			result = append(result, cloneSubscription(s))
		}
	}
	return result
}

func (inMem *InMemoryStorage) GetSubscriptions(ctx context.Context, userId string) ([]budgetModel.Subscription, error) {
	return inMem.filterSubscriptions(func(s budgetModel.Subscription) bool {
		return s.UserID == userId
	}), nil
}

func (inMem *InMemoryStorage) GetActiveSubscriptions(ctx context.Context, userId string) ([]budgetModel.Subscription, error) {
	return inMem.filterSubscriptions(func(s budgetModel.Subscription) bool {
		return s.UserID == userId && s.IsActive
	}), nil
}

func (inMem *InMemoryStorage) GetSubscriptionById(ctx context.Context, userId string, subscriptionId string) (budgetModel.Subscription, error) {
	found := inMem.filterSubscriptions(func(s budgetModel.Subscription) bool {
		return s.ID == subscriptionId && s.UserID == userId
	})
	if len(found) == 0 {
		return budgetModel.Subscription{}, notFound("Subscription not found")
	}
	return found[0], nil
}

func (inMem *InMemoryStorage) UpdateSubscription(ctx context.Context, subscription budgetModel.Subscription) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, s := range inMem.subscriptions {
		if s.ID == subscription.ID && s.UserID == subscription.UserID {
			inMem.subscriptions[i] = cloneSubscription(subscription)
			return nil
		}
	}
	return notFound("Subscription not found")
}
