package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/fatali-fataliyev/burn_tracker/internal/budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ budget.Storage = (*InMemoryStorage)(nil)
	_ budget.Storage = (*MySQLStorage)(nil)
)

func TestInMemoryStorage_Users(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()

	user := auth.User{ID: "u1", Email: "john@example.com", AuthMethod: auth.AuthMethodLocal, Currency: "₹"}
	require.NoError(t, store.SaveUser(ctx, user))

	err := store.SaveUser(ctx, auth.User{ID: "u2", Email: "john@example.com"})
	assert.Equal(t, appErrors.ErrConflict, appErrors.CodeOf(err))

	taken, err := store.IsEmailTaken(ctx, "JOHN@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = store.GetUserByID(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))

	user.Currency = "$"
	user.Email = "ignored@example.com"
	require.NoError(t, store.UpdateUser(ctx, user))
	got, err := store.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "$", got.Currency)
	assert.Equal(t, "john@example.com", got.Email)

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryStorage_DeleteUserRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()

	require.NoError(t, store.SaveUser(ctx, auth.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, store.SaveUser(ctx, auth.User{ID: "u2", Email: "b@example.com"}))
	for _, userId := range []string{"u1", "u2"} {
		require.NoError(t, store.SaveSession(ctx, auth.Session{Token: "tok-" + userId, UserID: userId}))
		require.NoError(t, store.SaveExpense(ctx, budget.Expense{ID: "e-" + userId, UserID: userId}))
		require.NoError(t, store.SaveSubscription(ctx, budget.Subscription{ID: "s-" + userId, UserID: userId, IsActive: true}))
		require.NoError(t, store.SaveCustomCategory(ctx, budget.CustomCategory{ID: "c-" + userId, UserID: userId, Name: "Pets"}))
	}

	require.NoError(t, store.DeleteUser(ctx, "u1", "moving on"))

	_, err := store.GetSessionByToken(ctx, "tok-u1")
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
	expenses, _ := store.GetExpenses(ctx, "u1")
	assert.Empty(t, expenses)
	subscriptions, _ := store.GetSubscriptions(ctx, "u1")
	assert.Empty(t, subscriptions)
	categories, _ := store.GetCustomCategories(ctx, "u1")
	assert.Empty(t, categories)
	assert.Equal(t, []string{"moving on"}, store.deleteReasons)

	expenses, _ = store.GetExpenses(ctx, "u2")
	assert.Len(t, expenses, 1)

	err = store.DeleteUser(ctx, "u1", "")
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func TestInMemoryStorage_Sessions(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()
	expireAt := time.Now().UTC().Add(time.Hour)

	require.NoError(t, store.SaveSession(ctx, auth.Session{ID: "s1", Token: "tok", UserID: "u1", ExpireAt: expireAt}))

	later := expireAt.Add(24 * time.Hour)
	require.NoError(t, store.UpdateSession(ctx, "tok", later))
	session, err := store.GetSessionByToken(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, later.Equal(session.ExpireAt))

	err = store.UpdateSession(ctx, "other", later)
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))

	// a different user's logout does not touch the session
	require.NoError(t, store.LogoutUser(ctx, "u2", "tok"))
	_, err = store.GetSessionByToken(ctx, "tok")
	require.NoError(t, err)

	require.NoError(t, store.LogoutUser(ctx, "u1", "tok"))
	_, err = store.GetSessionByToken(ctx, "tok")
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func TestInMemoryStorage_ExpensesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()
	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveExpense(ctx, budget.Expense{ID: "old", UserID: "u1", Date: day}))
	require.NoError(t, store.SaveExpense(ctx, budget.Expense{ID: "new", UserID: "u1", Date: day.AddDate(0, 0, 2)}))
	require.NoError(t, store.SaveExpense(ctx, budget.Expense{ID: "mid", UserID: "u1", Date: day.AddDate(0, 0, 1)}))

	expenses, err := store.GetExpenses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, expenses, 3)
	assert.Equal(t, "new", expenses[0].ID)
	assert.Equal(t, "mid", expenses[1].ID)
	assert.Equal(t, "old", expenses[2].ID)

	err = store.DeleteExpense(ctx, "u2", "old")
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
	require.NoError(t, store.DeleteAllExpenses(ctx, "u1"))
	expenses, err = store.GetExpenses(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, expenses)
	assert.Empty(t, expenses)
}

func TestInMemoryStorage_Subscriptions(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()
	renewal := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveSubscription(ctx, budget.Subscription{ID: "s1", UserID: "u1", IsActive: true, NextRenewal: &renewal}))
	require.NoError(t, store.SaveSubscription(ctx, budget.Subscription{ID: "s2", UserID: "u1", IsActive: false}))

	renewal = renewal.AddDate(1, 0, 0)
	got, err := store.GetSubscriptionById(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.NextRenewal.Year(), "stored renewal must not alias the caller's value")

	active, err := store.GetActiveSubscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s1", active[0].ID)

	got.IsActive = false
	got.UserID = "u2"
	err = store.UpdateSubscription(ctx, got)
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))

	_, err = store.GetSubscriptionById(ctx, "u2", "s1")
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func TestInMemoryStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.SaveExpense(ctx, budget.Expense{UserID: "u1", Amount: 1})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.GetExpenses(ctx, "u1")
		}()
	}
	wg.Wait()

	expenses, err := store.GetExpenses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, expenses, 50)
}
