package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/fatali-fataliyev/burn_tracker/internal/budget"
	"github.com/fatali-fataliyev/burn_tracker/internal/config"
	"github.com/fatali-fataliyev/burn_tracker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	bt := budget.NewBudgetTracker(storage.NewInMemoryStorage(), budget.Options{})
	cfg := &config.Config{
		CORSOrigins:       []string{"http://localhost:5173"},
		RateLimitRequests: 1000,
		RateLimitWindow:   15 * time.Minute,
	}
	return NewHandler(cfg, NewApi(&bt).Routes())
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func register(t *testing.T, h http.Handler, email, password string) string {
	t.Helper()
	rec := do(t, h, "POST", "/api/auth/register", "", SaveUserRequest{Email: email, Password: password, DisplayName: "John"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[AuthResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, strings.ToLower(email), resp.User.Email)
	return resp.Token
}

func TestRootHandler(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, "GET", "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), WelcomeMessage)
	assert.NotEmpty(t, rec.Header().Get(TraceIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "John@Example.com", "secret123")

	t.Run("duplicate email", func(t *testing.T) {
		rec := do(t, h, "POST", "/api/auth/register", "", SaveUserRequest{Email: "john@example.com", Password: "secret123"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, appErrors.ErrConflict, decode[appErrors.ErrorResponse](t, rec).Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		rec := do(t, h, "POST", "/api/auth/register", "", SaveUserRequest{Email: "nope", Password: "secret123"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, h, "POST", "/api/auth/register", "", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := do(t, h, "POST", "/api/auth/login", "", UserLoginRequest{Email: "john@example.com", Password: "wrong-pass"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decode[appErrors.ErrorResponse](t, rec).Message)
	})

	t.Run("login is case-insensitive on email", func(t *testing.T) {
		rec := do(t, h, "POST", "/api/auth/login", "", UserLoginRequest{Email: "JOHN@example.com", Password: "secret123"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[AuthResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "john@example.com", resp.User.Email)
		assert.Equal(t, "John", resp.User.DisplayName)
		assert.Equal(t, "local", resp.User.AuthMethod)
		assert.NotEmpty(t, resp.User.ID)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("user count is public", func(t *testing.T) {
		rec := do(t, h, "GET", "/api/auth/users/count", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[UserCountResponse](t, rec).Count)
	})
}

func TestGoogleLoginWithoutVerifier(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, "POST", "/api/auth/google", "", GoogleLoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/auth/google", "", GoogleLoginRequest{IDToken: "id-token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthentication(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "john@example.com", "secret123")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer deadbeef", want: http.StatusUnauthorized},
		{name: "bearer token", header: "Bearer " + token, want: http.StatusOK},
		{name: "bare token", header: token, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/expenses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, appErrors.ErrAuth, decode[appErrors.ErrorResponse](t, rec).Code)
			}
		})
	}

	t.Run("logout ends the session", func(t *testing.T) {
		rec := do(t, h, "GET", "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, h, "GET", "/api/expenses", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestProfileEndpoints(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "john@example.com", "secret123")

	rec := do(t, h, "GET", "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[UserItem](t, rec)
	assert.Equal(t, "john@example.com", profile.Email)
	assert.Equal(t, "₹", profile.Currency)
	assert.NotContains(t, rec.Body.String(), "password")

	t.Run("patch applies allowed fields and ignores email", func(t *testing.T) {
		rec := do(t, h, "PATCH", "/api/auth/profile", token, `{"currency":"$","monthlyIncome":5000,"email":"new@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[UserItem](t, rec)
		assert.Equal(t, "$", updated.Currency)
		assert.Equal(t, 5000.0, updated.MonthlyIncome)
		assert.Equal(t, "john@example.com", updated.Email)
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		rec := do(t, h, "PATCH", "/api/auth/profile", token, `{"authMethod":"google"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid updates!", decode[appErrors.ErrorResponse](t, rec).Message)
	})

	t.Run("change password", func(t *testing.T) {
		rec := do(t, h, "PATCH", "/api/auth/change-password", token, ChangePasswordRequest{CurrentPassword: "nope123", NewPassword: "another123"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Current password incorrect", decode[appErrors.ErrorResponse](t, rec).Message)

		rec = do(t, h, "PATCH", "/api/auth/change-password", token, ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "another123"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, h, "POST", "/api/auth/login", "", UserLoginRequest{Email: "john@example.com", Password: "another123"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete account", func(t *testing.T) {
		rec := do(t, h, "DELETE", "/api/auth/profile", token, DeleteUserRequest{Password: "wrong-pass"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(t, h, "DELETE", "/api/auth/profile", token, DeleteUserRequest{Password: "another123", Reason: "done"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "john@example.com", decode[UserItem](t, rec).Email)

		rec = do(t, h, "GET", "/api/auth/profile", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("delete account without body", func(t *testing.T) {
		otherToken := register(t, h, "jane@example.com", "secret123")

		rec := do(t, h, "DELETE", "/api/auth/profile", otherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "jane@example.com", decode[UserItem](t, rec).Email)

		rec = do(t, h, "POST", "/api/auth/login", "", UserLoginRequest{Email: "jane@example.com", Password: "secret123"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCustomCategoryEndpoints(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "john@example.com", "secret123")

	rec := do(t, h, "GET", "/api/auth/categories", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, h, "POST", "/api/auth/categories", token, CustomCategoryRequest{Name: "Pets", Type: budget.CategoryNonEssential})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	categories := decode[[]CustomCategoryItem](t, rec)
	require.Len(t, categories, 1)
	assert.Equal(t, budget.DefaultIconName, categories[0].IconName)

	rec = do(t, h, "POST", "/api/auth/categories", token, CustomCategoryRequest{Name: "pets", Type: budget.CategoryEssential})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, "POST", "/api/auth/categories", token, CustomCategoryRequest{Name: "Gym"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name and type are required", decode[appErrors.ErrorResponse](t, rec).Message)
}

func TestExpenseEndpoints(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "john@example.com", "secret123")
	otherToken := register(t, h, "jane@example.com", "secret123")

	rec := do(t, h, "POST", "/api/expenses", token, `{"amount":120.5,"category":"Non-Essential","subcategory":"Coffee","date":"2025-06-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ExpenseItem](t, rec)
	assert.Equal(t, "2025-06-01T00:00:00Z", created.Date)

	rec = do(t, h, "POST", "/api/expenses", token, `{"amount":10,"category":"Luxury","subcategory":"Coffee"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/expenses", token, `{"amount":10,"category":"Essential","subcategory":"Rent","date":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("patch", func(t *testing.T) {
		rec := do(t, h, "PATCH", "/api/expenses/"+created.ID, token, `{"userId":"someone-else"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid updates!", decode[appErrors.ErrorResponse](t, rec).Message)

		rec = do(t, h, "PATCH", "/api/expenses/"+created.ID, token, `{"amount":99,"date":"2025-06-03T10:00:00Z"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[ExpenseItem](t, rec)
		assert.Equal(t, 99.0, updated.Amount)
		assert.Equal(t, "Coffee", updated.Subcategory)
		assert.Equal(t, "2025-06-03T10:00:00Z", updated.Date)

		rec = do(t, h, "PATCH", "/api/expenses/"+created.ID, otherToken, `{"amount":1}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list is scoped to the caller", func(t *testing.T) {
		rec := do(t, h, "GET", "/api/expenses", otherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())

		rec = do(t, h, "GET", "/api/expenses", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]ExpenseItem](t, rec), 1)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, h, "DELETE", "/api/expenses/"+created.ID, otherToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Expense not found or unauthorized", decode[appErrors.ErrorResponse](t, rec).Message)

		rec = do(t, h, "DELETE", "/api/expenses/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Expense deleted", decode[MessageResponse](t, rec).Message)
	})

	t.Run("reset", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			rec := do(t, h, "POST", "/api/expenses", token, ExpenseRequest{Amount: 5, Category: budget.CategoryEssential, Subcategory: "Bus"})
			require.Equal(t, http.StatusCreated, rec.Code)
		}
		rec := do(t, h, "POST", "/api/expenses/reset", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "All expenses cleared", decode[MessageResponse](t, rec).Message)

		rec = do(t, h, "GET", "/api/expenses", token, nil)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestSubscriptionEndpoints(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "john@example.com", "secret123")
	otherToken := register(t, h, "jane@example.com", "secret123")

	rec := do(t, h, "POST", "/api/subscriptions", token, `{"name":"Netflix","cost":649,"nextRenewal":"2025-07-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[SubscriptionItem](t, rec)
	assert.Equal(t, budget.BillingMonthly, created.BillingCycle)
	assert.Equal(t, budget.UsageMedium, created.UsageFrequency)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.NextRenewal)
	assert.Equal(t, "2025-07-01T00:00:00Z", *created.NextRenewal)

	rec = do(t, h, "POST", "/api/subscriptions", token, `{"name":"Gym","cost":10,"billingCycle":"Weekly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "PATCH", "/api/subscriptions/"+created.ID, otherToken, `{"isActive":false}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "PATCH", "/api/subscriptions/"+created.ID, token, `{"isActive":false,"usageFrequency":"Low"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[SubscriptionItem](t, rec)
	assert.False(t, updated.IsActive)
	assert.Equal(t, budget.UsageLow, updated.UsageFrequency)

	rec = do(t, h, "PATCH", "/api/subscriptions/"+created.ID, token, `{"owner":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "GET", "/api/subscriptions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]SubscriptionItem](t, rec), 1)
}

func TestAnalyticsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "john@example.com", "secret123")
	otherToken := register(t, h, "jane@example.com", "secret123")

	t.Run("empty account", func(t *testing.T) {
		rec := do(t, h, "GET", "/api/analytics", otherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		summary := decode[budget.AnalyticsSummary](t, rec)
		assert.Equal(t, 0, summary.BurnScore)
		assert.Contains(t, rec.Body.String(), `"insights":[]`)
		assert.Contains(t, rec.Body.String(), `"topWasteAreas":[]`)
	})

	for _, body := range []any{
		ExpenseRequest{Amount: 6000, Category: budget.CategoryEssential, Subcategory: "Rent"},
		ExpenseRequest{Amount: 4000, Category: budget.CategoryNonEssential, Subcategory: "Food delivery"},
	} {
		rec := do(t, h, "POST", "/api/expenses", token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := do(t, h, "POST", "/api/subscriptions", token, SubscriptionRequest{Name: "Netflix", Cost: 500})
	require.Equal(t, http.StatusCreated, rec.Code)
	inactive := decode[SubscriptionItem](t, do(t, h, "POST", "/api/subscriptions", token, SubscriptionRequest{Name: "Gym", Cost: 700}))
	rec = do(t, h, "PATCH", "/api/subscriptions/"+inactive.ID, token, `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	first := do(t, h, "GET", "/api/analytics", token, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	summary := decode[budget.AnalyticsSummary](t, first)
	assert.Equal(t, 10000.0, summary.TotalSpend)
	assert.Equal(t, 6000.0, summary.EssentialSpend)
	assert.Equal(t, 4000.0, summary.NonEssentialSpend)
	assert.Equal(t, 500.0, summary.SubscriptionCost)
	assert.Equal(t, 26, summary.BurnScore)
	assert.Equal(t, 1200.0, summary.SavingsPotential)
	require.NotEmpty(t, summary.Insights)
	assert.Equal(t, budget.InsightFoodDelivery, summary.Insights[0].ID)
	assert.Equal(t, "₹1600", summary.Insights[0].PotentialSavings)

	second := do(t, h, "GET", "/api/analytics", token, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))

	t.Run("fixed window never exceeds the limit", func(t *testing.T) {
		clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(3, 15*time.Minute)
		limiter.now = func() time.Time { return clock }

		allowed := 0
		for i := 0; i < 10; i++ {
			if limiter.Allow("10.0.0.9") {
				allowed++
			}
			clock = clock.Add(time.Minute)
		}
		assert.Equal(t, 3, allowed)

		clock = time.Date(2024, 5, 1, 12, 14, 59, 0, time.UTC)
		assert.False(t, limiter.Allow("10.0.0.9"))

		clock = time.Date(2024, 5, 1, 12, 15, 0, 0, time.UTC)
		assert.True(t, limiter.Allow("10.0.0.9"))
		assert.True(t, limiter.Allow("10.0.0.9"))
		assert.True(t, limiter.Allow("10.0.0.9"))
		assert.False(t, limiter.Allow("10.0.0.9"))
	})

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := NewRateLimiter(1, 15*time.Minute).Middleware("/api/", ok)

	serve := func(path string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, serve("/api/expenses"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/expenses", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "please try again after 15 minutes")
	assert.Equal(t, http.StatusOK, serve("/"))
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t)

	t.Run("allowed origin preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/expenses", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "PATCH")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("foreign origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestHttpStatusFromError(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{appErrors.ErrNotFound, 404},
		{appErrors.ErrInvalidInput, 400},
		{appErrors.ErrAuth, 401},
		{appErrors.ErrAccessDenied, 403},
		{appErrors.ErrConflict, 409},
		{"SOMETHING ELSE", 500},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := appErrors.ErrorResponse{Code: tt.code, Message: "x"}
			assert.Equal(t, tt.want, httpStatusFromError(err))
		})
	}
}
