package api

import (
	"net/http"

	"github.com/0xcafe-io/iz"
)

func (api *Api) Routes() *http.ServeMux {
	server := http.NewServeMux()

	server.HandleFunc("GET /{$}", iz.Bind(api.RootHandler)) // Health Check

	// USER ENDPOINTS.
	server.HandleFunc("GET /api/auth/users/count", iz.Bind(api.GetUserCountHandler))                           // Count Users
	server.HandleFunc("POST /api/auth/register", iz.Bind(api.SaveUserHandler))                                 // Create User
	server.HandleFunc("POST /api/auth/login", iz.Bind(api.LoginUserHandler))                                   // Login User
	server.HandleFunc("POST /api/auth/google", iz.Bind(api.GoogleLoginHandler))                                // Login or Register with Google
	server.HandleFunc("GET /api/auth/logout", iz.Bind(api.withIdentity(api.LogoutUserHandler)))                // Logout User
	server.HandleFunc("GET /api/auth/profile", iz.Bind(api.withIdentity(api.GetProfileHandler)))               // Account Info
	server.HandleFunc("PATCH /api/auth/profile", iz.Bind(api.withIdentity(api.UpdateProfileHandler)))          // Update Account Info
	server.HandleFunc("DELETE /api/auth/profile", iz.Bind(api.withIdentity(api.DeleteUserHandler)))            // Remove User
	server.HandleFunc("PATCH /api/auth/change-password", iz.Bind(api.withIdentity(api.ChangePasswordHandler))) // Change Password

	// CUSTOM CATEGORY ENDPOINTS.
	server.HandleFunc("GET /api/auth/categories", iz.Bind(api.withIdentity(api.GetCustomCategoriesHandler))) // Get Custom Categories
	server.HandleFunc("POST /api/auth/categories", iz.Bind(api.withIdentity(api.SaveCustomCategoryHandler))) // Create Custom Category

	// EXPENSE ENDPOINTS.
	server.HandleFunc("GET /api/expenses", iz.Bind(api.withIdentity(api.GetExpensesHandler)))           // Get Expenses
	server.HandleFunc("POST /api/expenses", iz.Bind(api.withIdentity(api.SaveExpenseHandler)))          // Create Expense
	server.HandleFunc("POST /api/expenses/reset", iz.Bind(api.withIdentity(api.ResetExpensesHandler)))  // Delete All Expenses
	server.HandleFunc("PATCH /api/expenses/{id}", iz.Bind(api.withIdentity(api.UpdateExpenseHandler)))  // Update Expense
	server.HandleFunc("DELETE /api/expenses/{id}", iz.Bind(api.withIdentity(api.DeleteExpenseHandler))) // Delete Expense

	// SUBSCRIPTION ENDPOINTS.
	server.HandleFunc("GET /api/subscriptions", iz.Bind(api.withIdentity(api.GetSubscriptionsHandler)))          // Get Subscriptions
	server.HandleFunc("POST /api/subscriptions", iz.Bind(api.withIdentity(api.SaveSubscriptionHandler)))         // Create Subscription
	server.HandleFunc("PATCH /api/subscriptions/{id}", iz.Bind(api.withIdentity(api.UpdateSubscriptionHandler))) // Update Subscription

	// ANALYTICS ENDPOINTS.
	server.HandleFunc("GET /api/analytics", iz.Bind(api.withIdentity(api.GetAnalyticsHandler))) // Burn Score, Insights and Totals

	return server
}
