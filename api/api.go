package api

import (
	"context"
	"errors"
	"strings"

	"github.com/0xcafe-io/iz"
	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/fatali-fataliyev/burn_tracker/internal/budget"
	"github.com/fatali-fataliyev/burn_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/burn_tracker/logging"
)

const WelcomeMessage = "Know Your Monthly Burn API is running..."

type Api struct {
	Service *budget.BudgetTracker
}

func NewApi(service *budget.BudgetTracker) *Api {
	return &Api{
		Service: service,
	}
}

// authedHandler receives the caller already resolved from the Authorization header.
type authedHandler func(r *iz.Request, identity contextutil.Identity) iz.Responder

func bearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer "))
}

func (api *Api) withIdentity(next authedHandler) func(r *iz.Request) iz.Responder {
	return func(r *iz.Request) iz.Responder {
		token := bearerToken(r.Header.Get("Authorization"))
		userId, err := api.Service.CheckSession(r.Context(), token)
		if err != nil {
			return errorResponse(r.Context(), err)
		}
		return next(r, contextutil.Identity{UserID: userId, Token: token})
	}
}

// errorResponse writes {"code","message"}. Internal failures never leak their message.
func errorResponse(ctx context.Context, err error) iz.Responder {
	status := httpStatusFromError(err)
	var body appErrors.ErrorResponse
	if status == 500 || !errors.As(err, &body) {
		logging.Logger.Errorf("[TraceID=%s] request failed: %v", contextutil.TraceIDFromContext(ctx), err)
		body = appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Internal server error",
		}
	}
	return iz.Respond().Status(status).JSON(body)
}

func (api *Api) RootHandler(r *iz.Request) iz.Responder {
	return iz.Respond().Status(200).Text(WelcomeMessage)
}

// --- AUTH --- //

func (api *Api) GetUserCountHandler(r *iz.Request) iz.Responder {
	count, err := api.Service.GetUserCount(r.Context())
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(UserCountResponse{Count: count})
}

func (api *Api) SaveUserHandler(r *iz.Request) iz.Responder {
	var newUserReq SaveUserRequest
	if err := decodeBody(r.Body, &newUserReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	newUser := auth.NewUser{
		Email:         newUserReq.Email,
		PasswordPlain: newUserReq.Password,
		DisplayName:   newUserReq.DisplayName,
	}

	token, err := api.Service.SaveUser(r.Context(), newUser)
	if err != nil {
		return errorResponse(r.Context(), err)
	}

	return api.authResponse(r, 201, "Registration Completed", token)
}

func (api *Api) LoginUserHandler(r *iz.Request) iz.Responder {
	var loginRequest UserLoginRequest
	if err := decodeBody(r.Body, &loginRequest); err != nil {
		return errorResponse(r.Context(), err)
	}

	credentials := auth.UserCredentialsPure{
		Email:         loginRequest.Email,
		PasswordPlain: loginRequest.Password,
	}

	token, err := api.Service.GenerateSession(r.Context(), credentials)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return api.authResponse(r, 200, "You've logged in successfully!", token)
}

func (api *Api) GoogleLoginHandler(r *iz.Request) iz.Responder {
	var googleReq GoogleLoginRequest
	if err := decodeBody(r.Body, &googleReq); err != nil {
		return errorResponse(r.Context(), err)
	}
	if strings.TrimSpace(googleReq.IDToken) == "" {
		return errorResponse(r.Context(), invalidBody("idToken is required"))
	}

	token, err := api.Service.GoogleLogin(r.Context(), googleReq.IDToken)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return api.authResponse(r, 200, "You've logged in successfully!", token)
}

// authResponse pairs a fresh session token with the profile it belongs to.
func (api *Api) authResponse(r *iz.Request, status int, message, token string) iz.Responder {
	userId, err := api.Service.CheckSession(r.Context(), token)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	user, err := api.Service.GetProfile(r.Context(), userId)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(status).JSON(AuthResponse{
		Message: message,
		User:    UserToHttp(user),
		Token:   token,
	})
}

func (api *Api) LogoutUserHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	if err := api.Service.LogoutUser(r.Context(), identity.UserID, identity.Token); err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "You've logged out successfully!"})
}

// --- PROFILE --- //

func (api *Api) GetProfileHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	user, err := api.Service.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(UserToHttp(user))
}

func (api *Api) UpdateProfileHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var updateReq ProfileUpdateRequest
	if err := decodePatch(r.Body, &updateReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	update := auth.ProfileUpdate{
		DisplayName:          updateReq.DisplayName,
		MonthlyIncome:        updateReq.MonthlyIncome,
		Currency:             updateReq.Currency,
		NotificationsEnabled: updateReq.NotificationsEnabled,
		Email:                updateReq.Email,
		SalaryCreditDate:     updateReq.SalaryCreditDate,
	}

	user, err := api.Service.UpdateProfile(r.Context(), identity.UserID, update)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(UserToHttp(user))
}

func (api *Api) ChangePasswordHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var changeReq ChangePasswordRequest
	if err := decodeBody(r.Body, &changeReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	change := auth.PasswordChange{
		CurrentPassword: changeReq.CurrentPassword,
		NewPassword:     changeReq.NewPassword,
	}
	if err := api.Service.ChangePassword(r.Context(), identity.UserID, change); err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "Password updated successfully"})
}

func (api *Api) DeleteUserHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var deleteReq DeleteUserRequest
	// the body is optional
	if r.ContentLength != 0 {
		if err := decodeBody(r.Body, &deleteReq); err != nil {
			return errorResponse(r.Context(), err)
		}
	}

	user, err := api.Service.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		return errorResponse(r.Context(), err)
	}

	req := auth.DeleteUser{
		Password: deleteReq.Password,
		Reason:   deleteReq.Reason,
	}
	if err := api.Service.DeleteUser(r.Context(), identity.UserID, req); err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(UserToHttp(user))
}

// --- CUSTOM CATEGORIES --- //

func (api *Api) GetCustomCategoriesHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	categories, err := api.Service.GetCustomCategories(r.Context(), identity.UserID)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(CustomCategoriesToHttp(categories))
}

func (api *Api) SaveCustomCategoryHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var categoryReq CustomCategoryRequest
	if err := decodeBody(r.Body, &categoryReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	req := budget.CustomCategoryRequest{
		Name:     categoryReq.Name,
		Type:     categoryReq.Type,
		IconName: categoryReq.IconName,
	}
	categories, err := api.Service.SaveCustomCategory(r.Context(), identity.UserID, req)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(201).JSON(CustomCategoriesToHttp(categories))
}

// --- EXPENSES --- //

func (api *Api) GetExpensesHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	expenses, err := api.Service.GetExpenses(r.Context(), identity.UserID)
	if err != nil {
		return errorResponse(r.Context(), err)
	}

	items := make([]ExpenseItem, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, ExpenseToHttp(e))
	}
	return iz.Respond().Status(200).JSON(items)
}

func (api *Api) SaveExpenseHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var expenseReq ExpenseRequest
	if err := decodeBody(r.Body, &expenseReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	req := budget.ExpenseRequest{
		Amount:      expenseReq.Amount,
		Category:    expenseReq.Category,
		Subcategory: expenseReq.Subcategory,
		Description: expenseReq.Description,
		IsRecurring: expenseReq.IsRecurring,
	}
	if expenseReq.Date != nil {
		req.Date = expenseReq.Date.Time
	}

	expense, err := api.Service.SaveExpense(r.Context(), identity.UserID, req)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(201).JSON(ExpenseToHttp(expense))
}

func (api *Api) UpdateExpenseHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var updateReq ExpenseUpdateRequest
	if err := decodePatch(r.Body, &updateReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	update := budget.ExpenseUpdate{
		Amount:      updateReq.Amount,
		Category:    updateReq.Category,
		Subcategory: updateReq.Subcategory,
		Description: updateReq.Description,
		Date:        updateReq.Date.timePtr(),
		IsRecurring: updateReq.IsRecurring,
	}

	expense, err := api.Service.UpdateExpense(r.Context(), identity.UserID, r.PathValue("id"), update)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(ExpenseToHttp(expense))
}

func (api *Api) DeleteExpenseHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	if err := api.Service.DeleteExpense(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "Expense deleted"})
}

func (api *Api) ResetExpensesHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	if err := api.Service.ResetExpenses(r.Context(), identity.UserID); err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "All expenses cleared"})
}

// --- SUBSCRIPTIONS --- //

func (api *Api) GetSubscriptionsHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	subscriptions, err := api.Service.GetSubscriptions(r.Context(), identity.UserID)
	if err != nil {
		return errorResponse(r.Context(), err)
	}

	items := make([]SubscriptionItem, 0, len(subscriptions))
	for _, s := range subscriptions {
		items = append(items, SubscriptionToHttp(s))
	}
	return iz.Respond().Status(200).JSON(items)
}

func (api *Api) SaveSubscriptionHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var subscriptionReq SubscriptionRequest
	if err := decodeBody(r.Body, &subscriptionReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	req := budget.SubscriptionRequest{
		Name:           subscriptionReq.Name,
		Cost:           subscriptionReq.Cost,
		BillingCycle:   subscriptionReq.BillingCycle,
		NextRenewal:    subscriptionReq.NextRenewal.timePtr(),
		UsageFrequency: subscriptionReq.UsageFrequency,
	}

	subscription, err := api.Service.SaveSubscription(r.Context(), identity.UserID, req)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(201).JSON(SubscriptionToHttp(subscription))
}

func (api *Api) UpdateSubscriptionHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	var updateReq SubscriptionUpdateRequest
	if err := decodePatch(r.Body, &updateReq); err != nil {
		return errorResponse(r.Context(), err)
	}

	update := budget.SubscriptionUpdate{
		Name:           updateReq.Name,
		Cost:           updateReq.Cost,
		BillingCycle:   updateReq.BillingCycle,
		NextRenewal:    updateReq.NextRenewal.timePtr(),
		UsageFrequency: updateReq.UsageFrequency,
		IsActive:       updateReq.IsActive,
	}

	subscription, err := api.Service.UpdateSubscription(r.Context(), identity.UserID, r.PathValue("id"), update)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(SubscriptionToHttp(subscription))
}

// --- ANALYTICS --- //

func (api *Api) GetAnalyticsHandler(r *iz.Request, identity contextutil.Identity) iz.Responder {
	summary, err := api.Service.GetAnalytics(r.Context(), identity.UserID)
	if err != nil {
		return errorResponse(r.Context(), err)
	}
	return iz.Respond().Status(200).JSON(summary)
}
