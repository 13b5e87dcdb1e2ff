package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/fatali-fataliyev/burn_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/burn_tracker/logging"
	"github.com/google/uuid"
)

const (
	MAX_EXPENSE_AMOUNT_LIMIT      = 999999999999.99
	MAX_SUBSCRIPTION_COST_LIMIT   = 999999999999.99
	MAX_SUBCATEGORY_LENGTH        = 255
	MAX_DESCRIPTION_LENGTH        = 1000
	MAX_SUBSCRIPTION_NAME_LENGTH  = 255
	MAX_CATEGORY_NAME_LENGTH      = 255
	MAX_CATEGORY_ICON_NAME_LENGTH = 64
	MAX_DELETE_REASON_LENGTH      = 1000

	DefaultSessionTTL         = 30 * 24 * time.Hour
	DefaultSessionRenewWindow = 5 * 24 * time.Hour
)

type BudgetTracker struct {
	storage      Storage
	StorageType  string
	sessionTTL   time.Duration
	renewWindow  time.Duration
	googleVerify auth.GoogleVerifier
}

type Options struct {
	SessionTTL         time.Duration
	SessionRenewWindow time.Duration
	// Google is optional; GoogleLogin fails with UNAUTHORIZED when nil.
	Google auth.GoogleVerifier
}

func NewBudgetTracker(s Storage, opts Options) BudgetTracker {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.SessionRenewWindow <= 0 {
		opts.SessionRenewWindow = DefaultSessionRenewWindow
	}
	return BudgetTracker{
		storage:      s,
		StorageType:  s.GetStorageType(),
		sessionTTL:   opts.SessionTTL,
		renewWindow:  opts.SessionRenewWindow,
		googleVerify: opts.Google,
	}
}

type Storage interface {
	SaveUser(ctx context.Context, user auth.User) error
	GetUserByID(ctx context.Context, userId string) (auth.User, error)
	GetUserByEmail(ctx context.Context, email string) (auth.User, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUser(ctx context.Context, user auth.User) error
	DeleteUser(ctx context.Context, userId string, reason string) error

	SaveSession(ctx context.Context, session auth.Session) error
	GetSessionByToken(ctx context.Context, token string) (auth.Session, error)
	UpdateSession(ctx context.Context, token string, expireAt time.Time) error
	LogoutUser(ctx context.Context, userId string, token string) error

	SaveCustomCategory(ctx context.Context, category CustomCategory) error
	GetCustomCategories(ctx context.Context, userId string) ([]CustomCategory, error)

	SaveExpense(ctx context.Context, expense Expense) error
	GetExpenses(ctx context.Context, userId string) ([]Expense, error)
	GetExpenseById(ctx context.Context, userId string, expenseId string) (Expense, error)
	UpdateExpense(ctx context.Context, expense Expense) error
	DeleteExpense(ctx context.Context, userId string, expenseId string) error
	DeleteAllExpenses(ctx context.Context, userId string) error

	SaveSubscription(ctx context.Context, subscription Subscription) error
	GetSubscriptions(ctx context.Context, userId string) ([]Subscription, error)
	GetActiveSubscriptions(ctx context.Context, userId string) ([]Subscription, error)
	GetSubscriptionById(ctx context.Context, userId string, subscriptionId string) (Subscription, error)
	UpdateSubscription(ctx context.Context, subscription Subscription) error

	GetStorageType() string
}

func isNotFound(err error) bool {
	return appErrors.CodeOf(err) == appErrors.ErrNotFound
}

func invalidCredentials() error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrAuth,
		Message: "Invalid credentials",
	}
}

func (bt *BudgetTracker) createSession(ctx context.Context, userId string) (string, error) {
	token, err := auth.GenerateToken()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	session := auth.Session{
		ID:        uuid.New().String(),
		Token:     token,
		CreatedAt: now,
		ExpireAt:  now.Add(bt.sessionTTL),
		UserID:    userId,
	}

	if err := bt.storage.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return token, nil
}

func (bt *BudgetTracker) SaveUser(ctx context.Context, newUser auth.NewUser) (string, error) {
	newUser.Email = strings.ToLower(strings.TrimSpace(newUser.Email))
	if err := newUser.ValidateUserFields(); err != nil {
		return "", err
	}

	isEmailTaken, err := bt.storage.IsEmailTaken(ctx, newUser.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check email availability: %w", err)
	}
	if isEmailTaken {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrConflict,
			Message: "User already exists",
		}
	}

	hashedPassword, err := auth.HashPassword(newUser.PasswordPlain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := auth.User{
		ID:                   uuid.New().String(),
		Email:                newUser.Email,
		PasswordHashed:       hashedPassword,
		AuthMethod:           auth.AuthMethodLocal,
		DisplayName:          strings.TrimSpace(newUser.DisplayName),
		Currency:             auth.DefaultCurrency,
		NotificationsEnabled: true,
		SalaryCreditDate:     1,
		CreatedAt:            time.Now().UTC(),
	}

	if err := bt.storage.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to registration: %w", err)
	}

	token, err := bt.createSession(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("registration successfully but failed to generate session: %w | try login", err)
	}
	return token, nil
}

// GenerateSession logs a local user in by email and password and returns a new session token.
func (bt *BudgetTracker) GenerateSession(ctx context.Context, credentials auth.UserCredentialsPure) (string, error) {
	if err := credentials.Validate(); err != nil {
		return "", err
	}

	user, err := bt.storage.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(credentials.Email)))
	if err != nil {
		if isNotFound(err) {
			return "", invalidCredentials()
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	// Google-only accounts have no password.
	if !auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
		return "", invalidCredentials()
	}

	return bt.createSession(ctx, user.ID)
}

// GoogleLogin verifies a Google ID token, then signs the owner of its email in.
// Unknown emails get a new google account; local accounts without a Google ID are linked.
func (bt *BudgetTracker) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	if bt.googleVerify == nil {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Google sign-in is not configured",
		}
	}

	identity, err := bt.googleVerify.Verify(ctx, idToken)
	if err != nil {
		return "", err
	}
	if !identity.EmailVerified {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Google account email is not verified",
		}
	}

	user, err := bt.storage.GetUserByEmail(ctx, identity.Email)
	switch {
	case err != nil && !isNotFound(err):
		return "", fmt.Errorf("failed to find user: %w", err)
	case err != nil:
		user = auth.User{
			ID:                   uuid.New().String(),
			Email:                identity.Email,
			GoogleID:             identity.GoogleID,
			AuthMethod:           auth.AuthMethodGoogle,
			DisplayName:          identity.DisplayName,
			Currency:             auth.DefaultCurrency,
			NotificationsEnabled: true,
			SalaryCreditDate:     1,
			CreatedAt:            time.Now().UTC(),
		}
		if err := bt.storage.SaveUser(ctx, user); err != nil {
			return "", fmt.Errorf("failed to register google user: %w", err)
		}
	case user.GoogleID == "":
		user.GoogleID = identity.GoogleID
		user.AuthMethod = auth.AuthMethodGoogle
		if err := bt.storage.UpdateUser(ctx, user); err != nil {
			return "", fmt.Errorf("failed to link google account: %w", err)
		}
	}

	return bt.createSession(ctx, user.ID)
}

// CheckSession resolves a token to its user id. Sessions inside the renew window are extended.
func (bt *BudgetTracker) CheckSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Please authenticate.",
		}
	}

	session, err := bt.storage.GetSessionByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return "", appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Invalid or expired session",
			}
		}
		return "", fmt.Errorf("failed to get session by token: %w", err)
	}

	now := time.Now().UTC()
	if !session.ExpireAt.After(now) {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session expired, please log in again",
		}
	}

	if session.ExpireAt.Sub(now) <= bt.renewWindow {
		if err := bt.storage.UpdateSession(ctx, token, now.Add(bt.sessionTTL)); err != nil {
			// the current session is still valid, so the request goes on
			logging.Logger.Warnf("[TraceID=%s] failed to renew session for user %s: %v",
				contextutil.TraceIDFromContext(ctx), session.UserID, err)
		}
	}

	return session.UserID, nil
}

func (bt *BudgetTracker) LogoutUser(ctx context.Context, userId string, token string) error {
	if err := bt.storage.LogoutUser(ctx, userId, token); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

func (bt *BudgetTracker) GetUserCount(ctx context.Context) (int, error) {
	count, err := bt.storage.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (bt *BudgetTracker) GetProfile(ctx context.Context, userId string) (auth.User, error) {
	user, err := bt.storage.GetUserByID(ctx, userId)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return user, nil
}

func (bt *BudgetTracker) UpdateProfile(ctx context.Context, userId string, update auth.ProfileUpdate) (auth.User, error) {
	if err := update.Validate(); err != nil {
		return auth.User{}, err
	}

	user, err := bt.storage.GetUserByID(ctx, userId)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to get profile: %w", err)
	}

	update.ApplyTo(&user)

	if err := bt.storage.UpdateUser(ctx, user); err != nil {
		return auth.User{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (bt *BudgetTracker) ChangePassword(ctx context.Context, userId string, change auth.PasswordChange) error {
	user, err := bt.storage.GetUserByID(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.AuthMethod == auth.AuthMethodGoogle {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Google users cannot change passwords here.",
		}
	}

	if err := change.Validate(); err != nil {
		return err
	}

	if !auth.ComparePasswords(user.PasswordHashed, change.CurrentPassword) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Current password incorrect",
		}
	}

	hashedPassword, err := auth.HashPassword(change.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHashed = hashedPassword

	if err := bt.storage.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteUser removes the account with all of its expenses, subscriptions, categories and sessions.
// A supplied password must match; the session alone is enough when none is given.
func (bt *BudgetTracker) DeleteUser(ctx context.Context, userId string, req auth.DeleteUser) error {
	if len(req.Reason) > MAX_DELETE_REASON_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Reason so long, maximum length is %d", MAX_DELETE_REASON_LENGTH),
		}
	}

	user, err := bt.storage.GetUserByID(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if req.Password != "" && !auth.ComparePasswords(user.PasswordHashed, req.Password) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrAccessDenied,
			Message: "Password incorrect, account was not deleted",
		}
	}

	if err := bt.storage.DeleteUser(ctx, userId, strings.TrimSpace(req.Reason)); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (bt *BudgetTracker) GetCustomCategories(ctx context.Context, userId string) ([]CustomCategory, error) {
	categories, err := bt.storage.GetCustomCategories(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get custom categories: %w", err)
	}
	if categories == nil {
		categories = []CustomCategory{}
	}
	return categories, nil
}

// SaveCustomCategory adds a category and returns the user's full category list.
func (bt *BudgetTracker) SaveCustomCategory(ctx context.Context, userId string, req CustomCategoryRequest) ([]CustomCategory, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Type == "" {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Name and type are required",
		}
	}
	if len(req.Name) > MAX_CATEGORY_NAME_LENGTH {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Category name is too long, the limit is: %d", MAX_CATEGORY_NAME_LENGTH),
		}
	}
	if err := validateCategory(req.Type); err != nil {
		return nil, err
	}
	if req.IconName == "" {
		req.IconName = DefaultIconName
	}
	if len(req.IconName) > MAX_CATEGORY_ICON_NAME_LENGTH {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Icon name is too long, the limit is: %d", MAX_CATEGORY_ICON_NAME_LENGTH),
		}
	}

	existing, err := bt.storage.GetCustomCategories(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get custom categories: %w", err)
	}
	for _, category := range existing {
		if strings.EqualFold(category.Name, req.Name) {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "Category already exists",
			}
		}
	}

	category := CustomCategory{
		ID:        uuid.New().String(),
		UserID:    userId,
		Name:      req.Name,
		Type:      req.Type,
		IconName:  req.IconName,
		CreatedAt: time.Now().UTC(),
	}
	if err := bt.storage.SaveCustomCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to save custom category: %w", err)
	}

	return append(existing, category), nil
}

func validateCategory(category string) error {
	if category != CategoryEssential && category != CategoryNonEssential {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid category: '%s', allowed values: %s, %s", category, CategoryEssential, CategoryNonEssential),
		}
	}
	return nil
}
