package auth

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/shopspring/decimal"
)

const (
	MAX_LENGTH_DISPLAY_NAME = 255
	MAX_LENGTH_EMAIL        = 255
	MAX_PASSWORD_LENGTH     = 72
	MIN_PASSWORD_LENGTH     = 6
	MAX_CURRENCY_LENGTH     = 8
	MAX_MONTHLY_INCOME      = 999999999999.99

	AuthMethodLocal  = "local"
	AuthMethodGoogle = "google"

	DefaultCurrency = "₹"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9](\.?[a-zA-Z0-9_%+-])*@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)

type User struct {
	ID                   string
	Email                string
	PasswordHashed       string
	GoogleID             string
	AuthMethod           string
	DisplayName          string
	MonthlyIncome        float64
	Currency             string
	NotificationsEnabled bool
	SalaryCreditDate     int
	CreatedAt            time.Time
}

type NewUser struct {
	Email         string
	PasswordPlain string
	DisplayName   string
}

type DeleteUser struct {
	Password string
	Reason   string
}

type PasswordChange struct {
	CurrentPassword string
	NewPassword     string
}

// ProfileUpdate lists every profile field a user may change. Nil fields are left untouched.
// Email is accepted so clients may echo it back, but it is never applied.
type ProfileUpdate struct {
	DisplayName          *string
	MonthlyIncome        *float64
	Currency             *string
	NotificationsEnabled *bool
	Email                *string
	SalaryCreditDate     *int
}

type Session struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time
	UserID    string
}

type UserCredentialsPure struct {
	Email         string
	PasswordPlain string
}

// GoogleIdentity is the subset of a verified Google ID token the service needs.
type GoogleIdentity struct {
	GoogleID      string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// RoundCents rounds a money amount half away from zero to the two decimals the database keeps.
func RoundCents(amount float64) float64 {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return rounded
}

func invalidInput(message string) error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: message,
	}
}

func (newUser NewUser) ValidateUserFields() error {
	if newUser.Email == "" {
		return invalidInput("Email cannot be empty!")
	}
	if len(newUser.Email) > MAX_LENGTH_EMAIL {
		return invalidInput(fmt.Sprintf("Email so long, maximum length is %d", MAX_LENGTH_EMAIL))
	}
	if !emailRegex.MatchString(newUser.Email) {
		return invalidInput("Invalid email format, example valid email: john.doe@gmail.com")
	}
	if len(newUser.DisplayName) > MAX_LENGTH_DISPLAY_NAME {
		return invalidInput(fmt.Sprintf("Display name so long, maximum length is %d", MAX_LENGTH_DISPLAY_NAME))
	}
	return ValidatePassword(newUser.PasswordPlain)
}

func ValidatePassword(password string) error {
	if password == "" {
		return invalidInput("Password cannot be empty!")
	}
	if len(password) < MIN_PASSWORD_LENGTH {
		return invalidInput(fmt.Sprintf("Password so short, minimum length is %d", MIN_PASSWORD_LENGTH))
	}
	if len(password) > MAX_PASSWORD_LENGTH {
		return invalidInput(fmt.Sprintf("Password so long, maximum length is %d", MAX_PASSWORD_LENGTH))
	}
	return nil
}

func (credentials UserCredentialsPure) Validate() error {
	if strings.TrimSpace(credentials.Email) == "" {
		return invalidInput("Email cannot be empty!")
	}
	if credentials.PasswordPlain == "" {
		return invalidInput("Password cannot be empty!")
	}
	return nil
}

func (update ProfileUpdate) Validate() error {
	if update.DisplayName != nil && len(*update.DisplayName) > MAX_LENGTH_DISPLAY_NAME {
		return invalidInput(fmt.Sprintf("Display name so long, maximum length is %d", MAX_LENGTH_DISPLAY_NAME))
	}
	if update.MonthlyIncome != nil {
		if *update.MonthlyIncome < 0 {
			return invalidInput("Monthly income cannot be negative")
		}
		if *update.MonthlyIncome > MAX_MONTHLY_INCOME {
			return invalidInput(fmt.Sprintf("Monthly income is too large, the limit is: %.2f", MAX_MONTHLY_INCOME))
		}
	}
	if update.Currency != nil {
		currency := strings.TrimSpace(*update.Currency)
		if currency == "" {
			return invalidInput("Currency cannot be empty!")
		}
		if len(currency) > MAX_CURRENCY_LENGTH {
			return invalidInput(fmt.Sprintf("Currency so long, maximum length is %d", MAX_CURRENCY_LENGTH))
		}
	}
	if update.SalaryCreditDate != nil && (*update.SalaryCreditDate < 1 || *update.SalaryCreditDate > 31) {
		return invalidInput("Salary credit date should be between 1 and 31")
	}
	return nil
}

// ApplyTo copies the set fields onto user.
func (update ProfileUpdate) ApplyTo(user *User) {
	if update.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*update.DisplayName)
	}
	if update.MonthlyIncome != nil {
		user.MonthlyIncome = RoundCents(*update.MonthlyIncome)
	}
	if update.Currency != nil {
		user.Currency = strings.TrimSpace(*update.Currency)
	}
	if update.NotificationsEnabled != nil {
		user.NotificationsEnabled = *update.NotificationsEnabled
	}
	if update.SalaryCreditDate != nil {
		user.SalaryCreditDate = *update.SalaryCreditDate
	}
}

func (change PasswordChange) Validate() error {
	if change.CurrentPassword == "" {
		return invalidInput("Current password cannot be empty!")
	}
	return ValidatePassword(change.NewPassword)
}
