package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/fatali-fataliyev/burn_tracker/internal/budget"
	"github.com/fatali-fataliyev/burn_tracker/internal/config"
	"github.com/fatali-fataliyev/burn_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/burn_tracker/logging"
	"github.com/go-sql-driver/mysql"
)

const (
	connectAttempts   = 15
	connectRetryDelay = 3 * time.Second
	mysqlDuplicateKey = 1062
)

// --- INIT START --- //

// DSNConfig turns the DB settings into a driver config. FULL_DSN wins over the separate fields.
func DSNConfig(dbConf config.DBConfig) (*mysql.Config, error) {
	var cfg *mysql.Config
	if dbConf.FullDSN != "" {
		parsed, err := mysql.ParseDSN(dbConf.FullDSN)
		if err != nil {
			return nil, fmt.Errorf("invalid FULL_DSN: %w", err)
		}
		cfg = parsed
	} else {
		if dbConf.User == "" || dbConf.Pass == "" || dbConf.Host == "" || dbConf.Port == "" {
			return nil, fmt.Errorf("missing required DB environment variables")
		}
		cfg = mysql.NewConfig()
		cfg.User = dbConf.User
		cfg.Passwd = dbConf.Pass
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(dbConf.Host, dbConf.Port)
		cfg.DBName = dbConf.Name
	}

	if cfg.DBName == "" {
		cfg.DBName = "burn_tracker"
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// Init makes sure the database exists, connects to it and applies migrations.
func Init(ctx context.Context, dbConf config.DBConfig) (*sql.DB, error) {
	cfg, err := DSNConfig(dbConf)
	if err != nil {
		return nil, err
	}
	dbname := cfg.DBName

	adminCfg := cfg.Clone()
	adminCfg.DBName = ""

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", adminCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open admin mysql handle: %w", err)
	}
	defer adminDb.Close()

	if err := waitForDatabase(ctx, adminDb); err != nil {
		return nil, err
	}

	var dbnameExistence string
	checkDbnameExistQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	err = adminDb.QueryRowContext(ctx, checkDbnameExistQuery, dbname).Scan(&dbnameExistence)
	if errors.Is(err, sql.ErrNoRows) {
		logging.Logger.Infof("Database '%s' does not exist, creating...", dbname)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", dbname)
		if _, err := adminDb.ExecContext(ctx, createDbSql); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}

	logging.Logger.Info("Running migrations...")
	if err := RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Logger.Info("Connecting to database...")
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Logger.Info("Connected to database successfully")
	return db, nil
}

func waitForDatabase(ctx context.Context, db *sql.DB) error {
	for i := 0; i < connectAttempts; i++ {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/%d)", i+1, connectAttempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}
	return fmt.Errorf("database unreachable after multiple attempts")
}

// --- INIT END --- //

type MySQLStorage struct {
	db *sql.DB
}

func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateKey
}

// internalError logs the driver error under the request's trace id and hides it from the caller.
func internalError(ctx context.Context, function string, err error, message string) error {
	logging.Logger.Errorf("[TraceID=%s] | Storage.%s() failed | Error: %v", contextutil.TraceIDFromContext(ctx), function, err)
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrInternal,
		Message: message,
	}
}

func notFound(message string) error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrNotFound,
		Message: message,
	}
}

// --- USERS --- //

const userColumns = `id, email, hashed_password, google_id, auth_method, display_name, monthly_income,
	currency, notifications_enabled, salary_credit_date, created_at`

func (mySql *MySQLStorage) SaveUser(ctx context.Context, user auth.User) error {
	query := `INSERT INTO user (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := mySql.db.ExecContext(ctx, query,
		user.ID, user.Email, EmptyToNullString(user.PasswordHashed), EmptyToNullString(user.GoogleID), user.AuthMethod,
		user.DisplayName, user.MonthlyIncome, user.Currency, user.NotificationsEnabled, user.SalaryCreditDate, user.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "User already exists",
			}
		}
		return internalError(ctx, "SaveUser", err, "Registration failed, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) getUserBy(ctx context.Context, function string, column string, value string) (auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM user WHERE ` + column + ` = ?;`

	var u dbUser
	err := mySql.db.QueryRowContext(ctx, query, value).Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.GoogleID,
		&u.AuthMethod,
		&u.DisplayName,
		&u.MonthlyIncome,
		&u.Currency,
		&u.NotificationsEnabled,
		&u.SalaryCreditDate,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, notFound("User not found")
		}
		return auth.User{}, internalError(ctx, function, err, "Failed to get user, try again later.")
	}
	return u.toUser(), nil
}

func (mySql *MySQLStorage) GetUserByID(ctx context.Context, userId string) (auth.User, error) {
	return mySql.getUserBy(ctx, "GetUserByID", "id", userId)
}

func (mySql *MySQLStorage) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	return mySql.getUserBy(ctx, "GetUserByEmail", "email", email)
}

func (mySql *MySQLStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM user WHERE email = ?);"
	if err := mySql.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, internalError(ctx, "IsEmailTaken", err, "Failed to check email, try again later.")
	}
	return exists, nil
}

func (mySql *MySQLStorage) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := mySql.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user;").Scan(&count); err != nil {
		return 0, internalError(ctx, "CountUsers", err, "Error fetching user count")
	}
	return count, nil
}

func (mySql *MySQLStorage) UpdateUser(ctx context.Context, user auth.User) error {
	query := `UPDATE user SET hashed_password = ?, google_id = ?, auth_method = ?, display_name = ?,
		monthly_income = ?, currency = ?, notifications_enabled = ?, salary_credit_date = ? WHERE id = ?;`
	res, err := mySql.db.ExecContext(ctx, query,
		EmptyToNullString(user.PasswordHashed), EmptyToNullString(user.GoogleID), user.AuthMethod, user.DisplayName,
		user.MonthlyIncome, user.Currency, user.NotificationsEnabled, user.SalaryCreditDate, user.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "This Google account is already linked to another user",
			}
		}
		return internalError(ctx, "UpdateUser", err, "Failed to update profile, try again later.")
	}

	// MySQL reports 0 affected rows when nothing changed, so only a missing row is NOT FOUND.
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		if _, err := mySql.GetUserByID(ctx, user.ID); err != nil {
			return err
		}
	}
	return nil
}

func (mySql *MySQLStorage) DeleteUser(ctx context.Context, userId string, reason string) error {
	txn, err := mySql.db.BeginTx(ctx, nil)
	if err != nil {
		return internalError(ctx, "DeleteUser", err, "Failed to delete account, try later.")
	}
	defer txn.Rollback()

	for _, query := range []string{
		"DELETE FROM session WHERE user_id = ?;",
		"DELETE FROM expense WHERE user_id = ?;",
		"DELETE FROM subscription WHERE user_id = ?;",
		"DELETE FROM custom_category WHERE user_id = ?;",
	} {
		if _, err := txn.ExecContext(ctx, query, userId); err != nil {
			return internalError(ctx, "DeleteUser", err, "Failed to delete account, try later.")
		}
	}

	res, err := txn.ExecContext(ctx, "DELETE FROM user WHERE id = ?;", userId)
	if err != nil {
		return internalError(ctx, "DeleteUser", err, "Failed to delete account, try later.")
	}
	if rows, err := res.RowsAffected(); err != nil {
		return internalError(ctx, "DeleteUser", err, "Failed to delete account, try later.")
	} else if rows == 0 {
		return notFound("User does not exist.")
	}

	if _, err := txn.ExecContext(ctx, "INSERT INTO deleted_account (reason) VALUES (?);", reason); err != nil {
		return internalError(ctx, "DeleteUser", err, "Failed to delete account, try later.")
	}

	if err := txn.Commit(); err != nil {
		return internalError(ctx, "DeleteUser", err, "Failed to delete account, try later.")
	}
	return nil
}

// --- SESSIONS --- //

func (mySql *MySQLStorage) SaveSession(ctx context.Context, session auth.Session) error {
	query := "INSERT INTO session (id, token, created_at, expire_at, user_id) VALUES (?, ?, ?, ?, ?);"
	_, err := mySql.db.ExecContext(ctx, query, session.ID, session.Token, session.CreatedAt, session.ExpireAt, session.UserID)
	if err != nil {
		return internalError(ctx, "SaveSession", err, "Failed to create session, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	query := `SELECT id, token, created_at, expire_at, user_id FROM session WHERE token = ?`

	var dbS dbSession
	err := mySql.db.QueryRowContext(ctx, query, token).Scan(
		&dbS.ID,
		&dbS.Token,
		&dbS.CreatedAt,
		&dbS.ExpireAt,
		&dbS.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Session{}, notFound("Session does not exist, please login.")
		}
		return auth.Session{}, internalError(ctx, "GetSessionByToken", err, "Failed to check session, please try again later.")
	}

	return auth.Session{
		ID:        dbS.ID,
		Token:     dbS.Token,
		CreatedAt: dbS.CreatedAt,
		ExpireAt:  dbS.ExpireAt,
		UserID:    dbS.UserID,
	}, nil
}

func (mySql *MySQLStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	query := `UPDATE session SET expire_at = ? WHERE token = ?`
	res, err := mySql.db.ExecContext(ctx, query, expireAt, token)
	if err != nil {
		return internalError(ctx, "UpdateSession", err, "Failed to check session, please try again later.")
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return internalError(ctx, "UpdateSession", err, "Failed to check session, please try again later.")
	}
	if rowsAffected == 0 {
		return notFound("Session does not exist, please login.")
	}
	return nil
}

func (mySql *MySQLStorage) LogoutUser(ctx context.Context, userId string, token string) error {
	query := "DELETE FROM session WHERE user_id = ? AND token = ?;"
	if _, err := mySql.db.ExecContext(ctx, query, userId, token); err != nil {
		return internalError(ctx, "LogoutUser", err, "Logout failed, try again later.")
	}
	return nil
}

// --- CUSTOM CATEGORIES --- //

func (mySql *MySQLStorage) SaveCustomCategory(ctx context.Context, category budget.CustomCategory) error {
	query := "INSERT INTO custom_category (id, user_id, name, type, icon_name, created_at) VALUES (?, ?, ?, ?, ?, ?);"
	_, err := mySql.db.ExecContext(ctx, query, category.ID, category.UserID, category.Name, category.Type, category.IconName, category.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "Category already exists",
			}
		}
		return internalError(ctx, "SaveCustomCategory", err, "Failed to save the category, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) GetCustomCategories(ctx context.Context, userId string) ([]budget.CustomCategory, error) {
	query := "SELECT id, user_id, name, type, icon_name, created_at FROM custom_category WHERE user_id = ? ORDER BY created_at;"
	rows, err := mySql.db.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, internalError(ctx, "GetCustomCategories", err, "Failed to get categories, try again later.")
	}
	defer rows.Close()

	categories := []budget.CustomCategory{}
	for rows.Next() {
		var c budget.CustomCategory
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.IconName, &c.CreatedAt); err != nil {
			return nil, internalError(ctx, "GetCustomCategories", err, "Failed to get categories, try again later.")
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, "GetCustomCategories", err, "Failed to get categories, try again later.")
	}
	return categories, nil
}

// --- EXPENSES --- //

const expenseColumns = "id, user_id, amount, category, subcategory, description, date, is_recurring, created_at"

func (mySql *MySQLStorage) SaveExpense(ctx context.Context, e budget.Expense) error {
	query := "INSERT INTO expense (" + expenseColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);"
	_, err := mySql.db.ExecContext(ctx, query, e.ID, e.UserID, e.Amount, e.Category, e.Subcategory, e.Description, e.Date, e.IsRecurring, e.CreatedAt)
	if err != nil {
		return internalError(ctx, "SaveExpense", err, "Failed to save expense, try again later.")
	}
	return nil
}

func scanExpense(scanner interface{ Scan(dest ...any) error }) (budget.Expense, error) {
	var e budget.Expense
	err := scanner.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Subcategory, &e.Description, &e.Date, &e.IsRecurring, &e.CreatedAt)
	return e, err
}

func (mySql *MySQLStorage) GetExpenses(ctx context.Context, userId string) ([]budget.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expense WHERE user_id = ? ORDER BY date DESC, created_at DESC;"
	rows, err := mySql.db.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, internalError(ctx, "GetExpenses", err, "Failed to get expenses, try again later.")
	}
	defer rows.Close()

	expenses := []budget.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, internalError(ctx, "GetExpenses", err, "Failed to get expenses, try again later.")
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, "GetExpenses", err, "Failed to get expenses, try again later.")
	}
	return expenses, nil
}

func (mySql *MySQLStorage) GetExpenseById(ctx context.Context, userId string, expenseId string) (budget.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expense WHERE id = ? AND user_id = ?;"
	e, err := scanExpense(mySql.db.QueryRowContext(ctx, query, expenseId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return budget.Expense{}, notFound("Expense not found or unauthorized")
		}
		return budget.Expense{}, internalError(ctx, "GetExpenseById", err, "Failed to get expense, try again later.")
	}
	return e, nil
}

func (mySql *MySQLStorage) UpdateExpense(ctx context.Context, e budget.Expense) error {
	query := `UPDATE expense SET amount = ?, category = ?, subcategory = ?, description = ?, date = ?, is_recurring = ?
		WHERE id = ? AND user_id = ?;`
	_, err := mySql.db.ExecContext(ctx, query, e.Amount, e.Category, e.Subcategory, e.Description, e.Date, e.IsRecurring, e.ID, e.UserID)
	if err != nil {
		return internalError(ctx, "UpdateExpense", err, "Failed to update expense, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	res, err := mySql.db.ExecContext(ctx, "DELETE FROM expense WHERE id = ? AND user_id = ?;", expenseId, userId)
	if err != nil {
		return internalError(ctx, "DeleteExpense", err, "Failed to delete expense, try again later.")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return internalError(ctx, "DeleteExpense", err, "Failed to delete expense, try again later.")
	}
	if rows == 0 {
		return notFound("Expense not found or unauthorized")
	}
	return nil
}

func (mySql *MySQLStorage) DeleteAllExpenses(ctx context.Context, userId string) error {
	if _, err := mySql.db.ExecContext(ctx, "DELETE FROM expense WHERE user_id = ?;", userId); err != nil {
		return internalError(ctx, "DeleteAllExpenses", err, "Failed to clear expenses, try again later.")
	}
	return nil
}

// --- SUBSCRIPTIONS --- //

const subscriptionColumns = "id, user_id, name, cost, billing_cycle, next_renewal, usage_frequency, is_active, created_at"

func (mySql *MySQLStorage) SaveSubscription(ctx context.Context, s budget.Subscription) error {
	query := "INSERT INTO subscription (" + subscriptionColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);"
	_, err := mySql.db.ExecContext(ctx, query, s.ID, s.UserID, s.Name, s.Cost, s.BillingCycle, NilToNullTime(s.NextRenewal), s.UsageFrequency, s.IsActive, s.CreatedAt)
	if err != nil {
		return internalError(ctx, "SaveSubscription", err, "Failed to save subscription, try again later.")
	}
	return nil
}

func scanSubscription(scanner interface{ Scan(dest ...any) error }) (budget.Subscription, error) {
	var s dbSubscription
	err := scanner.Scan(&s.ID, &s.UserID, &s.Name, &s.Cost, &s.BillingCycle, &s.NextRenewal, &s.UsageFrequency, &s.IsActive, &s.CreatedAt)
	return s.toSubscription(), err
}

func (mySql *MySQLStorage) querySubscriptions(ctx context.Context, function string, query string, args ...any) ([]budget.Subscription, error) {
	rows, err := mySql.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalError(ctx, function, err, "Failed to get subscriptions, try again later.")
	}
	defer rows.Close()

	subscriptions := []budget.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, internalError(ctx, function, err, "Failed to get subscriptions, try again later.")
		}
		subscriptions = append(subscriptions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, function, err, "Failed to get subscriptions, try again later.")
	}
	return subscriptions, nil
}

func (mySql *MySQLStorage) GetSubscriptions(ctx context.Context, userId string) ([]budget.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscription WHERE user_id = ? ORDER BY created_at;"
	return mySql.querySubscriptions(ctx, "GetSubscriptions", query, userId)
}

func (mySql *MySQLStorage) GetActiveSubscriptions(ctx context.Context, userId string) ([]budget.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscription WHERE user_id = ? AND is_active = TRUE ORDER BY created_at;"
	return mySql.querySubscriptions(ctx, "GetActiveSubscriptions", query, userId)
}

func (mySql *MySQLStorage) GetSubscriptionById(ctx context.Context, userId string, subscriptionId string) (budget.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscription WHERE id = ? AND user_id = ?;"
	s, err := scanSubscription(mySql.db.QueryRowContext(ctx, query, subscriptionId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return budget.Subscription{}, notFound("Subscription not found")
		}
		return budget.Subscription{}, internalError(ctx, "GetSubscriptionById", err, "Failed to get subscription, try again later.")
	}
	return s, nil
}

func (mySql *MySQLStorage) UpdateSubscription(ctx context.Context, s budget.Subscription) error {
	query := `UPDATE subscription SET name = ?, cost = ?, billing_cycle = ?, next_renewal = ?, usage_frequency = ?, is_active = ?
		WHERE id = ? AND user_id = ?;`
	_, err := mySql.db.ExecContext(ctx, query, s.Name, s.Cost, s.BillingCycle, NilToNullTime(s.NextRenewal), s.UsageFrequency, s.IsActive, s.ID, s.UserID)
	if err != nil {
		return internalError(ctx, "UpdateSubscription", err, "Failed to update subscription, try again later.")
	}
	return nil
}

func (mySql *MySQLStorage) GetStorageType() string {
	return "MySQL"
}
