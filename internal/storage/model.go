package storage

import (
	"database/sql"
	"time"

	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/fatali-fataliyev/burn_tracker/internal/budget"
)

type dbUser struct {
	ID                   string
	Email                string
	HashedPassword       sql.NullString
	GoogleID             sql.NullString
	AuthMethod           string
	DisplayName          string
	MonthlyIncome        float64
	Currency             string
	NotificationsEnabled bool
	SalaryCreditDate     int
	CreatedAt            time.Time
}

func (u dbUser) toUser() auth.User {
	return auth.User{
		ID:                   u.ID,
		Email:                u.Email,
		PasswordHashed:       u.HashedPassword.String,
		GoogleID:             u.GoogleID.String,
		AuthMethod:           u.AuthMethod,
		DisplayName:          u.DisplayName,
		MonthlyIncome:        u.MonthlyIncome,
		Currency:             u.Currency,
		NotificationsEnabled: u.NotificationsEnabled,
		SalaryCreditDate:     u.SalaryCreditDate,
		CreatedAt:            u.CreatedAt,
	}
}

type dbSession struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time
	UserID    string
}

type dbSubscription struct {
	ID             string
	UserID         string
	Name           string
	Cost           float64
	BillingCycle   string
	NextRenewal    sql.NullTime
	UsageFrequency string
	IsActive       bool
	CreatedAt      time.Time
}

func (s dbSubscription) toSubscription() budget.Subscription {
	subscription := budget.Subscription{
		ID:             s.ID,
		UserID:         s.UserID,
		Name:           s.Name,
		Cost:           s.Cost,
		BillingCycle:   s.BillingCycle,
		UsageFrequency: s.UsageFrequency,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
	}
	if s.NextRenewal.Valid {
		renewal := s.NextRenewal.Time
		subscription.NextRenewal = &renewal
	}
	return subscription
}

func EmptyToNullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{Valid: true, String: v}
}

func NilToNullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Valid: true, Time: *v}
}
