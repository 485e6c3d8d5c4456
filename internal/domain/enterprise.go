// Package domain holds the municipal utility records managed by the
// application and the repository interface the orchestration layer
// loads them through.
package domain

import (
	"context"
	"time"
)

// EnterpriseType classifies a municipal utility enterprise
type EnterpriseType string

const (
	EnterpriseWater      EnterpriseType = "water"
	EnterpriseSewer      EnterpriseType = "sewer"
	EnterpriseTrash      EnterpriseType = "trash"
	EnterpriseApartments EnterpriseType = "apartments"
)

// EnterpriseStatus is the operating status of an enterprise
type EnterpriseStatus string

const (
	StatusActive   EnterpriseStatus = "active"
	StatusInactive EnterpriseStatus = "inactive"
)

// Enterprise is one municipal utility enterprise
type Enterprise struct {
	ID              int              `json:"id"`
	Name            string           `json:"name"`
	Type            EnterpriseType   `json:"type"`
	CitizenCount    int              `json:"citizen_count"`
	MonthlyExpenses float64          `json:"monthly_expenses"`
	CurrentRate     float64          `json:"current_rate"`
	Status          EnterpriseStatus `json:"status"`
	LastUpdated     time.Time        `json:"last_updated"`
}

// MonthlyRevenue is the projected revenue at the current rate
func (e Enterprise) MonthlyRevenue() float64 {
	return e.CurrentRate * float64(e.CitizenCount)
}

// UtilityAccount is a customer account attached to an enterprise
type UtilityAccount struct {
	ID           int       `json:"id"`
	EnterpriseID int       `json:"enterprise_id"`
	AccountName  string    `json:"account_name"`
	Balance      float64   `json:"balance"`
	IsActive     bool      `json:"is_active"`
	OpenedAt     time.Time `json:"opened_at"`
}

// BudgetSnapshot aggregates one month of revenue and expenses for an
// enterprise
type BudgetSnapshot struct {
	EnterpriseID int       `json:"enterprise_id"`
	Month        time.Time `json:"month"`
	Revenue      float64   `json:"revenue"`
	Expenses     float64   `json:"expenses"`
}

// Surplus is revenue minus expenses for the snapshot month
func (b BudgetSnapshot) Surplus() float64 {
	return b.Revenue - b.Expenses
}

// Repository fetches domain records. Implementations may fail with
// transient or permanent errors; the orchestration layer treats every
// non-cancellation error as retryable up to the configured bound.
type Repository interface {
	FetchAll(ctx context.Context) ([]Enterprise, error)
	FetchAccounts(ctx context.Context, enterpriseID int) ([]UtilityAccount, error)
	FetchBudgets(ctx context.Context, enterpriseID int) ([]BudgetSnapshot, error)
}
