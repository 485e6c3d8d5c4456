package domain

import "time"

// Sample dataset mirroring a small municipality: four utility
// enterprises, a handful of accounts and a year of budget snapshots.

// SampleEnterprises returns the seeded enterprise records
func SampleEnterprises() []Enterprise {
	updated := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)
	return []Enterprise{
		{ID: 1, Name: "City Water Works", Type: EnterpriseWater, CitizenCount: 12400, MonthlyExpenses: 48200, CurrentRate: 4.35, Status: StatusActive, LastUpdated: updated},
		{ID: 2, Name: "Municipal Sewer District", Type: EnterpriseSewer, CitizenCount: 11900, MonthlyExpenses: 39800, CurrentRate: 3.90, Status: StatusActive, LastUpdated: updated},
		{ID: 3, Name: "Sanitation & Trash Services", Type: EnterpriseTrash, CitizenCount: 13100, MonthlyExpenses: 27500, CurrentRate: 2.25, Status: StatusActive, LastUpdated: updated},
		{ID: 4, Name: "Riverside Municipal Apartments", Type: EnterpriseApartments, CitizenCount: 640, MonthlyExpenses: 18400, CurrentRate: 31.50, Status: StatusInactive, LastUpdated: updated},
	}
}

// SampleAccounts returns seeded accounts keyed by enterprise ID
func SampleAccounts() map[int][]UtilityAccount {
	opened := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	return map[int][]UtilityAccount{
		1: {
			{ID: 101, EnterpriseID: 1, AccountName: "Residential Billing", Balance: 18250.40, IsActive: true, OpenedAt: opened},
			{ID: 102, EnterpriseID: 1, AccountName: "Commercial Billing", Balance: 9120.00, IsActive: true, OpenedAt: opened},
		},
		2: {
			{ID: 201, EnterpriseID: 2, AccountName: "Sewer Operations", Balance: 4410.75, IsActive: true, OpenedAt: opened},
		},
		3: {
			{ID: 301, EnterpriseID: 3, AccountName: "Collection Routes", Balance: 2280.10, IsActive: true, OpenedAt: opened},
			{ID: 302, EnterpriseID: 3, AccountName: "Recycling Program", Balance: -340.25, IsActive: false, OpenedAt: opened},
		},
		4: {
			{ID: 401, EnterpriseID: 4, AccountName: "Tenant Ledger", Balance: 1105.00, IsActive: true, OpenedAt: opened},
		},
	}
}

// SampleBudgets returns seeded budget snapshots keyed by enterprise ID
func SampleBudgets() map[int][]BudgetSnapshot {
	budgets := make(map[int][]BudgetSnapshot)
	for _, e := range SampleEnterprises() {
		months := make([]BudgetSnapshot, 0, 12)
		for m := time.January; m <= time.December; m++ {
			months = append(months, BudgetSnapshot{
				EnterpriseID: e.ID,
				Month:        time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC),
				Revenue:      e.MonthlyRevenue(),
				Expenses:     e.MonthlyExpenses,
			})
		}
		budgets[e.ID] = months
	}
	return budgets
}
