package models

// All returns every model the hub migrates.
func All() []any {
	return []any{
		&Vehicle{},
		&FinanceNote{},
		&WeeklyRevenue{},
		&LogisticsJob{},
		&LedgerEvent{},
		&Proposal{},
		&Lead{},
		&Upload{},
	}
}
