package health

import "context"

// DBPinger checks storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BudgetReporter exposes the remaining detection cost budget.
// A negative value means unlimited.
type BudgetReporter interface {
	RemainingDaily() int64
	RemainingMonthly() int64
}
