package usage

import "github.com/kailas-cloud/poisearch/internal/usecase/generation"

// BudgetReader provides read-only access to generation budget state.
type BudgetReader interface {
	Snapshot() generation.BudgetSnapshot
}
