package usage

import "github.com/kailas-cloud/askdex/internal/usecase/embedding"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Limit(w embedding.Window) int64
	Used(w embedding.Window) int64
	Remaining(w embedding.Window) int64
}
