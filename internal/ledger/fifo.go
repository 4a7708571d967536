// internal/ledger/fifo.go
//
// Pure FIFO consumption planning over a locked snapshot of active batches.
// The repository locks the row set and applies the plan; everything here is
// deterministic arithmetic so the ordering and conservation invariants can
// be tested in isolation.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plateiq/restock/internal/domain"
)

// Lot is the snapshot of one active batch taken under lock.
type Lot struct {
	BatchID        int64
	QtyRemaining   decimal.Decimal
	ExpirationDate *time.Time
	ReceivedDate   time.Time
}

// SortLots orders lots for FIFO consumption: expiration ascending with nil
// expirations last, ties broken by received date ascending. The result does
// not depend on the input order.
func SortLots(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpirationDate == nil && b.ExpirationDate == nil:
			return a.ReceivedDate.Before(b.ReceivedDate)
		case a.ExpirationDate == nil:
			return false
		case b.ExpirationDate == nil:
			return true
		case a.ExpirationDate.Equal(*b.ExpirationDate):
			return a.ReceivedDate.Before(b.ReceivedDate)
		default:
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
	})
}

// PlanConsumption walks lots in their given order, deducting from each until
// the requested quantity is satisfied. A batch whose remaining quantity
// reaches zero is marked depleted; remaining quantities never go below zero.
// Any unsatisfied remainder is reported as shortfall, not as an error.
//
// Callers must sort lots (SortLots) before planning.
func PlanConsumption(lots []Lot, requested decimal.Decimal) domain.ConsumeResult {
	remaining := requested
	result := domain.ConsumeResult{}

	for _, lot := range lots {
		if remaining.Sign() <= 0 {
			break
		}

		deducted := decimal.Min(lot.QtyRemaining, remaining)
		newQty := lot.QtyRemaining.Sub(deducted)

		status := domain.BatchActive
		if newQty.Sign() <= 0 {
			newQty = decimal.Zero
			status = domain.BatchDepleted
		}

		result.Affected = append(result.Affected, domain.BatchDelta{
			BatchID:      lot.BatchID,
			QtyDeducted:  deducted,
			QtyRemaining: newQty,
			Status:       status,
		})
		remaining = remaining.Sub(deducted)
	}

	shortfall := decimal.Max(remaining, decimal.Zero)
	result.Shortfall = shortfall
	result.TotalDeducted = requested.Sub(shortfall)
	return result
}
