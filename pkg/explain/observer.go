package explain

import (
	"time"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// Observer receives pipeline events, typically to feed metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveGeneration(category core.Category, err error, elapsed time.Duration)
	ObserveReconcileFailure(category core.Category)
	ObserveRecords(records []core.ExplanationRecord)
}

type nopObserver struct{}

func (nopObserver) ObserveGeneration(core.Category, error, time.Duration) {}
func (nopObserver) ObserveReconcileFailure(core.Category)                  {}
func (nopObserver) ObserveRecords([]core.ExplanationRecord)                {}
