package preload

import (
	"github.com/fukivoice/fukivoice/pkg/textunit"
)

// UnitUpdate is the immutable event emitted after a unit's audio is
// finalized. The presentation layer consumes these instead of watching
// shared unit structs.
type UnitUpdate struct {
	// Unit is a copy of the unit after the update.
	Unit textunit.Unit

	// Direction is the side whose audio became ready.
	Direction textunit.Direction

	// Generation identifies the batch that produced the update.
	Generation uint64

	// CacheHit is true when the audio was reused rather than synthesized.
	CacheHit bool
}

// Notifier receives readiness events from the orchestrator. Implementations
// must be safe for concurrent use; both callbacks are invoked from preload
// task goroutines. AllReady may fire more than once across batches; the
// consumer is expected to be idempotent.
type Notifier interface {
	UnitUpdated(update UnitUpdate)
	AllReady()
}

// NotifierFuncs adapts plain functions to the Notifier interface.
// Nil fields are no-ops.
type NotifierFuncs struct {
	OnUnitUpdated func(update UnitUpdate)
	OnAllReady    func()
}

// UnitUpdated calls OnUnitUpdated when set.
func (n NotifierFuncs) UnitUpdated(update UnitUpdate) {
	if n.OnUnitUpdated != nil {
		n.OnUnitUpdated(update)
	}
}

// AllReady calls OnAllReady when set.
func (n NotifierFuncs) AllReady() {
	if n.OnAllReady != nil {
		n.OnAllReady()
	}
}

// Verify NotifierFuncs implements Notifier at compile time.
var _ Notifier = NotifierFuncs{}
