// Package bus buffers behavioral telemetry between dialogue steps and
// the reconciliation pass: raw mechanic events, canonical actions, and
// the expected actions registered when the player picks an option.
package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vreyes/stakecraft/types"
)

// Batch is one flushed set of buffered records. The slices are owned
// by the caller after Flush returns.
type Batch struct {
	Events           []types.MechanicEvent
	CanonicalActions []types.CanonicalAction
	ExpectedActions  []types.ExpectedAction
}

// Empty reports whether the batch carries no records at all.
func (b Batch) Empty() bool {
	return len(b.Events) == 0 && len(b.CanonicalActions) == 0 && len(b.ExpectedActions) == 0
}

// Bus accumulates telemetry records until flushed. Constructed per
// session; callers share one instance through injection rather than a
// package-level singleton so tests can run isolated buses.
type Bus struct {
	mu       sync.Mutex
	events   []types.MechanicEvent
	canon    []types.CanonicalAction
	expected []types.ExpectedAction

	now   func() int64
	newID func() string
}

// New returns a bus stamping records with wall-clock milliseconds and
// random UUIDs.
func New() *Bus {
	return &Bus{
		now:   func() int64 { return time.Now().UnixMilli() },
		newID: uuid.NewString,
	}
}

// NewWithClock returns a bus with injected time and id sources, for
// deterministic tests.
func NewWithClock(now func() int64, newID func() string) *Bus {
	return &Bus{now: now, newID: newID}
}

// Now returns the bus's current timestamp in milliseconds. Callers
// that log their own timings use this so injected test clocks apply
// everywhere.
func (b *Bus) Now() int64 { return b.now() }

// EmitEvent buffers a raw mechanic event and returns its assigned id.
func (b *Bus) EmitEvent(mechanicID, eventType string, payload map[string]any) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.newID()
	b.events = append(b.events, types.MechanicEvent{
		EventID:    id,
		MechanicID: mechanicID,
		EventType:  eventType,
		Timestamp:  b.now(),
		Payload:    payload,
	})
	return id
}

// EmitCanonicalAction buffers a committed player action and returns
// its assigned id.
func (b *Bus) EmitCanonicalAction(a types.CanonicalAction) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	a.ID = b.newID()
	a.CommittedAt = b.now()
	b.canon = append(b.canon, a)
	return a.ID
}

// RegisterExpectedActions materializes content-side expectation specs
// into full expected-action records, stamping ids, creation time, and
// the originating dialogue node and option.
func (b *Bus) RegisterExpectedActions(src types.ActionSource, specs []types.ExpectedActionSpec) []types.ExpectedAction {
	if len(specs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.ExpectedAction, 0, len(specs))
	for _, s := range specs {
		ea := types.ExpectedAction{
			ID:          b.newID(),
			Source:      src,
			ActionType:  s.ActionType,
			TargetRef:   s.TargetRef,
			Constraints: s.Constraints,
			RuleID:      s.RuleID,
			MechanicID:  s.MechanicID,
			CreatedAt:   b.now(),
		}
		b.expected = append(b.expected, ea)
		out = append(out, ea)
	}
	return out
}

// Flush swaps out all three buffers atomically and returns their
// contents. The bus is empty afterwards; records emitted concurrently
// with the flush land in the next batch, never partially in both.
func (b *Bus) Flush() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := Batch{Events: b.events, CanonicalActions: b.canon, ExpectedActions: b.expected}
	b.events = nil
	b.canon = nil
	b.expected = nil
	return out
}

// Pending reports buffered record counts without flushing.
func (b *Bus) Pending() (events, canonical, expected int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events), len(b.canon), len(b.expected)
}
