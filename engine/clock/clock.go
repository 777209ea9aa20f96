// Package clock owns the simulation calendar: slot advancement, the
// day rollover with its commitment decay, and the predicates that
// decide when scheduled or condition-driven sequences fire.
package clock

import (
	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/types"
)

// AdvanceResult reports what a single time step did.
type AdvanceResult struct {
	DayCompleted bool // true when the step wrapped into a new day
	CompletedDay int  // the day that just ended, valid when DayCompleted
	NewlyBroken  []BrokenCommitment
}

// BrokenCommitment identifies one commitment that decayed to broken
// during a day rollover.
type BrokenCommitment struct {
	StakeholderID string
	Description   string
	DayDue        int
}

// Advance moves the state forward one time slot. When the last slot of
// the day wraps, the day counter increments, the outgoing day's
// stakeholder state is snapshotted into history (write-once), and any
// commitment still pending past its due day is marked broken with a
// trust penalty of 20 per commitment, applied exactly once.
func Advance(gs *types.GameState, slots []types.TimeSlot) AdvanceResult {
	idx := slotIndex(slots, gs.TimeSlot)
	next := idx + 1
	if next < len(slots) {
		gs.TimeSlot = slots[next]
		return AdvanceResult{}
	}

	completed := gs.Day
	if _, seen := gs.History[completed]; !seen {
		gs.History[completed] = state.CopyStakeholders(gs.Stakeholders)
	}

	gs.Day++
	gs.TimeSlot = slots[0]

	res := AdvanceResult{DayCompleted: true, CompletedDay: completed}
	for i := range gs.Stakeholders {
		sh := &gs.Stakeholders[i]
		broken := 0
		for j := range sh.Commitments {
			c := &sh.Commitments[j]
			if c.Status == types.CommitmentPending && c.DayDue < gs.Day {
				c.Status = types.CommitmentBroken
				broken++
				res.NewlyBroken = append(res.NewlyBroken, BrokenCommitment{
					StakeholderID: sh.ID,
					Description:   c.Description,
					DayDue:        c.DayDue,
				})
			}
		}
		if broken > 0 {
			sh.Trust = state.ClampTrust(sh.Trust - 20*broken)
		}
	}
	return res
}

func slotIndex(slots []types.TimeSlot, cur types.TimeSlot) int {
	for i, s := range slots {
		if s == cur {
			return i
		}
	}
	return 0
}

// InevitableDue returns the id of a scheduled sequence whose slot
// exactly matches the current day and time slot and which has not
// completed yet, or "" when none is due. Schedules match by equality
// only: a missed slot never fires late.
func InevitableDue(gs *types.GameState) string {
	for id, ref := range gs.ScenarioSchedule {
		if ref.Day == gs.Day && ref.Slot == gs.TimeSlot && !completed(gs, id) {
			return id
		}
	}
	return ""
}

// ContingentDue scans pack sequences for a contingent trigger whose
// rules hold against the current state, skipping completed sequences.
func ContingentDue(gs *types.GameState, p *state.Pack) string {
	for id, seq := range p.Sequences {
		if seq.Trigger != types.TriggerContingent || seq.Contingent == nil {
			continue
		}
		if completed(gs, id) {
			continue
		}
		ref := seq.StakeholderID
		if ref == "" {
			ref = seq.StakeholderRole
		}
		if ShouldTrigger(gs, seq.Contingent, ref) {
			return id
		}
	}
	return ""
}

// ShouldTrigger evaluates a contingent rule set. All present
// thresholds must hold. The rule's own stakeholder role wins; without
// one the trust/support checks fall back to fallbackRef, normally the
// owning sequence's stakeholder. An unresolvable stakeholder fails
// closed.
func ShouldTrigger(gs *types.GameState, rules *types.ContingentRules, fallbackRef string) bool {
	if rules.BudgetBelow != nil && gs.Budget >= *rules.BudgetBelow {
		return false
	}
	if rules.TrustBelow != nil || rules.SupportBelow != nil {
		ref := rules.StakeholderRole
		if ref == "" {
			ref = fallbackRef
		}
		sh, _, err := state.Resolve(gs, ref)
		if err != nil {
			return false
		}
		if rules.TrustBelow != nil && sh.Trust >= *rules.TrustBelow {
			return false
		}
		if rules.SupportBelow != nil && sh.Support >= *rules.SupportBelow {
			return false
		}
	}
	return rules.BudgetBelow != nil || rules.TrustBelow != nil || rules.SupportBelow != nil
}

func completed(gs *types.GameState, id string) bool {
	for _, c := range gs.CompletedSequences {
		if c == id {
			return true
		}
	}
	return false
}
