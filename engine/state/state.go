// Package state holds the immutable content pack definitions and the
// helpers that read and mutate the mutable simulation state.
package state

import (
	"fmt"

	"github.com/vreyes/stakecraft/types"
)

// Pack is the compiled, validated content pack. It is immutable after
// load: the engine reads from it but never writes to it.
type Pack struct {
	Title       string
	Version     string
	PlayerName  string
	PlayerRole  string
	ProjectName string

	TimeSlots     []types.TimeSlot
	SecretaryRole string

	InitialBudget     int
	InitialReputation int
	InitialProgress   int
	FinalDay          int
	// MinTrustRequired is the trust floor for critical stakeholders;
	// crossing it raises a critical warning. Zero disables the check.
	MinTrustRequired int

	Stakeholders []types.Stakeholder
	Nodes        map[string]types.Node
	Sequences    map[string]types.Sequence
	Emails       []types.EmailTemplate
	Documents    []types.Document
	Objectives   []types.ObjectiveDefinition
	Schedule     []types.ScheduleEntry
}

// Sequence returns the sequence definition for id, or false when the
// pack does not define it.
func (p *Pack) Sequence(id string) (types.Sequence, bool) {
	s, ok := p.Sequences[id]
	return s, ok
}

// Node returns the dialogue node for id, or false when missing.
func (p *Pack) Node(id string) (types.Node, bool) {
	n, ok := p.Nodes[id]
	return n, ok
}

// New builds the initial game state from a compiled pack. Stakeholders
// are deep-copied so pack definitions stay pristine across sessions.
func New(p *Pack) *types.GameState {
	slot := types.TimeSlot("")
	if len(p.TimeSlots) > 0 {
		slot = p.TimeSlots[0]
	}

	gs := &types.GameState{
		PlayerName:         p.PlayerName,
		Budget:             p.InitialBudget,
		Day:                1,
		TimeSlot:           slot,
		Reputation:         p.InitialReputation,
		ProjectProgress:    p.InitialProgress,
		Stakeholders:       CopyStakeholders(p.Stakeholders),
		History:            make(map[int][]types.Stakeholder),
		CompletedScenarios: []string{},
		CompletedSequences: []string{},
		ScenarioSchedule:   make(map[string]types.SlotRef),
		WeeklySchedule:     append([]types.ScheduleEntry(nil), p.Schedule...),
	}

	for id, seq := range p.Sequences {
		if seq.Trigger == types.TriggerInevitable && seq.Schedule != nil {
			gs.ScenarioSchedule[id] = *seq.Schedule
		}
	}
	return gs
}

// CopyStakeholders deep-copies a stakeholder slice, including nested
// commitments and question bookkeeping. Used for the daily history
// snapshots, which must not alias live state.
func CopyStakeholders(src []types.Stakeholder) []types.Stakeholder {
	out := make([]types.Stakeholder, len(src))
	for i, s := range src {
		cp := s
		cp.Commitments = append([]types.Commitment(nil), s.Commitments...)
		cp.Questions = append([]types.Question(nil), s.Questions...)
		cp.QuestionsAsked = append([]string(nil), s.QuestionsAsked...)
		out[i] = cp
	}
	return out
}

// Resolve finds a stakeholder by id first, then by role. When several
// stakeholders share the requested role the first match wins and a
// warning is returned for the caller to surface.
func Resolve(gs *types.GameState, ref string) (*types.Stakeholder, string, error) {
	for i := range gs.Stakeholders {
		if gs.Stakeholders[i].ID == ref {
			return &gs.Stakeholders[i], "", nil
		}
	}
	var matches []int
	for i := range gs.Stakeholders {
		if gs.Stakeholders[i].Role == ref {
			matches = append(matches, i)
		}
	}
	switch len(matches) {
	case 0:
		return nil, "", fmt.Errorf("unknown stakeholder %q", ref)
	case 1:
		return &gs.Stakeholders[matches[0]], "", nil
	default:
		warn := fmt.Sprintf("role %q matches %d stakeholders, using %s", ref, len(matches), gs.Stakeholders[matches[0]].ID)
		return &gs.Stakeholders[matches[0]], warn, nil
	}
}

// ClampReputation bounds reputation to [0, 100].
func ClampReputation(v int) int { return clamp(v, 0, 100) }

// ClampProgress bounds project progress to [0, 100].
func ClampProgress(v int) int { return clamp(v, 0, 100) }

// ClampTrust bounds trust to [0, 100].
func ClampTrust(v int) int { return clamp(v, 0, 100) }

// ClampSupport bounds support to the stakeholder's own band.
func ClampSupport(s *types.Stakeholder, v int) int {
	return clamp(v, s.MinSupport, s.MaxSupport)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Banded effect magnitudes. Budget moves in project-scale money,
// reputation in small visible steps.
var (
	budgetMagnitude     = map[types.Magnitude]int{types.MagnitudeS: 10000, types.MagnitudeM: 50000, types.MagnitudeL: 100000}
	reputationMagnitude = map[types.Magnitude]int{types.MagnitudeS: 5, types.MagnitudeM: 10, types.MagnitudeL: 15}
)

// BudgetDelta converts a banded effect into a signed budget change.
func BudgetDelta(e *types.BandedEffect) int {
	if e == nil {
		return 0
	}
	d := budgetMagnitude[e.Magnitude]
	if !e.Positive {
		d = -d
	}
	return d
}

// ReputationDelta converts a banded effect into a signed reputation change.
func ReputationDelta(e *types.BandedEffect) int {
	if e == nil {
		return 0
	}
	d := reputationMagnitude[e.Magnitude]
	if !e.Positive {
		d = -d
	}
	return d
}

// BandFor classifies a raw budget figure into a magnitude band, used
// when content supplies explicit numbers rather than bands.
func BandFor(amount int) types.Magnitude {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs <= 10000:
		return types.MagnitudeS
	case abs <= 50000:
		return types.MagnitudeM
	default:
		return types.MagnitudeL
	}
}

// ApplyConsequences mutates the game state with an option's outcome:
// global meters, the acting stakeholder's meters, and any explicit
// numeric changes. Banded effects take precedence over raw numbers when
// both are present.
func ApplyConsequences(gs *types.GameState, sh *types.Stakeholder, c types.Consequences) {
	budget := c.BudgetChange
	if c.BudgetEffect != nil {
		budget = BudgetDelta(c.BudgetEffect)
	}
	rep := c.ReputationChange
	if c.ReputationEffect != nil {
		rep = ReputationDelta(c.ReputationEffect)
	}

	gs.Budget += budget
	gs.Reputation = ClampReputation(gs.Reputation + rep)
	gs.ProjectProgress = ClampProgress(gs.ProjectProgress + c.ProgressChange)

	if sh != nil {
		sh.Trust = ClampTrust(sh.Trust + c.TrustChange)
		sh.Support = ClampSupport(sh, sh.Support+c.SupportChange)
	}
}
