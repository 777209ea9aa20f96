package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/vreyes/stakecraft/engine/compare"
	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

var validOps = map[types.CompareOp]bool{
	types.OpGE: true, types.OpLE: true, types.OpGT: true, types.OpLT: true, types.OpEQ: true,
}

var validGlobalMetrics = map[string]bool{
	"budget": true, "reputation": true, "progress": true, "day": true,
}

var validStakeholderMetrics = map[string]bool{
	"trust": true, "support": true,
}

// validate checks the compiled pack for referential integrity and
// consistency.
func validate(p *state.Pack) error {
	ve := &ValidationError{}

	if p.Title == "" {
		ve.Errors = append(ve.Errors, "Simulation.title is required")
	}
	if len(p.TimeSlots) == 0 {
		ve.Errors = append(ve.Errors, "Simulation.time_slots is required")
	}
	slots := map[types.TimeSlot]bool{}
	for _, s := range p.TimeSlots {
		if slots[s] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate time slot %q", s))
		}
		slots[s] = true
	}

	ids := map[string]bool{}
	roleCount := map[string]int{}
	for _, sh := range p.Stakeholders {
		if ids[sh.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate stakeholder %q", sh.ID))
		}
		ids[sh.ID] = true
		roleCount[sh.Role]++
		if sh.MinSupport > sh.MaxSupport {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"stakeholder %q has min_support %d above max_support %d", sh.ID, sh.MinSupport, sh.MaxSupport))
		}
	}

	// stakeholderRef checks an id-or-role reference. Role references
	// must be unambiguous: resolving "first match wins" at runtime is
	// a content bug, so duplicates are rejected here.
	stakeholderRef := func(owner, ref string) {
		if ref == "" || ids[ref] {
			return
		}
		switch roleCount[ref] {
		case 0:
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s references unknown stakeholder %q", owner, ref))
		case 1:
		default:
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s references role %q held by %d stakeholders", owner, ref, roleCount[ref]))
		}
	}

	for id, seq := range p.Sequences {
		owner := fmt.Sprintf("sequence %q", id)
		if len(seq.Nodes) == 0 {
			ve.Errors = append(ve.Errors, owner+" has no nodes")
		}
		for _, nodeID := range seq.Nodes {
			if _, ok := p.Nodes[nodeID]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s references undefined node %q", owner, nodeID))
			}
		}
		ref := seq.StakeholderID
		if ref == "" {
			ref = seq.StakeholderRole
		}
		if ref == "" {
			ve.Errors = append(ve.Errors, owner+" names no stakeholder")
		} else {
			stakeholderRef(owner, ref)
		}

		switch seq.Trigger {
		case types.TriggerInevitable:
			if seq.Schedule == nil {
				ve.Errors = append(ve.Errors, owner+" is inevitable but has no schedule")
			} else {
				if seq.Schedule.Day < 1 {
					ve.Errors = append(ve.Errors, owner+" schedule day must be >= 1")
				}
				if !slots[seq.Schedule.Slot] {
					ve.Errors = append(ve.Errors, fmt.Sprintf(
						"%s schedule slot %q is not a defined time slot", owner, seq.Schedule.Slot))
				}
			}
		case types.TriggerContingent:
			c := seq.Contingent
			if c == nil || (c.BudgetBelow == nil && c.TrustBelow == nil && c.SupportBelow == nil) {
				ve.Errors = append(ve.Errors, owner+" is contingent but has no thresholds")
			} else if c.TrustBelow != nil || c.SupportBelow != nil {
				switch {
				case c.StakeholderRole != "":
					stakeholderRef(owner, c.StakeholderRole)
				case seq.StakeholderID == "" && seq.StakeholderRole == "":
					ve.Errors = append(ve.Errors, owner+" trust/support thresholds need a stakeholder")
				}
			}
		default:
			if seq.Schedule != nil {
				ve.Warnings = append(ve.Warnings, owner+" has a schedule but is not inevitable; ignored")
			}
		}
	}

	for id, node := range p.Nodes {
		owner := fmt.Sprintf("node %q", id)
		if len(node.Options) == 0 {
			ve.Errors = append(ve.Errors, owner+" has no options")
		}
		optIDs := map[string]bool{}
		for _, opt := range node.Options {
			if opt.ID == "" {
				ve.Errors = append(ve.Errors, owner+" has an option without an id")
				continue
			}
			if optIDs[opt.ID] {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s has duplicate option %q", owner, opt.ID))
			}
			optIDs[opt.ID] = true
			for _, ea := range opt.Consequences.ExpectedActions {
				if ea.ActionType == "" {
					ve.Errors = append(ve.Errors, fmt.Sprintf(
						"%s option %q expects an action without an action_type", owner, opt.ID))
				}
				if !compare.KnownRule(ea.RuleID) {
					ve.Errors = append(ve.Errors, fmt.Sprintf(
						"%s option %q uses unknown comparison rule %q", owner, opt.ID, ea.RuleID))
				}
			}
			if e := opt.Consequences.BudgetEffect; e != nil {
				validateBand(owner, opt.ID, e, ve)
			}
			if e := opt.Consequences.ReputationEffect; e != nil {
				validateBand(owner, opt.ID, e, ve)
			}
		}
		ref := node.StakeholderID
		if ref == "" {
			ref = node.StakeholderRole
		}
		if ref != "" {
			stakeholderRef(owner, ref)
		}
	}

	for _, email := range p.Emails {
		if email.TriggerStakeholderID == "system-startup" {
			continue
		}
		stakeholderRef(fmt.Sprintf("email %q", email.ID), email.TriggerStakeholderID)
	}

	objIDs := map[string]bool{}
	for _, obj := range p.Objectives {
		owner := fmt.Sprintf("objective %q", obj.ID)
		if objIDs[obj.ID] {
			ve.Errors = append(ve.Errors, "duplicate "+owner)
		}
		objIDs[obj.ID] = true
		if obj.Owner == types.OwnerNPC {
			stakeholderRef(owner, obj.StakeholderID)
		}
		for _, gate := range obj.RevealedBy {
			if gate == "*" {
				continue
			}
			if _, ok := p.Sequences[gate]; !ok {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"%s revealed_by references undefined sequence %q", owner, gate))
			}
		}
		validateGroup(owner, &obj.Success, p, ids, roleCount, ve)
		if obj.Failure != nil {
			validateGroup(owner, obj.Failure, p, ids, roleCount, ve)
		}
	}

	for _, w := range ve.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateBand(owner, optID string, e *types.BandedEffect, ve *ValidationError) {
	switch e.Magnitude {
	case types.MagnitudeS, types.MagnitudeM, types.MagnitudeL:
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"%s option %q uses unknown magnitude %q", owner, optID, e.Magnitude))
	}
}

func validateGroup(owner string, g *types.ConditionGroup, p *state.Pack, ids map[string]bool, roles map[string]int, ve *ValidationError) {
	for _, c := range append(append([]types.Condition{}, g.All...), g.Any...) {
		validateCondition(owner, c, p, ids, roles, ve)
	}
}

func validateCondition(owner string, c types.Condition, p *state.Pack, ids map[string]bool, roles map[string]int, ve *ValidationError) {
	switch cond := c.(type) {
	case types.GlobalMetric:
		if !validGlobalMetrics[cond.Metric] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s uses unknown metric %q", owner, cond.Metric))
		}
		if !validOps[cond.Op] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s uses unknown operator %q", owner, cond.Op))
		}
	case types.StakeholderMetric:
		if !validStakeholderMetrics[cond.Metric] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s uses unknown stakeholder metric %q", owner, cond.Metric))
		}
		if !validOps[cond.Op] {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s uses unknown operator %q", owner, cond.Op))
		}
		if !ids[cond.StakeholderID] && roles[cond.StakeholderID] != 1 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s condition references unknown stakeholder %q", owner, cond.StakeholderID))
		}
	case types.CompletedSequence:
		if _, ok := p.Sequences[cond.SequenceID]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s condition references undefined sequence %q", owner, cond.SequenceID))
		}
	case types.CompletedScenario:
		if _, ok := p.Nodes[cond.ScenarioID]; !ok {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"%s condition references undefined node %q", owner, cond.ScenarioID))
		}
	case types.ActionCount:
		if cond.ActionType == "" {
			ve.Errors = append(ve.Errors, owner+" action condition has no action_type")
		}
	}
}
