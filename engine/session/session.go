// Package session is the single-threaded controller that owns the game
// state. All player input funnels through Dispatch; subsystems never
// mutate state concurrently with it.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/vreyes/stakecraft/engine/bus"
	"github.com/vreyes/stakecraft/engine/clock"
	"github.com/vreyes/stakecraft/engine/compare"
	"github.com/vreyes/stakecraft/engine/objectives"
	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/types"
)

// DayDeltas are the stat adjustments a backend computes for one
// completed day from that day's comparison outcomes.
type DayDeltas struct {
	Budget     int            `json:"budget"`
	Reputation int            `json:"reputation"`
	Trust      map[string]int `json:"trust"`
	Support    map[string]int `json:"support"`
}

// DaySyncer resolves a completed day against a backend. Implementations
// may fail transiently; the session queues days and retries in order.
type DaySyncer interface {
	ResolveDay(sessionID string, day int, comparisons []types.ComparisonResult) (DayDeltas, error)
}

// Session drives one playthrough of a content pack.
type Session struct {
	ID   string
	pack *state.Pack
	gs   *types.GameState
	bus  *bus.Bus
	trk  *objectives.Tracker

	syncer      DaySyncer
	pendingSync []pendingDay
	syncedCmps  int // comparisons already posted to the backend

	mode        types.ConversationMode
	activeSeq   string
	nodeIdx     int
	dialogue    string
	responded   bool
	nodeShownAt int64 // bus-clock ms when the current node was presented

	// questions overlay bookkeeping: where to return to and the
	// dialogue to restore there. callTarget holds the stakeholder ref
	// when the overlay was opened ownerless, with no sequence active.
	questionsOrigin types.ConversationMode
	questionsBase   string
	callTarget      string

	status    types.GameStatus
	warnings  []string
	startedAt time.Time
}

// Option configures a Session at construction.
type Option func(*Session)

// WithBus injects a telemetry bus, usually one with a deterministic clock.
func WithBus(b *bus.Bus) Option { return func(s *Session) { s.bus = b } }

// WithSyncer attaches a backend day resolver. Without one, completed
// days are not synced and no deltas are applied.
func WithSyncer(d DaySyncer) Option { return func(s *Session) { s.syncer = d } }

// WithID sets the backend session id.
func WithID(id string) Option { return func(s *Session) { s.ID = id } }

// New starts a session from a compiled pack: fresh state, idle mode,
// startup emails delivered.
func New(p *state.Pack, opts ...Option) *Session {
	s := &Session{
		pack:      p,
		gs:        state.New(p),
		bus:       bus.New(),
		trk:       objectives.NewTracker(p.Objectives),
		mode:      types.ModeIdle,
		status:    types.StatusPlaying,
		startedAt: time.Now().UTC(),
	}
	for _, o := range opts {
		o(s)
	}
	s.deliverEmails("system-startup")
	s.trk.Refresh(s.gs)
	return s
}

// State exposes the mutable root. Callers on the UI thread may read
// it; all writes go through the session.
func (s *Session) State() *types.GameState { return s.gs }

// Mode returns the current conversation mode.
func (s *Session) Mode() types.ConversationMode { return s.mode }

// Status returns playing/won/lost.
func (s *Session) Status() types.GameStatus { return s.status }

// StartedAt is the wall-clock time the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Dialogue returns the text currently on screen.
func (s *Session) Dialogue() string { return s.dialogue }

// Objectives returns snapshots of the revealed objectives.
func (s *Session) Objectives() []types.ObjectiveSnapshot { return s.trk.Visible() }

// HasUnseenObjectives reports pending objective updates.
func (s *Session) HasUnseenObjectives() bool { return s.trk.HasUnseen() }

// UnseenObjectiveCount counts objectives with a pending update.
func (s *Session) UnseenObjectiveCount() int { return s.trk.UnseenCount() }

// Warnings drains accumulated warning popups.
func (s *Session) Warnings() []string {
	w := s.warnings
	s.warnings = nil
	return w
}

func (s *Session) warn(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// Dispatch executes one player action token. Unknown tokens and
// actions illegal in the current mode return an error and leave state
// untouched.
func (s *Session) Dispatch(action string) error {
	if s.status != types.StatusPlaying {
		return fmt.Errorf("session is over (%s)", s.status)
	}
	switch {
	case action == "advance_time":
		return s.advanceTimeAction()
	case strings.HasPrefix(action, "meet:"):
		return s.startProactive(strings.TrimPrefix(action, "meet:"))
	case strings.HasPrefix(action, "call:"):
		return s.callStakeholder(strings.TrimPrefix(action, "call:"))
	case action == "start_meeting_sequence":
		return s.startMeetingSequence()
	case strings.HasPrefix(action, "option:"):
		return s.chooseOption(strings.TrimPrefix(action, "option:"))
	case action == "continue_meeting_sequence":
		return s.continueSequence()
	case action == "end_meeting_sequence":
		return s.endSequence()
	case action == "conclude_meeting":
		return s.concludeMeeting()
	case action == "ask_questions":
		return s.openQuestions()
	case strings.HasPrefix(action, "question:"):
		return s.askQuestion(strings.TrimPrefix(action, "question:"))
	case action == "close_questions", action == "return_to_questions":
		return s.closeQuestions()
	case action == "mark_objectives_seen":
		s.trk.MarkAllSeen()
		return nil
	}
	return fmt.Errorf("unknown action %q", action)
}

// Actions lists what the player can do right now, in presentation order.
func (s *Session) Actions() []types.PlayerAction {
	switch s.mode {
	case types.ModeIdle:
		var out []types.PlayerAction
		blockedBy := s.pendingMandatory()
		for id, seq := range s.pack.Sequences {
			if seq.Trigger != types.TriggerProactive || s.sequenceCompleted(id) {
				continue
			}
			out = append(out, types.PlayerAction{
				Label:  "Meet: " + id,
				Cost:   "1 slot",
				Action: "meet:" + id,
				Locked: blockedBy != "",
			})
		}
		out = append(out, types.PlayerAction{Label: "Advance time", Cost: "1 slot", Action: "advance_time", Locked: blockedBy != ""})
		if blockedBy != "" {
			out = append(out, types.PlayerAction{Label: "Attend: " + blockedBy, Action: "meet:" + blockedBy})
		}
		return out
	case types.ModePreSequence:
		out := []types.PlayerAction{{Label: "Begin the conversation", Action: "start_meeting_sequence"}}
		if s.canAskQuestions() {
			out = append(out, types.PlayerAction{Label: "Ask questions first", Action: "ask_questions"})
		}
		return out
	case types.ModeInSequence:
		node, ok := s.currentNode()
		if !ok {
			return nil
		}
		if s.responded {
			if s.nodeIdx+1 < len(s.sequence().Nodes) {
				return []types.PlayerAction{{Label: "Continue", Action: "continue_meeting_sequence"}}
			}
			return []types.PlayerAction{{Label: "Wrap up", Action: "end_meeting_sequence"}}
		}
		out := make([]types.PlayerAction, 0, len(node.Options))
		for _, opt := range node.Options {
			out = append(out, types.PlayerAction{Label: opt.Text, Action: "option:" + opt.ID})
		}
		return out
	case types.ModePostSequence:
		out := []types.PlayerAction{{Label: "Conclude the meeting", Action: "conclude_meeting"}}
		if s.activeStakeholder() != nil {
			out = append(out, types.PlayerAction{Label: "Ask questions", Action: "ask_questions"})
		}
		return out
	case types.ModeQuestions, types.ModeQuestionsOnly:
		closeLabel := "Back"
		if s.mode == types.ModeQuestionsOnly {
			closeLabel = "Hang up"
		}
		sh := s.activeStakeholder()
		if sh == nil {
			return []types.PlayerAction{{Label: closeLabel, Action: "close_questions"}}
		}
		var out []types.PlayerAction
		for _, q := range sh.Questions {
			out = append(out, types.PlayerAction{
				Label:  q.Text,
				Action: "question:" + q.ID,
				Locked: !questionUnlocked(s.gs, sh, q),
			})
		}
		out = append(out, types.PlayerAction{Label: closeLabel, Action: "close_questions"})
		return out
	}
	return nil
}

// --- time ---

// pendingMandatory returns the id of an inevitable or contingent
// sequence due right now, if any. Such a sequence blocks proactive
// meetings and time advancement until attended.
func (s *Session) pendingMandatory() string {
	if id := clock.InevitableDue(s.gs); id != "" {
		return id
	}
	return clock.ContingentDue(s.gs, s.pack)
}

func (s *Session) advanceTimeAction() error {
	if s.mode != types.ModeIdle {
		return fmt.Errorf("cannot advance time during a conversation")
	}
	if id := s.pendingMandatory(); id != "" {
		s.warn("you have a meeting you cannot skip: %s", id)
		return nil
	}
	s.advanceTime()
	return nil
}

func (s *Session) advanceTime() {
	res := clock.Advance(s.gs, s.pack.TimeSlots)
	for _, b := range res.NewlyBroken {
		s.gs.EventsLog = append(s.gs.EventsLog, fmt.Sprintf("day %d: %s broke a commitment (%s)", s.gs.Day, b.StakeholderID, b.Description))
	}
	if res.DayCompleted {
		s.FlushTelemetry()
		s.syncDay(res.CompletedDay)
	}
	s.trk.Refresh(s.gs)
	s.checkEndgame()
	if s.status != types.StatusPlaying {
		return
	}
	if id := s.pendingMandatory(); id != "" {
		s.enterPreSequence(id)
	}
}

// pendingDay is a completed day waiting on the backend, plus the
// comparison count at the moment it completed. Each resolve posts only
// the comparisons produced since the previous resolved day, so the
// backend never sees (and re-scores) the same comparison twice.
type pendingDay struct {
	day  int
	upto int
}

func (s *Session) syncDay(day int) {
	s.pendingSync = append(s.pendingSync, pendingDay{day: day, upto: len(s.gs.Comparisons)})
	if s.syncer == nil {
		return
	}
	// Resolve queued days in order; stop at the first failure so the
	// backend always sees days sequentially.
	for len(s.pendingSync) > 0 {
		p := s.pendingSync[0]
		deltas, err := s.syncer.ResolveDay(s.ID, p.day, s.gs.Comparisons[s.syncedCmps:p.upto])
		if err != nil {
			s.gs.EventsLog = append(s.gs.EventsLog, fmt.Sprintf("day %d sync deferred: %v", p.day, err))
			return
		}
		s.applyDeltas(deltas)
		s.syncedCmps = p.upto
		s.pendingSync = s.pendingSync[1:]
	}
}

func (s *Session) applyDeltas(d DayDeltas) {
	s.gs.Budget += d.Budget
	s.gs.Reputation = state.ClampReputation(s.gs.Reputation + d.Reputation)
	for ref, dv := range d.Trust {
		if sh, _, err := state.Resolve(s.gs, ref); err == nil {
			sh.Trust = state.ClampTrust(sh.Trust + dv)
		}
	}
	for ref, dv := range d.Support {
		if sh, _, err := state.Resolve(s.gs, ref); err == nil {
			sh.Support = state.ClampSupport(sh, sh.Support+dv)
		}
	}
}

// --- sequence state machine ---

func (s *Session) sequence() types.Sequence {
	seq, _ := s.pack.Sequence(s.activeSeq)
	return seq
}

func (s *Session) currentNode() (types.Node, bool) {
	seq := s.sequence()
	if s.nodeIdx < 0 || s.nodeIdx >= len(seq.Nodes) {
		return types.Node{}, false
	}
	return s.pack.Node(seq.Nodes[s.nodeIdx])
}

func (s *Session) activeStakeholder() *types.Stakeholder {
	ref := s.callTarget
	if s.activeSeq != "" {
		seq := s.sequence()
		ref = seq.StakeholderID
		if ref == "" {
			ref = seq.StakeholderRole
		}
	}
	sh, warn, err := state.Resolve(s.gs, ref)
	if err != nil {
		return nil
	}
	if warn != "" {
		s.warn("%s", warn)
	}
	return sh
}

func (s *Session) startProactive(id string) error {
	if s.mode != types.ModeIdle {
		return fmt.Errorf("already in a conversation")
	}
	seq, ok := s.pack.Sequence(id)
	if !ok {
		return fmt.Errorf("unknown sequence %q", id)
	}
	if pending := s.pendingMandatory(); pending != "" && pending != id {
		s.warn("you have a meeting you cannot skip: %s", pending)
		return nil
	}
	if seq.Trigger == types.TriggerProactive && s.sequenceCompleted(id) {
		return fmt.Errorf("sequence %q already completed", id)
	}
	s.enterPreSequence(id)
	return nil
}

// callStakeholder opens the questions overlay with no sequence behind
// it, as if phoning the stakeholder directly.
func (s *Session) callStakeholder(ref string) error {
	if s.mode != types.ModeIdle {
		return fmt.Errorf("already in a conversation")
	}
	if pending := s.pendingMandatory(); pending != "" {
		s.warn("you have a meeting you cannot skip: %s", pending)
		return nil
	}
	sh, warning, err := state.Resolve(s.gs, ref)
	if err != nil {
		return err
	}
	if warning != "" {
		s.warn("%s", warning)
	}
	s.activeSeq = ""
	s.callTarget = ref
	s.questionsOrigin = types.ModeIdle
	s.questionsBase = ""
	s.mode = types.ModeQuestionsOnly
	s.dialogue = fmt.Sprintf("%s picks up.", sh.Name)
	s.bus.EmitCanonicalAction(types.CanonicalAction{
		MechanicID: "phone",
		ActionType: "call_stakeholder",
		TargetRef:  sh.ID,
	})
	return nil
}

func (s *Session) enterPreSequence(id string) {
	seq, ok := s.pack.Sequence(id)
	if !ok {
		return
	}
	s.activeSeq = id
	s.nodeIdx = 0
	s.responded = false

	// A sequence whose stakeholder cannot be resolved degrades to a
	// bare conclude so the session never wedges on bad content.
	if s.activeStakeholder() == nil {
		s.mode = types.ModePostSequence
		s.dialogue = "No one shows up for this meeting."
		s.warn("content error: sequence %q references an unknown stakeholder", id)
		s.gs.EventsLog = append(s.gs.EventsLog, fmt.Sprintf("content error: sequence %s has no resolvable stakeholder", id))
		return
	}

	s.mode = types.ModePreSequence
	s.dialogue = seq.InitialDialogue
	s.bus.EmitEvent("sequencer", "sequence_opened", map[string]any{"sequence_id": id})
}

func (s *Session) startMeetingSequence() error {
	if s.mode != types.ModePreSequence {
		return fmt.Errorf("no meeting to start")
	}
	s.mode = types.ModeInSequence
	s.nodeIdx = 0
	s.responded = false
	s.nodeShownAt = s.bus.Now()
	if node, ok := s.currentNode(); ok {
		s.dialogue = node.Dialogue
	}
	return nil
}

func (s *Session) chooseOption(optionID string) error {
	if s.mode != types.ModeInSequence || s.responded {
		return fmt.Errorf("no choice pending")
	}
	node, ok := s.currentNode()
	if !ok {
		return fmt.Errorf("sequence %q has no node %d", s.activeSeq, s.nodeIdx)
	}
	var opt *types.NodeOption
	for i := range node.Options {
		if node.Options[i].ID == optionID {
			opt = &node.Options[i]
			break
		}
	}
	if opt == nil {
		return fmt.Errorf("unknown option %q on node %s", optionID, node.ID)
	}

	sh := s.activeStakeholder()
	entry := types.DecisionLogEntry{
		Day:              s.gs.Day,
		TimeSlot:         s.gs.TimeSlot,
		NodeID:           node.ID,
		ChoiceID:         opt.ID,
		ChoiceText:       opt.Text,
		BudgetBefore:     s.gs.Budget,
		ReputationBefore: s.gs.Reputation,
	}
	if sh != nil {
		entry.Stakeholder = sh.ID
	}

	state.ApplyConsequences(s.gs, sh, opt.Consequences)

	entry.BudgetAfter = s.gs.Budget
	entry.ReputationAfter = s.gs.Reputation
	s.gs.DecisionLog = append(s.gs.DecisionLog, entry)

	chosenAt := s.bus.Now()
	s.gs.ProcessLog = append(s.gs.ProcessLog, types.ProcessLogEntry{
		SequenceID:     s.activeSeq,
		NodeID:         node.ID,
		ChoiceID:       opt.ID,
		PresentedAt:    s.nodeShownAt,
		ChosenAt:       chosenAt,
		DeliberationMs: chosenAt - s.nodeShownAt,
	})

	src := types.ActionSource{NodeID: node.ID, OptionID: opt.ID}
	s.bus.RegisterExpectedActions(src, opt.Consequences.ExpectedActions)
	s.bus.EmitEvent("dialogue", "option_chosen", map[string]any{"node_id": node.ID, "option_id": opt.ID})

	if !s.scenarioCompleted(node.ID) {
		s.gs.CompletedScenarios = append(s.gs.CompletedScenarios, node.ID)
	}

	s.responded = true
	if opt.Consequences.DialogueResponse != "" {
		s.dialogue = opt.Consequences.DialogueResponse
	}
	s.checkCritical()
	s.trk.Refresh(s.gs)
	return nil
}

func (s *Session) continueSequence() error {
	if s.mode != types.ModeInSequence || !s.responded {
		return fmt.Errorf("nothing to continue")
	}
	if s.nodeIdx+1 >= len(s.sequence().Nodes) {
		return s.endSequence()
	}
	s.nodeIdx++
	s.responded = false
	s.nodeShownAt = s.bus.Now()
	if node, ok := s.currentNode(); ok {
		s.dialogue = node.Dialogue
	}
	return nil
}

func (s *Session) endSequence() error {
	if s.mode != types.ModeInSequence {
		return fmt.Errorf("no sequence to end")
	}
	s.mode = types.ModePostSequence
	s.dialogue = s.sequence().FinalDialogue
	return nil
}

func (s *Session) concludeMeeting() error {
	if s.mode != types.ModePostSequence {
		return fmt.Errorf("no meeting to conclude")
	}
	seq := s.sequence()
	sh := s.activeStakeholder()

	if !s.sequenceCompleted(seq.ID) {
		s.gs.CompletedSequences = append(s.gs.CompletedSequences, seq.ID)
	}
	if sh != nil {
		// The secretary is an access channel, not a meeting
		// counterpart; talking to them does not count as a visit.
		if sh.Role != s.pack.SecretaryRole {
			sh.LastMetDay = s.gs.Day
		}
		s.deliverEmails(sh.ID)
	}

	s.bus.EmitEvent("sequencer", "sequence_concluded", map[string]any{"sequence_id": seq.ID})
	s.FlushTelemetry()
	s.trk.SequenceCompleted(s.gs, seq.ID)

	s.mode = types.ModeIdle
	s.activeSeq = ""
	s.dialogue = ""
	s.checkCritical()
	s.checkEndgame()
	if s.status != types.StatusPlaying {
		return nil
	}
	if seq.ConsumesTime {
		s.advanceTime()
	} else if id := s.pendingMandatory(); id != "" {
		s.enterPreSequence(id)
	}
	return nil
}

func (s *Session) sequenceCompleted(id string) bool {
	for _, c := range s.gs.CompletedSequences {
		if c == id {
			return true
		}
	}
	return false
}

func (s *Session) scenarioCompleted(id string) bool {
	for _, c := range s.gs.CompletedScenarios {
		if c == id {
			return true
		}
	}
	return false
}

// --- questions overlay ---

func (s *Session) openQuestions() error {
	switch s.mode {
	case types.ModePreSequence, types.ModePostSequence:
		s.questionsOrigin = s.mode
		s.questionsBase = s.dialogue
		s.mode = types.ModeQuestions
	case types.ModeIdle:
		return fmt.Errorf("no one to ask")
	default:
		return fmt.Errorf("cannot ask questions mid-sequence")
	}
	s.dialogue = "What would you like to ask?"
	return nil
}

func (s *Session) closeQuestions() error {
	if s.mode != types.ModeQuestions && s.mode != types.ModeQuestionsOnly {
		return fmt.Errorf("questions are not open")
	}
	s.mode = s.questionsOrigin
	s.dialogue = s.questionsBase
	s.callTarget = ""
	return nil
}

// canAskQuestions reports whether the pre-meeting menu should offer the
// questions overlay: the stakeholder must have at least one unlocked question
// and a previous sequence with them must have completed.
func (s *Session) canAskQuestions() bool {
	sh := s.activeStakeholder()
	if sh == nil {
		return false
	}
	unlocked := false
	for _, q := range sh.Questions {
		if questionUnlocked(s.gs, sh, q) {
			unlocked = true
			break
		}
	}
	if !unlocked {
		return false
	}
	for _, id := range s.gs.CompletedSequences {
		seq, ok := s.pack.Sequence(id)
		if !ok {
			continue
		}
		if seq.StakeholderID == sh.ID || (seq.StakeholderID == "" && seq.StakeholderRole == sh.Role) {
			return true
		}
	}
	return false
}

func questionUnlocked(gs *types.GameState, sh *types.Stakeholder, q types.Question) bool {
	r := q.Requires
	return sh.Trust >= r.TrustMin && sh.Support >= r.SupportMin && gs.Reputation >= r.ReputationMin
}

func (s *Session) askQuestion(id string) error {
	if s.mode != types.ModeQuestions && s.mode != types.ModeQuestionsOnly {
		return fmt.Errorf("questions are not open")
	}
	sh := s.activeStakeholder()
	if sh == nil {
		return fmt.Errorf("no stakeholder to ask")
	}
	var q *types.Question
	for i := range sh.Questions {
		if sh.Questions[i].ID == id {
			q = &sh.Questions[i]
			break
		}
	}
	if q == nil {
		return fmt.Errorf("unknown question %q", id)
	}

	unlocked := questionUnlocked(s.gs, sh, *q)
	s.gs.QuestionLog = append(s.gs.QuestionLog, types.QuestionLogEntry{
		Day:             s.gs.Day,
		TimeSlot:        s.gs.TimeSlot,
		StakeholderID:   sh.ID,
		QuestionID:      q.ID,
		WasLocked:       !unlocked,
		TrustAtAsk:      sh.Trust,
		SupportAtAsk:    sh.Support,
		ReputationAtAsk: s.gs.Reputation,
	})
	s.bus.EmitEvent("questions", "question_asked", map[string]any{"stakeholder_id": sh.ID, "question_id": q.ID, "locked": !unlocked})

	if !unlocked {
		s.dialogue = "I'm not ready to get into that with you."
		return nil
	}
	if !contains(sh.QuestionsAsked, q.ID) {
		sh.QuestionsAsked = append(sh.QuestionsAsked, q.ID)
	}
	s.dialogue = q.Answer
	return nil
}

// --- app-surface canonical actions ---

// UpdateSchedule records a weekly-schedule edit as a canonical action.
func (s *Session) UpdateSchedule(day, block, activity string) {
	for i := range s.gs.WeeklySchedule {
		e := &s.gs.WeeklySchedule[i]
		if e.Day == day && e.Block == block {
			e.Activity = activity
			s.emitScheduleAction(day, block, activity)
			return
		}
	}
	s.gs.WeeklySchedule = append(s.gs.WeeklySchedule, types.ScheduleEntry{Day: day, Block: block, Activity: activity})
	s.emitScheduleAction(day, block, activity)
}

func (s *Session) emitScheduleAction(day, block, activity string) {
	s.bus.EmitCanonicalAction(types.CanonicalAction{
		MechanicID: "scheduler",
		ActionType: "set_schedule_block",
		TargetRef:  day + "/" + block,
		ValueFinal: map[string]any{"activity": activity},
	})
}

// MarkEmailRead flips an inbox email to read and records the action.
func (s *Session) MarkEmailRead(emailID string) error {
	for i := range s.gs.Inbox {
		if s.gs.Inbox[i].EmailID == emailID {
			if !s.gs.Inbox[i].Read {
				s.gs.Inbox[i].Read = true
				s.bus.EmitCanonicalAction(types.CanonicalAction{
					MechanicID: "inbox",
					ActionType: "read_email",
					TargetRef:  emailID,
				})
			}
			return nil
		}
	}
	return fmt.Errorf("no email %q in inbox", emailID)
}

// ReadDocument records a document read, once per document.
func (s *Session) ReadDocument(docID string) (types.Document, error) {
	var doc *types.Document
	for i := range s.pack.Documents {
		if s.pack.Documents[i].ID == docID {
			doc = &s.pack.Documents[i]
			break
		}
	}
	if doc == nil {
		return types.Document{}, fmt.Errorf("unknown document %q", docID)
	}
	if !contains(s.gs.ReadDocuments, docID) {
		s.gs.ReadDocuments = append(s.gs.ReadDocuments, docID)
		s.bus.EmitCanonicalAction(types.CanonicalAction{
			MechanicID: "library",
			ActionType: "read_document",
			TargetRef:  docID,
		})
	}
	return *doc, nil
}

// UpdateNotes replaces the player's notes and records the edit.
func (s *Session) UpdateNotes(text string) {
	s.gs.PlayerNotes = text
	s.bus.EmitCanonicalAction(types.CanonicalAction{
		MechanicID: "notes",
		ActionType: "update_notes",
		TargetRef:  "player_notes",
		ValueFinal: map[string]any{"length": len(text)},
	})
}

// VisitLocation records a map visit as a canonical action.
func (s *Session) VisitLocation(ref string, context map[string]any) {
	s.bus.EmitCanonicalAction(types.CanonicalAction{
		MechanicID: "map",
		ActionType: "visit",
		TargetRef:  ref,
		Context:    context,
	})
}

// SetMeetingTime records a scheduler commitment for a stakeholder.
func (s *Session) SetMeetingTime(stakeholderRef string, value map[string]any) {
	s.bus.EmitCanonicalAction(types.CanonicalAction{
		MechanicID: "scheduler",
		ActionType: "set_meeting_time",
		TargetRef:  stakeholderRef,
		ValueFinal: value,
	})
}

// --- telemetry flush + reconciliation ---

// FlushTelemetry drains the bus into the session logs and runs a
// periodic reconciliation pass over everything accumulated so far.
// Safe to call on a timer; an empty flush is a no-op.
func (s *Session) FlushTelemetry() {
	batch := s.bus.Flush()
	if !batch.Empty() {
		s.gs.MechanicEvents = append(s.gs.MechanicEvents, batch.Events...)
		s.gs.CanonicalActions = append(s.gs.CanonicalActions, batch.CanonicalActions...)
		s.gs.ExpectedActions = append(s.gs.ExpectedActions, batch.ExpectedActions...)
	}
	results := compare.Reconcile(s.gs.ExpectedActions, s.gs.CanonicalActions, s.gs.Comparisons, compare.Options{})
	s.gs.Comparisons = append(s.gs.Comparisons, results...)
}

// FinalComparisons recomputes the full comparison set with unmatched
// expectations closed out as NOT_DONE. Used by the session export.
func (s *Session) FinalComparisons() []types.ComparisonResult {
	s.FlushTelemetry()
	rest := compare.Reconcile(s.gs.ExpectedActions, s.gs.CanonicalActions, s.gs.Comparisons, compare.Options{IncludeNotDone: true})
	return append(append([]types.ComparisonResult(nil), s.gs.Comparisons...), rest...)
}

// --- emails, warnings, endgame ---

func (s *Session) deliverEmails(triggerID string) {
	for _, tmpl := range s.pack.Emails {
		if tmpl.TriggerStakeholderID != triggerID {
			continue
		}
		if s.emailDelivered(tmpl.ID) {
			continue
		}
		s.gs.Inbox = append(s.gs.Inbox, types.InboxEmail{EmailID: tmpl.ID, DayReceived: s.gs.Day})
	}
}

func (s *Session) emailDelivered(id string) bool {
	for _, e := range s.gs.Inbox {
		if e.EmailID == id {
			return true
		}
	}
	return false
}

func (s *Session) checkCritical() {
	for i := range s.gs.Stakeholders {
		sh := &s.gs.Stakeholders[i]
		if !sh.Critical {
			continue
		}
		if floor := s.pack.MinTrustRequired; floor > 0 && sh.Trust < floor {
			msg := fmt.Sprintf("%s's trust has fallen below %d", sh.Name, floor)
			if !contains(s.gs.CriticalWarnings, msg) {
				s.gs.CriticalWarnings = append(s.gs.CriticalWarnings, msg)
				s.warn("%s", msg)
			}
		}
		if sh.Support <= sh.MinSupport {
			msg := fmt.Sprintf("%s's support has bottomed out", sh.Name)
			if !contains(s.gs.CriticalWarnings, msg) {
				s.gs.CriticalWarnings = append(s.gs.CriticalWarnings, msg)
				s.warn("%s", msg)
			}
		}
	}
}

// checkEndgame settles the session outcome. Losing a critical
// stakeholder entirely ends the run immediately; otherwise the run is
// judged when the calendar passes the final day.
func (s *Session) checkEndgame() {
	for i := range s.gs.Stakeholders {
		sh := &s.gs.Stakeholders[i]
		if sh.Critical && sh.Trust == 0 && sh.Support <= sh.MinSupport {
			s.status = types.StatusLost
			s.gs.EventsLog = append(s.gs.EventsLog, fmt.Sprintf("%s has walked away from the project", sh.Name))
			return
		}
	}
	if s.gs.ProjectProgress >= 100 {
		s.status = types.StatusWon
		s.gs.EventsLog = append(s.gs.EventsLog, "the project has shipped")
		return
	}
	if s.pack.FinalDay > 0 && s.gs.Day > s.pack.FinalDay {
		s.trk.Refresh(s.gs)
		for _, o := range s.trk.Visible() {
			if o.Status == types.ObjectiveFailed {
				s.status = types.StatusLost
				return
			}
		}
		s.status = types.StatusWon
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
