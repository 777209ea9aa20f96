// Package types defines the shared data structures for the stakecraft engine.
// This package contains only type definitions, no logic.
package types

// TimeSlot is one named slot within a simulated day. The ordered slot list is
// version-configurable content (e.g. morning/afternoon or morning/afternoon/night).
type TimeSlot string

// SlotRef pins a sequence to an exact day and slot.
type SlotRef struct {
	Day  int      `json:"day"`
	Slot TimeSlot `json:"slot"`
}

// CommitmentStatus tracks the lifecycle of a promise made by a stakeholder.
type CommitmentStatus string

const (
	CommitmentPending   CommitmentStatus = "pending"
	CommitmentCompleted CommitmentStatus = "completed"
	CommitmentBroken    CommitmentStatus = "broken"
)

// Commitment is a promise with a due day. It transitions pending → broken
// exactly once, the day strictly after DayDue elapses.
type Commitment struct {
	Description string           `json:"description"`
	DayDue      int              `json:"day_due"`
	Status      CommitmentStatus `json:"status"`
}

// QuestionRequirement gates a side-channel question behind relationship
// minimums. A zero field imposes no requirement.
type QuestionRequirement struct {
	TrustMin      int `json:"trust_min,omitempty"`
	SupportMin    int `json:"support_min,omitempty"`
	ReputationMin int `json:"reputation_min,omitempty"`
}

// Question is one side-channel Q&A item a stakeholder can answer.
type Question struct {
	ID       string              `json:"question_id"`
	Text     string              `json:"text"`
	Answer   string              `json:"answer"`
	Requires QuestionRequirement `json:"requires"`
}

// Stakeholder is one simulated counterpart the player meets with.
type Stakeholder struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Role        string       `json:"role"`
	Trust       int          `json:"trust"`   // clamped to [0,100]
	Support     int          `json:"support"` // clamped to [MinSupport,MaxSupport]
	MinSupport  int          `json:"min_support"`
	MaxSupport  int          `json:"max_support"`
	Commitments []Commitment `json:"commitments"`
	Questions   []Question   `json:"questions"`
	// QuestionsAsked is append-only; asking twice is allowed but recorded once.
	QuestionsAsked []string `json:"questions_asked"`
	Critical       bool     `json:"critical"`
	LastMetDay     int      `json:"last_met_day"`
}

// --- telemetry records (immutable once created) ---

// MechanicEvent is a free-form telemetry record emitted by any subsystem.
type MechanicEvent struct {
	EventID    string         `json:"event_id"`
	MechanicID string         `json:"mechanic_id"`
	EventType  string         `json:"event_type"`
	Timestamp  int64          `json:"timestamp"`
	Payload    map[string]any `json:"payload"`
}

// CanonicalAction is a normalized record of something the player actually did.
type CanonicalAction struct {
	ID          string         `json:"canonical_action_id"`
	MechanicID  string         `json:"mechanic_id"`
	ActionType  string         `json:"action_type"`
	TargetRef   string         `json:"target_ref"`
	ValueFinal  any            `json:"value_final"`
	CommittedAt int64          `json:"committed_at"`
	Context     map[string]any `json:"context,omitempty"`
}

// ActionSource identifies the dialogue choice that declared an expectation.
type ActionSource struct {
	NodeID   string `json:"node_id"`
	OptionID string `json:"option_id"`
}

// ExpectedAction is a declared prediction that the player will later perform
// a matching canonical action somewhere in the app.
type ExpectedAction struct {
	ID          string         `json:"expected_action_id"`
	Source      ActionSource   `json:"source"`
	ActionType  string         `json:"action_type"`
	TargetRef   string         `json:"target_ref"`
	Constraints map[string]any `json:"constraints"`
	RuleID      string         `json:"rule_id"`
	CreatedAt   int64          `json:"created_at"`
	MechanicID  string         `json:"mechanic_id,omitempty"`
}

// ExpectedActionSpec is the content-side partial an option carries; the bus
// fills in identity, source, and timestamp on registration.
type ExpectedActionSpec struct {
	ActionType  string         `json:"action_type"`
	TargetRef   string         `json:"target_ref"`
	Constraints map[string]any `json:"constraints,omitempty"`
	RuleID      string         `json:"rule_id,omitempty"`
	MechanicID  string         `json:"mechanic_id,omitempty"`
}

// Outcome is the three-valued result of reconciling one expectation.
type Outcome string

const (
	OutcomeDoneOK    Outcome = "DONE_OK"
	OutcomeNotDone   Outcome = "NOT_DONE"
	OutcomeDeviation Outcome = "DEVIATION"
)

// ComparisonResult records the judgment for one expected action. At most one
// is ever produced per expected action id.
type ComparisonResult struct {
	ExpectedActionID  string         `json:"expected_action_id"`
	CanonicalActionID string         `json:"canonical_action_id,omitempty"`
	Outcome           Outcome        `json:"outcome"`
	Deviation         map[string]any `json:"deviation,omitempty"`
}

// --- consequence model ---

// Magnitude expresses an effect size band for budget/reputation changes.
type Magnitude string

const (
	MagnitudeS Magnitude = "S"
	MagnitudeM Magnitude = "M"
	MagnitudeL Magnitude = "L"
)

// BandedEffect is a magnitude+direction effect. Content may declare effects
// this way instead of raw deltas; the engine maps bands to fixed deltas.
type BandedEffect struct {
	Magnitude Magnitude `json:"magnitude"`
	Positive  bool      `json:"positive"`
}

// Consequences is everything a dialogue choice does: immediate numeric
// mutations plus optionally-declared expected actions.
type Consequences struct {
	BudgetChange     int    `json:"budget_change,omitempty"`
	TrustChange      int    `json:"trust_change,omitempty"`
	SupportChange    int    `json:"support_change,omitempty"`
	ReputationChange int    `json:"reputation_change,omitempty"`
	ProgressChange   int    `json:"progress_change,omitempty"`
	DialogueResponse string `json:"dialogue_response"`

	// Banded effects take precedence over the raw deltas above when set.
	BudgetEffect     *BandedEffect `json:"budget_effect,omitempty"`
	ReputationEffect *BandedEffect `json:"reputation_effect,omitempty"`

	ExpectedActions []ExpectedActionSpec `json:"expected_actions,omitempty"`
}

// NodeOption is one branch on a dialogue node.
type NodeOption struct {
	ID           string            `json:"option_id"`
	Text         string            `json:"text"`
	Tags         map[string]string `json:"tags,omitempty"`
	Consequences Consequences      `json:"consequences"`
}

// Node is one dialogue screen with branching options.
type Node struct {
	ID              string       `json:"node_id"`
	StakeholderID   string       `json:"stakeholder_id,omitempty"`
	StakeholderRole string       `json:"stakeholder_role,omitempty"`
	Dialogue        string       `json:"dialogue"`
	Options         []NodeOption `json:"options"`
}

// TriggerPolicy decides how a meeting sequence starts.
type TriggerPolicy string

const (
	TriggerProactive  TriggerPolicy = "proactive"
	TriggerInevitable TriggerPolicy = "inevitable"
	TriggerContingent TriggerPolicy = "contingent"
)

// ContingentRules is the threshold predicate that arms a contingent sequence.
// Nil fields are not checked.
type ContingentRules struct {
	BudgetBelow  *int `json:"budget_below,omitempty"`
	TrustBelow   *int `json:"trust_below,omitempty"`
	SupportBelow *int `json:"support_below,omitempty"`
	// StakeholderRole overrides the sequence's own stakeholder for the
	// trust/support checks; when empty the sequence's stakeholder is used.
	StakeholderRole string `json:"stakeholder_role,omitempty"`
}

// Sequence is an ordered multi-node dialogue flow with a single stakeholder.
type Sequence struct {
	ID              string           `json:"sequence_id"`
	StakeholderID   string           `json:"stakeholder_id,omitempty"`
	StakeholderRole string           `json:"stakeholder_role,omitempty"`
	InitialDialogue string           `json:"initial_dialogue"`
	FinalDialogue   string           `json:"final_dialogue"`
	Nodes           []string         `json:"nodes"`
	ConsumesTime    bool             `json:"consumes_time"`
	Trigger         TriggerPolicy    `json:"trigger"`
	Schedule        *SlotRef         `json:"schedule,omitempty"` // inevitable only
	Contingent      *ContingentRules `json:"contingent,omitempty"`
}

// EmailTemplate is delivered when a meeting with the named stakeholder
// completes. The reserved trigger id "system-startup" delivers on session start.
type EmailTemplate struct {
	ID                   string `json:"email_id"`
	TriggerStakeholderID string `json:"trigger_stakeholder_id"`
	From                 string `json:"from"`
	Subject              string `json:"subject"`
	Body                 string `json:"body"`
	GrantsInformation    string `json:"grants_information,omitempty"`
}

// InboxEmail is a delivered email instance in the player's inbox.
type InboxEmail struct {
	EmailID     string `json:"email_id"`
	DayReceived int    `json:"day_received"`
	Read        bool   `json:"read"`
}

// Document is a readable reference document available to the player.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ScheduleEntry is one cell of the weekly schedule mechanic.
type ScheduleEntry struct {
	Day      string `json:"day"`
	Block    string `json:"block"`
	Activity string `json:"activity"`
}

// --- objectives ---

// CompareOp is a numeric comparison operator in objective conditions.
type CompareOp string

const (
	OpGE CompareOp = ">="
	OpLE CompareOp = "<="
	OpGT CompareOp = ">"
	OpLT CompareOp = "<"
	OpEQ CompareOp = "=="
)

// Condition is one atomic objective condition. The evaluator switches
// exhaustively over the variant types below.
type Condition interface {
	isCondition()
}

// GlobalMetric compares a named top-level numeric field against a literal.
type GlobalMetric struct {
	Metric string
	Op     CompareOp
	Value  int
}

// StakeholderMetric compares a metric of a named stakeholder. An absent
// stakeholder makes the condition false.
type StakeholderMetric struct {
	StakeholderID string
	Metric        string
	Op            CompareOp
	Value         int
}

// CompletedSequence tests membership in the completed-sequence set.
type CompletedSequence struct {
	SequenceID string
}

// CompletedScenario tests membership in the completed-scenario (node) set.
type CompletedScenario struct {
	ScenarioID string
}

// ActionCount counts canonical actions matching the optional filters and
// compares against a minimum (default 1).
type ActionCount struct {
	ActionType        string
	TargetRefIncludes string
	MinCount          int
}

func (GlobalMetric) isCondition()      {}
func (StakeholderMetric) isCondition() {}
func (CompletedSequence) isCondition() {}
func (CompletedScenario) isCondition() {}
func (ActionCount) isCondition()       {}

// ConditionGroup is the condition tree: every All member must hold (empty All
// trivially holds); when Any is non-empty at least one member must hold.
type ConditionGroup struct {
	All []Condition
	Any []Condition
}

// ObjectiveOwner scopes an objective to the whole session or one stakeholder.
type ObjectiveOwner string

const (
	OwnerGlobal ObjectiveOwner = "global"
	OwnerNPC    ObjectiveOwner = "npc"
)

// ObjectiveStatus is the runtime state of a tracked objective.
type ObjectiveStatus string

const (
	ObjectivePending    ObjectiveStatus = "pending"
	ObjectiveInProgress ObjectiveStatus = "in_progress"
	ObjectiveCompleted  ObjectiveStatus = "completed"
	ObjectiveFailed     ObjectiveStatus = "failed"
)

// ObjectiveDefinition is the content-side definition of a tracked objective.
type ObjectiveDefinition struct {
	ID            string
	Owner         ObjectiveOwner
	StakeholderID string // npc-owned only
	Title         string
	Description   string
	// RevealedBy lists sequence ids whose completion makes the objective
	// visible; "*" reveals on any completion.
	RevealedBy []string
	Success    ConditionGroup
	Failure    *ConditionGroup
	Weight     int
}

// ObjectiveSnapshot is the evaluated status of one objective.
type ObjectiveSnapshot struct {
	ObjectiveID     string          `json:"objective_id"`
	Status          ObjectiveStatus `json:"status"`
	Label           string          `json:"label"`
	HasUnseenUpdate bool            `json:"has_unseen_update"`
}

// --- logs ---

// DecisionLogEntry records one applied dialogue choice with before/after
// global numbers.
type DecisionLogEntry struct {
	Day              int      `json:"day"`
	TimeSlot         TimeSlot `json:"time_slot"`
	Stakeholder      string   `json:"stakeholder"`
	NodeID           string   `json:"node_id"`
	ChoiceID         string   `json:"choice_id"`
	ChoiceText       string   `json:"choice_text"`
	BudgetBefore     int      `json:"budget_before"`
	BudgetAfter      int      `json:"budget_after"`
	ReputationBefore int      `json:"reputation_before"`
	ReputationAfter  int      `json:"reputation_after"`
}

// QuestionLogEntry records one question asked, with the relationship state at
// the moment of asking.
type QuestionLogEntry struct {
	Day             int      `json:"day"`
	TimeSlot        TimeSlot `json:"time_slot"`
	StakeholderID   string   `json:"stakeholder_id"`
	QuestionID      string   `json:"question_id"`
	WasLocked       bool     `json:"was_locked"`
	TrustAtAsk      int      `json:"trust_at_ask"`
	SupportAtAsk    int      `json:"support_at_ask"`
	ReputationAtAsk int      `json:"reputation_at_ask"`
	Timestamp       int64    `json:"timestamp"`
}

// ProcessLogEntry captures how long a dialogue node sat on screen
// before the player committed to a choice.
type ProcessLogEntry struct {
	SequenceID     string `json:"sequence_id"`
	NodeID         string `json:"node_id"`
	ChoiceID       string `json:"choice_id"`
	PresentedAt    int64  `json:"presented_at"`
	ChosenAt       int64  `json:"chosen_at"`
	DeliberationMs int64  `json:"deliberation_ms"`
}

// --- root state ---

// GameState is the single mutable root owned by the session controller.
type GameState struct {
	PlayerName      string   `json:"player_name"`
	Budget          int      `json:"budget"` // may go negative
	Day             int      `json:"day"`
	TimeSlot        TimeSlot `json:"time_slot"`
	Reputation      int      `json:"reputation"`       // clamped to [0,100]
	ProjectProgress int      `json:"project_progress"` // clamped to [0,100]

	Stakeholders []Stakeholder `json:"stakeholders"`

	// History holds the per-day stakeholder snapshot taken when a day wraps.
	// Write-once per day.
	History map[int][]Stakeholder `json:"history"`

	CompletedScenarios []string `json:"completed_scenarios"`
	CompletedSequences []string `json:"completed_sequences"`

	// ScenarioSchedule binds inevitable sequence ids to exact (day, slot).
	ScenarioSchedule map[string]SlotRef `json:"scenario_schedule"`

	EventsLog        []string        `json:"events_log"`
	CriticalWarnings []string        `json:"critical_warnings"`
	Inbox            []InboxEmail    `json:"inbox"`
	ReadDocuments    []string        `json:"read_documents"`
	PlayerNotes      string          `json:"player_notes"`
	WeeklySchedule   []ScheduleEntry `json:"weekly_schedule"`

	DecisionLog []DecisionLogEntry `json:"decision_log"`
	QuestionLog []QuestionLogEntry `json:"question_log"`
	ProcessLog  []ProcessLogEntry  `json:"process_log"`

	// Append-only log buffers merged from the mechanic event bus on flush.
	MechanicEvents   []MechanicEvent    `json:"mechanic_events"`
	CanonicalActions []CanonicalAction  `json:"canonical_actions"`
	ExpectedActions  []ExpectedAction   `json:"expected_actions"`
	Comparisons      []ComparisonResult `json:"comparisons"`
}

// ConversationMode is the sequencing state machine's current mode.
type ConversationMode string

const (
	ModeIdle          ConversationMode = "idle"
	ModePreSequence   ConversationMode = "pre_sequence"
	ModeInSequence    ConversationMode = "in_sequence"
	ModePostSequence  ConversationMode = "post_sequence"
	ModeQuestions     ConversationMode = "questions"
	ModeQuestionsOnly ConversationMode = "questions_only"
)

// PlayerAction is one selectable action presented to the front end.
type PlayerAction struct {
	Label  string `json:"label"`
	Cost   string `json:"cost"`
	Action string `json:"action"`
	Locked bool   `json:"locked,omitempty"`
}

// GameStatus is the session-level outcome state.
type GameStatus string

const (
	StatusPlaying GameStatus = "playing"
	StatusWon     GameStatus = "won"
	StatusLost    GameStatus = "lost"
)
