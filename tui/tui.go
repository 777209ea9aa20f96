package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/export"
	"github.com/vreyes/stakecraft/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the stakecraft TUI.
type Model struct {
	session *session.Session
	pack    *state.Pack

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	finished bool // outcome printed, next enter exits
	quitting bool
}

// gameOutputMsg carries output from the session into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for intro)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
}

// New creates a TUI model wired to the given session.
func New(s *session.Session, p *state.Pack) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		session: s,
		pack:    p,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program.
func Run(s *session.Session, p *state.Pack) error {
	m := New(s, p)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	return err
}

// Init returns the initial command that produces the opening text.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		var lines []string

		title := m.pack.Title
		if m.pack.Version != "" {
			title += " v" + m.pack.Version
		}
		lines = append(lines, title)
		if m.pack.ProjectName != "" {
			lines = append(lines, m.pack.ProjectName)
		}
		lines = append(lines, "")
		lines = append(lines, m.situationLines()...)

		return gameOutputMsg{lines: lines}
	}
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	if m.finished {
		m.quitting = true
		return m, tea.Quit
	}

	m.history.Push(input)
	m.history.ResetCursor()

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		// A call changes the conversation mode, so re-present the menu.
		if strings.HasPrefix(input, "/call ") {
			m = m.appendOutput(gameOutputMsg{lines: m.situationLines()})
		}
		return m, nil
	}

	// Numbered action selection, resolved against the current menu.
	actions := m.session.Actions()
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(actions) {
		m = m.appendOutput(gameOutputMsg{
			input:    input,
			lines:    []string{fmt.Sprintf("Pick a number between 1 and %d, or /help.", len(actions))},
			isSystem: true,
		})
		return m, nil
	}
	act := actions[n-1]
	if act.Locked {
		m = m.appendOutput(gameOutputMsg{
			input: input, lines: []string{"That option is locked right now."}, isSystem: true,
		})
		return m, nil
	}

	var lines []string
	if err := m.session.Dispatch(act.Action); err != nil {
		lines = append(lines, "["+err.Error()+"]")
	}
	for _, w := range m.session.Warnings() {
		lines = append(lines, "["+w+"]")
	}

	if m.session.Status() != types.StatusPlaying {
		lines = append(lines, m.outcomeLines()...)
		m.finished = true
	} else {
		lines = append(lines, m.situationLines()...)
	}

	m = m.appendOutput(gameOutputMsg{input: input, lines: lines})
	return m, nil
}

// situationLines renders the current day header, dialogue, and the
// numbered action menu.
func (m Model) situationLines() []string {
	gs := m.session.State()

	var lines []string
	lines = append(lines, fmt.Sprintf("Day %d, %s — budget %d, reputation %d, progress %d%%",
		gs.Day, gs.TimeSlot, gs.Budget, gs.Reputation, gs.ProjectProgress))
	if d := m.session.Dialogue(); d != "" {
		lines = append(lines, "")
		lines = append(lines, d)
	}
	lines = append(lines, "")

	for i, a := range m.session.Actions() {
		label := a.Label
		if a.Locked {
			label += " [locked]"
		}
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, label))
	}
	return lines
}

func (m *Model) outcomeLines() []string {
	var lines []string
	lines = append(lines, "")
	switch m.session.Status() {
	case types.StatusWon:
		lines = append(lines, "The project survives the week. You did it.")
	case types.StatusLost:
		lines = append(lines, "The project is dead. So, probably, is your career here.")
	}
	for _, o := range m.session.Objectives() {
		lines = append(lines, fmt.Sprintf("  %s: %s", o.Label, o.Status))
	}
	lines = append(lines, "")
	lines = append(lines, "Press enter to exit.")
	return lines
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeader:
		return styleHeader.Render(line)
	case kindAction:
		return styleAction.Render(line)
	case kindLockedAction:
		return styleLocked.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindAlert:
		return styleAlert.Render(line)
	default:
		return styleNarrative.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	arg := strings.TrimSpace(strings.TrimPrefix(input, cmd))

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/objectives":
		return m.cmdObjectives(), false

	case "/emails":
		return m.cmdEmails(), false

	case "/read":
		return m.cmdReadEmail(arg), false

	case "/docs":
		var out []string
		for _, d := range m.pack.Documents {
			out = append(out, fmt.Sprintf("  %s — %s", d.ID, d.Title))
		}
		return out, false

	case "/doc":
		doc, err := m.session.ReadDocument(arg)
		if err != nil {
			return []string{err.Error()}, false
		}
		return []string{doc.Title, doc.Content}, false

	case "/notes":
		if arg == "" {
			return []string{m.session.State().PlayerNotes}, false
		}
		m.session.UpdateNotes(arg)
		return []string{"Notes updated."}, false

	case "/visit":
		if arg == "" {
			return []string{"Usage: /visit <location>"}, false
		}
		m.session.VisitLocation(arg, nil)
		return []string{fmt.Sprintf("You visit %s.", arg)}, false

	case "/schedule":
		return m.cmdSchedule(arg), false

	case "/meeting":
		return m.cmdMeeting(arg), false

	case "/call":
		if arg == "" {
			return []string{"Usage: /call <stakeholder>"}, false
		}
		if err := m.session.Dispatch("call:" + arg); err != nil {
			return []string{err.Error()}, false
		}
		return nil, false

	case "/export":
		return m.cmdExport(arg), false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSchedule(arg string) []string {
	if arg == "" {
		gs := m.session.State()
		if len(gs.WeeklySchedule) == 0 {
			return []string{"Schedule empty."}
		}
		var out []string
		for _, e := range gs.WeeklySchedule {
			out = append(out, fmt.Sprintf("  %s %s — %s", e.Day, e.Block, e.Activity))
		}
		return out
	}
	parts := strings.Fields(arg)
	if len(parts) < 3 {
		return []string{"Usage: /schedule [<day> <block> <activity>]"}
	}
	m.session.UpdateSchedule(parts[0], parts[1], strings.Join(parts[2:], " "))
	return []string{"Schedule updated."}
}

func (m *Model) cmdMeeting(arg string) []string {
	parts := strings.Fields(arg)
	if len(parts) < 2 {
		return []string{"Usage: /meeting <stakeholder> <day> [slot]"}
	}
	value := map[string]any{"day": parts[1]}
	if len(parts) > 2 {
		value["slot"] = parts[2]
	}
	m.session.SetMeetingTime(parts[0], value)
	return []string{fmt.Sprintf("Meeting with %s booked.", parts[0])}
}

func (m *Model) cmdObjectives() []string {
	var out []string
	for _, o := range m.session.Objectives() {
		marker := " "
		if o.HasUnseenUpdate {
			marker = "*"
		}
		out = append(out, fmt.Sprintf(" %s %s: %s", marker, o.Label, o.Status))
	}
	if err := m.session.Dispatch("mark_objectives_seen"); err != nil {
		out = append(out, err.Error())
	}
	return out
}

func (m *Model) cmdEmails() []string {
	gs := m.session.State()
	if len(gs.Inbox) == 0 {
		return []string{"Inbox empty."}
	}
	var out []string
	for _, e := range gs.Inbox {
		marker := "*"
		if e.Read {
			marker = " "
		}
		if tmpl := m.emailTemplate(e.EmailID); tmpl != nil {
			out = append(out, fmt.Sprintf(" %s %s — %s (day %d)", marker, e.EmailID, tmpl.Subject, e.DayReceived))
		}
	}
	return out
}

func (m *Model) cmdReadEmail(id string) []string {
	tmpl := m.emailTemplate(id)
	if tmpl == nil {
		return []string{fmt.Sprintf("No email %q.", id)}
	}
	if err := m.session.MarkEmailRead(id); err != nil {
		return []string{err.Error()}
	}
	return []string{
		"From: " + tmpl.From,
		"Subject: " + tmpl.Subject,
		"",
		tmpl.Body,
	}
}

func (m *Model) emailTemplate(id string) *types.EmailTemplate {
	for i := range m.pack.Emails {
		if m.pack.Emails[i].ID == id {
			return &m.pack.Emails[i]
		}
	}
	return nil
}

func (m *Model) cmdExport(path string) []string {
	if path == "" {
		path = "session_export.json"
	}
	e := export.Build(m.session, m.pack.Title, m.pack.Version)
	if err := export.WriteFile(e, path); err != nil {
		return []string{fmt.Sprintf("Export failed: %v", err)}
	}
	return []string{fmt.Sprintf("Session exported to %s.", path)}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /objectives     — List objectives and mark updates seen",
		"  /emails         — List inbox",
		"  /read <id>      — Read an email",
		"  /docs           — List reference documents",
		"  /doc <id>       — Read a document",
		"  /notes [text]   — Show or replace your notes",
		"  /visit <place>  — Visit a location on the map",
		"  /schedule [<day> <block> <activity>] — Show or edit the weekly schedule",
		"  /meeting <person> <day> [slot] — Book a meeting time",
		"  /call <person>  — Phone a stakeholder to ask questions",
		"  /export [path]  — Write the session report",
		"  /state          — Debug: dump current state",
		"  /quit           — Exit",
		"",
		"Otherwise, type the number of the action you want to take.",
		"Navigation: PgUp/PgDn to scroll, Up/Down for input history",
	}
}

func (m *Model) cmdState() []string {
	gs := m.session.State()
	out := []string{
		fmt.Sprintf("Day %d %s, mode %s", gs.Day, gs.TimeSlot, m.session.Mode()),
		fmt.Sprintf("Budget %d, reputation %d, progress %d", gs.Budget, gs.Reputation, gs.ProjectProgress),
	}
	for _, sh := range gs.Stakeholders {
		out = append(out, fmt.Sprintf("%s (%s): trust %d, support %d", sh.Name, sh.Role, sh.Trust, sh.Support))
	}
	out = append(out, fmt.Sprintf("Completed: %v", gs.CompletedSequences))
	return out
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
