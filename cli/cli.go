// Package cli provides terminal I/O, action selection, and
// meta-command dispatch for the stakecraft simulation.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/export"
	"github.com/vreyes/stakecraft/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Session   *session.Session
	Pack      *state.Pack
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI wired to the given session.
func New(s *session.Session, p *state.Pack) *CLI {
	return &CLI{
		Session: s,
		Pack:    p,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run starts the play loop: show the situation, list numbered actions,
// read a selection or meta-command, dispatch, repeat.
func (c *CLI) Run() {
	c.printLine(c.Pack.Title)
	if c.Pack.ProjectName != "" {
		c.printLine(c.Pack.ProjectName)
	}
	c.printLine("")

	scanner := bufio.NewScanner(c.In)
	for {
		if c.Session.Status() != types.StatusPlaying {
			c.printOutcome()
			return
		}
		c.printSituation()
		actions := c.Session.Actions()
		c.printActions(actions)

		c.print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(actions) {
			c.printSystem(fmt.Sprintf("Pick a number between 1 and %d, or /help.", len(actions)))
			continue
		}
		act := actions[n-1]
		if act.Locked {
			c.printSystem("That option is locked right now.")
			continue
		}
		if err := c.Session.Dispatch(act.Action); err != nil {
			c.printSystem(err.Error())
		}
		c.printWarnings()
	}
}

func (c *CLI) printSituation() {
	gs := c.Session.State()
	c.printLine("")
	c.printLine(fmt.Sprintf("Day %d, %s — budget %d, reputation %d, progress %d%%",
		gs.Day, gs.TimeSlot, gs.Budget, gs.Reputation, gs.ProjectProgress))
	if n := c.Session.UnseenObjectiveCount(); n > 0 {
		c.printSystem(fmt.Sprintf("%d objective update(s). (/objectives)", n))
	}
	if d := c.Session.Dialogue(); d != "" {
		c.printLine("")
		c.printLine(d)
	}
}

func (c *CLI) printActions(actions []types.PlayerAction) {
	c.printLine("")
	for i, a := range actions {
		label := a.Label
		if a.Locked {
			label += " [locked]"
		}
		c.printLine(fmt.Sprintf("  %d. %s", i+1, label))
	}
}

func (c *CLI) printWarnings() {
	for _, w := range c.Session.Warnings() {
		c.printSystem(w)
	}
}

func (c *CLI) printOutcome() {
	c.printLine("")
	switch c.Session.Status() {
	case types.StatusWon:
		c.printLine("The project survives the week. You did it.")
	case types.StatusLost:
		c.printLine("The project is dead. So, probably, is your career here.")
	}
	for _, o := range c.Session.Objectives() {
		c.printLine(fmt.Sprintf("  %s: %s", o.Label, o.Status))
	}
}

// handleMeta dispatches meta-commands. Returns true if the app should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	arg := strings.TrimSpace(strings.TrimPrefix(input, cmd))

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/objectives":
		for _, o := range c.Session.Objectives() {
			marker := " "
			if o.HasUnseenUpdate {
				marker = "*"
			}
			c.printLine(fmt.Sprintf(" %s %s: %s", marker, o.Label, o.Status))
		}
		if err := c.Session.Dispatch("mark_objectives_seen"); err != nil {
			c.printSystem(err.Error())
		}

	case "/emails":
		c.cmdEmails()

	case "/read":
		c.cmdReadEmail(arg)

	case "/docs":
		for _, d := range c.Pack.Documents {
			c.printLine(fmt.Sprintf("  %s — %s", d.ID, d.Title))
		}

	case "/doc":
		doc, err := c.Session.ReadDocument(arg)
		if err != nil {
			c.printSystem(err.Error())
			break
		}
		c.printLine(doc.Title)
		c.printLine(doc.Content)

	case "/notes":
		if arg == "" {
			c.printLine(c.Session.State().PlayerNotes)
		} else {
			c.Session.UpdateNotes(arg)
			c.printSystem("Notes updated.")
		}

	case "/visit":
		if arg == "" {
			c.printSystem("Usage: /visit <location>")
			break
		}
		c.Session.VisitLocation(arg, nil)
		c.printSystem(fmt.Sprintf("You visit %s.", arg))

	case "/schedule":
		c.cmdSchedule(arg)

	case "/meeting":
		c.cmdMeeting(arg)

	case "/call":
		if arg == "" {
			c.printSystem("Usage: /call <stakeholder>")
			break
		}
		if err := c.Session.Dispatch("call:" + arg); err != nil {
			c.printSystem(err.Error())
		}

	case "/export":
		path := arg
		if path == "" {
			path = "session_export.json"
		}
		e := export.Build(c.Session, c.Pack.Title, c.Pack.Version)
		if err := export.WriteFile(e, path); err != nil {
			c.printSystem(fmt.Sprintf("Export failed: %v", err))
		} else {
			c.printSystem(fmt.Sprintf("Session exported to %s.", path))
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
	return false
}

func (c *CLI) cmdEmails() {
	gs := c.Session.State()
	if len(gs.Inbox) == 0 {
		c.printSystem("Inbox empty.")
		return
	}
	for _, e := range gs.Inbox {
		marker := "*"
		if e.Read {
			marker = " "
		}
		if tmpl := c.emailTemplate(e.EmailID); tmpl != nil {
			c.printLine(fmt.Sprintf(" %s %s — %s (day %d)", marker, e.EmailID, tmpl.Subject, e.DayReceived))
		}
	}
}

func (c *CLI) cmdReadEmail(id string) {
	tmpl := c.emailTemplate(id)
	if tmpl == nil {
		c.printSystem(fmt.Sprintf("No email %q.", id))
		return
	}
	if err := c.Session.MarkEmailRead(id); err != nil {
		c.printSystem(err.Error())
		return
	}
	c.printLine("From: " + tmpl.From)
	c.printLine("Subject: " + tmpl.Subject)
	c.printLine("")
	c.printLine(tmpl.Body)
}

func (c *CLI) emailTemplate(id string) *types.EmailTemplate {
	for i := range c.Pack.Emails {
		if c.Pack.Emails[i].ID == id {
			return &c.Pack.Emails[i]
		}
	}
	return nil
}

func (c *CLI) cmdSchedule(arg string) {
	if arg == "" {
		gs := c.Session.State()
		if len(gs.WeeklySchedule) == 0 {
			c.printSystem("Schedule empty.")
			return
		}
		for _, e := range gs.WeeklySchedule {
			c.printLine(fmt.Sprintf("  %s %s — %s", e.Day, e.Block, e.Activity))
		}
		return
	}
	parts := strings.Fields(arg)
	if len(parts) < 3 {
		c.printSystem("Usage: /schedule [<day> <block> <activity>]")
		return
	}
	c.Session.UpdateSchedule(parts[0], parts[1], strings.Join(parts[2:], " "))
	c.printSystem("Schedule updated.")
}

func (c *CLI) cmdMeeting(arg string) {
	parts := strings.Fields(arg)
	if len(parts) < 2 {
		c.printSystem("Usage: /meeting <stakeholder> <day> [slot]")
		return
	}
	value := map[string]any{"day": parts[1]}
	if len(parts) > 2 {
		value["slot"] = parts[2]
	}
	c.Session.SetMeetingTime(parts[0], value)
	c.printSystem(fmt.Sprintf("Meeting with %s booked.", parts[0]))
}

func (c *CLI) cmdHelp() {
	help := []string{
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
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	gs := c.Session.State()
	c.printSystem(fmt.Sprintf("Day %d %s, mode %s", gs.Day, gs.TimeSlot, c.Session.Mode()))
	c.printSystem(fmt.Sprintf("Budget %d, reputation %d, progress %d", gs.Budget, gs.Reputation, gs.ProjectProgress))
	for _, sh := range gs.Stakeholders {
		c.printSystem(fmt.Sprintf("%s (%s): trust %d, support %d", sh.Name, sh.Role, sh.Trust, sh.Support))
	}
	c.printSystem(fmt.Sprintf("Completed: %v", gs.CompletedSequences))
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
