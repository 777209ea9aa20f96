package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// slotDisplayName derives a human-readable name from a time slot id.
// "MORNING" -> "Morning", "LATE_AFTERNOON" -> "Late Afternoon".
func slotDisplayName(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width inverted status line showing
// the day, time slot, budget, reputation, and progress, with an
// indicator when objectives changed since the player last looked.
func (m Model) renderStatusBar() string {
	gs := m.session.State()

	left := fmt.Sprintf(" %s | Day %d, %s", m.pack.Title, gs.Day, slotDisplayName(string(gs.TimeSlot)))
	right := fmt.Sprintf("Budget %d | Rep %d | Progress %d%% ", gs.Budget, gs.Reputation, gs.ProjectProgress)

	if m.session.HasUnseenObjectives() {
		right = "Objectives* | " + right
	}

	// Drop the title when the bar does not fit.
	if lipgloss.Width(left)+lipgloss.Width(right)+2 >= m.width {
		left = fmt.Sprintf(" Day %d, %s", gs.Day, slotDisplayName(string(gs.TimeSlot)))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
