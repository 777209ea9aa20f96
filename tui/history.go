// Package tui provides a Bubble Tea terminal UI for the stakecraft
// simulation.
package tui

// History keeps recent input lines for up/down recall at the prompt.
// The position walks from the prompt back through older lines; stepping
// forward past the newest line lands back on a fresh prompt.
type History struct {
	lines []string
	limit int
	pos   int // len(lines) means at the prompt, not recalling
}

// NewHistory creates a history holding at most limit lines.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Push records an input line, evicting the oldest once over the limit.
// A line identical to the previous one is not recorded again.
func (h *History) Push(line string) {
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return
	}
	h.lines = append(h.lines, line)
	if len(h.lines) > h.limit {
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:h.limit]
	}
	h.pos = len(h.lines)
}

// Prev steps to the next-older line. At the oldest it stays put;
// with no history at all it reports false.
func (h *History) Prev() (string, bool) {
	if len(h.lines) == 0 {
		return "", false
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.lines[h.pos], true
}

// Next steps toward newer lines, reporting false once back at the
// prompt (or when not recalling at all).
func (h *History) Next() (string, bool) {
	if h.pos >= len(h.lines) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.lines) {
		return "", false
	}
	return h.lines[h.pos], true
}

// ResetCursor returns the position to the prompt.
func (h *History) ResetCursor() {
	h.pos = len(h.lines)
}
