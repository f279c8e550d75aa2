package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/wishcard/internal/domain/stage"
)

var (
	pink  = lipgloss.Color("205")
	rose  = lipgloss.Color("211")
	amber = lipgloss.Color("214")
	grey  = lipgloss.Color("245")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(pink)
	textStyle   = lipgloss.NewStyle().Foreground(rose)
	hintStyle   = lipgloss.NewStyle().Foreground(grey).Italic(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	litStyle    = lipgloss.NewStyle().Foreground(amber).Bold(true)
	outStyle    = lipgloss.NewStyle().Foreground(grey)
	statusStyle = lipgloss.NewStyle().Foreground(grey)
	frameStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(1, 3)
)

// stageText is the title and body shown on each stage.
var stageText = map[stage.Stage][2]string{
	stage.Unlock:  {"Tap to start the magic", "Turn the volume up first."},
	stage.Boot:    {"Wait for it...", "The surprise is loading."},
	stage.Landing: {"Do you know what day it is?", ""},
	stage.T1:      {"You really wanna know?", "Don't worry, it's coming."},
	stage.Reveal:  {"It's your birthday!", "Something is waiting for you."},
	stage.T2:      {"Hold your breath...", "Something is coming from far away."},
	stage.Flowers: {"A bouquet that blooms into forever", "Bloom, gather, glow."},
	stage.T3:      {"What's a birthday without a cake", "and without a birthday wish?"},
	stage.Cake:    {"Make a wish and blow the candles", ""},
	stage.Final:   {"HAPPY BIRTHDAY!", "May this year bring you endless joy."},
}

// hints lists the keys accepted on each stage.
var hints = map[stage.Stage]string{
	stage.Unlock:  "enter: start",
	stage.Landing: "y: yes  n: no",
	stage.Reveal:  "c: click me",
	stage.Flowers: "c: cake time",
	stage.Cake:    "1-9: blow a candle",
}

// View implements tea.Model interface.
func (m Model) View() string {
	var b strings.Builder

	text := stageText[m.snap.Stage]
	b.WriteString(titleStyle.Render(text[0]))
	b.WriteString("\n")
	if text[1] != "" {
		b.WriteString(textStyle.Render(text[1]))
		b.WriteString("\n")
	}

	switch {
	case m.snap.Stage.IsTransition():
		b.WriteString("\n")
		b.WriteString(m.renderProgress())
		b.WriteString("\n")
	case m.snap.Stage == stage.Cake:
		b.WriteString("\n")
		b.WriteString(m.renderCandles())
		b.WriteString("\n")
	case m.snap.Stage == stage.Flowers && !m.snap.Video.IsZero():
		b.WriteString(hintStyle.Render("(bouquet video: " + m.snap.Video.Locator + ")"))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	if h, ok := hints[m.snap.Stage]; ok {
		b.WriteString(hintStyle.Render(h + "  r: restart  q: quit"))
	} else {
		b.WriteString(hintStyle.Render("r: restart  q: quit"))
	}

	return frameStyle.Width(max(m.width-2, 20)).Render(b.String())
}

// renderProgress renders the countdown of a transition stage.
func (m Model) renderProgress() string {
	const width = 30
	if m.snap.PendingAdvance.IsZero() || m.span <= 0 {
		return outStyle.Render("Loading...")
	}

	remaining := m.snap.Remaining(m.now())
	filled := width - int(float64(width)*float64(remaining)/float64(m.span))
	filled = min(max(filled, 0), width)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("%s %s", textStyle.Render("["+bar+"]"), outStyle.Render(fmt.Sprintf("%.1fs", remaining.Seconds())))
}

// renderCandles renders one glyph per candle.
func (m Model) renderCandles() string {
	parts := make([]string, len(m.snap.Candles))
	for i, lit := range m.snap.Candles {
		if lit {
			parts[i] = litStyle.Render(fmt.Sprintf("%d:i", i+1))
		} else {
			parts[i] = outStyle.Render(fmt.Sprintf("%d:.", i+1))
		}
	}
	return strings.Join(parts, "  ")
}

// renderStatus renders the music line.
func (m Model) renderStatus() string {
	state := "stopped"
	switch {
	case m.snap.Playing:
		state = "playing"
	case m.blocked:
		state = "blocked (press a key to retry)"
	case !m.snap.AudioUnlocked:
		state = "locked"
	}
	name := m.snap.Track.DisplayName()
	if name == "" {
		name = m.snap.Music.String()
	}
	return statusStyle.Render(fmt.Sprintf("music: %s [%s]", name, state))
}
