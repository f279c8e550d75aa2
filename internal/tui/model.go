// Package tui renders the card in a terminal and turns keys into triggers.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/domain/stage"
)

// Card is the part of the sequencer the terminal presenter drives.
type Card interface {
	Trigger(ctx context.Context, t stage.Trigger) (sequencer.Snapshot, error)
	BlowCandle(ctx context.Context, index int) (sequencer.Snapshot, error)
	Reset(ctx context.Context) (sequencer.Snapshot, error)
	Snapshot() sequencer.Snapshot
}

// tickInterval drives the transition countdown.
const tickInterval = 100 * time.Millisecond

type (
	// eventMsg carries one sequencer event.
	eventMsg sequencer.Event
	// closedMsg is sent once the event channel is closed.
	closedMsg struct{}
	// tickMsg refreshes the countdown.
	tickMsg time.Time
	// resultMsg is the outcome of a trigger sent from a key press.
	resultMsg struct {
		snap sequencer.Snapshot
		err  error
	}
)

// Model is the bubbletea model of the card.
type Model struct {
	card   Card
	events <-chan sequencer.Event
	now    func() time.Time

	snap    sequencer.Snapshot
	span    time.Duration // Length of the pending advance when first seen
	err     error
	width   int
	height  int
	closed  bool
	blocked bool
}

// New creates a model over card. events is the sequencer event channel.
func New(card Card, events <-chan sequencer.Event) Model {
	m := Model{
		card:   card,
		events: events,
		now:    time.Now,
		width:  80,
		height: 24,
	}
	m.setSnapshot(card.Snapshot())
	return m
}

// setSnapshot stores snap and tracks the span of a new pending advance.
func (m *Model) setSnapshot(snap sequencer.Snapshot) {
	if !snap.PendingAdvance.Equal(m.snap.PendingAdvance) {
		m.span = snap.Remaining(m.now())
	}
	m.snap = snap
}

// Init implements tea.Model interface.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tick())
}

// waitForEvent blocks on the next sequencer event.
func waitForEvent(events <-chan sequencer.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(e)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model interface.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.setSnapshot(msg.Snapshot)
		switch msg.Type {
		case sequencer.EventPlaybackBlocked:
			m.blocked = true
		case sequencer.EventPlaybackStarted:
			m.blocked = false
		}
		return m, waitForEvent(m.events)

	case closedMsg:
		m.closed = true
		return m, tea.Quit

	case tickMsg:
		return m, tick()

	case resultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.setSnapshot(msg.snap)
		}
		return m, nil
	}
	return m, nil
}

// handleKey maps keys onto the current stage's trigger.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	key := msg.String()

	switch key {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "r":
		return m, m.reset()
	}

	switch m.snap.Stage {
	case stage.Unlock:
		if key == "enter" || isSpace(key) {
			return m, m.trigger(stage.TriggerUnlock)
		}
	case stage.Landing:
		switch key {
		case "y", "enter":
			return m, m.trigger(stage.TriggerYes)
		case "n":
			return m, m.trigger(stage.TriggerNo)
		}
	case stage.Reveal:
		if key == "c" || key == "enter" || isSpace(key) {
			return m, m.trigger(stage.TriggerClickMe)
		}
	case stage.Flowers:
		if key == "c" || key == "enter" || isSpace(key) {
			return m, m.trigger(stage.TriggerCakeTime)
		}
	case stage.Cake:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			return m, m.blow(int(key[0] - '1'))
		}
	}
	return m, nil
}

func isSpace(key string) bool {
	return key == " " || key == "space"
}

func (m Model) trigger(t stage.Trigger) tea.Cmd {
	card := m.card
	return func() tea.Msg {
		snap, err := card.Trigger(context.Background(), t)
		return resultMsg{snap: snap, err: err}
	}
}

func (m Model) blow(index int) tea.Cmd {
	card := m.card
	return func() tea.Msg {
		snap, err := card.BlowCandle(context.Background(), index)
		return resultMsg{snap: snap, err: err}
	}
}

func (m Model) reset() tea.Cmd {
	card := m.card
	return func() tea.Msg {
		snap, err := card.Reset(context.Background())
		return resultMsg{snap: snap, err: err}
	}
}

// Snapshot returns the state the model last rendered.
func (m Model) Snapshot() sequencer.Snapshot {
	return m.snap
}
