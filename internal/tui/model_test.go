package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/wishcard/internal/app/media"
	"github.com/osa030/wishcard/internal/app/player"
	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/domain/stage"
	"github.com/osa030/wishcard/internal/domain/track"
)

func newTestModel(t *testing.T) (Model, *sequencer.Sequencer, *sequencer.ManualClock) {
	t.Helper()

	tracks := make(map[stage.MusicMode]track.Track)
	for _, mode := range stage.MusicModes() {
		p := "/audio/" + mode.String() + ".mp3"
		tracks[mode] = track.Track{ID: p, Kind: track.KindFile, Locator: p}
	}
	catalog := media.NewCatalog(tracks, track.Track{ID: "/bouquet/bloom.mp4", Kind: track.KindFile, Locator: "/bouquet/bloom.mp4"})

	clock := sequencer.NewManualClock()
	seq := sequencer.New(sequencer.DefaultConfig(), player.New(nil), catalog, clock)
	t.Cleanup(seq.Close)

	m := New(seq, seq.Events())
	m.now = clock.Now
	return m, seq, clock
}

func keyMsg(key string) tea.KeyMsg {
	if key == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// press sends a key and feeds the resulting command's message back.
func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	next, cmd := m.Update(keyMsg(key))
	m = next.(Model)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(Model)
	}
	return m
}

// drain applies every pending sequencer event to the model.
func drain(m Model, events <-chan sequencer.Event) Model {
	for {
		select {
		case e := <-events:
			next, _ := m.Update(eventMsg(e))
			m = next.(Model)
		default:
			return m
		}
	}
}

func TestModel_FullRun(t *testing.T) {
	m, seq, clock := newTestModel(t)
	assert.Contains(t, m.View(), "Tap to start")

	// Keys of other stages are ignored
	m = press(t, m, "y")
	assert.Equal(t, stage.Unlock, m.Snapshot().Stage)

	m = press(t, m, "enter")
	assert.Equal(t, stage.Boot, m.Snapshot().Stage)
	assert.True(t, m.Snapshot().AudioUnlocked)
	assert.Equal(t, 5*time.Second, m.span)
	assert.Contains(t, m.View(), "5.0s")

	clock.Advance(2500 * time.Millisecond)
	assert.Contains(t, m.View(), "2.5s")

	clock.Advance(2500 * time.Millisecond)
	m = drain(m, seq.Events())
	assert.Equal(t, stage.Landing, m.Snapshot().Stage)

	m = press(t, m, "n")
	assert.Equal(t, stage.T1, m.Snapshot().Stage)
	assert.Equal(t, stage.MusicIntro, m.Snapshot().Music)

	clock.Advance(5 * time.Second)
	m = drain(m, seq.Events())
	m = press(t, m, "c")
	assert.Equal(t, stage.T2, m.Snapshot().Stage)

	clock.Advance(5 * time.Second)
	m = drain(m, seq.Events())
	assert.Equal(t, stage.Flowers, m.Snapshot().Stage)
	assert.Contains(t, m.View(), "/bouquet/bloom.mp4")

	m = press(t, m, "c")
	clock.Advance(5 * time.Second)
	m = drain(m, seq.Events())
	require.Equal(t, stage.Cake, m.Snapshot().Stage)

	for _, k := range []string{"1", "2", "3", "4"} {
		m = press(t, m, k)
	}
	assert.Equal(t, []bool{false, false, false, false, true}, m.Snapshot().Candles)
	assert.Contains(t, m.View(), "5:i")

	m = press(t, m, "9")
	assert.Error(t, m.err)
	assert.Contains(t, m.View(), "out of range")

	m = press(t, m, "5")
	assert.NoError(t, m.err)
	clock.Advance(900 * time.Millisecond)
	m = drain(m, seq.Events())
	assert.Equal(t, stage.Final, m.Snapshot().Stage)
	assert.Contains(t, m.View(), "HAPPY BIRTHDAY")

	m = press(t, m, "r")
	assert.Equal(t, stage.Unlock, m.Snapshot().Stage)
}

func TestModel_PlaybackEvents(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, cmd := m.Update(eventMsg(sequencer.Event{Type: sequencer.EventPlaybackBlocked, Snapshot: m.Snapshot()}))
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.True(t, m.blocked)
	assert.Contains(t, m.View(), "blocked")

	next, _ = m.Update(eventMsg(sequencer.Event{Type: sequencer.EventPlaybackStarted, Snapshot: m.Snapshot()}))
	m = next.(Model)
	assert.False(t, m.blocked)
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t)

	for _, key := range []string{"q"} {
		_, cmd := m.Update(keyMsg(key))
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	next, cmd := m.Update(closedMsg{})
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).closed)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_WindowSize(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Nil(t, cmd)
	assert.Equal(t, 120, next.(Model).width)
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan sequencer.Event, 1)
	ch <- sequencer.Event{Type: sequencer.EventStageChanged}
	close(ch)

	cmd := waitForEvent(ch)
	assert.Equal(t, eventMsg(sequencer.Event{Type: sequencer.EventStageChanged}), cmd())
	assert.Equal(t, closedMsg{}, cmd())
}
