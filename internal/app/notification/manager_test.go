package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type recordingStream struct {
	mu       sync.Mutex
	received []*structpb.Struct
	err      error
	block    chan struct{}
}

func (s *recordingStream) Send(n *structpb.Struct) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, n)
	return nil
}

func (s *recordingStream) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func TestNew(t *testing.T) {
	n, err := New(KindStageChanged, map[string]any{"stage": "landing"})
	require.NoError(t, err)
	assert.Equal(t, KindStageChanged, KindOf(n))
	assert.Equal(t, "landing", n.Fields["stage"].GetStringValue())

	_, err = New(KindStageChanged, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func (s *recordingStream) messages() []*structpb.Struct {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*structpb.Struct(nil), s.received...)
}

func waitForCount(t *testing.T, s *recordingStream, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.count() == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	defer m.Close()
	a := &recordingStream{}
	b := &recordingStream{}
	idA := m.Subscribe(a)
	m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	for i := 0; i < 3; i++ {
		n, err := New(KindMusicChanged, nil)
		require.NoError(t, err)
		require.NoError(t, m.Broadcast(n))
	}

	waitForCount(t, a, 3)
	waitForCount(t, b, 3)
	for i, n := range a.messages() {
		assert.Equal(t, uint64(i+1), SequenceNoOf(n))
	}

	m.Unsubscribe(idA)
	n, err := New(KindMusicChanged, nil)
	require.NoError(t, err)
	require.NoError(t, m.Broadcast(n))
	waitForCount(t, b, 4)
	assert.Equal(t, 3, a.count())
	assert.Equal(t, uint64(5), m.NextSequenceNo())
}

func TestManager_BroadcastDoesNotWaitForSubscribers(t *testing.T) {
	m := NewManager()
	defer m.Close()
	m.queueSize = 1

	failing := &recordingStream{err: errors.New("broken pipe")}
	stuck := &recordingStream{block: make(chan struct{})}
	defer close(stuck.block)
	ok := &recordingStream{}
	m.Subscribe(failing)
	m.Subscribe(stuck)
	m.Subscribe(ok)

	start := time.Now()
	for i := 0; i < 3; i++ {
		n, err := New(KindMediaCommand, map[string]any{"command": "play"})
		require.NoError(t, err)
		assert.NoError(t, m.Broadcast(n))
		waitForCount(t, ok, i+1)
	}
	assert.Less(t, time.Since(start), time.Second)

	for i, n := range ok.messages() {
		assert.Equal(t, uint64(i+1), SequenceNoOf(n))
	}
}

func TestManager_SubscribeWithSequenceNo(t *testing.T) {
	m := NewManager()
	defer m.Close()

	n, err := New(KindStageChanged, nil)
	require.NoError(t, err)
	require.NoError(t, m.Broadcast(n))

	s := &recordingStream{}
	_, first := m.SubscribeWithSequenceNo(s)
	assert.Equal(t, uint64(2), first)

	n, err = New(KindStageChanged, nil)
	require.NoError(t, err)
	require.NoError(t, m.Broadcast(n))

	waitForCount(t, s, 1)
	assert.Greater(t, SequenceNoOf(s.messages()[0]), first)
}

func TestManager_Send(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s)

	n, err := New(KindInitialState, nil)
	require.NoError(t, err)
	Stamp(n, m.NextSequenceNo())

	require.NoError(t, m.Send(id, n))
	assert.NoError(t, m.Send("unknown", n))
	waitForCount(t, s, 1)
	assert.Equal(t, uint64(1), SequenceNoOf(s.messages()[0]))

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}
