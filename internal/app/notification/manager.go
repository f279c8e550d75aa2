// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"
)

// Kind is the notification type carried in the "type" field.
type Kind string

const (
	KindInitialState    Kind = "initial_state"
	KindStageChanged    Kind = "stage_changed"
	KindMusicChanged    Kind = "music_changed"
	KindCandleBlown     Kind = "candle_blown"
	KindPlaybackStarted Kind = "playback_started"
	KindPlaybackBlocked Kind = "playback_blocked"
	KindMediaCommand    Kind = "media_command"
)

const (
	// FieldType is the field holding the notification kind.
	FieldType = "type"
	// FieldSequenceNo is the field holding the sequence number.
	FieldSequenceNo = "sequence_no"
)

// DefaultQueueSize is the number of notifications queued per subscriber.
const DefaultQueueSize = 64

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*structpb.Struct) error
}

// New builds a notification of the given kind. fields must hold values
// accepted by structpb.NewValue.
func New(kind Kind, fields map[string]any) (*structpb.Struct, error) {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m[FieldType] = string(kind)
	return structpb.NewStruct(m)
}

// KindOf returns the kind of a notification.
func KindOf(n *structpb.Struct) Kind {
	return Kind(n.GetFields()[FieldType].GetStringValue())
}

// SequenceNoOf returns the sequence number stamped on a notification.
func SequenceNoOf(n *structpb.Struct) uint64 {
	return uint64(n.GetFields()[FieldSequenceNo].GetNumberValue())
}

// subscription represents a subscriber's subscription. Notifications are
// queued and sent by one goroutine per subscription, in sequence order.
type subscription struct {
	id     string
	stream Stream
	queue  chan *structpb.Struct
	done   chan struct{}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case n := <-s.queue:
			if err := s.stream.Send(n); err != nil {
				zlog.Debug().Msgf("notification send failed: subscription=%s err=%v", s.id, err)
			}
		}
	}
}

func (s *subscription) enqueue(n *structpb.Struct) bool {
	select {
	case s.queue <- n:
		return true
	default:
		return false
	}
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	queueSize     int
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		queueSize:     DefaultQueueSize,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribeLocked(stream)
}

// SubscribeWithSequenceNo adds a subscription and reserves a sequence number
// for the subscriber's first message. Every notification delivered to the
// subscription carries a greater sequence number.
func (m *Manager) SubscribeWithSequenceNo(stream Stream) (string, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.subscribeLocked(stream)
	m.sequenceNo++
	return id, m.sequenceNo
}

func (m *Manager) subscribeLocked(stream Stream) string {
	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan *structpb.Struct, m.queueSize),
		done:   make(chan struct{}),
	}
	m.subscriptions[sub.id] = sub
	go sub.run()
	return sub.id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Stamp sets the sequence number of a notification.
func Stamp(n *structpb.Struct, seq uint64) {
	if n.Fields == nil {
		n.Fields = make(map[string]*structpb.Value)
	}
	n.Fields[FieldSequenceNo] = structpb.NewNumberValue(float64(seq))
}

// Unsubscribe removes a subscription. Queued notifications are discarded.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[subscriptionID]; ok {
		close(sub.done)
		delete(m.subscriptions, subscriptionID)
	}
}

// Broadcast stamps the next sequence number on a notification and queues it
// for every subscriber. It never waits on a stream; a subscriber whose queue
// is full misses the notification.
func (m *Manager) Broadcast(notification *structpb.Struct) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequenceNo++
	Stamp(notification, m.sequenceNo)

	for _, sub := range m.subscriptions {
		if !sub.enqueue(notification) {
			zlog.Warn().Msgf("notification dropped, subscriber queue full: subscription=%s type=%s", sub.id, KindOf(notification))
		}
	}
	return nil
}

// Send queues a notification for a specific subscriber.
func (m *Manager) Send(subscriptionID string, notification *structpb.Struct) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil
	}
	if !sub.enqueue(notification) {
		return errors.Newf("subscriber queue full: subscription=%s", subscriptionID)
	}
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subscriptions {
		close(sub.done)
	}
	m.subscriptions = make(map[string]*subscription)
}
