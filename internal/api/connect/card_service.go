package connect

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/wishcard/internal/app/notification"
	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/domain/stage"
)

// CardService implements the CardService RPC.
type CardService struct {
	seq   *sequencer.Sequencer
	notif *notification.Manager
	done  <-chan struct{}
	now   func() time.Time
}

// NewCardService creates a new CardService. Subscriptions end when done is
// closed.
func NewCardService(seq *sequencer.Sequencer, notif *notification.Manager, done <-chan struct{}) *CardService {
	return &CardService{
		seq:   seq,
		notif: notif,
		done:  done,
		now:   time.Now,
	}
}

func (s *CardService) respond(snap sequencer.Snapshot, err error) (*connect.Response[structpb.Struct], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	msg, err := snapshotStruct(snap, s.now())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// GetState returns the current snapshot.
func (s *CardService) GetState(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.respond(s.seq.Snapshot(), nil)
}

// Trigger handles user triggers.
func (s *CardService) Trigger(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name, err := stringField(req.Msg, "trigger")
	if err != nil {
		return nil, err
	}
	t, err := stage.ParseTrigger(name)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.respond(s.seq.Trigger(ctx, t))
}

// BlowCandle handles a blow on one candle.
func (s *CardService) BlowCandle(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	index, err := intField(req.Msg, "index")
	if err != nil {
		return nil, err
	}
	return s.respond(s.seq.BlowCandle(ctx, index))
}

// SetMusicMode selects a music mode directly.
func (s *CardService) SetMusicMode(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name, err := stringField(req.Msg, "mode")
	if err != nil {
		return nil, err
	}
	mode, err := stage.ParseMusicMode(name)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.respond(s.seq.SetMusicMode(ctx, mode))
}

// Subscribe streams notifications, starting with the current state.
// The subscription is registered before the state is read, so nothing
// broadcast in between is lost; it is held back until initial_state is sent.
func (s *CardService) Subscribe(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	adapter := newNotificationStreamAdapter(stream)
	subscriptionID, sequenceNo := s.notif.SubscribeWithSequenceNo(adapter)
	zlog.Debug().Msgf("presenter subscribed: subscription=%s", subscriptionID)
	defer func() {
		s.notif.Unsubscribe(subscriptionID)
		adapter.close()
		zlog.Debug().Msgf("presenter unsubscribed: subscription=%s", subscriptionID)
	}()

	initial, err := notification.New(notification.KindInitialState, map[string]any{
		"state": snapshotFields(s.seq.Snapshot(), s.now()),
	})
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	notification.Stamp(initial, sequenceNo)

	if err := adapter.open(initial); err != nil {
		return err
	}

	// Wait for context cancellation or server shutdown
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

var errStreamClosed = errors.New("notification stream closed")

// structSender is the send side of a server stream.
type structSender interface {
	Send(*structpb.Struct) error
}

// notificationStreamAdapter adapts a server stream to notification.Stream.
// Notifications arriving before open are buffered and sent right after the
// initial message.
type notificationStreamAdapter struct {
	mu      sync.Mutex
	stream  structSender
	ready   bool
	closed  bool
	pending []*structpb.Struct
}

func newNotificationStreamAdapter(stream structSender) *notificationStreamAdapter {
	return &notificationStreamAdapter{stream: stream}
}

func (a *notificationStreamAdapter) Send(n *structpb.Struct) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.closed:
		return errStreamClosed
	case !a.ready:
		a.pending = append(a.pending, n)
		return nil
	}
	return a.stream.Send(n)
}

// open sends initial followed by everything buffered so far.
func (a *notificationStreamAdapter) open(initial *structpb.Struct) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	if err := a.stream.Send(initial); err != nil {
		return err
	}
	for _, n := range a.pending {
		if err := a.stream.Send(n); err != nil {
			return err
		}
	}
	a.pending = nil
	a.ready = true
	return nil
}

// close stops all further sends; the handler must not touch the stream after
// it returns.
func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.pending = nil
}
