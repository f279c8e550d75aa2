package connect

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/wishcard/internal/app/notification"
	"github.com/osa030/wishcard/internal/app/player"
	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/domain/track"
)

// Media commands sent to presenters.
const (
	MediaCommandLoad = "load"
	MediaCommandPlay = "play"
	MediaCommandStop = "stop"
)

// broadcaster is the part of notification.Manager the presenter output uses.
type broadcaster interface {
	Broadcast(*structpb.Struct) error
	SubscriberCount() int
}

// PresenterOutput is the media handle of connected presenters. It forwards
// load/play/stop to every subscriber as media_command notifications.
type PresenterOutput struct {
	mu     sync.Mutex
	notif  broadcaster
	loaded track.Track
}

// NewPresenterOutput creates a presenter output.
func NewPresenterOutput(notif broadcaster) *PresenterOutput {
	return &PresenterOutput{notif: notif}
}

var _ player.Output = (*PresenterOutput)(nil)

func (o *PresenterOutput) command(cmd string, t *track.Track) error {
	fields := map[string]any{"command": cmd}
	if t != nil {
		fields["track"] = trackFields(*t)
	}
	n, err := notification.New(notification.KindMediaCommand, fields)
	if err != nil {
		return errors.Wrap(err, "failed to build media command")
	}
	return o.notif.Broadcast(n)
}

// Load retargets every presenter's media handle.
func (o *PresenterOutput) Load(t track.Track) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = t
	return o.command(MediaCommandLoad, &t)
}

// Start asks presenters to start playback. Without a presenter there is no
// handle to start, which is reported as ErrBlocked so the next gesture retries.
func (o *PresenterOutput) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.notif.SubscriberCount() == 0 {
		return errors.Wrap(player.ErrBlocked, "no presenter connected")
	}
	return o.command(MediaCommandPlay, &o.loaded)
}

// Stop asks presenters to stop playback.
func (o *PresenterOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.command(MediaCommandStop, nil)
}

// EventNotification converts a sequencer event into a notification.
func EventNotification(e sequencer.Event, now func() time.Time) (*structpb.Struct, error) {
	fields := map[string]any{
		"state": snapshotFields(e.Snapshot, now()),
	}
	var kind notification.Kind
	switch e.Type {
	case sequencer.EventStageChanged:
		kind = notification.KindStageChanged
	case sequencer.EventMusicChanged:
		kind = notification.KindMusicChanged
	case sequencer.EventCandleBlown:
		kind = notification.KindCandleBlown
	case sequencer.EventPlaybackStarted:
		kind = notification.KindPlaybackStarted
		fields["result"] = e.Result.String()
	case sequencer.EventPlaybackBlocked:
		kind = notification.KindPlaybackBlocked
		fields["result"] = e.Result.String()
	default:
		return nil, errors.Newf("unknown event type: %d", int(e.Type))
	}
	return notification.New(kind, fields)
}

// RelayEvents broadcasts sequencer events until the channel is closed or ctx
// is done.
func RelayEvents(ctx context.Context, events <-chan sequencer.Event, notif *notification.Manager) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			n, err := EventNotification(e, time.Now)
			if err != nil {
				zlog.Warn().Msgf("failed to convert event: type=%s err=%v", e.Type, err)
				continue
			}
			if err := notif.Broadcast(n); err != nil {
				zlog.Warn().Msgf("failed to broadcast event: type=%s err=%v", e.Type, err)
			}
		}
	}
}
