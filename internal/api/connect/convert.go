package connect

import (
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/domain/cake"
	"github.com/osa030/wishcard/internal/domain/stage"
	"github.com/osa030/wishcard/internal/domain/track"
)

// trackFields converts a track into notification/response fields.
func trackFields(t track.Track) map[string]any {
	artists := make([]any, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a
	}
	return map[string]any{
		"id":          t.ID,
		"kind":        string(t.Kind),
		"locator":     t.Locator,
		"title":       t.Title,
		"artists":     artists,
		"duration_ms": t.Duration.Milliseconds(),
		"loop":        t.Loop,
	}
}

// snapshotFields converts a sequencer snapshot into response fields.
func snapshotFields(snap sequencer.Snapshot, now time.Time) map[string]any {
	candles := make([]any, len(snap.Candles))
	lit := 0
	for i, c := range snap.Candles {
		candles[i] = c
		if c {
			lit++
		}
	}

	fields := map[string]any{
		"run_id":         snap.RunID,
		"stage":          snap.Stage.String(),
		"transition":     snap.Stage.IsTransition(),
		"music":          snap.Music.String(),
		"audio_unlocked": snap.AudioUnlocked,
		"candles":        candles,
		"lit_candles":    lit,
		"playing":        snap.Playing,
	}
	if !snap.Track.IsZero() {
		fields["track"] = trackFields(snap.Track)
	}
	if !snap.Video.IsZero() {
		fields["video"] = trackFields(snap.Video)
	}
	if !snap.PendingAdvance.IsZero() {
		fields["advance_in_ms"] = snap.Remaining(now).Milliseconds()
	}
	return fields
}

// snapshotStruct converts a sequencer snapshot into a response message.
func snapshotStruct(snap sequencer.Snapshot, now time.Time) (*structpb.Struct, error) {
	return structpb.NewStruct(snapshotFields(snap, now))
}

// stringField returns a required string field of a request message.
func stringField(msg *structpb.Struct, name string) (string, error) {
	v, ok := msg.GetFields()[name]
	if !ok {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.Newf("missing field: %s", name))
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.Newf("field %s must be a string", name))
	}
	return s.StringValue, nil
}

// intField returns a required integer field of a request message.
func intField(msg *structpb.Struct, name string) (int, error) {
	v, ok := msg.GetFields()[name]
	if !ok {
		return 0, connect.NewError(connect.CodeInvalidArgument, errors.Newf("missing field: %s", name))
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != float64(int(n.NumberValue)) {
		return 0, connect.NewError(connect.CodeInvalidArgument, errors.Newf("field %s must be an integer", name))
	}
	return int(n.NumberValue), nil
}

// toConnectError maps domain errors to Connect error codes.
func toConnectError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sequencer.ErrTriggerNotAllowed):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, sequencer.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, cake.ErrCandleOutOfRange),
		errors.Is(err, sequencer.ErrInvalidStage),
		errors.Is(err, stage.ErrUnknownStage),
		errors.Is(err, stage.ErrUnknownTrigger),
		errors.Is(err, stage.ErrUnknownMusicMode):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
