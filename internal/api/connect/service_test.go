package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/wishcard/internal/app/media"
	"github.com/osa030/wishcard/internal/app/notification"
	"github.com/osa030/wishcard/internal/app/player"
	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/domain/stage"
	"github.com/osa030/wishcard/internal/domain/track"
	"github.com/osa030/wishcard/internal/infra/config"
)

const testToken = "secret"

type testServer struct {
	clock *sequencer.ManualClock
	seq   *sequencer.Sequencer
	notif *notification.Manager
	card  *CardClient
	admin *AdminClient
}

func testCatalog() *media.Catalog {
	tracks := make(map[stage.MusicMode]track.Track)
	for _, mode := range stage.MusicModes() {
		p := "/audio/" + mode.String() + ".mp3"
		tracks[mode] = track.Track{ID: p, Kind: track.KindFile, Locator: p}
	}
	return media.NewCatalog(tracks, track.Track{ID: "/bouquet/bloom.mp4", Kind: track.KindFile, Locator: "/bouquet/bloom.mp4"})
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	notif := notification.NewManager()
	clock := sequencer.NewManualClock()
	seq := sequencer.New(sequencer.DefaultConfig(), player.New(NewPresenterOutput(notif)), testCatalog(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = RelayEvents(ctx, seq.Events(), notif)
	}()

	done := make(chan struct{})
	cardSvc := NewCardService(seq, notif, done)
	cardSvc.now = clock.Now
	adminSvc := NewAdminService(seq, cardSvc)
	cfg := &config.Config{Admin: config.AdminConfig{Token: testToken}}

	mux := http.NewServeMux()
	mux.Handle(NewCardServiceHandler(cardSvc))
	mux.Handle(NewAdminServiceHandler(adminSvc, connect.WithInterceptors(NewAdminAuthInterceptor(cfg))))
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		close(done)
		srv.Close()
		cancel()
		seq.Close()
		<-relayDone
	})

	return &testServer{
		clock: clock,
		seq:   seq,
		notif: notif,
		card:  NewCardClient(srv.Client(), srv.URL),
		admin: NewAdminClient(srv.Client(), srv.URL),
	}
}

func field(s *structpb.Struct, name string) *structpb.Value {
	return s.GetFields()[name]
}

func codeOf(err error) connect.Code {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return connect.CodeUnknown
}

func TestCardService_GetState(t *testing.T) {
	ts := newTestServer(t)

	state, err := ts.card.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unlock", field(state, "stage").GetStringValue())
	assert.Equal(t, "landingShort", field(state, "music").GetStringValue())
	assert.False(t, field(state, "audio_unlocked").GetBoolValue())
	assert.Len(t, field(state, "candles").GetListValue().GetValues(), 5)
	assert.Equal(t, "/audio/landingShort.mp3", field(state, "track").GetStructValue().GetFields()["id"].GetStringValue())
	assert.NotEmpty(t, field(state, "run_id").GetStringValue())
}

func TestCardService_Trigger(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	tests := []struct {
		name     string
		trigger  string
		wantCode connect.Code
		wantErr  bool
		stage    string
	}{
		{name: "wrong stage", trigger: "yes", wantErr: true, wantCode: connect.CodeFailedPrecondition},
		{name: "unknown trigger", trigger: "explode", wantErr: true, wantCode: connect.CodeInvalidArgument},
		{name: "unlock", trigger: "unlock", stage: "boot"},
		{name: "unlock twice", trigger: "unlock", wantErr: true, wantCode: connect.CodeFailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := ts.card.Trigger(ctx, tt.trigger)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, codeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.stage, field(state, "stage").GetStringValue())
			assert.True(t, field(state, "audio_unlocked").GetBoolValue())
			assert.True(t, field(state, "transition").GetBoolValue())
			assert.Equal(t, float64(5000), field(state, "advance_in_ms").GetNumberValue())
		})
	}

	ts.clock.Advance(5 * time.Second)
	state, err := ts.card.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "landing", field(state, "stage").GetStringValue())
}

func TestCardService_BlowCandleAndMusic(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	_, err := ts.card.BlowCandle(ctx, 0)
	assert.Equal(t, connect.CodeFailedPrecondition, codeOf(err))

	_, err = ts.admin.ForceStage(ctx, testToken, "cake")
	require.NoError(t, err)

	state, err := ts.card.BlowCandle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, float64(4), field(state, "lit_candles").GetNumberValue())

	_, err = ts.card.BlowCandle(ctx, 9)
	assert.Equal(t, connect.CodeInvalidArgument, codeOf(err))

	state, err = ts.card.SetMusicMode(ctx, "bouquet")
	require.NoError(t, err)
	assert.Equal(t, "bouquet", field(state, "music").GetStringValue())

	_, err = ts.card.SetMusicMode(ctx, "disco")
	assert.Equal(t, connect.CodeInvalidArgument, codeOf(err))
}

func TestAdminService_Auth(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	_, err := ts.admin.ForceStage(ctx, "", "flowers")
	assert.Equal(t, connect.CodeUnauthenticated, codeOf(err))

	_, err = ts.admin.ForceStage(ctx, "wrong", "flowers")
	assert.Equal(t, connect.CodeUnauthenticated, codeOf(err))

	state, err := ts.admin.ForceStage(ctx, testToken, "flowers")
	require.NoError(t, err)
	assert.Equal(t, "flowers", field(state, "stage").GetStringValue())
	assert.Equal(t, "/bouquet/bloom.mp4", field(state, "video").GetStructValue().GetFields()["locator"].GetStringValue())

	_, err = ts.admin.ForceStage(ctx, testToken, "nowhere")
	assert.Equal(t, connect.CodeInvalidArgument, codeOf(err))

	state, err = ts.admin.Reset(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, "unlock", field(state, "stage").GetStringValue())
}

func TestCardService_Subscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts := newTestServer(t)

	stream, err := ts.card.Subscribe(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive(), "%v", stream.Err())
	initial := stream.Msg()
	assert.Equal(t, notification.KindInitialState, notification.KindOf(initial))
	assert.Equal(t, "unlock", field(initial, "state").GetStructValue().GetFields()["stage"].GetStringValue())

	require.Eventually(t, func() bool {
		return ts.notif.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	state, err := ts.card.Trigger(ctx, "unlock")
	require.NoError(t, err)
	assert.True(t, field(state, "playing").GetBoolValue())

	seen := make(map[notification.Kind]*structpb.Struct)
	var lastSeq uint64
	for stream.Receive() {
		n := stream.Msg()
		assert.Greater(t, notification.SequenceNoOf(n), lastSeq)
		lastSeq = notification.SequenceNoOf(n)
		seen[notification.KindOf(n)] = n
		_, gotStage := seen[notification.KindStageChanged]
		_, gotMedia := seen[notification.KindMediaCommand]
		if gotStage && gotMedia {
			break
		}
	}

	require.Contains(t, seen, notification.KindMediaCommand)
	assert.Equal(t, MediaCommandPlay, field(seen[notification.KindMediaCommand], "command").GetStringValue())
	require.Contains(t, seen, notification.KindStageChanged)
	assert.Equal(t, "boot", field(seen[notification.KindStageChanged], "state").GetStructValue().GetFields()["stage"].GetStringValue())
}

type countingBroadcaster struct {
	subscribers int
	sent        []*structpb.Struct
}

func (b *countingBroadcaster) Broadcast(n *structpb.Struct) error {
	b.sent = append(b.sent, n)
	return nil
}

func (b *countingBroadcaster) SubscriberCount() int {
	return b.subscribers
}

func TestPresenterOutput(t *testing.T) {
	b := &countingBroadcaster{}
	out := NewPresenterOutput(b)
	p := player.New(out)

	require.True(t, p.SetTrack(track.Track{ID: "/audio/intro.mp3", Kind: track.KindFile, Locator: "/audio/intro.mp3"}))
	require.Len(t, b.sent, 1)
	assert.Equal(t, MediaCommandLoad, field(b.sent[0], "command").GetStringValue())
	assert.True(t, field(b.sent[0], "track").GetStructValue().GetFields()["loop"].GetBoolValue())

	assert.Equal(t, player.ResultBlocked, p.Play(context.Background()))
	assert.Len(t, b.sent, 1)

	b.subscribers = 1
	assert.Equal(t, player.ResultStarted, p.Play(context.Background()))
	require.Len(t, b.sent, 2)
	assert.Equal(t, MediaCommandPlay, field(b.sent[1], "command").GetStringValue())

	p.Stop()
	require.Len(t, b.sent, 3)
	assert.Equal(t, MediaCommandStop, field(b.sent[2], "command").GetStringValue())
}

func TestEventNotification(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }
	snap := sequencer.Snapshot{Stage: stage.Cake, Music: stage.MusicCake, Candles: []bool{true, false}}

	n, err := EventNotification(sequencer.Event{Type: sequencer.EventCandleBlown, Snapshot: snap}, now)
	require.NoError(t, err)
	assert.Equal(t, notification.KindCandleBlown, notification.KindOf(n))
	assert.Equal(t, float64(1), field(n, "state").GetStructValue().GetFields()["lit_candles"].GetNumberValue())

	n, err = EventNotification(sequencer.Event{Type: sequencer.EventPlaybackBlocked, Snapshot: snap, Result: player.ResultBlocked}, now)
	require.NoError(t, err)
	assert.Equal(t, "blocked", field(n, "result").GetStringValue())

	_, err = EventNotification(sequencer.Event{Type: sequencer.EventType(99)}, now)
	assert.Error(t, err)
}

type sliceSender struct {
	sent []*structpb.Struct
}

func (s *sliceSender) Send(n *structpb.Struct) error {
	s.sent = append(s.sent, n)
	return nil
}

func stamped(t *testing.T, kind notification.Kind, seq uint64) *structpb.Struct {
	t.Helper()
	n, err := notification.New(kind, nil)
	require.NoError(t, err)
	notification.Stamp(n, seq)
	return n
}

func TestNotificationStreamAdapter_InitialStateGoesFirst(t *testing.T) {
	out := &sliceSender{}
	a := newNotificationStreamAdapter(out)

	// Broadcast between subscribing and reading the state.
	require.NoError(t, a.Send(stamped(t, notification.KindMediaCommand, 2)))
	assert.Empty(t, out.sent)

	require.NoError(t, a.open(stamped(t, notification.KindInitialState, 1)))
	require.Len(t, out.sent, 2)
	assert.Equal(t, notification.KindInitialState, notification.KindOf(out.sent[0]))
	assert.Equal(t, notification.KindMediaCommand, notification.KindOf(out.sent[1]))

	require.NoError(t, a.Send(stamped(t, notification.KindStageChanged, 3)))
	assert.Len(t, out.sent, 3)

	a.close()
	assert.ErrorIs(t, a.Send(stamped(t, notification.KindStageChanged, 4)), errStreamClosed)
	assert.Len(t, out.sent, 3)
}

type blockingStream struct {
	release chan struct{}
}

func (b *blockingStream) Send(*structpb.Struct) error {
	<-b.release
	return nil
}

func TestPresenterOutput_SlowSubscriberDoesNotStallSequencer(t *testing.T) {
	ctx := context.Background()
	notif := notification.NewManager()
	defer notif.Close()
	stuck := &blockingStream{release: make(chan struct{})}
	defer close(stuck.release)
	notif.Subscribe(stuck)

	seq := sequencer.New(sequencer.DefaultConfig(), player.New(NewPresenterOutput(notif)), testCatalog(), sequencer.NewManualClock())
	defer seq.Close()

	start := time.Now()
	snap, err := seq.Trigger(ctx, stage.TriggerUnlock)
	require.NoError(t, err)
	assert.True(t, snap.Playing)

	_, err = seq.ForceStage(ctx, stage.Landing)
	require.NoError(t, err)
	snap, err = seq.Trigger(ctx, stage.TriggerYes)
	require.NoError(t, err)
	assert.Equal(t, stage.T1, snap.Stage)
	seq.Snapshot()

	assert.Less(t, time.Since(start), 250*time.Millisecond)
}
