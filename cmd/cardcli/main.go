// Package main provides the card CLI entry point for testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/wishcard/internal/api/connect"
	"github.com/osa030/wishcard/internal/app/notification"
	"github.com/osa030/wishcard/internal/domain/stage"
)

var (
	app    = kingpin.New("wishcard-cardcli", "wishcard client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// state command
	stateCmd = app.Command("state", "Show the current card state").Default()

	// trigger command
	triggerCmd  = app.Command("trigger", "Fire a user trigger")
	triggerName = triggerCmd.Arg("trigger", "Trigger name ("+strings.Join(triggerNames(), ", ")+")").Required().String()

	// blow command
	blowCmd   = app.Command("blow", "Blow out a candle")
	blowIndex = blowCmd.Arg("index", "Candle index (0-based)").Required().Int()

	// music command
	musicCmd  = app.Command("music", "Select a music mode")
	musicMode = musicCmd.Arg("mode", "Music mode (landingShort, intro, bouquet, cake)").Required().String()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Subscribe to notifications")
)

func triggerNames() []string {
	names := make([]string, 0, len(stage.Triggers()))
	for _, t := range stage.Triggers() {
		names = append(names, t.String())
	}
	return names
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewCardClient(http.DefaultClient, *server)
	ctx := context.Background()

	var (
		state *structpb.Struct
		err   error
	)
	switch command {
	case stateCmd.FullCommand():
		state, err = client.GetState(ctx)
	case triggerCmd.FullCommand():
		state, err = client.Trigger(ctx, *triggerName)
	case blowCmd.FullCommand():
		state, err = client.BlowCandle(ctx, *blowIndex)
	case musicCmd.FullCommand():
		state, err = client.SetMusicMode(ctx, *musicMode)
	case subscribeCmd.FullCommand():
		subscribe(ctx, client)
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	printState(state)
}

func subscribe(ctx context.Context, client *apiconnect.CardClient) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.Subscribe(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
	fmt.Println("\nUnsubscribed.")
}

func printNotification(n *structpb.Struct) {
	fmt.Printf("\n[Sequence: %d] ", notification.SequenceNoOf(n))

	kind := notification.KindOf(n)
	fmt.Printf("=== %s ===\n", strings.ToUpper(strings.ReplaceAll(string(kind), "_", " ")))

	fields := n.GetFields()
	if kind == notification.KindMediaCommand {
		fmt.Printf("  Command: %s\n", fields["command"].GetStringValue())
		if t := fields["track"].GetStructValue(); t != nil {
			printTrack("Track", t)
		}
		return
	}
	if r := fields["result"].GetStringValue(); r != "" {
		fmt.Printf("  Result: %s\n", r)
	}
	if s := fields["state"].GetStructValue(); s != nil {
		printState(s)
	}
}

func printState(s *structpb.Struct) {
	f := s.GetFields()
	fmt.Printf("  Stage: %s", f["stage"].GetStringValue())
	if ms, ok := f["advance_in_ms"]; ok {
		fmt.Printf(" (advances in %.0fms)", ms.GetNumberValue())
	}
	fmt.Println()
	fmt.Printf("  Music: %s (playing: %v, unlocked: %v)\n",
		f["music"].GetStringValue(), f["playing"].GetBoolValue(), f["audio_unlocked"].GetBoolValue())

	var candles strings.Builder
	for _, c := range f["candles"].GetListValue().GetValues() {
		if c.GetBoolValue() {
			candles.WriteString("i")
		} else {
			candles.WriteString(".")
		}
	}
	fmt.Printf("  Candles: %s\n", candles.String())

	if t := f["track"].GetStructValue(); t != nil {
		printTrack("Track", t)
	}
	if v := f["video"].GetStructValue(); v != nil {
		printTrack("Video", v)
	}
	fmt.Printf("  Run ID: %s\n", f["run_id"].GetStringValue())
}

func printTrack(label string, t *structpb.Struct) {
	f := t.GetFields()
	fmt.Printf("  %s: %s [%s] %s\n", label, f["id"].GetStringValue(), f["kind"].GetStringValue(), f["title"].GetStringValue())
}
