// Package main runs the card in the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/wishcard/internal/app/media"
	"github.com/osa030/wishcard/internal/app/player"
	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/infra/audio"
	"github.com/osa030/wishcard/internal/infra/config"
	"github.com/osa030/wishcard/internal/infra/logger"
	"github.com/osa030/wishcard/internal/infra/spotify"
	"github.com/osa030/wishcard/internal/tui"
)

var (
	app        = kingpin.New("wishcard-tui", "wishcard greeting card in the terminal")
	configPath = app.Flag("config", "Path to config file").Default("config/card.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: no logging)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// The terminal belongs to the card; logs only go to a file
	loggerConfig := logger.Config{Output: "none", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	var resolver media.Resolver
	if cfg.UsesSpotify() {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		resolver = client
	}

	catalog, err := media.BuildCatalog(ctx, cfg.Media, resolver)
	if err != nil {
		return errors.Wrap(err, "failed to build media catalog")
	}

	// Without a player command the card runs silently
	var output player.Output
	if len(cfg.Player.Command) > 0 {
		output = audio.NewExecOutput(cfg.Player)
	}

	seq := sequencer.New(sequencer.ConfigFrom(cfg), player.New(output), catalog, sequencer.WallClock{})
	defer seq.Close()
	zlog.Info().Msgf("terminal card started: run_id=%s", seq.Snapshot().RunID)

	program := tea.NewProgram(tui.New(seq, seq.Events()), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return errors.Wrap(err, "error running program")
	}
	return nil
}
