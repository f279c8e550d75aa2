// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	apiconnect "github.com/osa030/wishcard/internal/api/connect"
	"github.com/osa030/wishcard/internal/app/media"
	"github.com/osa030/wishcard/internal/app/notification"
	"github.com/osa030/wishcard/internal/app/player"
	"github.com/osa030/wishcard/internal/app/sequencer"
	"github.com/osa030/wishcard/internal/infra/audio"
	"github.com/osa030/wishcard/internal/infra/config"
	"github.com/osa030/wishcard/internal/infra/logger"
	"github.com/osa030/wishcard/internal/infra/share"
	"github.com/osa030/wishcard/internal/infra/spotify"
)

var (
	app        = kingpin.New("wishcard-server", "wishcard greeting card server")
	configPath = app.Flag("config", "Path to config file").Default("config/card.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-sources command
	listSourcesCmd = app.Command("list-sources", "List available media source types and exit")

	// share command
	shareCmd = app.Command("share", "Print the card URL as a QR code and exit")
	shareURL = shareCmd.Arg("url", "Card URL (default: server.public_url from config)").String()
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case listSourcesCmd.FullCommand():
		printSources()
		return
	case shareCmd.FullCommand():
		if err := printShare(*shareURL); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
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

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve media; Spotify is only contacted when a source needs it
	var resolver media.Resolver
	if cfg.UsesSpotify() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		resolver = spotifyClient
	}

	catalog, err := media.BuildCatalog(ctx, cfg.Media, resolver)
	if err != nil {
		return errors.Wrap(err, "failed to build media catalog")
	}

	// Media handle: presenters, plus a local player when configured
	notifManager := notification.NewManager()
	outputs := []player.Output{apiconnect.NewPresenterOutput(notifManager)}
	if len(cfg.Player.Command) > 0 {
		zlog.Info().Msgf("Local playback enabled: command=%v", cfg.Player.Command)
		outputs = append(outputs, audio.NewExecOutput(cfg.Player))
	}

	seq := sequencer.New(sequencer.ConfigFrom(cfg), player.New(player.Tee(outputs...)), catalog, sequencer.WallClock{})

	// Create RPC services
	done := make(chan struct{})
	cardService := apiconnect.NewCardService(seq, notifManager, done)
	adminService := apiconnect.NewAdminService(seq, cardService)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewCardServiceHandler(cardService))
	mux.Handle(apiconnect.NewAdminServiceHandler(
		adminService,
		connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg)),
	))

	if cfg.Server.PublicURL != "" {
		mux.Handle("/share.png", share.Handler(cfg.Server.PublicURL))
		zlog.Info().Msgf("Share QR code served at /share.png: url=%s", cfg.Server.PublicURL)
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiconnect.RelayEvents(gctx, seq.Events(), notifManager)
	})

	g.Go(func() error {
		zlog.Info().Msgf("Starting server: addr=%s run_id=%s", cfg.Server.Addr, seq.Snapshot().RunID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})

	g.Go(func() error {
		// Give the server a moment to start listening
		select {
		case <-gctx.Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
		executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

		<-gctx.Done()
		zlog.Info().Msg("Shutting down...")

		// End subscriptions first so Shutdown does not wait on open streams
		close(done)
		seq.Close()
		notifManager.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
		return nil
	})

	err = g.Wait()
	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")
	return err
}

// printSources prints available media source types.
func printSources() {
	registered := media.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Media Sources:")
	for _, name := range names {
		s := registered[name]()
		fmt.Printf("  %-10s - %s\n", s.Name(), s.Description())
	}
}

// printShare prints the QR code of url, falling back to the configured
// public URL.
func printShare(url string) error {
	if url == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		url = cfg.Server.PublicURL
	}
	if url == "" {
		return errors.New("no url given and server.public_url is not set")
	}

	qr, err := share.Terminal(url)
	if err != nil {
		return err
	}
	fmt.Println(qr)
	fmt.Println(url)
	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
