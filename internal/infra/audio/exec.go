// Package audio plays tracks through an external command (afplay, mpv, ...).
package audio

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/wishcard/internal/app/player"
	"github.com/osa030/wishcard/internal/domain/track"
	"github.com/osa030/wishcard/internal/infra/config"
)

// LocatorPlaceholder is replaced by the track locator in the command.
const LocatorPlaceholder = "{locator}"

// ErrUnsupportedKind is returned for tracks the command cannot play.
var ErrUnsupportedKind = errors.New("track kind not playable by local command")

// ExecOutput runs one player process per playback and restarts it while the
// track loops.
type ExecOutput struct {
	command []string
	workDir string

	mu     sync.Mutex
	loaded track.Track
	cancel context.CancelFunc
	done   chan struct{}
}

// NewExecOutput creates an output from the player configuration.
func NewExecOutput(cfg config.PlayerConfig) *ExecOutput {
	return &ExecOutput{
		command: cfg.Command,
		workDir: cfg.WorkDir,
	}
}

var _ player.Output = (*ExecOutput)(nil)

// Load stops the running process and remembers t.
func (o *ExecOutput) Load(t track.Track) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	o.loaded = t
	return nil
}

// Start launches the player process. Only file tracks are supported.
func (o *ExecOutput) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.command) == 0 {
		return errors.Wrap(player.ErrBlocked, "no player command configured")
	}
	if o.loaded.Kind != track.KindFile {
		return errors.Wrapf(ErrUnsupportedKind, "%s", o.loaded.Kind)
	}

	o.stopLocked()

	argv := expandArgs(o.command, o.resolve(o.loaded.Locator))
	runCtx, cancel := context.WithCancel(context.Background())
	cmd := o.newCmd(runCtx, argv)
	if err := cmd.Start(); err != nil {
		cancel()
		return errors.Wrapf(err, "failed to start %s", argv[0])
	}

	done := make(chan struct{})
	o.cancel = cancel
	o.done = done
	go o.run(runCtx, cmd, argv, o.loaded.Loop, done)

	zlog.Debug().Msgf("audio: process started: pid=%d locator=%s", cmd.Process.Pid, o.loaded.Locator)
	return nil
}

// Stop kills the running process and waits for it to exit.
func (o *ExecOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	return nil
}

// Running reports whether a player process is active.
func (o *ExecOutput) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done == nil {
		return false
	}
	select {
	case <-o.done:
		return false
	default:
		return true
	}
}

func (o *ExecOutput) stopLocked() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	<-o.done
	o.cancel = nil
	o.done = nil
}

func (o *ExecOutput) newCmd(ctx context.Context, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = o.workDir
	return cmd
}

// run waits for the process and restarts it while looping.
func (o *ExecOutput) run(ctx context.Context, cmd *exec.Cmd, argv []string, loop bool, done chan struct{}) {
	defer close(done)
	for {
		err := cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			zlog.Warn().Msgf("audio: player exited: %v", err)
			return
		}
		if !loop {
			return
		}

		cmd = o.newCmd(ctx, argv)
		if err := cmd.Start(); err != nil {
			zlog.Warn().Msgf("audio: failed to restart player: %v", err)
			return
		}
	}
}

// resolve maps asset paths such as "/audio/intro.mp3" under the work dir.
func (o *ExecOutput) resolve(locator string) string {
	if o.workDir == "" {
		return locator
	}
	return filepath.Join(o.workDir, filepath.FromSlash(locator))
}

// expandArgs substitutes the locator into the command template.
func expandArgs(command []string, locator string) []string {
	argv := make([]string, len(command))
	for i, arg := range command {
		argv[i] = strings.ReplaceAll(arg, LocatorPlaceholder, locator)
	}
	return argv
}
