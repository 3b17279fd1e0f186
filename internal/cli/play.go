package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guidoenr/wizsync/internal/config"
	"github.com/guidoenr/wizsync/internal/profile"
	"github.com/guidoenr/wizsync/internal/session"
	"github.com/guidoenr/wizsync/internal/source"
	"github.com/guidoenr/wizsync/internal/wiz"
)

var (
	playArtist string
	playTrack  string
	playMode   string
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Light a track from an audio file",
	Long: `Analyzes the whole file first to pick a lighting mode, then streams
it in real time to the configured bulbs.

Controls: space pauses, r restarts the track, q quits.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playArtist, "artist", "", "artist name for the status feed")
	playCmd.Flags().StringVar(&playTrack, "track", "", "track name for the status feed")
	playCmd.Flags().StringVar(&playMode, "mode", "", "force the lighting mode (spectrum_pulse or spectrum_gradient)")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Lights) == 0 {
		return fmt.Errorf("no lights configured, pass --lights or set them in the config file")
	}
	logger := newLogger(cfg)
	path := args[0]

	transport, err := wiz.NewTransport(wiz.TransportConfig{
		MinInterval: time.Duration(float64(time.Second) / cfg.CadenceHz),
		Log:         logger,
	})
	if err != nil {
		return err
	}
	defer transport.Close()

	// Decoders do not rewind, so the file is opened once for the pre-pass
	// and again for each playback pass.
	scanSrc, err := source.Open(path)
	if err != nil {
		return err
	}
	scanner := session.New(cfg.SessionConfig(logger), nil)
	prof, err := scanner.ClassifyTrack(cmd.Context(), scanSrc)
	scanSrc.Close()
	if err != nil {
		return err
	}

	if playMode != "" {
		m, err := profile.ParseMode(playMode)
		if err != nil {
			return err
		}
		if m != prof.Mode {
			prof.Mode = m
			prof.Reason = "forced by --mode"
		}
	}

	fmt.Printf("mode: %s\n", prof.Mode)
	fmt.Printf("  reason:      %s\n", prof.Reason)
	fmt.Printf("  sensitivity: %.2f\n", prof.Sensitivity)
	fmt.Printf("  smoothness:  %.2f\n", prof.Smoothness)

	for _, addr := range cfg.Lights {
		if err := transport.SendPower(addr, true); err != nil {
			logger.Printf("power on %s: %v", addr, err)
		}
	}

	for {
		restart, err := playOnce(cmd.Context(), cfg, transport, path, prof)
		if err == context.Canceled {
			return nil
		}
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
		fmt.Println("restarting")
	}
}

// playOnce runs one full playback pass. It reports whether the user asked
// for a restart.
func playOnce(parent context.Context, cfg *config.Config, transport *wiz.Transport, path string, prof profile.TrackProfile) (bool, error) {
	logger := newLogger(cfg)
	sess := session.New(cfg.SessionConfig(logger), transport)
	sess.SetTrack(prof)
	sess.SetNowPlaying(playArtist, trackName(path))

	src, err := source.Open(path)
	if err != nil {
		return false, err
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var restart atomic.Bool
	go watchKeys(ctx, cancel, sess, func() {
		restart.Store(true)
		cancel()
	})
	go progressLoop(ctx, sess)

	done := make(chan error, 1)
	go func() {
		done <- sess.StreamBlocks(ctx, src)
	}()
	go func() {
		// Cancel the render loop once the track has fully streamed.
		<-done
		cancel()
	}()

	err = sess.Run(ctx)
	fmt.Println()
	if err == context.Canceled && parent.Err() == nil {
		return restart.Load(), nil
	}
	return false, err
}

func trackName(path string) string {
	if playTrack != "" {
		return playTrack
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// watchKeys handles playback controls until the context ends. onRestart may
// be nil for modes without a restart notion.
func watchKeys(ctx context.Context, cancel context.CancelFunc, sess *session.Session, onRestart func()) {
	if err := keyboard.Open(); err != nil {
		// No terminal, controls are disabled.
		return
	}
	defer keyboard.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		ch, key, err := keyboard.GetKey()
		if err != nil {
			return
		}
		switch {
		case ch == 'q' || key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
			cancel()
			return
		case ch == ' ' || key == keyboard.KeySpace:
			sess.SetPaused(!sess.Paused())
		case ch == 'r' && onRestart != nil:
			onRestart()
			return
		}
	}
}

// progressLoop rewrites a single status line twice a second.
func progressLoop(ctx context.Context, sess *session.Session) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}

	start := time.Now()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := sess.Snapshot()
			elapsed := time.Since(start).Round(time.Second)
			line := fmt.Sprintf("  %s  %s  dim %d%%", elapsed, st.Phase, st.State.Dimming)
			if st.Paused {
				line += "  [paused]"
			}
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil && len(line) > width {
				line = line[:width]
			}
			fmt.Printf("\r\033[K%s", line)
		}
	}
}
