package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/guidoenr/wizsync/internal/session"
	"github.com/guidoenr/wizsync/internal/source"
	"github.com/guidoenr/wizsync/internal/web"
)

var (
	rtDevice string
	rtServe  bool
	rtAddr   string
)

var realtimeCmd = &cobra.Command{
	Use:   "realtime",
	Short: "Light whatever is playing on this machine",
	Long: `Captures live audio (a loopback/monitor device when one exists) and
drives the bulbs continuously. There is no pre-pass; the lighting mode
switches on the fly as the music gets punchier or smoother.

Controls: space pauses, q quits.`,
	RunE: runRealtime,
}

func init() {
	realtimeCmd.Flags().StringVarP(&rtDevice, "device", "d", "", "input device name (substring match)")
	realtimeCmd.Flags().BoolVar(&rtServe, "serve", false, "run the pairing server")
	realtimeCmd.Flags().StringVar(&rtAddr, "addr", "", "pairing server address (overrides config)")
	rootCmd.AddCommand(realtimeCmd)
}

func runRealtime(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Lights) == 0 {
		return fmt.Errorf("no lights configured, pass --lights or set them in the config file")
	}
	if rtDevice != "" {
		cfg.Capture.Device = rtDevice
	}
	logger := newLogger(cfg)

	if err := source.InitAudio(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer source.TerminateAudio()

	capture, err := source.NewCapture(source.CaptureConfig{
		DeviceName: cfg.Capture.Device,
		WindowSize: cfg.Capture.WindowSize,
	})
	if err != nil {
		return err
	}
	defer capture.Close()
	fmt.Printf("capturing from %q at %d Hz\n", capture.DeviceName(), capture.SampleRate())

	sess, transport, err := session.NewWithTransport(cfg.SessionConfig(logger))
	if err != nil {
		return err
	}
	defer transport.Close()

	dj := session.NewAutoDJ(sess.Classifier())
	sess.SetTrack(dj.Profile())

	for _, addr := range cfg.Lights {
		if err := transport.SendPower(addr, true); err != nil {
			logger.Printf("power on %s: %v", addr, err)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if rtServe || cfg.Server.Enabled {
		addr := cfg.Server.Addr
		if rtAddr != "" {
			addr = rtAddr
		}
		srv := web.NewServer(sess, logger)
		go func() {
			if err := srv.Run(ctx, addr); err != nil {
				logger.Printf("pairing server: %v", err)
			}
		}()
		fmt.Printf("pairing server on http://%s\n", addr)
	}

	go feedCapture(ctx, sess, dj, capture, cfg.BlockSize, logger)
	go watchKeys(ctx, cancel, sess, nil)
	go progressLoop(ctx, sess)

	err = sess.Run(ctx)
	fmt.Println()
	if err == context.Canceled {
		return nil
	}
	return err
}

// feedCapture polls the capture ring at block cadence, feeds the session and
// lets the auto DJ flip the lighting mode when the music changes character.
func feedCapture(ctx context.Context, sess *session.Session, dj *session.AutoDJ, capture *source.Capture, blockSize int, logger *log.Logger) {
	interval := time.Duration(float64(blockSize) / float64(capture.SampleRate()) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b := capture.Latest()
			if len(b.Samples) == 0 {
				continue
			}
			if err := sess.Feed(b); err != nil {
				continue
			}
			feat, ok := sess.LatestFeature()
			if !ok {
				continue
			}
			if prof, switched := dj.Observe(feat); switched {
				logger.Printf("mode switch: %s (%s)", prof.Mode, prof.Reason)
				sess.SetTrack(prof)
			}
		}
	}
}
