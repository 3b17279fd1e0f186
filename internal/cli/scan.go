package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidoenr/wizsync/internal/profile"
	"github.com/guidoenr/wizsync/internal/session"
	"github.com/guidoenr/wizsync/internal/source"
)

var scanCmd = &cobra.Command{
	Use:   "scan <file>...",
	Short: "Classify tracks without driving any lights",
	Long: `Runs the pre-pass over each file and prints the lighting decision.
Useful for tuning thresholds against a music library.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	// No sender: the scan never touches the network.
	sess := session.New(cfg.SessionConfig(logger), nil)

	for _, path := range args {
		src, err := source.Open(path)
		if err != nil {
			return err
		}
		feats, err := sess.Scan(cmd.Context(), src)
		src.Close()
		if err != nil {
			return err
		}

		stats := sess.Classifier().Aggregate(feats)
		prof := sess.Classifier().Classify(feats)
		printDecision(path, stats, prof)
	}
	return nil
}

func printDecision(path string, stats profile.Stats, prof profile.TrackProfile) {
	fmt.Printf("%s\n", path)
	fmt.Printf("  mode:        %s\n", prof.Mode)
	fmt.Printf("  reason:      %s\n", prof.Reason)
	fmt.Printf("  sensitivity: %.2f\n", prof.Sensitivity)
	fmt.Printf("  smoothness:  %.2f\n", prof.Smoothness)
	fmt.Printf("  boost:       %.2f\n", prof.BrightnessBoost)
	fmt.Printf("  crest p85 %.2f  mean %.2f  var %.3f\n", stats.CrestHigh, stats.CrestMean, stats.CrestVariance)
	fmt.Printf("  bass %.3f  rms %.4f over %d blocks\n", stats.BassMean, stats.RMSMean, stats.Blocks)
}
