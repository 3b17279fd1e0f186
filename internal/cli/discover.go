package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/guidoenr/wizsync/internal/wiz"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find WiZ bulbs on the local network",
	Long:  `Broadcasts a getPilot probe and lists every bulb that answers.`,
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 2*time.Second, "how long to wait for answers")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	bulbs, err := wiz.Discover(cmd.Context(), discoverTimeout)
	if err != nil {
		return err
	}
	if len(bulbs) == 0 {
		fmt.Println("no bulbs found")
		return nil
	}
	for _, b := range bulbs {
		state := "off"
		if b.On {
			state = "on"
		}
		fmt.Printf("%-16s %s  mac %s  scene %d\n", b.Addr, state, b.MAC, b.Scene)
	}
	fmt.Printf("\n%d bulb(s). Use them with --lights %s\n", len(bulbs), bulbs[0].Addr)
	return nil
}
