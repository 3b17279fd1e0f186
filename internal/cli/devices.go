package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidoenr/wizsync/internal/source"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `Lists every input device PortAudio can record from. Pick a
loopback/monitor device to light what the machine is playing.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	if err := source.InitAudio(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer source.TerminateAudio()

	devices, err := source.ListInputDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no input devices found")
		return nil
	}
	for _, d := range devices {
		mark := " "
		if d.IsDefault {
			mark = "*"
		}
		fmt.Printf("%s %-40s %s  %d ch  %.0f Hz\n", mark, d.Name, d.HostAPI, d.MaxInput, d.SampleRate)
	}
	return nil
}
