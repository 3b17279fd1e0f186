// Package cli wires the wizsync commands.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/guidoenr/wizsync/internal/config"
)

var (
	configFile string
	verbose    bool
	lights     []string
)

var rootCmd = &cobra.Command{
	Use:   "wizsync",
	Short: "Drive WiZ smart bulbs from music",
	Long: `wizsync analyzes audio in real time and turns it into lighting
commands for WiZ smart bulbs over the local network.

It classifies each track as punchy (spectrum pulse) or smooth
(spectrum gradient) and renders colors at a fixed cadence that the
bulbs can keep up with.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, viper.GetViper())
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/wizsync/wizsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringSliceVarP(&lights, "lights", "l", nil,
		"bulb addresses (repeatable or comma separated)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("lights", rootCmd.PersistentFlags().Lookup("lights"))
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "wizsync"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("wizsync")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WIZSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// bindFlags binds each cobra flag to its viper key so config file values
// fill in flags the user did not set.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the command logger. Quiet unless verbose is set.
func newLogger(cfg *config.Config) *log.Logger {
	out := io.Discard
	if cfg.Verbose {
		out = os.Stderr
	}
	return log.New(out, "wizsync ", log.Ltime)
}
