package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vote-admin/config"
	"vote-admin/ledger"
)

var (
	// cfgFile is an optional config file layered under the environment.
	cfgFile string

	// logLevel overrides LOG_LEVEL when set.
	logLevel string

	settings *config.Settings
)

// dialSource opens the block source used by create and serve.
var dialSource = func(ctx context.Context, s *config.Settings) (ledger.BlockSource, func(), error) {
	src, err := ledger.DialRPCSource(ctx, s.LightwalletdURL, s.RPCTimeout)
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}

var rootCmd = &cobra.Command{
	Use:   "votectl",
	Short: "Create and export coin-weighted elections",
	Long: `votectl bootstraps elections: it generates the recovery phrase, derives
one candidate address per choice, downloads the election's block range and
computes the nullifier and commitment roots.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides LOG_LEVEL")
}

func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		s.LogLevel = level
	}

	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(s.LogLevel)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	settings = s
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
