package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cuecast.ai/internal/logging"
	"cuecast.ai/internal/names"
	"cuecast.ai/internal/tuning"
)

var (
	verbose    bool
	configPath string
	namesPath  string
	framesPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cuecast-replay",
	Short: "Re-run recorded frames through the cue engine",
	Long: `Reads frames-*.jsonl.zst recordings written by "cuecast-server serve --record"
and runs them through the cue engine again, starting from an empty virtual
selection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		// Logs go to stderr; stdout carries overlay documents.
		logger, err = logging.New(logging.Options{Level: "warn", Verbose: verbose, Component: "replay"})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/tuning.yaml", "path to tuning.yaml")
	rootCmd.PersistentFlags().StringVar(&namesPath, "names", "", "display-name table (JSON)")
	rootCmd.PersistentFlags().StringVar(&framesPath, "frames", "", "recording directory or single .jsonl[.zst] file")
	_ = rootCmd.MarkPersistentFlagRequired("frames")

	rootCmd.AddCommand(runCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadEngineInputs() (tuning.Tuning, *names.Resolver, error) {
	tune, err := tuning.Load(configPath)
	if err != nil {
		return tune, nil, fmt.Errorf("load tuning: %w", err)
	}
	var table names.Table
	if namesPath != "" {
		table, err = names.LoadJSON(namesPath)
		if err != nil {
			return tune, nil, fmt.Errorf("load names: %w", err)
		}
	}
	return tune, names.NewResolver(table, tune.Names.Lang, tune.Names.Suffixes), nil
}
