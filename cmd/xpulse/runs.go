package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"xpulse/internal/store"
	"xpulse/pkg/config"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived harvest runs",
	Long: `List past harvest runs from the SQLite archive, newest first.

Archiving must be enabled by setting output.sqlite_path (or XPULSE_SQLITE_PATH).`,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Output.SQLitePath == "" {
		return fmt.Errorf("archiving is disabled: set output.sqlite_path")
	}

	archive, err := store.Open(cfg.Output.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open run archive: %w", err)
	}
	defer archive.Close()

	runs, err := archive.Runs(context.Background(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("#%d  %s  %s..%s  keywords=%d posts=%d\n",
			r.ID, r.GeneratedAt.Format("2006-01-02 15:04"), r.From, r.To, r.Keywords, r.Posts)
	}
	return nil
}
