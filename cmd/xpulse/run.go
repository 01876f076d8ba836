package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xpulse/internal/store"
	"xpulse/pkg/accounts"
	"xpulse/pkg/config"
	"xpulse/pkg/harvest"
	"xpulse/pkg/logger"
	"xpulse/pkg/metrics"
	"xpulse/pkg/models"
	"xpulse/pkg/report"
	"xpulse/pkg/sentiment"
	"xpulse/pkg/session"
	"xpulse/pkg/twitter"
)

var (
	// Run command flags
	runKeywords      []string
	runMaxPerKeyword int
	runDataFile      string
	runSiteDir       string
	runNoShuffle     bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvest all configured keywords and write the report",
	Long: `Run one full harvest: authenticate (restoring a persisted session when
possible), search every configured keyword, score each post, and write the
aggregated JSON report.

Credentials are resolved in order from:
  - TWITTER_ACCOUNTS bundle (raw or base64 JSON array)
  - TWITTER_USERNAME / TWITTER_EMAIL / TWITTER_PASSWORD
  - Accounts stored in the system keychain ('xpulse auth login')

If no credential produces a session you will be prompted to paste browser
cookies.`,
	Example: `  # Harvest with configured defaults
  xpulse run

  # Harvest two specific keywords
  xpulse run --keywords comarb,sifere

  # Cap collection and write elsewhere
  xpulse run --max-per-keyword 50 --data-file /tmp/report.json`,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&runKeywords, "keywords", "k", nil, "keywords to harvest (overrides configuration)")
	runCmd.Flags().IntVar(&runMaxPerKeyword, "max-per-keyword", 0, "maximum posts collected per keyword")
	runCmd.Flags().StringVar(&runDataFile, "data-file", "", "path of the JSON report")
	runCmd.Flags().StringVar(&runSiteDir, "site-dir", "", "directory receiving the published report copy")
	runCmd.Flags().BoolVar(&runNoShuffle, "no-shuffle", false, "disable the account pool shuffle")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if len(runKeywords) > 0 {
		flags["keywords"] = runKeywords
	}
	if runMaxPerKeyword > 0 {
		flags["max-per-keyword"] = runMaxPerKeyword
	}
	if runDataFile != "" {
		flags["data-file"] = runDataFile
	}
	if runSiteDir != "" {
		flags["site-dir"] = runSiteDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if runNoShuffle {
		cfg.Accounts.Shuffle = false
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("xpulse starting")

	pool, err := buildPool(cfg, log)
	if err != nil {
		return err
	}

	sessionStore, err := session.NewFileStore(cfg.Session.StateFile, cfg.Session.Passphrase)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if err := session.SeedFromSecret(sessionStore, cfg.Session.CookiesB64); err != nil {
		log.WithError(err).Warn("failed to seed session from secret")
	}

	dial := func() session.Client { return twitter.NewClient(cfg, log) }
	manager := session.NewManager(pool, sessionStore, dial,
		session.WithCooldown(cfg.Search.LoginCooldown),
		session.WithLogger(log),
		session.WithInteractive(&session.CookiePrompt{In: os.Stdin, Out: os.Stdout}),
	)

	metrics.StartServer(cfg.Metrics.Addr, log)

	controller := harvest.NewController(cfg, manager, sentiment.NewScorer(nil),
		harvest.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := controller.Run(ctx)
	if result != nil && len(result.Keywords) > 0 {
		writer := report.NewWriter(&cfg.Output, log)
		if err := writer.Write(result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		// The archive still runs after an interrupt, so partial results land.
		archiveRun(context.Background(), cfg, result, log)
	}
	if runErr != nil {
		return fmt.Errorf("harvest failed: %w", runErr)
	}

	log.WithField("keywords", len(result.Keywords)).Info("harvest completed")
	return nil
}

func buildPool(cfg *config.Config, log logger.Logger) (*accounts.Pool, error) {
	var fallback []accounts.Credential
	if vault, err := accounts.NewVault(); err == nil {
		if stored, err := vault.List(); err == nil {
			fallback = stored
		}
	}

	pool, err := accounts.Load(&cfg.Accounts, accounts.WithFallback(fallback))
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	if !pool.HasAny() {
		log.Warn("no credentials configured, relying on persisted session or cookie prompt")
	} else {
		log.WithField("accounts", pool.Size()).Info("account pool loaded")
	}
	return pool, nil
}

func archiveRun(ctx context.Context, cfg *config.Config, result *models.Report, log logger.Logger) {
	if cfg.Output.SQLitePath == "" {
		return
	}
	archive, err := store.Open(cfg.Output.SQLitePath)
	if err != nil {
		log.WithError(err).Warn("failed to open run archive")
		return
	}
	defer archive.Close()

	runID, err := archive.Archive(ctx, result)
	if err != nil {
		log.WithError(err).Warn("failed to archive run")
		return
	}
	log.WithFields(map[string]interface{}{
		"run_id": runID,
		"path":   cfg.Output.SQLitePath,
	}).Info("run archived")
}
