package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"xpulse/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage xpulse configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.xpulse.yaml' unless
a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration left after merging every source. Credential
material is masked.`,
	RunE: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# xpulse configuration file
#
# Credentials are supplied through environment variables, never this file:
#   TWITTER_ACCOUNTS   JSON array of {label, username, email, password},
#                      raw or base64 encoded (takes precedence)
#   TWITTER_USERNAME / TWITTER_EMAIL / TWITTER_PASSWORD
#   TWITTER_COOKIES    base64 session blob used to seed the session store

search:
  # Keywords harvested in order
  keywords:
    - comarb
    - sifere
    - sircar
    - sirpei
    - sircreb
    - sircupa
    - sirtac

  # Search language filter
  language: "es"

  # Maximum posts collected per keyword
  max_per_keyword: 200

  # Pause between result pages
  page_pause: 3s

  # Pause between keywords
  keyword_pause: 30s

  # Pause between consecutive login attempts
  login_cooldown: 5s

rate_limit:
  requests_per_second: 1.0
  burst: 3

session:
  # Where the session cookies persist between runs
  state_file: "twitter_cookies.json"

output:
  # JSON report path
  data_file: "tweets_data.json"

  # Directory receiving the published report copy
  site_dir: "docs"

  # Optional SQLite archive of past runs (empty disables archiving)
  sqlite_path: ""

metrics:
  # Prometheus listen address (empty disables the endpoint)
  addr: ""

logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional, stdout only when empty)
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".xpulse.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	fmt.Printf("Created %s\n", configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	masked := *cfg
	masked.Accounts = config.AccountsConfig{
		Shuffle: cfg.Accounts.Shuffle,
	}
	if cfg.Accounts.Username != "" {
		masked.Accounts.Username = maskValue(cfg.Accounts.Username)
	}
	if cfg.Accounts.Bundle != "" {
		masked.Accounts.Bundle = "(set)"
	}
	masked.Session.CookiesB64 = maskValue(cfg.Session.CookiesB64)
	masked.Session.Passphrase = maskValue(cfg.Session.Passphrase)

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(configFile, nil); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	fmt.Println("Configuration is valid.")
	return nil
}

func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", 4) + v[len(v)-2:]
}
