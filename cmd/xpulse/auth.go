package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xpulse/pkg/accounts"
	"xpulse/pkg/config"
	"xpulse/pkg/logger"
	"xpulse/pkg/session"
	"xpulse/pkg/twitter"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage harvester account credentials",
	Long: `Manage the X/Twitter accounts used for harvesting.

Credentials are stored in the system keychain and used as a fallback when
neither the TWITTER_ACCOUNTS bundle nor the TWITTER_USERNAME triple is set.

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store account credentials in the system keychain",
	Long: `Store one account's credentials securely in the system keychain.

You will be prompted for:
  - Username (if not provided)
  - Email (optional, press Enter to skip)
  - Password (hidden as you type)`,
	Example: `  # Interactive login
  xpulse auth login

  # Login with username
  xpulse auth login myaccount`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Long:  `List all accounts stored in the system keychain, with passwords masked.`,
	RunE:  runAuthList,
}

// cookiesCmd represents the auth cookies command
var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Import session cookies from a logged-in browser",
	Long: `Paste the auth_token and ct0 cookies from a browser where you are already
logged in. The resulting session is persisted to the session state file so
later harvests skip the credential login entirely.`,
	RunE: runAuthCookies,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(cookiesCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	vault, err := accounts.NewVault()
	if err != nil {
		return fmt.Errorf("failed to open keychain: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		fmt.Print("Username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if _, err := vault.Retrieve(username); err == nil {
		fmt.Printf("Account '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("Email (optional): ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	password, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	cred := accounts.Credential{
		Label:    username,
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := vault.Store(cred); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Credentials stored for %s\n", username)
	fmt.Println("\nRun a harvest with:")
	fmt.Println("  $ xpulse run")
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	vault, err := accounts.NewVault()
	if err != nil {
		return fmt.Errorf("failed to open keychain: %w", err)
	}

	username := strings.TrimSpace(args[0])
	if err := vault.Delete(username); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	fmt.Printf("Account removed: %s\n", username)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	vault, err := accounts.NewVault()
	if err != nil {
		return fmt.Errorf("failed to open keychain: %w", err)
	}

	creds, err := vault.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(creds) == 0 {
		fmt.Println("No stored accounts. Use 'xpulse auth login' to add one.")
		return nil
	}

	fmt.Println("Stored accounts:")
	for i, cred := range creds {
		fmt.Printf("  %d. %s\n", i+1, cred.MaskedLabel())
		if cred.Email != "" {
			fmt.Printf("     Email: %s\n", cred.Email)
		}
	}
	return nil
}

func runAuthCookies(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	client := twitter.NewClient(cfg, log)
	prompt := &session.CookiePrompt{In: os.Stdin, Out: os.Stdout}
	if err := prompt.Authenticate(cmd.Context(), client); err != nil {
		return err
	}

	blob, err := client.SaveSession()
	if err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}

	fileStore, err := session.NewFileStore(cfg.Session.StateFile, cfg.Session.Passphrase)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if err := fileStore.Save(blob); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	fmt.Printf("Session saved to %s\n", cfg.Session.StateFile)
	return nil
}

// readPassword reads a password from stdin without echoing.
func readPassword(fallback *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	input, err := fallback.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
