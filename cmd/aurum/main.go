package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aurum/internal/app"
	"aurum/internal/config"
	"aurum/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run (e.g.
// "backup.create", "restore").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	actor, _ := cmd.Flags().GetString("actor")
	a, err := app.New(cfg, operation, actor)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
// When confirm is true, the passphrase is read twice and must match.
func promptPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if !confirm {
		return string(first), nil
	}

	fmt.Fprint(os.Stderr, "Confirm passphrase: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passphrases do not match")
	}
	return string(first), nil
}

var rootCmd = &cobra.Command{
	Use:   "aurum",
	Short: "Jewelry store point-of-sale backup and audit tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s\n", cfg.Database.Path)
		fmt.Printf("Backup Dir: %s\n", cfg.Backup.Dir)
		fmt.Printf("Retention:  %d\n", cfg.Backup.MaxBackups)
		fmt.Printf("Interval:   %s\n", cfg.Backup.Interval)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Vaults:     %d\n", len(cfg.Vaults))
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the artifact sealing key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config.keys")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.SealingConfigured() {
			return fmt.Errorf("keys already exist; refusing to overwrite")
		}

		passphrase, err := promptPassphrase(true)
		if err != nil {
			return err
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Sealing key pair generated.")
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		if err := st.Migrate(); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the backup scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "run")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sup := app.NewSupervisor(a)
		err = sup.Serve(ctx)
		if err != nil && ctx.Err() != nil {
			// Normal shutdown via signal.
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("actor", "", "Actor recorded in the audit trail (default: OS user)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}
