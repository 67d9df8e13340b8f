package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shrdaa/backend/internal/config"
	"github.com/shrdaa/backend/internal/database"
	"github.com/shrdaa/backend/internal/identity"
	"github.com/shrdaa/backend/internal/logger"
	"github.com/shrdaa/backend/internal/services"
	"github.com/spf13/cobra"
)

const (
	programName = "shrdaa"
)

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

type appKey struct{}

// app is what PersistentPreRunE hands to every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func appFromContext(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey{}).(*app)
	if !ok {
		return nil, errors.New("no config found in context")
	}
	return a, nil
}

// openLedger opens the configured store and returns an initialized ledger.
// The returned func closes the store.
func openLedger(ctx context.Context, a *app) (*services.LedgerService, func(), error) {
	store, err := database.OpenStore(a.cfg.Storage, &a.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	hasher, err := identity.NewPasswordHasher(a.cfg.Security.PasswordScheme, a.cfg.Security.Argon2)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	ledger := services.NewLedgerService(store, services.LedgerOptions{
		Hasher:                    hasher,
		Argon2:                    a.cfg.Security.Argon2,
		DefaultBalanceGovtOfficer: a.cfg.Ledger.DefaultBalanceGovtOfficer,
		DefaultBalanceBeneficiary: a.cfg.Ledger.DefaultBalanceBeneficiary,
		Logger:                    a.logger,
	})

	if err := ledger.Init(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	return ledger, func() { store.Close() }, nil
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Single-writer, hash-chained fund-trail ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Log.Level
		if globalFlags.debug {
			level = "DEBUG"
		}
		log, err := logger.NewStderrLogger(level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		slog.SetDefault(log)

		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{cfg: cfg, logger: log}))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(initCommand())
	rootCmd.AddCommand(accountCommand())
	rootCmd.AddCommand(projectCommand())
	rootCmd.AddCommand(transferCommand())
	rootCmd.AddCommand(verifyCommand())
	rootCmd.AddCommand(verifyChainCommand())
	rootCmd.AddCommand(projectsCommand())
	rootCmd.AddCommand(ledgerCommand())

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
