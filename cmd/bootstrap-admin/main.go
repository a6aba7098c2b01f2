// Command bootstrap-admin creates the first administrator account, or
// promotes an existing account with the given email. Running it twice is
// harmless.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/mongostore"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var name, email, password string

	flagSet := pflag.NewFlagSet("bootstrap-admin", pflag.ContinueOnError)
	flagSet.StringVar(&name, "name", "Administrator", "display name for a newly created admin")
	flagSet.StringVar(&email, "email", "", "admin email (required)")
	flagSet.StringVar(&password, "password", "", "password for a newly created admin (default: $BOOTSTRAP_ADMIN_PASSWORD)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if email == "" {
		return errors.New("--email is required")
	}
	if password == "" {
		password = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	accounts := service.NewAccountService(cfg.Auth, service.AccountDependencies{
		Accounts: store.Accounts,
		Logger:   logger,
	})
	account, created, err := accounts.BootstrapAdmin(ctx, name, email, password)
	if err != nil {
		return err
	}

	verb := "promoted"
	if created {
		verb = "created"
	}
	fmt.Printf("%s admin %s (%s)\n", verb, account.Email, account.ID)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, m.DB); err != nil {
			return nil, nil, err
		}
		return mongostore.New(m.Client, m.DB, cfg.Mongo.Transactions), func() { m.Close(context.Background()) }, nil
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("store driver %q keeps no accounts between runs", cfg.Store.Driver)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Create or promote the first helpdesk administrator.

Uses the same STORE_DRIVER and connection settings as the API server.

Usage:
  bootstrap-admin --email admin@example.com [--name NAME] [--password PASSWORD]

Flags:
%s`, flagSet.FlagUsages())
}
