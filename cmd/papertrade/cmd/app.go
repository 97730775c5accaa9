package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/journal"
)

// loadConfig reads --config, or the defaults when it is empty.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

func openStore(cfg *config.Config) (journal.Store, error) {
	switch cfg.Journal.Type {
	case "memory":
		return journal.NewMemory(), nil
	default:
		s, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		return s, nil
	}
}

// bootstrapUsers creates the configured users that do not exist yet.
func bootstrapUsers(ctx context.Context, store journal.Users, users []config.UserConfig, log *zap.Logger) error {
	for _, u := range users {
		err := store.CreateUser(ctx, journal.User{
			Username: u.Username,
			Balance:  u.Balance,
			Active:   true,
			Role:     u.Role,
		}, u.Password)
		switch {
		case errors.Is(err, journal.ErrUserExists):
			continue
		case err != nil:
			return fmt.Errorf("create user %q: %w", u.Username, err)
		}
		log.Info("user created", zap.String("user", u.Username), zap.Float64("balance", u.Balance))
	}
	return nil
}
