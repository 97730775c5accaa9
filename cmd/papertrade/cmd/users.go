package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage trading accounts",
	Long: `Manage the login accounts stored in the journal.

Subcommands:
  add - Create a user with a starting balance

Examples:
  papertrade users add alice --password s3cret --balance 250000`,
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var (
	usersPassword string
	usersBalance  float64
	usersRole     string
	usersInactive bool
)

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersAddCmd)

	usersAddCmd.Flags().StringVarP(&usersPassword, "password", "p", "", "password (required)")
	usersAddCmd.Flags().Float64VarP(&usersBalance, "balance", "b", 100000, "starting balance")
	usersAddCmd.Flags().StringVar(&usersRole, "role", journal.DefaultRole, "role")
	usersAddCmd.Flags().BoolVar(&usersInactive, "inactive", false, "create the account disabled")
	usersAddCmd.MarkFlagRequired("password")
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Type != "sqlite" {
		return fmt.Errorf("users add needs a sqlite journal, config has %q", cfg.Journal.Type)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	u := journal.User{
		Username: args[0],
		Balance:  usersBalance,
		Active:   !usersInactive,
		Role:     usersRole,
	}
	if err := store.CreateUser(context.Background(), u, usersPassword); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("✓ Created user %s (balance %.2f, role %s)\n", u.Username, u.Balance, u.Role)
	return nil
}
