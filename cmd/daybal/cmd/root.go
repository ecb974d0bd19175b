package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Dan9191/daybal/cmd/setup"
	"github.com/Dan9191/daybal/internal/gate"
	"github.com/Dan9191/daybal/internal/service"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "daybal",
	Short:        "Operator tasks for the daily balance service",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

const (
	flagMonthsAgo = "months-ago"
	flagThrough   = "through"
)

func init() {
	rootCmd.AddCommand(recordCmd, backfillCmd, compareCmd, migrateCmd, hashPINCmd)

	backfillCmd.Flags().IntP(flagMonthsAgo, "m", 0, "month offset from the current month")
	backfillCmd.Flags().Bool(flagThrough, false, "backfill every month from the current one back to --months-ago")
}

var (
	recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Record today's live balance",
		RunE: func(ccmd *cobra.Command, _ []string) error {
			return withSetup(ccmd, func(ctx context.Context, s *setup.Setup) error {
				return report(ccmd, s.Service.RecordToday(ctx))
			})
		},
	}

	backfillCmd = &cobra.Command{
		Use:     "backfill",
		Short:   "Reconstruct daily balances for a past month",
		Example: "daybal backfill -m 3 --through",
		RunE:    runBackfill,
	}

	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Print today's balance against the stored history",
		RunE: func(ccmd *cobra.Command, _ []string) error {
			return withSetup(ccmd, func(ctx context.Context, s *setup.Setup) error {
				data, step, err := s.Service.Comparison(ctx)
				if err != nil {
					return fmt.Errorf("%s step failed: %w", step, err)
				}
				return printJSON(ccmd, data)
			})
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(ccmd *cobra.Command, _ []string) error {
			// setup applies the schema on connect
			return withSetup(ccmd, func(_ context.Context, s *setup.Setup) error {
				s.Logger.Info("Schema is up to date")
				return nil
			})
		},
	}

	hashPINCmd = &cobra.Command{
		Use:   "hash-pin PIN",
		Short: "Print a bcrypt hash for APP_PIN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(ccmd *cobra.Command, args []string) error {
			hash, err := gate.HashPIN(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(ccmd.OutOrStdout(), string(hash))
			return nil
		},
	}
)

func runBackfill(ccmd *cobra.Command, _ []string) error {
	monthsAgo, _ := ccmd.Flags().GetInt(flagMonthsAgo)
	through, _ := ccmd.Flags().GetBool(flagThrough)

	return withSetup(ccmd, func(ctx context.Context, s *setup.Setup) error {
		if !through {
			return report(ccmd, s.Service.Backfill(ctx, monthsAgo))
		}
		// oldest last so a failing month still leaves recent data in place
		for n := 0; n <= monthsAgo; n++ {
			if err := report(ccmd, s.Service.Backfill(ctx, n)); err != nil {
				return err
			}
		}
		return nil
	})
}

func withSetup(ccmd *cobra.Command, fn func(ctx context.Context, s *setup.Setup) error) error {
	ctx := ccmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := setup.Init(ctx, setup.NewLogger())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// report prints a run result and turns a real failure into an error
func report(ccmd *cobra.Command, res *service.RunResult) error {
	if err := printJSON(ccmd, res); err != nil {
		return err
	}
	if !res.Success && !res.NothingToDo {
		return fmt.Errorf("%s step failed: %s", res.Step, res.Error)
	}
	return nil
}

func printJSON(ccmd *cobra.Command, v any) error {
	enc := json.NewEncoder(ccmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
