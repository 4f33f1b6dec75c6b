// Command careerctl drives a career save from the shell.
//
// Usage:
//
//	careerctl advance demo-career --times 3
//	careerctl finalize demo-career m-000123
//	careerctl season-end demo-career --force
//	careerctl career-tick demo-career --ticks 2
//
// It reads the same environment as the API. With STORE_DRIVER=memory every
// run starts from a fresh demo save.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/career-engine/internal/app"
	"github.com/riskibarqy/career-engine/internal/config"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/usecase"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "careerctl",
		Short:         "Operate career saves: advance matchdays, finalize matches, roll seasons",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(advanceCmd())
	root.AddCommand(finalizeCmd())
	root.AddCommand(seasonEndCmd())
	root.AddCommand(careerTickCmd())
	return root
}

func advanceCmd() *cobra.Command {
	var times int
	cmd := &cobra.Command{
		Use:   "advance <game-id>",
		Short: "Advance the save to the user's next match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				for i := 0; i < times; i++ {
					result, err := c.Orchestrator.Advance(ctx, args[0])
					if err != nil {
						return err
					}
					if err := printJSON(cmd, result); err != nil {
						return err
					}
					if result.Status != usecase.AdvanceLiveMatch {
						return nil
					}
					// the live match must be settled before the next advance
					if err := c.Finalization.FinalizeMatch(ctx, args[0], result.MatchID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&times, "times", 1, "number of matchdays to advance; live matches are finalized in between")
	return cmd
}

func finalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <game-id> <match-id>",
		Short: "Apply the deferred effects of the user's live match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				if err := c.Finalization.FinalizeMatch(ctx, args[0], args[1]); err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"game_id": args[0], "match_id": args[1], "finalized": true})
			})
		},
	}
}

func seasonEndCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "season-end <game-id>",
		Short: "Close the season and prepare the next one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				data, err := c.SeasonEnd.Run(ctx, usecase.SeasonEndInput{GameID: args[0], Force: force})
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{
					"game_id":    data.GameID,
					"old_season": data.OldSeason,
					"new_season": data.NewSeason,
					"stages":     c.SeasonEnd.Stages(),
				})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-run a transition that stopped part way")
	return cmd
}

func careerTickCmd() *cobra.Command {
	var ticks int
	cmd := &cobra.Command{
		Use:   "career-tick <game-id>",
		Short: "Run background career ticks (transfers, loans, scouting, academy) now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				now := time.Now().UTC()
				result, err := c.Jobs.RunCareerActions(ctx, usecase.CareerActionJob{
					DispatchID: fmt.Sprintf("manual-careerctl-%s-%s", args[0], now.Format("20060102T150405.000000000Z")),
					GameID:     args[0],
					Ticks:      ticks,
					ClaimedAt:  now,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 1, "number of weekly ticks to run")
	return cmd
}

func withContainer(parent context.Context, fn func(ctx context.Context, c *app.Container) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewJSON(cfg.LogLevel).With("service", "careerctl")
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	rules, err := config.LoadRules(cfg.CareerRulesFile)
	if err != nil {
		return err
	}
	c, err := app.Build(ctx, cfg, rules, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("close app", "error", err)
		}
	}()

	return fn(ctx, c)
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return err
}
