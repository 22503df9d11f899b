// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AccelByte/extend-completion-contest/internal/app"
	"github.com/AccelByte/extend-completion-contest/internal/config"
	"github.com/AccelByte/extend-completion-contest/pkg/challenge"
	"github.com/AccelByte/extend-completion-contest/pkg/common"
	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/datasync"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "contest",
		Short:         "Completion contest engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			common.ConfigureLogging(cfg.LogLevel)
			return cfg.Validate()
		},
	}

	root.AddCommand(
		newServeCommand(),
		newSyncCommand(),
		newMonthlyCommand(),
		newRecalcCommand(),
		newRollCommand(),
		newValueCommand(),
	)
	return root
}

// withApp runs fn against an initialized app and closes it afterwards.
// Interrupts cancel the context handed to fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC health, HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logrus.Infof("starting app server..")
			ctx := context.Background()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			if err := a.SetupServers(ctx); err != nil {
				a.Close()
				return err
			}
			return a.Run(ctx)
		},
	}
}

func newSyncCommand() *cobra.Command {
	var profileName string
	var playerID int64

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull completion records from the external source",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := datasync.ParseProfile(profileName)
			if err != nil {
				return err
			}
			if profile == contest.SyncProfileCustom {
				return fmt.Errorf("the custom profile is only available over the HTTP API")
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				st := a.Store()
				var players []contest.Player
				if playerID > 0 {
					p, err := st.Player(ctx, playerID)
					if err != nil {
						return err
					}
					players = []contest.Player{*p}
				} else {
					roster, err := st.Players(ctx)
					if err != nil {
						return err
					}
					players = datasync.SelectPlayers(profile, roster)
				}

				opts, err := datasync.ProfileOptions(profile, nowUTC(), nil)
				if err != nil {
					return err
				}
				run, err := a.Contest().Synchronizer.Sync(ctx, players, profile, opts)
				if err != nil {
					return err
				}
				return printJSON(run)
			})
		},
	}
	cmd.Flags().StringVar(&profileName, "profile", string(contest.SyncProfileLastMonthsCompleted), "sync profile: Full, LastMonthsCompleted or IncompleteOnly")
	cmd.Flags().Int64Var(&playerID, "player", 0, "sync only this player")
	return cmd
}

func newMonthlyCommand() *cobra.Command {
	var challengeNumber int

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Recompute one monthly challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				e, err := a.Contest().Month(challengeNumber)
				if err != nil {
					return err
				}
				players, err := a.Store().Players(ctx)
				if err != nil {
					return err
				}
				result, err := e.Evaluate(ctx, players)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().IntVar(&challengeNumber, "challenge", 0, "monthly challenge number")
	_ = cmd.MarkFlagRequired("challenge")
	return cmd
}

func newRecalcCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Rebuild the yearly leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				players, err := a.Store().Players(ctx)
				if err != nil {
					return err
				}
				stats, err := a.Contest().Aggregator.Recalculate(ctx, players)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
}

func newRollCommand() *cobra.Command {
	var req challenge.Request
	var reroll int

	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Issue, reroll or retry a random challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("reroll") {
				req.RerollGameID = &reroll
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				result, err := a.Contest().Assigner.Assign(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().Int64Var(&req.PlayerID, "player", 0, "player to roll for; 0 picks one outside the cooldown")
	cmd.Flags().IntVar(&reroll, "reroll", 0, "game id of the active challenge to reroll")
	cmd.Flags().BoolVar(&req.RetryPlaceholder, "retry", false, "retry the latest placeholder")
	return cmd
}

func newValueCommand() *cobra.Command {
	var platformName string
	var ratio, estimate float64

	cmd := &cobra.Command{
		Use:   "value",
		Short: "Compute the points value of a game",
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, ok := contest.ParsePlatform(platformName)
			if !ok {
				return fmt.Errorf("unknown platform %q", platformName)
			}
			rules, err := ruleset.LoadConfig(cfg.ContestConfigPath)
			if err != nil {
				return err
			}

			var ratioPtr, estimatePtr *float64
			if cmd.Flags().Changed("ratio") {
				ratioPtr = &ratio
			}
			if cmd.Flags().Changed("estimate") {
				estimatePtr = &estimate
			}
			value, ok := rules.Scorer().CalcBcmValue(platform, ratioPtr, estimatePtr)
			return printJSON(map[string]interface{}{"value": value, "ok": ok})
		},
	}
	cmd.Flags().StringVar(&platformName, "platform", string(contest.PlatformXboxOne), "platform slug or label")
	cmd.Flags().Float64Var(&ratio, "ratio", 0, "site ratio")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "full completion estimate in hours")
	return cmd
}
