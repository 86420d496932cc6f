package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/snapsync/internal/config"
	"github.com/klauern/snapsync/internal/connectivity"
	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/status"
	"github.com/klauern/snapsync/internal/sync"
	"github.com/klauern/snapsync/internal/ui"
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (table, json); defaults to output.format from config",
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the replication status of a project",
		ArgsUsage: "<project>",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectID, err := projectArg(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			sess, err := runSession(ctx, cfg, func(ctx context.Context, s *session) error {
				if s.reconstruct(ctx) {
					s.orch.RefreshStatus(ctx, projectID)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printState(projectID, sess.orch.State(), outputFormat(cmd, cfg))
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Compare the local snapshot with the cloud and persist it",
		ArgsUsage: "<project>",
		Description: `Force a sync of one project. When both replicas changed the same
   field the conflicts are reported and nothing is written until a strategy
   is chosen with --strategy, sync.auto_resolve, or 'snapsync resolve'.

   Examples:
     snapsync sync my-project
     snapsync sync --strategy smart my-project`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Resolve conflicts immediately with this strategy (smart, prefer-local, prefer-remote)",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectID, err := projectArg(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			var strategy sync.Strategy
			switch {
			case cmd.String("strategy") != "":
				if strategy, err = parseStrategy(cmd.String("strategy")); err != nil {
					return err
				}
			case cfg.Sync.AutoResolve:
				strategy = cfg.GetStrategy()
			}

			sess, err := runSession(ctx, cfg, func(ctx context.Context, s *session) error {
				s.reconstruct(ctx)
				if err := s.orch.ForceSync(ctx, projectID); err != nil {
					return err
				}
				if strategy != "" && s.orch.State().Status == status.Conflict {
					logging.Info("resolving conflicts automatically",
						logging.Project(projectID), logging.Strategy(string(strategy)))
					return s.orch.ResolveConflict(ctx, strategy)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return finish(projectID, sess.orch.State(), outputFormat(cmd, cfg))
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a project's conflicts with a merge strategy",
		ArgsUsage: "<project>",
		Description: `Re-detect the conflicts of a project and merge them with the chosen
   strategy. prefer-local and prefer-remote discard data that exists only on
   the other replica; both sides are backed up first when backups are enabled.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Merge strategy (smart, prefer-local, prefer-remote); defaults to sync.default_strategy",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectID, err := projectArg(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			strategy := cfg.GetStrategy()
			if name := cmd.String("strategy"); name != "" {
				if strategy, err = parseStrategy(name); err != nil {
					return err
				}
			}

			resolved := false
			sess, err := runSession(ctx, cfg, func(ctx context.Context, s *session) error {
				s.reconstruct(ctx)
				if err := s.orch.ForceSync(ctx, projectID); err != nil {
					return err
				}
				if s.orch.State().Status != status.Conflict {
					return nil
				}
				resolved = true
				return s.orch.ResolveConflict(ctx, strategy)
			})
			if err != nil {
				return err
			}
			if !resolved {
				fmt.Println(ui.StatusSkipped("no conflicts to resolve"))
			}
			return finish(projectID, sess.orch.State(), outputFormat(cmd, cfg))
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch connectivity and sync a project whenever the cloud becomes reachable",
		ArgsUsage: "<project>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Probe interval; defaults to connectivity.interval",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectID, err := projectArg(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if d := cmd.Duration("interval"); d > 0 {
				cfg.Connectivity.Interval = d
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = runSession(ctx, cfg, func(ctx context.Context, s *session) error {
				return watch(ctx, s, projectID)
			})
			return err
		},
	}
}

// watch reports every state change and syncs projectID each time the remote
// becomes reachable, until ctx is cancelled.
func watch(ctx context.Context, s *session, projectID string) error {
	unsubscribe := s.orch.Subscribe(func(st sync.State) {
		line := fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), ui.StatusBadge(st.Status))
		if st.Reason != "" {
			line += " " + ui.Dim(st.Reason)
		}
		fmt.Println(line)
		if st.Status == status.Conflict && st.Conflict != nil {
			fmt.Println(ui.ConflictReport(st.Conflict, ui.TerminalWidth(os.Stdout, 100)))
		}
	})
	defer unsubscribe()

	w := connectivity.NewWatcher(s.transport.Ping, func(online bool) {
		s.orch.ConnectivityChanged(online)
		if !online {
			return
		}
		if err := s.orch.ForceSync(ctx, projectID); err != nil && !errors.Is(err, sync.ErrSyncInProgress) {
			logging.Warn("sync after reconnect failed", logging.Project(projectID), logging.Err(err))
		}
	},
		connectivity.WithInterval(s.cfg.Connectivity.Interval),
		connectivity.WithProbeTimeout(s.cfg.Connectivity.ProbeTimeout),
		connectivity.WithFailureThreshold(s.cfg.Connectivity.FailureThreshold),
	)

	fmt.Printf("Watching %s (every %s, Ctrl+C to stop)\n", projectID, s.cfg.Connectivity.Interval)
	w.Run(ctx)
	return nil
}

// runSession opens a session, runs fn and closes the session so pending
// pushes have settled before the caller reads the final state.
func runSession(ctx context.Context, cfg *config.Config, fn func(context.Context, *session) error) (*session, error) {
	sess, err := openSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runErr := fn(ctx, sess)
	closeErr := sess.Close()
	if runErr != nil {
		return sess, runErr
	}
	return sess, closeErr
}

// finish prints st and turns unresolved outcomes into an error.
func finish(projectID string, st sync.State, format string) error {
	if err := printState(projectID, st, format); err != nil {
		return err
	}
	switch st.Status {
	case status.Conflict:
		return fmt.Errorf("project %s has unresolved conflicts", projectID)
	case status.Error:
		return fmt.Errorf("sync of %s failed: %s", projectID, st.Reason)
	}
	return nil
}

func printState(projectID string, st sync.State, format string) error {
	if format == "json" {
		out := struct {
			ProjectID string `json:"projectId"`
			sync.State
		}{projectID, st}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s %s\n", ui.Bold(projectID), ui.StatusBadge(st.Status))
	if !st.LastSync.IsZero() {
		fmt.Printf("  last sync: %s\n", st.LastSync.Local().Format(time.RFC3339))
	}
	if st.Reason != "" {
		fmt.Printf("  reason: %s\n", st.Reason)
	}
	if st.Conflict != nil {
		fmt.Println()
		fmt.Println(ui.ConflictReport(st.Conflict, ui.TerminalWidth(os.Stdout, 100)))
	}
	return nil
}

func outputFormat(cmd *cli.Command, cfg *config.Config) string {
	if f := cmd.String("format"); f != "" {
		return f
	}
	return cfg.Output.Format
}

func projectArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s requires exactly 1 argument: <project>", cmd.Name)
	}
	return model.ParseProjectID(cmd.Args().First())
}

func parseStrategy(name string) (sync.Strategy, error) {
	strategy, err := sync.ParseStrategy(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", sync.ErrMalformedStrategy, err)
	}
	return strategy, nil
}
