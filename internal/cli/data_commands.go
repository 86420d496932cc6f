package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/snapsync/internal/backup"
	"github.com/klauern/snapsync/internal/config"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/remote"
	"github.com/klauern/snapsync/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display or initialize configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Display format (yaml, toml)",
				Value: "yaml",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			var data []byte
			switch cmd.String("format") {
			case "toml":
				var buf bytes.Buffer
				if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
					return err
				}
				data = buf.Bytes()
			case "yaml":
				if data, err = yaml.Marshal(cfg); err != nil {
					return err
				}
			default:
				return fmt.Errorf("invalid format %q (valid: yaml, toml)", cmd.String("format"))
			}

			fmt.Printf("# %s\n", configPath(cmd))
			fmt.Print(string(data))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := configPath(cmd)
					if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
						return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
					}
					if err := config.Default().SaveToPath(path); err != nil {
						return fmt.Errorf("failed to write config: %w", err)
					}
					fmt.Println(ui.StatusSuccess("wrote " + path))
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "Print the config file location",
				Action: func(_ context.Context, cmd *cli.Command) error {
					fmt.Println(configPath(cmd))
					return nil
				},
			},
		},
	}
}

func configPath(cmd *cli.Command) string {
	if path := cmd.String("config"); path != "" {
		return path
	}
	return config.FilePath()
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the cloud replica server backed by SQLite",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; defaults to server.addr",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path; defaults to server.db_path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			addr := cfg.Server.Addr
			if v := cmd.String("addr"); v != "" {
				addr = v
			}
			dbPath := cfg.Server.DBPath
			if v := cmd.String("db"); v != "" {
				dbPath = v
			}

			repo, err := remote.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			var opts []remote.ServerOption
			if cfg.Server.Token != "" {
				opts = append(opts, remote.WithRequiredToken(cfg.Server.Token))
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Serving snapshots from %s on %s\n", dbPath, addr)
			return remote.NewServer(repo, opts...).ListenAndServe(ctx, addr)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace a project's local snapshot with a YAML or JSON document",
		ArgsUsage: "<project> <file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return errors.New("import requires exactly 2 arguments: <project> <file>")
			}
			projectID, err := model.ParseProjectID(args.Get(0))
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			snap, err := readSnapshot(args.Get(1))
			if err != nil {
				return err
			}
			assigned := snap.AssignMissingIDs()
			if snap.UpdatedAt.IsZero() {
				snap.UpdatedAt = time.Now().UTC()
			}
			if err := snap.Validate(); err != nil {
				return fmt.Errorf("invalid snapshot: %w", err)
			}

			local, err := openStore(cfg.Local)
			if err != nil {
				return err
			}
			defer func() { _ = local.Close() }()

			if err := local.Save(ctx, projectID, snap); err != nil {
				return fmt.Errorf("failed to save snapshot: %w", err)
			}

			msg := fmt.Sprintf("imported %d item(s) into %s", snap.ItemCount(), projectID)
			if assigned > 0 {
				msg += fmt.Sprintf(" (%d new id(s))", assigned)
			}
			fmt.Println(ui.StatusSuccess(msg))
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a project's local snapshot as YAML or JSON",
		ArgsUsage: "<project>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (yaml, json)",
				Value:   "yaml",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
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

			local, err := openStore(cfg.Local)
			if err != nil {
				return err
			}
			defer func() { _ = local.Close() }()

			snap, err := local.Load(ctx, projectID)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", projectID, err)
			}

			data, err := encodeSnapshot(snap, cmd.String("format"))
			if err != nil {
				return err
			}

			if out := cmd.String("output"); out != "" {
				// #nosec G306 - exported snapshots are user documents
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				fmt.Println(ui.StatusSuccess("exported " + projectID + " to " + out))
				return nil
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func readSnapshot(path string) (model.Snapshot, error) {
	// #nosec G304 - path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var snap model.Snapshot
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &snap)
	} else {
		err = yaml.Unmarshal(data, &snap)
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return snap, nil
}

func encodeSnapshot(snap model.Snapshot, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(snap)
	case "json":
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("invalid format %q (valid: yaml, json)", format)
	}
}

func backupsCommand() *cli.Command {
	return &cli.Command{
		Name:      "backups",
		Usage:     "List, restore or prune snapshot backups",
		ArgsUsage: "[project]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "restore",
				Usage: "Restore the backup with this ID as the project's local snapshot",
			},
			&cli.BoolFlag{
				Name:  "prune",
				Usage: "Remove backups beyond backup.max_backups or older than backup.max_age",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "With --prune, list what would be removed",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var projectID string
			if cmd.Args().Len() > 0 {
				id, err := model.ParseProjectID(cmd.Args().First())
				if err != nil {
					return err
				}
				projectID = id
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			backups := backup.NewStore(cfg.Backup.Location)

			switch {
			case cmd.String("restore") != "":
				if projectID == "" {
					return errors.New("--restore requires a <project> argument")
				}
				return restoreBackup(ctx, cfg, backups, projectID, cmd.String("restore"))
			case cmd.Bool("prune"):
				return pruneBackups(cfg, backups, projectID, cmd.Bool("dry-run"))
			default:
				return listBackups(backups, projectID)
			}
		},
	}
}

func listBackups(backups *backup.Store, projectID string) error {
	list, err := backups.List(projectID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	fmt.Printf("%-36s %-16s %-7s %-20s %-6s %s\n", "ID", "PROJECT", "SIDE", "CREATED", "ITEMS", "REASON")
	fmt.Printf("%-36s %-16s %-7s %-20s %-6s %s\n", "--", "-------", "----", "-------", "-----", "------")
	for _, b := range list {
		fmt.Printf("%-36s %-16s %-7s %-20s %-6d %s\n",
			b.ID, b.ProjectID, b.Side, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.Items, b.Reason)
	}
	return nil
}

func pruneBackups(cfg *config.Config, backups *backup.Store, projectID string, dryRun bool) error {
	opts := backup.DefaultCleanupOptions()
	opts.MaxBackups = cfg.Backup.MaxBackups
	opts.MaxAge = cfg.Backup.MaxAge
	opts.ProjectID = projectID
	opts.DryRun = dryRun

	removed, err := backups.Cleanup(opts)
	if err != nil {
		return err
	}
	verb := "removed"
	if dryRun {
		verb = "would remove"
	}
	for _, id := range removed {
		fmt.Printf("  %s %s\n", verb, id)
	}
	fmt.Println(ui.StatusSuccess(fmt.Sprintf("%s %d backup(s)", verb, len(removed))))
	return nil
}

func restoreBackup(ctx context.Context, cfg *config.Config, backups *backup.Store, projectID, backupID string) error {
	snap, err := backups.Load(backupID)
	if err != nil {
		return err
	}

	local, err := openStore(cfg.Local)
	if err != nil {
		return err
	}
	defer func() { _ = local.Close() }()

	if err := local.Save(ctx, projectID, snap); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	fmt.Println(ui.StatusSuccess(fmt.Sprintf("restored %s into %s; run `snapsync sync %s` to publish it", backupID, projectID, projectID)))
	return nil
}
