package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/curator/internal"
	"github.com/starford/curator/internal/analyzer"
	"github.com/starford/curator/internal/quality"
	pkgconfig "github.com/starford/curator/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

// oneShot opens the vault, runs fn and closes it again. CLI logs go to stderr
// so stdout carries only the result.
func oneShot(fn func(ctx context.Context, cmd *cli.Command, cur *internal.Curator) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cur, err := internal.Open(cfg, internal.NewLogger(os.Stderr, cfg.App.LogLevel), nil)
		if err != nil {
			return err
		}
		defer cur.Close()
		return fn(ctx, cmd, cur)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyze(ctx context.Context, _ *cli.Command, cur *internal.Curator) error {
	run, err := cur.Service.Analyze(ctx, analyzer.TriggerManual)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, run)
}

func orphans(ctx context.Context, _ *cli.Command, cur *internal.Curator) error {
	refs, err := cur.Service.Orphans(ctx)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, refs)
}

func brokenLinks(ctx context.Context, _ *cli.Command, cur *internal.Curator) error {
	rep, err := cur.Service.BrokenLinks(ctx)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, rep)
}

func checkQuality(ctx context.Context, cmd *cli.Command, cur *internal.Curator) error {
	if path := cmd.Args().First(); path != "" {
		rep, err := cur.Service.Quality(ctx, path)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, rep)
	}
	sum, err := cur.Service.QualityReport(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(os.Stdout, sum)
	}
	return quality.RenderReport(os.Stdout, sum, cur.Service.VaultName(), time.Now())
}

func related(ctx context.Context, cmd *cli.Command, cur *internal.Curator) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("related: note path is required")
	}
	if cmd.Bool("append") {
		added, err := cur.Service.AppendRelated(ctx, path)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, map[string]any{"path": path, "added": added})
	}
	sugs, err := cur.Service.Related(ctx, path)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, sugs)
}

func checkInvariants(ctx context.Context, cmd *cli.Command, cur *internal.Curator) error {
	path := cmd.Args().First()
	if path == "" {
		invs, err := cur.Service.Invariants(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, invs)
	}
	res, err := cur.Service.CheckInvariants(ctx, path)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, res)
}

func weeklySummary(ctx context.Context, _ *cli.Command, cur *internal.Curator) error {
	file, weekly, err := cur.Service.WeeklySummary(ctx)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, map[string]any{"file": file, "summary": weekly})
}

func main() {
	cmd := &cli.Command{
		Name:    "curator",
		Usage:   "Quality, link and improvement tooling for a Markdown knowledge vault",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("CURATOR_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, vault watcher and daily scheduler",
				Action: serve,
			},
			{
				Name:   "analyze",
				Usage:  "Run the improvement analysis once and record it in the activity log",
				Action: oneShot(analyze),
			},
			{
				Name:   "orphans",
				Usage:  "List isolated notes",
				Action: oneShot(orphans),
			},
			{
				Name:   "broken-links",
				Usage:  "List broken wiki-links by category",
				Action: oneShot(brokenLinks),
			},
			{
				Name:      "quality",
				Usage:     "Score one note, or write the vault quality report",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the vault summary as JSON"},
				},
				Action: oneShot(checkQuality),
			},
			{
				Name:      "related",
				Usage:     "Suggest related notes",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "append", Usage: "Append the suggestions to the note"},
				},
				Action: oneShot(related),
			},
			{
				Name:      "invariants",
				Usage:     "List invariants, or check a note against them",
				ArgsUsage: "[path]",
				Action:    oneShot(checkInvariants),
			},
			{
				Name:   "summary",
				Usage:  "Write last week's summary note",
				Action: oneShot(weeklySummary),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
