package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/munin/internal"
	"github.com/starford/munin/internal/capture"
	"github.com/starford/munin/internal/consolidate"
	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/mcpserver"
	"github.com/starford/munin/internal/models"
	pkgconfig "github.com/starford/munin/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg)

	comp, err := internal.Build(cfg, logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()
	if err := index.Sync(db, comp.Store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(comp.Store, db, comp.Scanner, comp.Capture, comp.Matcher, comp.Semantic, comp.Consolidator, cfg.Dedup.Threshold)
	return srv.ServeStdio()
}

func runCapture(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg)

	comp, err := internal.Build(cfg, logger)
	if err != nil {
		return err
	}

	content := cmd.String("content")
	if content == "" {
		// Hooks pipe the knowledge body on stdin.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		content = string(data)
	}

	var tags []string
	for _, t := range strings.Split(cmd.String("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	result, err := comp.Capture.Capture(ctx, capture.Request{
		Title:    cmd.String("title"),
		Content:  content,
		Category: models.Category(cmd.String("category")),
		Tags:     tags,
	})
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(result)
}

func runConsolidate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg)

	comp, err := internal.Build(cfg, logger)
	if err != nil {
		return err
	}

	plan, err := comp.Consolidator.Plan(ctx, models.Category(cmd.String("category")))
	if err != nil {
		return err
	}

	if len(plan.Groups) == 0 {
		fmt.Println("nothing to consolidate")
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if cmd.Bool("dry-run") {
		return enc.Encode(plan)
	}

	var confirm func(consolidate.Group) bool
	if !cmd.Bool("yes") {
		reader := bufio.NewReader(os.Stdin)
		confirm = func(g consolidate.Group) bool {
			fmt.Printf("merge %d note(s) into %s", len(g.Sources), g.TargetPath)
			if g.GenericTitle != "" {
				fmt.Printf(" (rename to %q)", g.GenericTitle)
			}
			fmt.Print("? [y/N] ")
			line, _ := reader.ReadString('\n')
			return strings.EqualFold(strings.TrimSpace(line), "y")
		}
	}

	report, err := comp.Consolidator.Apply(ctx, plan, confirm)
	if report != nil {
		_ = enc.Encode(report)
	}
	return err
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("MUNIN_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "munin",
		Usage: "Session knowledge capture into a Markdown vault with topic deduplication",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, search index, and vault watcher",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: runMCP,
			},
			{
				Name:   "capture",
				Usage:  "Capture one knowledge item (content from --content or stdin)",
				Action: runCapture,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Topic title", Required: true},
					&cli.StringFlag{Name: "category", Usage: "Category (decisions, patterns, errors, research, knowledge)", Required: true},
					&cli.StringFlag{Name: "content", Usage: "Markdown content (stdin when empty)"},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
				},
			},
			{
				Name:   "consolidate",
				Usage:  "Merge near-duplicate notes",
				Action: runConsolidate,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Restrict to one category (empty runs the whole vault)"},
					&cli.BoolFlag{Name: "dry-run", Usage: "Print the plan without mutating anything"},
					&cli.BoolFlag{Name: "yes", Usage: "Apply every group without per-group confirmation"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
