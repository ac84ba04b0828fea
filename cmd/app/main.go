package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/routetree/internal"
	pkgconfig "github.com/starford/routetree/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{internal.WithConfig(cfg)}
	if loaded {
		opts = append(opts, internal.WithConfigPath(configPath))
	} else {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return opts, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}

	return nil
}

func importRoutes(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: routetree import <file.yaml>")
	}

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	res, err := internal.RunImport(ctx, path, opts...)
	if res != nil {
		for _, r := range res.Created {
			fmt.Printf("%d\t%s\n", r.ID, r)
		}
	}
	if err != nil {
		return fmt.Errorf("import error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "routetree",
		Usage:  "Airport route tree with reachability and duration queries over REST, SSE and MCP",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve route tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "import",
				Usage:     "Import routes from a YAML seed file",
				ArgsUsage: "<file.yaml>",
				Action:    importRoutes,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
