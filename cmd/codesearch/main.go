package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/codectx/codesearch-mcp/internal/config"
	"github.com/codectx/codesearch-mcp/internal/mcp"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "codesearch",
		Usage:   "MCP server for semantic code search over an OpenSearch index",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Load environment variables from this file before reading configuration",
			},
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "MCP transport: stdio or http",
				Value:   "stdio",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host for the http transport (overrides HOST)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port for the http transport (overrides PORT)",
			},
		},
		Action: serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	logger, err := newLogger(c.String("log-level"))
	if err != nil {
		return err
	}

	if envFile := c.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		// Best effort: a .env in the working directory is optional.
		_ = godotenv.Load()
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if host := c.String("host"); host != "" {
		cfg.Host = host
	}
	if port := c.Int("port"); port != 0 {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := mcp.NewServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	switch transport := c.String("transport"); transport {
	case "stdio":
		logger.Info("server starting", "transport", "stdio", "version", version)
		return srv.ServeStdio(ctx)
	case "http":
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		logger.Info("server starting", "transport", "http", "addr", addr, "version", version)
		return srv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unknown transport %q: must be stdio or http", transport)
	}
}

// newLogger builds a JSON slog logger on stderr. Stdout is reserved for
// the stdio MCP transport.
func newLogger(levelStr string) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger, nil
}
