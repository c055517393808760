// Solace is a conversational life coaching agent.
//
// It serves a browser chat UI backed by an LLM provider (Gemini,
// OpenAI, Deepseek, or a local Ollama), remembers facts about the
// user across sessions, and can optionally read the user's Google
// Calendar and manage their Google Tasks.
//
// Usage:
//
//	solace serve             Start the web server
//	solace ask <message>     Run a single coaching exchange (for testing)
//	solace version           Print version and build information
//	solace -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nholloway/solace-agent/internal/buildinfo"
	"github.com/nholloway/solace-agent/internal/coach"
	"github.com/nholloway/solace-agent/internal/config"
	"github.com/nholloway/solace-agent/internal/google"
	"github.com/nholloway/solace-agent/internal/llm"
	"github.com/nholloway/solace-agent/internal/memory"
	"github.com/nholloway/solace-agent/internal/web"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main constructs the OS-level environment and delegates to run, so
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the solace command. Arguments are
// parsed by hand; the flag package's package-level globals make it
// awkward to call run concurrently from tests, and the argument
// surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: solace ask <message>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Solace - Conversational Life Coaching Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: solace [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the web server")
	fmt.Fprintln(w, "  ask          Run a single coaching exchange (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintf(w, "  %s\n", strings.Join(config.DefaultSearchPaths(), ", "))
	return nil
}

// loadConfig parses the YAML configuration. A missing config file is
// not fatal when no explicit path was given: defaults plus environment
// variables are enough to run against a local Ollama.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// runAsk boots a minimal coach with no archive or integrations and
// runs one exchange, printing the reply to stdout.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	client, err := llm.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	store, err := memory.NewFileStore(cfg.Memory.Dir, logger)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}

	opts := llm.Options{Temperature: cfg.Model.Temperature, MaxTokens: cfg.Model.MaxTokens}
	c := coach.New("cli", client, store, nil, nil, opts, logger)

	reply := c.Respond(ctx, strings.Join(args, " "))
	fmt.Fprintln(stdout, reply.Text)
	for _, insight := range reply.Insights {
		fmt.Fprintf(stdout, "  - %s\n", insight)
	}
	return nil
}

// runServe is the primary operating mode: load config, open storage,
// wire the coach's collaborators, and serve until SIGINT or SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Solace", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level and format are
	// known. Everything before this point logs at Info as text.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			if parsed, err := config.ParseLogLevel(cfg.LogLevel); err == nil {
				level = parsed
			} else {
				logger.Warn("invalid log_level, using info", "value", cfg.LogLevel)
			}
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Model.Name,
	)

	client, err := llm.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if ollama, ok := client.(*llm.OllamaClient); ok {
		if err := ollama.Ping(ctx); err != nil {
			logger.Warn("ollama is not reachable, replies will fail until it is", "error", err)
		}
	}

	store, err := memory.NewFileStore(cfg.Memory.Dir, logger)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	logger.Info("memory store opened", "dir", cfg.Memory.Dir)

	var archive *memory.Archive
	if cfg.Memory.ArchivePath != "" {
		archive, err = memory.OpenArchive(cfg.Memory.ArchivePath)
		if err != nil {
			return fmt.Errorf("open session archive %s: %w", cfg.Memory.ArchivePath, err)
		}
		defer archive.Close()
		logger.Info("session archive opened", "path", cfg.Memory.ArchivePath)
	}

	gm := google.NewManager(cfg.Google, cfg.Memory.Dir, logger)
	if gm != nil {
		logger.Info("google integration enabled", "authorized", gm.IsAuthorized())
	}

	server := web.NewServer(cfg, client, store, archive, gm, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Solace stopped")
	return nil
}

// newLogger creates a structured logger writing to w at the given
// level and format. Format must be "text" or "json"; anything else
// falls back to text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
