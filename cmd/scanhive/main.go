// Command scanhive orchestrates external security scanners against a
// target URL, normalizes their findings, and serves results over
// HTTP, SSE/WebSocket streams, MCP, and rendered reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/scanhive/scanhive/pkg/config"
	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/engine"
	"github.com/scanhive/scanhive/pkg/events"
	"github.com/scanhive/scanhive/pkg/events/hooks"
	"github.com/scanhive/scanhive/pkg/history"
	"github.com/scanhive/scanhive/pkg/mcp"
	"github.com/scanhive/scanhive/pkg/probe"
	"github.com/scanhive/scanhive/pkg/server"
	"github.com/scanhive/scanhive/pkg/tools"
	"github.com/scanhive/scanhive/pkg/ui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(defaults.ExitUserError)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "scan":
		os.Exit(runScan(os.Args[2:]))
	case "report":
		os.Exit(runReport(os.Args[2:]))
	case "tools":
		os.Exit(runTools(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "-v", "--version", "version":
		ui.PrintMiniBanner()
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(defaults.ExitUserError)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s v%s - security scan orchestrator

Usage:
  scanhive serve   [flags]    Run the HTTP API server
  scanhive scan    [flags]    Run one scan from the terminal
  scanhive report  [flags]    Render a stored scan as a document
  scanhive tools   [flags]    List the scanner registry
  scanhive mcp     [flags]    Serve the Model Context Protocol on stdio
  scanhive version            Print version

Run 'scanhive <command> -h' for command flags.
`, defaults.ToolName, defaults.Version)
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSONLog {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// newRegistry builds the tool registry: built-ins plus any catalog
// overrides.
func newRegistry(cfg *config.Config) (*tools.Registry, error) {
	registry := tools.Default()
	if cfg.CatalogPath == "" {
		return registry, nil
	}
	catalog, err := tools.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if err := registry.Apply(catalog); err != nil {
		return nil, err
	}
	return registry, nil
}

// stack bundles everything the subcommands need around one engine.
type stack struct {
	cfg         *config.Config
	logger      *slog.Logger
	registry    *tools.Registry
	broadcaster *events.Broadcaster
	store       *history.Store
	engine      *engine.Engine
	prom        *hooks.PrometheusHook
	otel        *hooks.OTelHook
}

// newStack wires the engine with its hooks, history store, and
// preflight prober.
func newStack(cfg *config.Config, withLoggerHook bool) (*stack, error) {
	logger := newLogger(cfg)

	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}

	broadcaster := events.New(logger)
	if withLoggerHook {
		broadcaster.AttachHook(hooks.NewLoggerHook(logger))
	}

	st := &stack{cfg: cfg, logger: logger, registry: registry, broadcaster: broadcaster}

	if cfg.Metrics {
		prom, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{})
		if err != nil {
			return nil, err
		}
		broadcaster.AttachHook(prom)
		st.prom = prom
	}
	if cfg.OTLPEndpoint != "" {
		otel, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint: cfg.OTLPEndpoint,
			Insecure: true,
		})
		if err != nil {
			return nil, err
		}
		broadcaster.AttachHook(otel)
		st.otel = otel
	}

	store, err := history.NewStore(cfg.HistoryDir())
	if err != nil {
		return nil, err
	}
	st.store = store

	eng, err := engine.New(engine.Config{
		Registry:    registry,
		Broadcaster: broadcaster,
		Store:       store,
		Prober:      probe.New(),
		ArtifactDir: cfg.Artifacts(),
		WordlistDir: cfg.WordlistDir,
		Logger:      logger,
		MaxActive:   cfg.MaxActive,
	})
	if err != nil {
		return nil, err
	}
	st.engine = eng
	return st, nil
}

// close tears the stack down in reverse wiring order.
func (st *stack) close() {
	st.engine.Stop()
	if st.otel != nil {
		_ = st.otel.Close()
	}
	if st.prom != nil {
		_ = st.prom.Close()
	}
}

// parseConfig handles the shared flag/file plumbing for a subcommand.
func parseConfig(name string, args []string, extra func(*flag.FlagSet)) (*config.Config, *flag.FlagSet, error) {
	cfg := config.New()
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configFile := fs.String("config", "", "YAML config file")
	cfg.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if *configFile != "" {
		// File first, then re-apply flags so explicit flags win.
		fileCfg := config.New()
		if err := fileCfg.LoadFile(*configFile); err != nil {
			return nil, nil, err
		}
		*cfg = *fileCfg
		refs := flag.NewFlagSet(name, flag.ExitOnError)
		refs.String("config", "", "")
		cfg.RegisterFlags(refs)
		if extra != nil {
			extra(refs)
		}
		if err := refs.Parse(args); err != nil {
			return nil, nil, err
		}
		fs = refs
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	ui.SetNoColor(cfg.NoColor)
	return cfg, fs, nil
}

func runServe(args []string) int {
	cfg, _, err := parseConfig("serve", args, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}

	st, err := newStack(cfg, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}
	defer st.close()

	srvCfg := server.Config{
		Engine:          st.engine,
		Broadcaster:     st.broadcaster,
		Registry:        st.registry,
		History:         st.store,
		StartRatePerMin: cfg.StartRatePerMin,
		Logger:          st.logger,
	}
	if st.prom != nil {
		srvCfg.Metrics = st.prom.Handler()
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintBanner()
	st.logger.Info("api listening",
		slog.String("addr", cfg.Listen),
		slog.Int("tools", st.registry.Count()))

	if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
		st.logger.Error("server exited", slog.String("error", err.Error()))
		return defaults.ExitInternalError
	}
	return defaults.ExitSuccess
}

func runMCP(args []string) int {
	cfg, _, err := parseConfig("mcp", args, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}

	// stdio carries the protocol; everything of ours goes to stderr.
	st, err := newStack(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}
	defer st.close()

	mcpSrv, err := mcp.New(mcp.Config{
		Engine:   st.engine,
		Registry: st.registry,
		History:  st.store,
		Logger:   st.logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpSrv.RunStdio(ctx); err != nil && ctx.Err() == nil {
		st.logger.Error("mcp server exited", slog.String("error", err.Error()))
		return defaults.ExitInternalError
	}
	return defaults.ExitSuccess
}
