// Package main is the entry point for the gridstorm demo host. It wires the
// trusted core and an in-process extension side over a pipe boundary, loads
// Lua extensions, and serves read/write commands against the registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/dshills/gridstorm/internal/bridge"
	"github.com/dshills/gridstorm/internal/cell"
	"github.com/dshills/gridstorm/internal/config"
	"github.com/dshills/gridstorm/internal/event"
	"github.com/dshills/gridstorm/internal/extension"
	"github.com/dshills/gridstorm/internal/logging"
	"github.com/dshills/gridstorm/internal/provider/memory"
	"github.com/dshills/gridstorm/internal/registry"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// sampleResource is the resource the demo memory provider serves.
const sampleResource = cell.ResourceID("mem:///sample")

type options struct {
	configPath    string
	extensionsDir string
	logLevel      string
	development   bool
	args          []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}
	if opts.extensionsDir != "" {
		cfg.Extensions.Dir = opts.extensionsDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.development {
		cfg.Logging.Development = true
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: creating logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := event.NewBus()
	bus.Subscribe(func(e event.Event) {
		log.Info("registry event",
			zap.String("type", string(e.Type)),
			zap.String("owner", e.Owner),
			zap.Int("providers", e.Providers))
	})

	reg := registry.New(registry.WithLogger(log), registry.WithBus(bus))
	defer reg.Dispose()

	// In-process boundary: the extension side lives in this process but
	// talks to the core only through the framed transport.
	hostRead, clientWrite := io.Pipe()
	clientRead, hostWrite := io.Pipe()

	frame := bridge.WithMaxFrame(cfg.Boundary.MaxFrameBytes)
	hostT := bridge.NewTransport(hostRead, hostWrite, pipeCloser{hostRead, hostWrite},
		bridge.WithTransportLogger(log.Named("host")), frame)
	clientT := bridge.NewTransport(clientRead, clientWrite, pipeCloser{clientRead, clientWrite},
		bridge.WithTransportLogger(log.Named("client")), frame)
	defer hostT.Close()
	defer clientT.Close()

	hostT.Start(ctx)
	clientT.Start(ctx)

	host := bridge.NewHost(hostT, reg, bridge.WithHostLogger(log))
	defer host.Dispose()
	client := bridge.NewClient(clientT, bridge.WithClientLogger(log))

	// Local fallback provider, consulted after every extension.
	mem := memory.New()
	mem.AddResource(sampleResource, 8, 8)
	mem.Seed(sampleResource,
		cell.Unit{Address: cell.Address{Row: 0, Col: 0}, Value: cell.StringValue("Name")},
		cell.Unit{Address: cell.Address{Row: 0, Col: 1}, Value: cell.StringValue("Total")},
		cell.Unit{Address: cell.Address{Row: 1, Col: 0}, Value: cell.StringValue("widgets")},
		cell.Unit{Address: cell.Address{Row: 1, Col: 1}, Value: cell.Number(41.5)},
	)
	reg.RegisterOwned(mem, "core.memory")

	loader := extension.NewLoader(
		extension.WithLoaderLogger(log),
		extension.WithHostOptions(
			extension.WithExecutionTimeout(cfg.Extensions.Timeout()),
			extension.WithHostLogger(log)))
	hosts, err := loader.LoadAll(ctx, cfg.Extensions.Dir, client)
	if err != nil {
		log.Warn("some extensions failed to load", zap.Error(err))
	}
	defer func() {
		for _, h := range hosts {
			_ = h.Unload(context.Background())
		}
	}()
	log.Info("extensions active", zap.Int("count", len(hosts)))

	if opts.configPath != "" {
		w, err := config.Watch(opts.configPath, func(path string) {
			log.Info("config file changed, restart to apply", zap.String("path", path))
		}, config.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config watch unavailable", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	if err := dispatch(ctx, reg, cfg, opts.args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// dispatch runs the requested command against the registry.
func dispatch(ctx context.Context, reg *registry.Registry, cfg config.Config, args []string) error {
	command := "demo"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "read":
		if len(args) != 2 {
			return fmt.Errorf("usage: read <resource> <address>")
		}
		addr, err := cell.ParseAddress(args[1])
		if err != nil {
			return err
		}
		return readCell(ctx, reg, cfg, cell.ResourceID(args[0]), addr)

	case "write":
		if len(args) != 3 {
			return fmt.Errorf("usage: write <resource> <address> <value>")
		}
		addr, err := cell.ParseAddress(args[1])
		if err != nil {
			return err
		}
		return writeCell(ctx, reg, cfg, cell.ResourceID(args[0]), cell.Unit{
			Address: addr,
			Value:   parseValue(args[2]),
		})

	case "demo":
		return runDemo(ctx, reg, cfg)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func readCell(ctx context.Context, reg *registry.Registry, cfg config.Config, res cell.ResourceID, addr cell.Address) error {
	callCtx, cancel := context.WithTimeout(ctx, cfg.Boundary.Timeout())
	defer cancel()

	unit, err := reg.Read(callCtx, res, addr)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s = %s\n", res, addr, unit.Value)
	return nil
}

func writeCell(ctx context.Context, reg *registry.Registry, cfg config.Config, res cell.ResourceID, unit cell.Unit) error {
	callCtx, cancel := context.WithTimeout(ctx, cfg.Boundary.Timeout())
	defer cancel()

	if err := reg.Write(callCtx, res, unit); err != nil {
		return err
	}
	fmt.Printf("%s %s <- %s\n", res, unit.Address, unit.Value)
	return nil
}

// runDemo walks the seeded sample grid and performs a write/read pair.
func runDemo(ctx context.Context, reg *registry.Registry, cfg config.Config) error {
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			if err := readCell(ctx, reg, cfg, sampleResource, cell.Address{Row: row, Col: col}); err != nil {
				return err
			}
		}
	}

	unit := cell.Unit{Address: cell.Address{Row: 2, Col: 1}, Value: cell.Number(100)}
	if err := writeCell(ctx, reg, cfg, sampleResource, unit); err != nil {
		return err
	}
	return readCell(ctx, reg, cfg, sampleResource, unit.Address)
}

// parseValue interprets a command-line cell value: bool, number, or string.
func parseValue(s string) cell.Value {
	switch s {
	case "true":
		return cell.Bool(true)
	case "false":
		return cell.Bool(false)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return cell.Number(n)
	}
	return cell.StringValue(s)
}

// pipeCloser closes both halves of an in-process pipe.
type pipeCloser struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p pipeCloser) Close() error {
	p.r.Close()
	return p.w.Close()
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file (TOML or YAML)")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.extensionsDir, "extensions", "", "Extension directory (overrides config)")
	flag.StringVar(&opts.extensionsDir, "e", "", "Extension directory (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.development, "dev", false, "Enable development logging")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Gridstorm - extension host for grid-shaped documents\n\n")
		fmt.Fprintf(os.Stderr, "Usage: gridstorm [options] [command]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  demo                                 Exercise the seeded sample grid (default)\n")
		fmt.Fprintf(os.Stderr, "  read <resource> <address>            Read one cell, e.g. read mem:///sample R0C0\n")
		fmt.Fprintf(os.Stderr, "  write <resource> <address> <value>   Write one cell\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Printf("Gridstorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.args = flag.Args()
	return opts
}
