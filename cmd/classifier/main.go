package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Brownie44l1/produce-classifier/internal/config"
	"github.com/Brownie44l1/produce-classifier/internal/cycle"
	"github.com/Brownie44l1/produce-classifier/internal/imageio"
	"github.com/Brownie44l1/produce-classifier/internal/model"
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type options struct {
	configPath string
	modelPath  string
	backend    string
	preprocess string
	cycles     int
	interval   time.Duration
	seed       uint64
	logLevel   string
	logFormat  string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("classifier", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
classifier - classify candidate images with a quantized model.

Usage:
  classifier [options]

Options:
`)
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to an HCL config file.")
	fs.StringVar(&opts.modelPath, "model", "", "Model file; overrides the config.")
	fs.StringVar(&opts.backend, "backend", "", "Inference backend; overrides the config. One of: "+strings.Join(backendNames(), ", "))
	fs.StringVar(&opts.preprocess, "preprocess", "", "Input preprocessing, 'raw' or 'decode'; overrides the config.")
	fs.IntVar(&opts.cycles, "cycles", 0, "Number of cycles to run. 0 runs until interrupted.")
	fs.DurationVar(&opts.interval, "interval", time.Second, "Pause between cycles.")
	fs.Uint64Var(&opts.seed, "seed", 0, "Seed for image selection; overrides the config. 0 keeps the config value.")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: 'debug', 'info', 'warn' or 'error'.")
	fs.StringVar(&opts.logFormat, "log-format", "text", "Log format: 'text' or 'json'.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %v", fs.Args())}
	}

	opts.logFormat = strings.ToLower(opts.logFormat)
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	opts.logLevel = strings.ToLower(opts.logLevel)
	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return opts, nil
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.modelPath != "" {
		cfg.Model.Path = opts.modelPath
	}
	if opts.backend != "" {
		cfg.Model.Backend = opts.backend
	}
	if opts.preprocess != "" {
		cfg.Preprocess = opts.preprocess
	}
	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}
	return cfg, cfg.Validate()
}

func newFiller(cfg *config.Config) imageio.Filler {
	if cfg.Preprocess == config.PreprocessDecode {
		return imageio.DecodeFiller{Layout: imageio.Layout(cfg.Layout)}
	}
	return imageio.RawFiller{}
}

// run wires config, backend, driver and loop, then cycles until ctx is done
// or the requested number of cycles has run.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	logger := newLogger(opts.logLevel, opts.logFormat, stderr)

	cfg, err := loadConfig(opts)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	newBackend, ok := backends[cfg.Model.Backend]
	if !ok {
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown backend %q, available: %s",
			cfg.Model.Backend, strings.Join(backendNames(), ", "))}
	}

	logger.Info("Loading model", "path", cfg.Model.Path, "backend", cfg.Model.Backend)
	modelData, err := os.ReadFile(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}

	driver := model.NewDriver(newBackend(cfg.Model, logger), cfg.Model.ArenaSize, logger)
	defer driver.Close()

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	loop := cycle.NewLoop(driver, cycle.Options{
		Images:             cfg.Images,
		Labels:             cfg.Labels,
		Probe:              *cfg.ProbeImages,
		InferencesPerCycle: cfg.InferencesPerCycle,
		Filler:             newFiller(cfg),
		Rand:               rand.New(rand.NewPCG(seed, seed)),
		Out:                stdout,
		Logger:             logger,
	})

	if err := loop.Setup(modelData); err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("setup failed: %v", err)}
	}

	md := driver.Metadata()
	logger.Info("Model loaded",
		"input_shape", md.InputShape,
		"output_shape", md.OutputShape,
		"arena_used", md.ArenaUsed,
		"arena_size", md.ArenaSize,
		"classes", cfg.Labels)

	done := loop.Run(ctx, opts.cycles, opts.interval)
	logger.Info("Stopped", "predictions", done)
	return nil
}
