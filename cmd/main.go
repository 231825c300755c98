package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/vitalgen/internal/adapters/sink"
	service "github.com/okian/vitalgen/internal/app"
	"github.com/okian/vitalgen/internal/config"
	"github.com/okian/vitalgen/pkg/logger"
	"github.com/okian/vitalgen/pkg/metrics"
)

// Timeouts for work that must finish after the run context is cancelled.
const (
	closeTimeout = 30 * time.Second
	pushTimeout  = 10 * time.Second
)

// Exit codes.
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one generation batch and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vitalgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to a YAML configuration file (defaults to $"+config.EnvConfigPath+")")
	help := fs.Bool("help", false, "Print usage and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *help {
		fs.Usage()
		return exitOK
	}

	// Initialize logging
	if err := logger.InitWithOptions(logger.WithWriter(stdout)); err != nil {
		// Logger isn't available yet
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitFail
	}
	defer func() { _ = logger.Sync() }()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		_, _ = io.WriteString(stderr, "failed to load config: "+err.Error()+"\n")
		return exitFail
	}

	if err := logger.InitWithOptions(logger.WithWriter(stdout), logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitFail
	}
	log := logger.Named("vitalgen")

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	w, err := sink.Open(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to open sink", logger.String("destination", cfg.OutputDestination), logger.Error(err))
		return exitFail
	}

	svc := service.New(w,
		service.WithConfig(cfg),
		service.WithLogger(logger.Named("service")),
	)
	summary, runErr := svc.Run(ctx, cfg.MeasureGenerationRequests)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := w.Close(closeCtx); err != nil {
		log.Error(ctx, "failed to close sink", logger.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	if cfg.PushgatewayURL != "" {
		pushCtx, cancelPush := context.WithTimeout(context.Background(), pushTimeout)
		defer cancelPush()
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, cfg.PushgatewayJob); err != nil {
			log.Warn(ctx, "failed to push metrics", logger.String("url", cfg.PushgatewayURL), logger.Error(err))
		}
	}

	if runErr != nil {
		log.Error(ctx, "run failed", logger.Error(runErr))
		return exitFail
	}

	log.Info(ctx, "run complete",
		logger.Int("requests", summary.Requests),
		logger.Int64("dataPoints", summary.DataPoints),
		logger.Int64("written", summary.Written),
		logger.String("destination", cfg.OutputDestination),
	)
	return exitOK
}
