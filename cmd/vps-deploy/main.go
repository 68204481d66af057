package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vps-deploy/internal/config"
	"vps-deploy/internal/input"
	"vps-deploy/internal/logging"
	"vps-deploy/internal/pipeline"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	zerolog.TimeFieldFormat = time.RFC3339
	bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "main").Logger()

	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		bootLogger.Warn().Err(err).Msg("Error loading .env file")
	}

	flags := pflag.NewFlagSet("vps-deploy", pflag.ContinueOnError)
	cleanup := flags.Bool("cleanup", false, "remove a previous deployment from the target host")
	showVersion := flags.Bool("version", false, "print the version and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vps-deploy [--cleanup]\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return pipeline.ExitOK
		}
		return pipeline.ExitInvalidInput
	}
	if *showVersion {
		fmt.Println("vps-deploy", version)
		return pipeline.ExitOK
	}

	cfg, err := config.NewManager(bootLogger).Load()
	if err != nil {
		bootLogger.Error().Err(err).Msg("Invalid configuration")
		return pipeline.ExitInvalidInput
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		bootLogger.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}

	logger, err := logging.New(cfg.LogDir, time.Now(), os.Stdout, level)
	if err != nil {
		bootLogger.Error().Err(err).Msg("Failed to open log file")
		return pipeline.ExitInvalidInput
	}
	defer logger.Close()
	logger = logger.With("run_id", uuid.New().String())

	mode := "deployment"
	if *cleanup {
		mode = "cleanup"
	}
	logger.Info().Str("version", version).Str("mode", mode).Msgf("Starting %s", mode)

	prompter := input.NewPrompter(os.Stdin, os.Stdout, input.NewValidator(), logger, cfg.DefaultBranch)
	deployer := pipeline.New(cfg, logger, prompter)

	go handleInterrupts(logger, deployer, input.SaveTerminal(os.Stdin))

	ctx := context.Background()
	var runErr error
	if *cleanup {
		runErr = deployer.Cleanup(ctx)
	} else {
		runErr = deployer.Deploy(ctx)
	}

	code := pipeline.ExitCodeOf(runErr)
	if runErr != nil {
		logger.Error().Err(runErr).Int("exit_code", code).Msgf("%s failed", mode)
	} else {
		logger.Success().Msgf("%s finished", mode)
	}

	report := deployer.Report(mode, runErr)
	fmt.Fprint(os.Stdout, "\n"+report)
	fileLog := logger.Output()
	fileLog.Info().Msg("\n" + report)

	fmt.Fprintf(os.Stdout, "Log file: %s\n", logger.Path())
	return code
}

// handleInterrupts exits on SIGINT/SIGTERM without touching the target.
// restoreTerminal brings echo back if the signal lands in the token prompt.
func handleInterrupts(logger *logging.Logger, deployer *pipeline.Deployer, restoreTerminal func()) {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	restoreTerminal()
	step := deployer.CurrentStep()
	if step == "" {
		step = "none"
	}
	logger.Error().
		Str("signal", sig.String()).
		Str("step", step).
		Msg("Interrupted, exiting without cleanup")
	fmt.Fprintf(os.Stdout, "Log file: %s\n", logger.Path())
	_ = logger.Close()
	os.Exit(pipeline.ExitInvalidInput)
}
