package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/illmade-knight/go-billing-bootstrap/pkg/billing"
	"github.com/illmade-knight/go-billing-bootstrap/pkg/orchestration"
	"github.com/illmade-knight/go-billing-bootstrap/pkg/prerequisites"
	"github.com/illmade-knight/go-billing-bootstrap/pkg/projectid"
)

const defaultCallTimeout = 30 * time.Second

// options collects the command-line flags.
type options struct {
	projectID        string
	projectIDFile    string
	configPath       string
	skipProjectCheck bool
}

// runConfig holds the retry knobs, loadable from a YAML file so deployments
// can tune propagation budgets without rebuilding.
type runConfig struct {
	VerifyAttempts        int     `yaml:"verify_attempts"`
	VerifyIntervalSeconds float64 `yaml:"verify_interval_seconds"`
	EnableAttempts        int     `yaml:"enable_attempts"`
	EnableBaseWaitSeconds float64 `yaml:"enable_base_wait_seconds"`
	EnableMultiplier      float64 `yaml:"enable_multiplier"`
	CallTimeoutSeconds    float64 `yaml:"call_timeout_seconds"`
}

func loadRunConfig(path string) (runConfig, error) {
	var cfg runConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func secondsOrZero(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func defaultProjectIDFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "project_id.txt"
	}
	return filepath.Join(home, "project_id.txt")
}

func main() {
	var opts options
	var logLevel string
	var jsonLogs bool

	flag.StringVar(&opts.projectID, "project-id", "", "Target GCP project ID (overrides -project-id-file)")
	flag.StringVar(&opts.projectIDFile, "project-id-file", defaultProjectIDFile(), "File containing the target GCP project ID")
	flag.StringVar(&opts.configPath, "config", "", "Optional YAML file with retry configuration")
	flag.BoolVar(&opts.skipProjectCheck, "skip-project-check", false, "Skip the Resource Manager preflight check of the project")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	flag.BoolVar(&jsonLogs, "json-logs", false, "Emit JSON log lines instead of console output")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if jsonLogs {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(logLevel); err == nil {
		logger = logger.Level(level)
	}

	result := run(context.Background(), opts, logger)
	if result.Err != nil {
		logger.Error().Err(result.Err).Str("state", string(result.State)).Int("exit_code", int(result.Code)).
			Msg("Billing bootstrap did not complete.")
	}

	os.Exit(int(result.Code))
}

// run wires the gateway clients into the orchestrator and executes one
// bootstrap pass. It returns rather than exiting so deferred client closes
// still happen.
func run(ctx context.Context, opts options, logger zerolog.Logger) orchestration.Result {
	cfg, err := loadRunConfig(opts.configPath)
	if err != nil {
		return orchestration.Result{Code: orchestration.CodeUnexpectedError, Err: err}
	}

	callTimeout := secondsOrZero(cfg.CallTimeoutSeconds)
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	var source projectid.Source
	if opts.projectID != "" {
		source = projectid.NewStaticSource(opts.projectID)
	} else {
		source = projectid.NewFileSource(opts.projectIDFile)
	}

	billingClient, err := billing.NewGoogleBillingClient(ctx, callTimeout)
	if err != nil {
		return orchestration.Result{Code: orchestration.CodeUnexpectedError, Err: err}
	}
	defer billingClient.Close()

	serviceClient, err := prerequisites.NewGoogleServiceAPIClient(ctx)
	if err != nil {
		return orchestration.Result{Code: orchestration.CodeUnexpectedError, Err: err}
	}
	defer serviceClient.Close()

	var checker orchestration.ProjectChecker
	if !opts.skipProjectCheck {
		checker, err = orchestration.NewGoogleProjectChecker(ctx)
		if err != nil {
			return orchestration.Result{Code: orchestration.CodeUnexpectedError, Err: err}
		}
		defer checker.Close()
	}

	resolver := billing.NewAccountResolver(billingClient, logger)
	trigger := prerequisites.NewTrigger(serviceClient, logger)
	linker := billing.NewLinkReconciler(billingClient, billing.LinkerConfig{
		VerifyAttempts: cfg.VerifyAttempts,
		VerifyInterval: secondsOrZero(cfg.VerifyIntervalSeconds),
	}, logger)

	orchestrator := orchestration.NewOrchestrator(orchestration.Config{
		EnableAttempts:   cfg.EnableAttempts,
		EnableBaseWait:   secondsOrZero(cfg.EnableBaseWaitSeconds),
		EnableMultiplier: cfg.EnableMultiplier,
	}, source, checker, resolver, trigger, linker, logger)

	return orchestrator.Run(ctx)
}
