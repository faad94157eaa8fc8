// Package app provides the shared entry point for the earmeout binary:
// configuration loading, logging, telemetry, module lifecycle and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/earmeout/earmeout/internal/config"
	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/security"
	"github.com/earmeout/earmeout/internal/telemetry"
)

// ErrConfigNotFound is returned by ResolveConfigPath when no file exists in
// any searched location.
var ErrConfigNotFound = errors.New("no configuration file found")

const telemetryFlushTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is tried and the built-in configuration
	// is used when nothing is found.
	ConfigPath string

	// EnvFile is loaded into the environment before the configuration is
	// read. Variables already set win. Defaults to ".env"; a missing file
	// is not an error.
	EnvFile string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel overrides log.level from the configuration when non-empty.
	LogLevel string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Runtime is a fully wired application that has not been started yet.
type Runtime struct {
	App     *core.App
	Context *core.AppContext
	Config  *config.Config
	Source  string
	Logger  *slog.Logger
	Manager *conversation.Manager

	shutdownTelemetry telemetry.ShutdownFunc
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	ctx := context.Background()

	rt, err := Setup(ctx, params)
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.App.Run(ctx)
}

// Setup loads the environment and configuration, builds the logger and
// tracer provider, loads every configured module and wires the
// conversation manager. Call Close when the Runtime is no longer needed.
func Setup(ctx context.Context, params RunParams) (*Runtime, error) {
	if err := loadEnvFile(params.EnvFile); err != nil {
		return nil, err
	}

	cfg, source, err := loadConfig(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// Initialize credential store and redactor (security foundation).
	credStore := security.NewCredentialStore()
	redactor := security.NewRedactor()

	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := newLogger(out, cfg.Log, params.LogLevel, redactor)
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded", "source", source, "version", params.Version)

	auditLog := logger.With("component", "audit")
	auditLogger := security.NewAuditLogger(security.AuditLoggerConfig{
		Redactor: redactor,
		OnEvent: func(e security.AuditEvent) {
			auditLog.Info("audit event", "event", string(e.Type), "user", e.UserID,
				"conversation", e.ConversationID, "detail", e.Detail, "metadata", e.Metadata)
		},
	})

	tp, shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, params.Version, logger)
	if err != nil {
		return nil, err
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	// Register security services for cross-module discovery.
	appCtx.RegisterService("security.credentials", credStore)
	appCtx.RegisterService("security.redactor", redactor)
	appCtx.RegisterService("security.audit", auditLogger)
	appCtx.RegisterService("config.path", source)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		flushTelemetry(shutdown, logger)
		return nil, err
	}

	// Modules register their secrets while provisioning; scrub them from
	// every log line from here on.
	redactor.SyncCredentials(credStore)

	manager, err := wire(appCtx, cfg, tp.Tracer(tracerName), logger)
	if err != nil {
		application.Release()
		flushTelemetry(shutdown, logger)
		return nil, err
	}

	return &Runtime{
		App:               application,
		Context:           appCtx,
		Config:            cfg,
		Source:            source,
		Logger:            logger,
		Manager:           manager,
		shutdownTelemetry: shutdown,
	}, nil
}

// Close flushes telemetry. Modules are stopped by App.Run, App.Stop or
// App.Release.
func (rt *Runtime) Close() {
	flushTelemetry(rt.shutdownTelemetry, rt.Logger)
}

// Check loads and wires the configuration without starting any module
// and returns the loaded module IDs.
func Check(params RunParams) ([]core.ModuleID, error) {
	rt, err := Setup(context.Background(), params)
	if err != nil {
		return nil, err
	}
	defer rt.Close()
	defer rt.App.Release()
	return rt.App.Modules(), nil
}

func flushTelemetry(shutdown telemetry.ShutdownFunc, logger *slog.Logger) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// loadEnvFile loads KEY=value pairs from path (default .env). Existing
// environment variables are not overridden.
func loadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadConfig reads path, or the first file found by ResolveConfigPath, or
// the built-in configuration. It returns the config and where it came from.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		switch {
		case errors.Is(err, ErrConfigNotFound):
			cfg, err := config.LoadDefault()
			return cfg, config.DefaultSource, err
		case err != nil:
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// newLogger builds the root logger: a text or JSON handler wrapped in a
// redacting handler so secrets never reach the output.
func newLogger(w io.Writer, cfg config.LogConfig, levelOverride string, redactor *security.Redactor) (*slog.Logger, error) {
	if levelOverride != "" {
		cfg.Level = levelOverride
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.JSON() {
		inner = slog.NewJSONHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/earmeout/earmeout.yaml → ~/.config/earmeout/earmeout.yaml → ./earmeout.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "earmeout", "earmeout.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "earmeout", "earmeout.yaml"))
	}

	candidates = append(candidates, "earmeout.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrConfigNotFound, candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/earmeout if set, otherwise ~/.local/share/earmeout per the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "earmeout")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "earmeout")
}
