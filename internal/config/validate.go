package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/earmeout/earmeout/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present and
// registered, and checks the log, chat and telemetry sections.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateChat(cfg)...)

	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// LogLevel parses the configured level. Empty means info.
func (c LogConfig) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

// JSON reports whether log.format selects the JSON handler.
func (c LogConfig) JSON() bool {
	return strings.EqualFold(c.Format, "json")
}

func validateLog(c LogConfig) []error {
	var errs []error
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q must be text or json", c.Format))
	}
	return errs
}

func validateChat(cfg *Config) []error {
	var errs []error

	if cfg.Chat.Window < 0 {
		errs = append(errs, fmt.Errorf("config: chat.window must not be negative, got %d", cfg.Chat.Window))
	}

	seen := make(map[string]bool, len(cfg.Chat.Providers))
	for i, id := range cfg.Chat.Providers {
		switch {
		case !strings.HasPrefix(id, "provider."):
			errs = append(errs, fmt.Errorf("config: chat.providers[%d]: %q is not a provider module", i, id))
		case seen[id]:
			errs = append(errs, fmt.Errorf("config: chat.providers[%d]: duplicate %q", i, id))
		default:
			if _, ok := cfg.Modules[id]; !ok {
				errs = append(errs, fmt.Errorf("config: chat.providers[%d]: %q has no module entry", i, id))
			}
		}
		seen[id] = true
	}

	if len(ProviderOrder(cfg)) == 0 && len(cfg.Modules) > 0 {
		errs = append(errs, errors.New("config: at least one provider module must be configured"))
	}

	return errs
}
