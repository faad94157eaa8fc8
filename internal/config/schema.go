// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for earmeout.
package config

import (
	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log       LogConfig        `yaml:"log"`
	Chat      ChatConfig       `yaml:"chat"`
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "provider.openai").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects the root log handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `yaml:"level"`

	// Format is "text" (default) or "json".
	Format string `yaml:"format"`
}

// ChatConfig holds conversation settings shared by every transport.
type ChatConfig struct {
	// Window caps the stored messages per conversation. Zero selects the
	// conversation package default.
	Window int `yaml:"window"`

	// SystemPromptPath points at the persona file. Empty uses the
	// built-in prompt.
	SystemPromptPath string `yaml:"system_prompt_path"`

	// Providers lists provider module IDs in preference order. The first
	// one holding a usable credential answers chat turns.
	Providers []string `yaml:"providers"`
}
