// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and logging setup.
//
// Configuration lives at ~/.localmind/config.toml with LOCALMIND_* environment
// variable overrides and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete application configuration.
type Config struct {
	// DefaultModel is the provider-qualified model selected at startup.
	DefaultModel string `toml:"default_model"`
	// DefaultMode is the conversation mode at startup.
	DefaultMode string `toml:"default_mode"`
	// Incognito skips transcript persistence when true.
	Incognito bool `toml:"incognito"`

	Persona   PersonaConfig   `toml:"persona"`
	Providers ProvidersConfig `toml:"providers"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Support   SupportConfig   `toml:"support"`
}

// PersonaConfig shapes the assistant's system prompt.
type PersonaConfig struct {
	Avatar             string `toml:"avatar"`
	Style              string `toml:"style"`
	CustomInstructions string `toml:"custom_instructions"`
}

// ProvidersConfig holds per-provider API keys. Values may carry the ENC:
// prefix; the keystore decrypts them at load time.
type ProvidersConfig struct {
	GrokKey      string `toml:"grok_key"`
	OpenAIKey    string `toml:"openai_key"`
	AnthropicKey string `toml:"anthropic_key"`
	GeminiKey    string `toml:"gemini_key"`
}

// StorageConfig locates the transcript database.
type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
}

// LoggingConfig controls the slog setup.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// File is the JSON log destination (empty = config dir default).
	File string `toml:"file"`
}

// SupportConfig controls the daily support gate.
type SupportConfig struct {
	GateEnabled bool `toml:"gate_enabled"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultModel: "grok-4",
		DefaultMode:  "general",
		Persona: PersonaConfig{
			Avatar: "LocalMind",
			Style:  "helpful and concise",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns ~/.localmind.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".localmind"), nil
}

// ConfigPath returns the TOML config file location.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file if present, applies environment overrides, and
// validates. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a config file into cfg. Credential-bearing files should
// not be world readable, so permissions are tightened on load.
func LoadTOML(cfg *Config, path string) error {
	ensureSecurePermissions(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// Save writes the config back to its default location.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.toml")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func ensureSecurePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not tighten permissions on %s: %v\n", path, err)
		}
	}
}

// =============================================================================
// ENV OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LOCALMIND_* environment variables on top of the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("LOCALMIND_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if mode := os.Getenv("LOCALMIND_MODE"); mode != "" {
		c.DefaultMode = mode
	}
	if incognito := os.Getenv("LOCALMIND_INCOGNITO"); incognito != "" {
		c.Incognito = incognito == "1" || strings.EqualFold(incognito, "true")
	}
	if key := os.Getenv("LOCALMIND_GROK_KEY"); key != "" {
		c.Providers.GrokKey = key
	}
	if key := os.Getenv("LOCALMIND_OPENAI_KEY"); key != "" {
		c.Providers.OpenAIKey = key
	}
	if key := os.Getenv("LOCALMIND_ANTHROPIC_KEY"); key != "" {
		c.Providers.AnthropicKey = key
	}
	if key := os.Getenv("LOCALMIND_GEMINI_KEY"); key != "" {
		c.Providers.GeminiKey = key
	}
	if path := os.Getenv("LOCALMIND_DB_PATH"); path != "" {
		c.Storage.DatabasePath = path
	}
	if level := os.Getenv("LOCALMIND_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// DEFAULTS + VALIDATION
// =============================================================================

// SetDefaults fills derived paths left empty by the file and environment.
func (c *Config) SetDefaults() {
	dir, err := ConfigDir()
	if err != nil {
		return
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = filepath.Join(dir, "localmind.db")
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(dir, "localmind.log")
	}
}

var validModes = map[string]bool{
	"general": true, "coding": true, "creative": true,
	"academic": true, "math": true, "business": true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the loaded values, clamping recoverable mistakes to
// defaults instead of failing startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultModel) == "" {
		c.DefaultModel = "grok-4"
	}
	if !validModes[c.DefaultMode] {
		c.DefaultMode = "general"
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		c.Logging.Level = "info"
	}
	return nil
}
