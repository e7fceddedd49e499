/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
// The review-service token is never written to disk; it lives in the OS
// keyring.

type ReviewConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Enabled   bool   `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
}

type ExportConfig struct {
	Font string `yaml:"font"`
	Size int    `yaml:"size"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Review        ReviewConfig    `yaml:"review"`
	Export        ExportConfig    `yaml:"export"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Review:        ReviewConfig{BaseURL: "", Model: "", TimeoutMs: 8000, Enabled: false},
		Export:        ExportConfig{Font: "Courier", Size: 12},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Telemetry:     TelemetryConfig{OptIn: false, EventsURL: ""},
	}
}

// Env var names used as overrides.
const (
	EnvReviewURL       = "KTB_REVIEW_URL"
	EnvReviewModel     = "KTB_REVIEW_MODEL"
	EnvReviewTimeoutMs = "KTB_REVIEW_TIMEOUT_MS"
	EnvReviewEnabled   = "KTB_REVIEW_ENABLED"
	EnvTelemetryOptIn  = "KTB_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "KTB_TELEMETRY_URL"
	EnvLogLevel        = "KTB_LOG_LEVEL"
	EnvLogFormat       = "KTB_LOG_FORMAT"
	EnvLogSource       = "KTB_LOG_SOURCE"
	EnvLogFile         = "KTB_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "Katib"
	keyringToken   = "review_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Katib")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Katib")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "katib")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The review token comes from the keyring and is
// returned separately, never stored in the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// DeleteToken removes the review token from the keyring.
func DeleteToken() error {
	return tokenStore.Delete(keyringService, keyringToken)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.Review.BaseURL) != "" {
		dst.Review.BaseURL = strings.TrimSpace(src.Review.BaseURL)
	}
	if strings.TrimSpace(src.Review.Model) != "" {
		dst.Review.Model = strings.TrimSpace(src.Review.Model)
	}
	if src.Review.TimeoutMs != 0 {
		dst.Review.TimeoutMs = src.Review.TimeoutMs
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Review.Enabled = src.Review.Enabled
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if strings.TrimSpace(src.Telemetry.EventsURL) != "" {
		dst.Telemetry.EventsURL = strings.TrimSpace(src.Telemetry.EventsURL)
	}
	if strings.TrimSpace(src.Export.Font) != "" {
		dst.Export.Font = strings.TrimSpace(src.Export.Font)
	}
	if src.Export.Size != 0 {
		dst.Export.Size = src.Export.Size
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvReviewURL)); v != "" {
		cfg.Review.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvReviewModel)); v != "" {
		cfg.Review.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvReviewTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Review.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvReviewEnabled)); v != "" {
		cfg.Review.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// ReviewTimeout returns the configured review timeout as a duration.
func (r ReviewConfig) ReviewTimeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return time.Duration(Defaults().Review.TimeoutMs) * time.Millisecond
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}
