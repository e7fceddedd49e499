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
	"runtime"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	vals map[string]string
}

func (f *fakeStore) key(service, key string) string { return service + "/" + key }

func (f *fakeStore) Get(service, key string) (string, error) {
	v, ok := f.vals[f.key(service, key)]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeStore) Set(service, key, value string) error {
	f.vals[f.key(service, key)] = value
	return nil
}

func (f *fakeStore) Delete(service, key string) error {
	delete(f.vals, f.key(service, key))
	return nil
}

func withFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	fs := &fakeStore{vals: map[string]string{}}
	old := tokenStore
	tokenStore = fs
	t.Cleanup(func() { tokenStore = old })
	return fs
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Review.TimeoutMs != 8000 {
		t.Fatalf("review timeout default = %d", cfg.Review.TimeoutMs)
	}
	if cfg.Review.Enabled || cfg.Telemetry.OptIn {
		t.Fatalf("outbound features must default off")
	}
	if cfg.Export.Font != "Courier" || cfg.Export.Size != 12 {
		t.Fatalf("export defaults: %+v", cfg.Export)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("log level default = %q", cfg.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	withFakeStore(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvReviewURL, "https://review.example")
	t.Setenv(EnvReviewTimeoutMs, "2500")
	t.Setenv(EnvReviewEnabled, "yes")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvTelemetryOptIn, "off")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Review.BaseURL != "https://review.example" {
		t.Fatalf("review url = %q", cfg.Review.BaseURL)
	}
	if cfg.Review.TimeoutMs != 2500 || !cfg.Review.Enabled {
		t.Fatalf("review: %+v", cfg.Review)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Telemetry.OptIn {
		t.Fatalf("'off' must parse as false")
	}
}

func TestEnvTimeoutIgnoresGarbage(t *testing.T) {
	withFakeStore(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvReviewTimeoutMs, "soon")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Review.TimeoutMs != 8000 {
		t.Fatalf("garbage timeout must keep the default, got %d", cfg.Review.TimeoutMs)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path fixture targets HOME-based layouts")
	}
	fs := withFakeStore(t)
	t.Setenv("HOME", t.TempDir())

	cfg := Defaults()
	cfg.Review.BaseURL = "https://review.example"
	cfg.Review.Model = "reviewer-1"
	cfg.Review.Enabled = true
	cfg.Export.Size = 14
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, token, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Review.BaseURL != cfg.Review.BaseURL || got.Review.Model != cfg.Review.Model {
		t.Fatalf("review round trip: %+v", got.Review)
	}
	if !got.Review.Enabled || got.Export.Size != 14 {
		t.Fatalf("round trip lost values: %+v", got)
	}
	if token != "secret-token" {
		t.Fatalf("token = %q", token)
	}
	if len(fs.vals) != 1 {
		t.Fatalf("keyring entries = %d", len(fs.vals))
	}

	if err := DeleteToken(); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token survived deletion: %q", tok)
	}
}

func TestTokenNeverTouchesConfigFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path fixture targets HOME-based layouts")
	}
	withFakeStore(t)
	t.Setenv("HOME", t.TempDir())
	if err := Save(Defaults(), "secret-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(data), "secret-token") {
		t.Fatalf("token leaked into %s", path)
	}
}

func TestReviewTimeoutDuration(t *testing.T) {
	if d := (ReviewConfig{TimeoutMs: 2500}).ReviewTimeout(); d != 2500*time.Millisecond {
		t.Fatalf("timeout = %v", d)
	}
	if d := (ReviewConfig{}).ReviewTimeout(); d != 8*time.Second {
		t.Fatalf("zero timeout must fall back to default, got %v", d)
	}
	if d := (ReviewConfig{TimeoutMs: -1}).ReviewTimeout(); d != 8*time.Second {
		t.Fatalf("negative timeout must fall back to default, got %v", d)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "on", "yes", " Yes "} {
		if !parseBool(v) {
			t.Fatalf("parseBool(%q) = false", v)
		}
	}
	for _, v := range []string{"0", "false", "off", "no", "", "maybe"} {
		if parseBool(v) {
			t.Fatalf("parseBool(%q) = true", v)
		}
	}
}
