// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creachadair/beamnode"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		t.Fatalf("Write config: %v", err)
	}
	return path
}

func TestLoadSettings(t *testing.T) {
	path := writeConfig(t, `
node = " example "
host = "0.0.0.0"
port = 9900
stop_grace = "250ms"
log_level = "debug"
`)
	cfg, err := loadSettings(path, defaultSettings())
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	want := settings{
		Server: beamnode.Config{
			Node:      "example",
			Cookie:    beamnode.DefaultCookie, // not defined in the file
			Host:      "0.0.0.0",
			Port:      9900,
			StopGrace: 250 * time.Millisecond,
		},
		LogLevel: "debug",
	}
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(beamnode.Config{}, "Logger")); diff != "" {
		t.Errorf("Settings (-want, +got):\n%s", diff)
	}
}

func TestLoadSettingsEmpty(t *testing.T) {
	path := writeConfig(t, "# nothing here\n")
	cfg, err := loadSettings(path, defaultSettings())
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if diff := cmp.Diff(defaultSettings(), cfg, cmpopts.IgnoreFields(beamnode.Config{}, "Logger")); diff != "" {
		t.Errorf("Settings (-want, +got):\n%s", diff)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name, text string
	}{
		{"BadDuration", `stop_grace = "soon"`},
		{"BadPort", `port = 70000`},
		{"WrongType", `port = "http"`},
		{"UnknownKey", `color = "blue"`},
		{"Syntax", `node = `},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.text)
			if cfg, err := loadSettings(path, defaultSettings()); err == nil {
				t.Errorf("loadSettings: got %+v, want error", cfg)
			} else {
				t.Logf("loadSettings: error OK: %v", err)
			}
		})
	}

	t.Run("Missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nonesuch.toml")
		if _, err := loadSettings(path, defaultSettings()); err == nil {
			t.Error("loadSettings: got nil error for missing file")
		}
	})
}

func TestServeOptions(t *testing.T) {
	cfg := defaultSettings().Server
	serveOptions{}.apply(&cfg)
	if diff := cmp.Diff(defaultSettings().Server, cfg, cmpopts.IgnoreFields(beamnode.Config{}, "Logger")); diff != "" {
		t.Errorf("Empty options changed config (-want, +got):\n%s", diff)
	}

	serveOptions{Node: "n2", Port: 1234, StopGrace: time.Second}.apply(&cfg)
	if cfg.Node != "n2" || cfg.Port != 1234 || cfg.StopGrace != time.Second {
		t.Errorf("Options not applied: %+v", cfg)
	}
	if cfg.Host != beamnode.DefaultHost {
		t.Errorf("Host: got %q, want %q", cfg.Host, beamnode.DefaultHost)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"trace", "debug", "INFO", "warn", "error"} {
		logger, err := newLogger(level)
		if err != nil {
			t.Errorf("newLogger(%q): unexpected error: %v", level, err)
			continue
		}
		want, _ := zerolog.ParseLevel(level)
		if level == "INFO" {
			want = zerolog.InfoLevel
		}
		if got := logger.GetLevel(); got != want {
			t.Errorf("newLogger(%q): level is %v, want %v", level, got, want)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("newLogger(loud): got nil error")
	}
}
