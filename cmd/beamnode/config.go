// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/beamnode"
	"github.com/rs/zerolog"
)

// fileConfig is the layout of a configuration file.
type fileConfig struct {
	Node      string `toml:"node"`
	Cookie    string `toml:"cookie"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	StopGrace string `toml:"stop_grace"`
	LogLevel  string `toml:"log_level"`
}

// settings are the effective settings of the program.
type settings struct {
	Server   beamnode.Config
	LogLevel string
}

func defaultSettings() settings {
	return settings{
		Server: beamnode.Config{
			Node:      beamnode.DefaultNode,
			Cookie:    beamnode.DefaultCookie,
			Host:      beamnode.DefaultHost,
			StopGrace: beamnode.DefaultStopGrace,
		},
		LogLevel: "info",
	}
}

// loadSettings reads the configuration file at path, and returns base with
// the settings defined by the file applied.
func loadSettings(path string, base settings) (settings, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load config: %w", err)
	}
	if keys := meta.Undecoded(); len(keys) != 0 {
		return settings{}, fmt.Errorf("load config: unknown keys %q", keys)
	}

	cfg := base
	if meta.IsDefined("node") {
		cfg.Server.Node = strings.TrimSpace(raw.Node)
	}
	if meta.IsDefined("cookie") {
		cfg.Server.Cookie = raw.Cookie
	}
	if meta.IsDefined("host") {
		cfg.Server.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		if raw.Port < 0 || raw.Port > 65535 {
			return settings{}, fmt.Errorf("port %d out of range", raw.Port)
		}
		cfg.Server.Port = raw.Port
	}
	if meta.IsDefined("stop_grace") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StopGrace))
		if err != nil {
			return settings{}, fmt.Errorf("parse stop_grace: %w", err)
		}
		cfg.Server.StopGrace = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, nil
}

// resolveSettings returns the default settings, updated from the
// configuration file if one is named by the flags, and then by any flags
// that were set.
func resolveSettings() (settings, error) {
	cfg := defaultSettings()
	if flags.Config != "" {
		var err error
		cfg, err = loadSettings(flags.Config, cfg)
		if err != nil {
			return settings{}, err
		}
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	serveFlags.apply(&cfg.Server)
	return cfg, nil
}

// newLogger returns a console logger at the specified level.
func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "beamnode").Logger(), nil
}
