// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// Config is the process level configuration loaded from config.toml and
// QREMOTE__ environment variables. User settings such as server profiles
// live in the kv store, not here.
type Config struct {
	Version       string
	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	BaseURL       string `toml:"baseUrl" mapstructure:"baseUrl"`
	APIToken      string `toml:"apiToken" mapstructure:"apiToken"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`

	// Storage selects the kv backend: "sqlite" or "bolt".
	Storage string `toml:"storage" mapstructure:"storage"`

	// RequestTimeout is the per request timeout towards daemons, in seconds.
	RequestTimeout int `toml:"requestTimeout" mapstructure:"requestTimeout"`

	NotifierEnabled     bool   `toml:"notifierEnabled" mapstructure:"notifierEnabled"`
	NotifierInterval    int    `toml:"notifierInterval" mapstructure:"notifierInterval"`
	NotifierConcurrency int    `toml:"notifierConcurrency" mapstructure:"notifierConcurrency"`
	ProbeAddress        string `toml:"probeAddress" mapstructure:"probeAddress"`
	NotifyCommand       string `toml:"notifyCommand" mapstructure:"notifyCommand"`

	MetricsEnabled bool `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
}
