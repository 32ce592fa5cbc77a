// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/qremote/internal/domain"
)

var envPrefix = "QREMOTE__"

const (
	StorageSQLite = "sqlite"
	StorageBolt   = "bolt"
)

type AppConfig struct {
	Config  *domain.Config
	viper   *viper.Viper
	dataDir string
	version string

	listenersMu sync.RWMutex
	listeners   []func(*domain.Config)
}

func New(configDirOrPath string, versions ...string) (*AppConfig, error) {
	version := "dev"
	if len(versions) > 0 && strings.TrimSpace(versions[0]) != "" {
		version = versions[0]
	}

	c := &AppConfig{
		viper:   viper.New(),
		Config:  &domain.Config{},
		version: version,
	}

	c.defaults()

	if configDirOrPath != "" {
		expanded, err := homedir.Expand(configDirOrPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand config path: %w", err)
		}
		configDirOrPath = expanded
	}

	if err := c.load(configDirOrPath); err != nil {
		return nil, err
	}

	// .env next to the config never overrides variables already set
	c.loadDotEnv()
	c.loadFromEnv()

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Config.Version = c.version
	c.normalize()

	c.resolveDataDir()

	c.watchConfig()

	return c, nil
}

func (c *AppConfig) defaults() {
	c.viper.SetDefault("host", "localhost")
	c.viper.SetDefault("port", 7480)
	c.viper.SetDefault("baseUrl", "/")
	c.viper.SetDefault("apiToken", "")
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("dataDir", "")
	c.viper.SetDefault("storage", StorageSQLite)
	c.viper.SetDefault("requestTimeout", 30)
	c.viper.SetDefault("notifierEnabled", true)
	c.viper.SetDefault("notifierInterval", 15)
	c.viper.SetDefault("notifierConcurrency", 4)
	c.viper.SetDefault("probeAddress", "")
	c.viper.SetDefault("notifyCommand", "")
	c.viper.SetDefault("metricsEnabled", false)
}

func (c *AppConfig) load(configDirOrPath string) error {
	c.viper.SetConfigType("toml")

	if configDirOrPath != "" {
		configPath := c.resolveConfigPath(configDirOrPath)
		c.viper.SetConfigFile(configPath)

		if err := c.viper.ReadInConfig(); err != nil {
			if !isNotFound(err) {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if err := c.writeDefaultConfig(configPath); err != nil {
				return err
			}
			if err := c.viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read newly created config: %w", err)
			}
		}
		return nil
	}

	c.viper.SetConfigName("config")
	c.viper.AddConfigPath(".")
	c.viper.AddConfigPath(GetDefaultConfigDir())

	if err := c.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		defaultConfigPath := filepath.Join(GetDefaultConfigDir(), "config.toml")
		if err := c.writeDefaultConfig(defaultConfigPath); err != nil {
			return err
		}
		c.viper.SetConfigFile(defaultConfigPath)
		if err := c.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read newly created config: %w", err)
		}
	}

	return nil
}

// viper reports a missing explicit config file as a plain fs error
func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return os.IsNotExist(err)
}

func (c *AppConfig) loadDotEnv() {
	path := filepath.Join(c.GetConfigDir(), ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to load .env file")
	}
}

func (c *AppConfig) loadFromEnv() {
	// explicit bindings only, AutomaticEnv picks up unrelated variables
	c.viper.BindEnv("host", envPrefix+"HOST")
	c.viper.BindEnv("port", envPrefix+"PORT")
	c.viper.BindEnv("baseUrl", envPrefix+"BASE_URL")
	c.bindOrReadFromFile("apiToken", "API_TOKEN")
	c.viper.BindEnv("logLevel", envPrefix+"LOG_LEVEL")
	c.viper.BindEnv("logPath", envPrefix+"LOG_PATH")
	c.viper.BindEnv("logMaxSize", envPrefix+"LOG_MAX_SIZE")
	c.viper.BindEnv("logMaxBackups", envPrefix+"LOG_MAX_BACKUPS")
	c.viper.BindEnv("dataDir", envPrefix+"DATA_DIR")
	c.viper.BindEnv("storage", envPrefix+"STORAGE")
	c.viper.BindEnv("requestTimeout", envPrefix+"REQUEST_TIMEOUT")
	c.viper.BindEnv("notifierEnabled", envPrefix+"NOTIFIER_ENABLED")
	c.viper.BindEnv("notifierInterval", envPrefix+"NOTIFIER_INTERVAL")
	c.viper.BindEnv("notifierConcurrency", envPrefix+"NOTIFIER_CONCURRENCY")
	c.viper.BindEnv("probeAddress", envPrefix+"PROBE_ADDRESS")
	c.viper.BindEnv("notifyCommand", envPrefix+"NOTIFY_COMMAND")
	c.viper.BindEnv("metricsEnabled", envPrefix+"METRICS_ENABLED")
}

// bindOrReadFromFile prefers <KEY>_FILE, read from disk, over <KEY>.
func (c *AppConfig) bindOrReadFromFile(viperVar string, envKey string) {
	envVar := envPrefix + envKey
	if filePath := os.Getenv(envVar + "_FILE"); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			log.Error().Err(err).Str("path", filePath).Msgf("Could not read %s_FILE", envVar)
			c.viper.BindEnv(viperVar, envVar)
			return
		}
		c.viper.Set(viperVar, strings.TrimSpace(string(content)))
		return
	}
	c.viper.BindEnv(viperVar, envVar)
}

func (c *AppConfig) normalize() {
	c.Config.Storage = strings.ToLower(strings.TrimSpace(c.Config.Storage))
	if c.Config.Storage != StorageBolt {
		c.Config.Storage = StorageSQLite
	}
	if c.Config.RequestTimeout <= 0 {
		c.Config.RequestTimeout = 30
	}
	c.Config.BaseURL = normalizeBaseURL(c.Config.BaseURL)
	if c.Config.NotifierInterval < 15 {
		// background schedulers do not run more often than this
		c.Config.NotifierInterval = 15
	}
	if c.Config.NotifierConcurrency <= 0 {
		c.Config.NotifierConcurrency = 1
	}
	if c.Config.LogPath != "" {
		if p, err := homedir.Expand(c.Config.LogPath); err == nil {
			c.Config.LogPath = p
		}
	}
}

// normalizeBaseURL makes base a path with leading and trailing slashes.
func normalizeBaseURL(base string) string {
	base = strings.Trim(strings.TrimSpace(base), "/")
	if base == "" {
		return "/"
	}
	return "/" + base + "/"
}

func (c *AppConfig) watchConfig() {
	c.viper.WatchConfig()
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Msgf("Config file changed: %s", e.Name)

		if err := c.viper.Unmarshal(c.Config); err != nil {
			log.Error().Err(err).Msg("Failed to reload configuration")
			return
		}

		c.applyDynamicChanges()
	})
}

func (c *AppConfig) applyDynamicChanges() {
	c.Config.Version = c.version
	c.normalize()
	c.ApplyLogConfig()
	c.notifyListeners()
}

// RegisterReloadListener registers a callback that's invoked when the configuration file is reloaded.
func (c *AppConfig) RegisterReloadListener(fn func(*domain.Config)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *AppConfig) notifyListeners() {
	c.listenersMu.RLock()
	listeners := append([]func(*domain.Config){}, c.listeners...)
	c.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	copied := *c.Config
	for _, listener := range listeners {
		listener(&copied)
	}
}

const configTemplate = `# config.toml - Auto-generated on first run

# Hostname / IP for the JSON API started by "qremote serve"
# Default: "localhost"
host = "{{ .host }}"

# Port
# Default: 7480
port = {{ .port }}

# Bearer token required by the JSON API. Leave empty to disable.
# Can also be provided with QREMOTE__API_TOKEN_FILE
#apiToken = ""

# Log file path
# If not defined, logs to stderr
#logPath = "log/qremote.log"

# Maximum log file size in megabytes before rotation
# Default: {{ .logMaxSize }}
#logMaxSize = {{ .logMaxSize }}

# Number of rotated log files to retain (0 keeps all)
# Default: {{ .logMaxBackups }}
#logMaxBackups = {{ .logMaxBackups }}

# Log level
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "{{ .logLevel }}"

# Data directory (default: next to config file)
#dataDir = "~/.local/share/qremote"

# Storage backend for settings and notifier state
# Options: "sqlite", "bolt"
storage = "{{ .storage }}"

# Timeout for requests to torrent daemons, in seconds
#requestTimeout = {{ .requestTimeout }}

# Finished torrent notifier
#notifierEnabled = true

# Minutes between notifier runs (minimum 15)
#notifierInterval = {{ .notifierInterval }}

# Servers checked in parallel per run
#notifierConcurrency = {{ .notifierConcurrency }}

# host:port dialled to decide whether the network is up. Empty skips the probe.
#probeAddress = "1.1.1.1:53"

# Command run for every notification, title and body are appended as arguments
#notifyCommand = "notify-send --app-name=qremote"

# Expose Prometheus metrics on /metrics
#metricsEnabled = false
`

func (c *AppConfig) writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		log.Debug().Msgf("Config file already exists at: %s", path)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	data := map[string]any{
		"host":                c.viper.GetString("host"),
		"port":                c.viper.GetInt("port"),
		"logLevel":            c.viper.GetString("logLevel"),
		"logMaxSize":          c.viper.GetInt("logMaxSize"),
		"logMaxBackups":       c.viper.GetInt("logMaxBackups"),
		"storage":             c.viper.GetString("storage"),
		"requestTimeout":      c.viper.GetInt("requestTimeout"),
		"notifierInterval":    c.viper.GetInt("notifierInterval"),
		"notifierConcurrency": c.viper.GetInt("notifierConcurrency"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Msgf("Created default config file: %s", path)
	return nil
}

// GetDefaultConfigDir returns the OS-specific config directory
func GetDefaultConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if xdgConfig == "/config" {
			return xdgConfig
		}
		return filepath.Join(xdgConfig, "qremote")
	}

	home, _ := homedir.Dir()
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "qremote")
		}
		return filepath.Join(home, "AppData", "Roaming", "qremote")
	default:
		return filepath.Join(home, ".config", "qremote")
	}
}

func (c *AppConfig) ApplyLogConfig() {
	zerolog.TimeFieldFormat = time.RFC3339

	setLogLevel(c.Config.LogLevel)

	writer := baseLogWriter(c.version)

	if c.Config.LogPath != "" {
		multiWriter, err := setupLogFile(c.Config.LogPath, writer, c.Config.LogMaxSize, c.Config.LogMaxBackups)
		if err != nil {
			log.Error().Err(err).Msg("Failed to setup log file")
		} else {
			writer = multiWriter
		}
	}

	log.Logger = log.Logger.Output(writer)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Logger.Level(lvl)
}

func setupLogFile(path string, base io.Writer, maxSize, maxBackups int) (io.Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if maxSize <= 0 {
		maxSize = 50
	}
	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	return io.MultiWriter(base, rotator), nil
}

func baseLogWriter(version string) io.Writer {
	if isDevBuild(version) {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		writer.PartsOrder = []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName}
		return writer
	}
	return os.Stderr
}

// InitDefaultLogger configures zerolog before a configuration file is loaded.
func InitDefaultLogger(version string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Logger.Output(baseLogWriter(version))
}

func isDevBuild(version string) bool {
	v := strings.ToLower(strings.TrimSpace(version))
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// resolveConfigPath treats *.toml and existing files as the config file and
// anything else as the directory holding config.toml.
func (c *AppConfig) resolveConfigPath(configDirOrPath string) string {
	if strings.HasSuffix(strings.ToLower(configDirOrPath), ".toml") {
		return configDirOrPath
	}

	if info, err := os.Stat(configDirOrPath); err == nil && !info.IsDir() {
		return configDirOrPath
	}

	return filepath.Join(configDirOrPath, "config.toml")
}

func (c *AppConfig) resolveDataDir() {
	switch {
	case c.Config.DataDir != "":
		dir, err := homedir.Expand(c.Config.DataDir)
		if err != nil {
			dir = c.Config.DataDir
		}
		c.dataDir = dir
	case c.viper.ConfigFileUsed() != "":
		c.dataDir = filepath.Dir(c.viper.ConfigFileUsed())
	default:
		c.dataDir = "."
	}
}

// GetStoragePath returns the path of the kv database for the configured backend.
func (c *AppConfig) GetStoragePath() string {
	if c.Config.Storage == StorageBolt {
		return filepath.Join(c.dataDir, "qremote.bolt")
	}
	return filepath.Join(c.dataDir, "qremote.db")
}

func (c *AppConfig) GetDataDir() string {
	return c.dataDir
}

// SetDataDir overrides the data directory (used by CLI flags)
func (c *AppConfig) SetDataDir(dir string) {
	c.dataDir = dir
}

// GetConfigDir returns the directory containing the config file
func (c *AppConfig) GetConfigDir() string {
	if c.viper.ConfigFileUsed() != "" {
		return filepath.Dir(c.viper.ConfigFileUsed())
	}
	return GetDefaultConfigDir()
}

// RequestTimeout returns the daemon request timeout.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Config.RequestTimeout) * time.Second
}

// NotifierInterval returns the minimum interval between notifier runs.
func (c *AppConfig) NotifierInterval() time.Duration {
	return time.Duration(c.Config.NotifierInterval) * time.Minute
}

func WriteDefaultConfig(path string) error {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults()

	return c.writeDefaultConfig(path)
}
