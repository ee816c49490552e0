// Package config loads mediatree configuration from command-line flags,
// environment variables, and a .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mediatree/mediatree-server/internal/validation"
)

// Environment variable names.
const (
	EnvEnvironment   = "ENV"
	EnvLogLevel      = "LOG_LEVEL"
	EnvDataPath      = "DATA_PATH"
	EnvMediaDir      = "MEDIA_DIR"
	EnvThumbDir      = "THUMB_DIR"
	EnvMetaFile      = "META_FILE"
	EnvBackupDir     = "BACKUP_DIR"
	EnvThumbWidth    = "THUMB_WIDTH"
	EnvThumbHeight   = "THUMB_HEIGHT"
	EnvMaxUploadMB   = "MAX_UPLOAD_MB"
	EnvServerPort    = "SERVER_PORT"
	EnvReadTimeout   = "SERVER_READ_TIMEOUT"
	EnvWriteTimeout  = "SERVER_WRITE_TIMEOUT"
	EnvIdleTimeout   = "SERVER_IDLE_TIMEOUT"
	EnvUploadRate    = "UPLOAD_RATE_PER_MINUTE"
	EnvWatchMetadata = "WATCH_METADATA"
)

// DefaultDataPath is used when DATA_PATH is unset.
const DefaultDataPath = "./media_tree_data"

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Media   MediaConfig
	Server  ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `json:"env" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `json:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig locates the metadata document and media on disk.
type StorageConfig struct {
	DataPath      string `json:"data_path" validate:"required"`
	MediaDir      string `json:"media_dir" validate:"required"`
	ThumbDir      string `json:"thumb_dir" validate:"required"`
	MetaFile      string `json:"meta_file" validate:"required"`
	BackupDir     string `json:"backup_dir" validate:"required"`
	WatchMetadata bool   `json:"watch_metadata"`
}

// MediaConfig holds upload and thumbnail settings.
type MediaConfig struct {
	ThumbWidth          int `json:"thumb_width" validate:"gt=0,lte=4096"`
	ThumbHeight         int `json:"thumb_height" validate:"gt=0,lte=4096"`
	MaxUploadMB         int `json:"max_upload_mb" validate:"gt=0"`
	UploadRatePerMinute int `json:"upload_rate_per_minute" validate:"gte=0"`
}

// MaxUploadBytes returns the upload size limit in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) << 20
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `json:"port" validate:"required,numeric"`
	ReadTimeout  time.Duration `json:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `json:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `json:"idle_timeout" validate:"gt=0"`
}

// Overrides maps environment variable names to values that take precedence
// over the environment, e.g. from command-line flags.
type Overrides map[string]string

// flagKeys maps server flags to the variables they override.
var flagKeys = []struct{ flag, key, usage string }{
	{"env", EnvEnvironment, "Environment (development, staging, production)"},
	{"log-level", EnvLogLevel, "Log level (debug, info, warn, error)"},
	{"data-path", EnvDataPath, "Base directory for metadata and media"},
	{"media-dir", EnvMediaDir, "Media directory (default: {data}/media)"},
	{"thumb-dir", EnvThumbDir, "Thumbnail directory (default: {data}/thumbnails)"},
	{"meta-file", EnvMetaFile, "Metadata document (default: {data}/meta.json)"},
	{"backup-dir", EnvBackupDir, "Backup directory (default: {data}/backups)"},
	{"port", EnvServerPort, "Server port (default: 8080)"},
	{"read-timeout", EnvReadTimeout, "HTTP read timeout (default: 15s)"},
	{"write-timeout", EnvWriteTimeout, "HTTP write timeout (default: 0, streaming)"},
	{"idle-timeout", EnvIdleTimeout, "HTTP idle timeout (default: 60s)"},
	{"watch-metadata", EnvWatchMetadata, "Reload when the metadata document changes on disk (default: true)"},
}

// Load parses server flags from args and resolves the configuration with
// precedence: flags, environment, .env file, defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("mediatree", flag.ContinueOnError)
	values := make(map[string]*string, len(flagKeys))
	for _, f := range flagKeys {
		values[f.key] = fs.String(f.flag, "", f.usage)
	}
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	overrides := make(Overrides)
	for key, v := range values {
		if *v != "" {
			overrides[key] = *v
		}
	}
	return Resolve(overrides, *envFile)
}

// Resolve builds a Config from overrides, the environment, and envFile.
// A missing envFile is ignored.
func Resolve(overrides Overrides, envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadEnvFile(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	get := func(key, def string) string {
		return getConfigValue(overrides[key], key, def)
	}

	cfg := &Config{
		App:    AppConfig{Environment: get(EnvEnvironment, "development")},
		Logger: LoggerConfig{Level: strings.ToLower(get(EnvLogLevel, "info"))},
		Storage: StorageConfig{
			DataPath:      get(EnvDataPath, DefaultDataPath),
			MediaDir:      get(EnvMediaDir, ""),
			ThumbDir:      get(EnvThumbDir, ""),
			MetaFile:      get(EnvMetaFile, ""),
			BackupDir:     get(EnvBackupDir, ""),
			WatchMetadata: getBoolConfigValue(overrides[EnvWatchMetadata], EnvWatchMetadata, true),
		},
		Server: ServerConfig{Port: get(EnvServerPort, "8080")},
	}

	var err error
	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{EnvThumbWidth, 200, &cfg.Media.ThumbWidth},
		{EnvThumbHeight, 150, &cfg.Media.ThumbHeight},
		{EnvMaxUploadMB, 100, &cfg.Media.MaxUploadMB},
		{EnvUploadRate, 60, &cfg.Media.UploadRatePerMinute},
	}
	for _, i := range ints {
		if *i.dest, err = getIntConfigValue(overrides[i.key], i.key, i.def); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{EnvReadTimeout, "15s", &cfg.Server.ReadTimeout},
		// Zero: event streams and large downloads must not be cut off.
		{EnvWriteTimeout, "0s", &cfg.Server.WriteTimeout},
		{EnvIdleTimeout, "60s", &cfg.Server.IdleTimeout},
	}
	for _, d := range durations {
		raw := get(d.key, d.def)
		if *d.dest, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.key, raw, err)
		}
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	v := validation.New()
	for _, section := range []any{c.App, c.Logger, c.Storage, c.Media, c.Server} {
		if err := v.Validate(section); err != nil {
			return err
		}
	}
	return nil
}

// expandPaths makes DATA_PATH absolute and derives the per-kind locations
// from it when they were not set explicitly.
func (c *Config) expandPaths() error {
	s := &c.Storage
	var err error
	if s.DataPath, err = expandPath(s.DataPath, DefaultDataPath); err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}

	derived := []struct {
		dest *string
		def  string
	}{
		{&s.MediaDir, filepath.Join(s.DataPath, "media")},
		{&s.ThumbDir, filepath.Join(s.DataPath, "thumbnails")},
		{&s.MetaFile, filepath.Join(s.DataPath, "meta.json")},
		{&s.BackupDir, filepath.Join(s.DataPath, "backups")},
	}
	for _, d := range derived {
		if *d.dest, err = expandPath(*d.dest, d.def); err != nil {
			return fmt.Errorf("invalid path %q: %w", *d.dest, err)
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is expanded instead.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		path = defaultPath
	}
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return n, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments). Variables already set
// in the environment win.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
