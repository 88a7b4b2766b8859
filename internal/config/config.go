// Package config loads planbak settings from the YAML config file, a
// .env.local file and PLANBAK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	Output     string `yaml:"output"`
	Device     string `yaml:"device"`
	PeerAddr   string `yaml:"peer_addr"`
	PeerToken  string `yaml:"peer_token"`
	ArchiveDir string `yaml:"archive_dir"`
	S3         S3     `yaml:"s3"`
}

// S3 configures the S3-compatible archive backend. It is used when Bucket is set.
type S3 struct {
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Enabled reports whether a bucket is configured.
func (s S3) Enabled() bool {
	return s.Bucket != ""
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. $XDG_CONFIG_HOME/planbak/config.yaml (or $PLANBAK_CONFIG)
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:  "info",
		LogFormat: "console",
		Output:    "table",
		PeerAddr:  "127.0.0.1:7421",
		S3: S3{
			Endpoint:       "localhost:9000",
			TimeoutSeconds: 30,
		},
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	if err := loadYAMLConfig(cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	xdg.Reload()
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(xdg.DataHome, "planbak", "planbak.db")
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = filepath.Join(xdg.DataHome, "planbak", "archive")
	}
	if cfg.Device == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Device = host
		}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if dbPath := getEnvOrFile("PLANBAK_DB_PATH", "PLANBAK_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel := os.Getenv("PLANBAK_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("PLANBAK_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if output := os.Getenv("PLANBAK_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if device := os.Getenv("PLANBAK_DEVICE"); device != "" {
		cfg.Device = device
	}
	if addr := os.Getenv("PLANBAK_PEER_ADDR"); addr != "" {
		cfg.PeerAddr = addr
	}
	if token := getEnvOrFile("PLANBAK_PEER_TOKEN", "PLANBAK_PEER_TOKEN_FILE"); token != "" {
		cfg.PeerToken = token
	}
	if dir := os.Getenv("PLANBAK_ARCHIVE_DIR"); dir != "" {
		cfg.ArchiveDir = dir
	}

	if v := os.Getenv("PLANBAK_S3_ENDPOINT"); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := os.Getenv("PLANBAK_S3_ACCESS_KEY"); v != "" {
		cfg.S3.AccessKey = v
	}
	if v := getEnvOrFile("PLANBAK_S3_SECRET_KEY", "PLANBAK_S3_SECRET_KEY_FILE"); v != "" {
		cfg.S3.SecretKey = v
	}
	if v := os.Getenv("PLANBAK_S3_BUCKET"); v != "" {
		cfg.S3.Bucket = v
	}
	if v := os.Getenv("PLANBAK_S3_REGION"); v != "" {
		cfg.S3.Region = v
	}
	if v := os.Getenv("PLANBAK_S3_PREFIX"); v != "" {
		cfg.S3.Prefix = v
	}
	if v, err := strconv.ParseBool(os.Getenv("PLANBAK_S3_USE_SSL")); err == nil {
		cfg.S3.UseSSL = v
	}
}

// ConfigPath returns the YAML config file location.
func ConfigPath() string {
	if p := os.Getenv("PLANBAK_CONFIG"); p != "" {
		return p
	}
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, "planbak", "config.yaml")
}

// loadYAMLConfig loads configuration from ConfigPath. A missing file is not an
// error; an unreadable or invalid one is.
func loadYAMLConfig(cfg *Config) error {
	configPath := ConfigPath()
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}
	return nil
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
