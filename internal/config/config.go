// Package config loads x4index settings.
//
// Values are layered, later sources winning: built-in defaults, an optional
// YAML file (--config or X4INDEX_CONFIG), X4INDEX_* environment variables and
// finally command-line flags, which the CLI applies to the loaded Config before
// calling Validate. A .env file in the working directory is read into the
// environment first; variables already set are not overridden.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/exfor-index/internal/indexer"
	"github.com/dshills/exfor-index/internal/storage"
)

// Environment variables read by Load
const (
	EnvConfig      = "X4INDEX_CONFIG"
	EnvWorkers     = "X4INDEX_WORKERS"
	EnvChunkCap    = "X4INDEX_CHUNK_CAP"
	EnvOut         = "X4INDEX_OUT"
	EnvDB          = "X4INDEX_DB"
	EnvExtension   = "X4INDEX_EXT"
	EnvLogLevel    = "X4INDEX_LOG_LEVEL"
	EnvLogFormat   = "X4INDEX_LOG_FORMAT"
	EnvMetricsAddr = "X4INDEX_METRICS_ADDR"
	EnvForce       = "X4INDEX_FORCE"
)

// DotEnvFile is read by LoadDotEnv
const DotEnvFile = ".env"

// Config holds every setting of a run
type Config struct {
	Workers     int    `yaml:"workers" validate:"gte=1,lte=1024"`
	ChunkCap    int    `yaml:"chunk_cap" validate:"gte=1"`
	Extension   string `yaml:"extension" validate:"required,startswith=."`
	DB          string `yaml:"db" validate:"required"`  // Unpacked database root
	Out         string `yaml:"out" validate:"required"` // Directory receiving the index and archives
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `yaml:"log_format" validate:"oneof=auto text json"`
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,listenaddr"`
	Force       bool   `yaml:"force"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("listenaddr", validateListenAddr)
}

// validateListenAddr accepts host:port and :port
func validateListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n > 0 && n < 65536
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Workers:   indexer.DefaultWorkers(),
		ChunkCap:  indexer.DefaultChunkCap,
		Extension: indexer.DefaultExtension,
		DB:        "db",
		Out:       ".",
		LogLevel:  "info",
		LogFormat: "auto",
	}
}

// LoadDotEnv reads DotEnvFile into the environment when it exists
func LoadDotEnv() error {
	err := godotenv.Load(DotEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}
	return nil
}

// Load layers defaults, the YAML file at path and the environment.
// An empty path falls back to X4INDEX_CONFIG; with neither set no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Workers, err = getenvInt(EnvWorkers, c.Workers); err != nil {
		return err
	}
	if c.ChunkCap, err = getenvInt(EnvChunkCap, c.ChunkCap); err != nil {
		return err
	}
	if c.Force, err = getenvBool(EnvForce, c.Force); err != nil {
		return err
	}
	c.Out = getenv(EnvOut, c.Out)
	c.DB = getenv(EnvDB, c.DB)
	c.Extension = getenv(EnvExtension, c.Extension)
	c.LogLevel = strings.ToLower(getenv(EnvLogLevel, c.LogLevel))
	c.LogFormat = strings.ToLower(getenv(EnvLogFormat, c.LogFormat))
	c.MetricsAddr = getenv(EnvMetricsAddr, c.MetricsAddr)
	return nil
}

// Validate checks the settings after flags have been applied
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Layout names the output files under Out
func (c Config) Layout() storage.Layout {
	return storage.DefaultLayout(c.Out)
}

// BuildOptions returns the indexer options of this configuration
func (c Config) BuildOptions() indexer.Options {
	return indexer.Options{
		Workers:   c.Workers,
		ChunkCap:  c.ChunkCap,
		Extension: c.Extension,
		Force:     c.Force,
	}
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getenvBool(k string, fallback bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
