// Package config loads the service configuration from defaults, an optional
// config.yaml, a .env file and HANZI_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Brownie44l1/hanzi-api/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. HANZI_MODEL_DEVICE.
const EnvPrefix = "HANZI"

// Config is the complete service configuration.
type Config struct {
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		CORSOrigins     []string      `mapstructure:"cors_origins"`
		MaxFormMB       int64         `mapstructure:"max_form_mb"`
	} `mapstructure:"server"`

	Paths struct {
		BaseDir string `mapstructure:"base_dir"`
	} `mapstructure:"paths"`

	Model struct {
		Path           string `mapstructure:"path"`
		Device         string `mapstructure:"device"`
		RuntimeLibrary string `mapstructure:"runtime_library"`
	} `mapstructure:"model"`

	Labels struct {
		ClassIndices string `mapstructure:"class_indices"`
		IDToLabel    string `mapstructure:"id_to_label"`
	} `mapstructure:"labels"`

	Log struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format"`
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"log"`
}

// Load builds a Config. configFile may be empty, in which case config.yaml is
// looked up in the usual places and its absence is not an error.
func Load(configFile string) (*Config, error) {
	return LoadWith(viper.New(), configFile)
}

// LoadWith is Load on a caller-supplied viper instance, so command-line flags
// can be bound before reading.
func LoadWith(v *viper.Viper, configFile string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.hanzi-api")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv loads the first .env found in the working directory or its
// parent. Existing environment variables win.
func loadDotEnv() error {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		return nil
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_form_mb", 32)

	v.SetDefault("paths.base_dir", "")

	v.SetDefault("model.path", "best.onnx")
	v.SetDefault("model.device", "auto")
	v.SetDefault("model.runtime_library", "")

	v.SetDefault("labels.class_indices", "class_indices.json")
	v.SetDefault("labels.id_to_label", "ID_to_chinese.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
}

// Validate checks value ranges and required settings.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.MaxFormMB < 1 {
		return fmt.Errorf("server.max_form_mb must be positive, got: %d", c.Server.MaxFormMB)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.Log.Format)
	}
	if _, err := model.ParseDevice(c.Model.Device); err != nil {
		return fmt.Errorf("model.device: %w", err)
	}
	if strings.TrimSpace(c.Model.Path) == "" {
		return errors.New("model.path is required")
	}
	if strings.TrimSpace(c.Labels.ClassIndices) == "" || strings.TrimSpace(c.Labels.IDToLabel) == "" {
		return errors.New("labels.class_indices and labels.id_to_label are required")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Device returns the parsed model device. Validate has already checked it.
func (c *Config) Device() model.Device {
	d, _ := model.ParseDevice(c.Model.Device)
	return d
}

// Resolve makes a resource path absolute against the base directory. An
// empty base directory means the working directory, stepping out of
// cmd/server when the binary is run from there.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.baseDir(), path)
}

func (c *Config) baseDir() string {
	if c.Paths.BaseDir != "" {
		return c.Paths.BaseDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if filepath.Base(wd) == "server" && filepath.Base(filepath.Dir(wd)) == "cmd" {
		return filepath.Join(wd, "..", "..")
	}
	return wd
}
