// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/internal/constants"
	"gopkg.in/yaml.v3"
)

var (
	instance   *Config
	once       sync.Once
	configPath string // Tracks where the config was loaded from
)

type Config struct {
	ZFS struct {
		Backend  string        `mapstructure:"backend" yaml:"backend"` // cli or memory
		ZFSBin   string        `mapstructure:"zfsBin" yaml:"zfsBin"`
		ZpoolBin string        `mapstructure:"zpoolBin" yaml:"zpoolBin"`
		UseSudo  bool          `mapstructure:"useSudo" yaml:"useSudo"`
		Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"zfs" yaml:"zfs"`

	Server struct {
		Port    int    `mapstructure:"port" yaml:"port"`
		PIDFile string `mapstructure:"pidFile" yaml:"pidFile"`
	} `mapstructure:"server" yaml:"server"`

	Logs struct {
		Path string `mapstructure:"path" yaml:"path"` // daemon output with serve --detach
	} `mapstructure:"logs" yaml:"logs"`

	Logger struct {
		LogLevel     string `mapstructure:"logLevel" yaml:"logLevel"`
		EnableSentry bool   `mapstructure:"enableSentry" yaml:"enableSentry"`
		SentryDSN    string `mapstructure:"sentryDSN" yaml:"sentryDSN"`
	} `mapstructure:"logger" yaml:"logger"`

	Environment string `mapstructure:"environment" yaml:"environment"`
}

// GetConfigDir returns the directory holding the default config file.
func GetConfigDir() string {
	if os.Geteuid() == 0 {
		return "/etc/zfskit"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.ConfigDirName
	}
	return filepath.Join(home, constants.ConfigDirName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")
	v.SetDefault("zfs.backend", constants.BackendCLI)
	v.SetDefault("zfs.zfsBin", "zfs")
	v.SetDefault("zfs.zpoolBin", "zpool")
	v.SetDefault("zfs.useSudo", true)
	v.SetDefault("zfs.timeout", 30*time.Second)
	v.SetDefault("server.port", 8043)
	v.SetDefault("server.pidFile", filepath.Join(GetConfigDir(), constants.PIDFileName))
	v.SetDefault("logs.path", filepath.Join(GetConfigDir(), constants.LogFileName))
	v.SetDefault("logger.logLevel", "info")
	v.SetDefault("logger.enableSentry", false)
	v.SetDefault("logger.sentryDSN", "")
}

// Load reads configuration from configFilePath, or from the default
// location when it is empty, without touching the shared instance. A
// missing file yields the defaults.
func Load(configFilePath string) (*Config, string, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	path := configFilePath
	if path == "" {
		if envPath := os.Getenv(constants.ConfigEnv); envPath != "" {
			path = envPath
		} else {
			path = filepath.Join(GetConfigDir(), constants.ConfigFileName)
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, path, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.ZFS.Backend {
	case constants.BackendCLI, constants.BackendMemory:
	default:
		return fmt.Errorf("unknown zfs backend %q: want %s or %s",
			c.ZFS.Backend, constants.BackendCLI, constants.BackendMemory)
	}
	if c.ZFS.Timeout < 0 {
		return fmt.Errorf("zfs timeout must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// LoadConfig loads the configuration with precedence rules: explicit path,
// then the ZFSKIT_CONFIG environment variable, then the default location.
// Environment variables prefixed ZFSKIT_ override file values.
func LoadConfig(configFilePath string) *Config {
	once.Do(func() {
		l, err := logger.NewTag(logger.Config{LogLevel: "info"}, "config")
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}

		cfg, path, err := Load(configFilePath)
		configPath = path
		if err != nil {
			l.Error("Error loading config, using defaults", "path", path, "err", err)
			v := viper.New()
			setDefaults(v)
			cfg = &Config{}
			if err := v.Unmarshal(cfg); err != nil {
				l.Error("Failed to unmarshal default configuration", "err", err)
			}
		} else {
			l.Debug("Using config file", "path", path)
		}
		instance = cfg
		l.Debug("Loaded configuration", "config", fmt.Sprintf("%+v", *instance))
	})

	return instance
}

// SaveConfig persists the current configuration to path, or to the
// default location when path is empty.
func SaveConfig(path string) error {
	if path == "" {
		path = filepath.Join(GetConfigDir(), constants.ConfigFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configYAML, err := yaml.Marshal(GetConfig())
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	if err := os.WriteFile(path, configYAML, 0644); err != nil {
		return fmt.Errorf("failed to write configuration to file: %w", err)
	}

	configPath = path
	return nil
}

// GetLoadedConfigPath returns the path of the currently loaded configuration file.
func GetLoadedConfigPath() string {
	return configPath
}

// GetConfig returns the current configuration instance.
func GetConfig() *Config {
	if instance == nil {
		return LoadConfig("")
	}
	return instance
}

func NewLoggerConfig(cfg *Config) logger.Config {
	if cfg == nil {
		return logger.Config{
			LogLevel:     "info",
			EnableSentry: false,
			SentryDSN:    "",
		}
	}

	return logger.Config{
		LogLevel:     cfg.Logger.LogLevel,
		EnableSentry: cfg.Logger.EnableSentry,
		SentryDSN:    cfg.Logger.SentryDSN,
	}
}
