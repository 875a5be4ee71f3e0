// Package config provides configuration loading, validation, and management
// for the gitchat application. It handles reading from YAML files,
// GITCHAT_* environment variables, default values, and validation of
// configuration parameters.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration indicates an invalid or missing configuration value.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration parameters for all
// components of the gitchat system.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Git      GitConfig      `mapstructure:"git"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// ServerConfig holds HTTP listener and request handling settings.
type ServerConfig struct {
	ListenAddr       string `mapstructure:"listen_addr"        validate:"required"`
	DefaultPageSize  int    `mapstructure:"default_page_size"  validate:"min=1,max=500"`
	MaxPageSize      int    `mapstructure:"max_page_size"      validate:"min=1,max=1000"`
	MaxContentLength int    `mapstructure:"max_content_length" validate:"min=1"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MirrorConfig holds settings for the per-message JSON file mirror.
type MirrorConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// GitConfig holds settings for the version-control bridge. WorkTree is
// the local checkout the mirror directory lives inside; Remote and
// Branch identify the push target.
type GitConfig struct {
	WorkTree       string        `mapstructure:"work_tree"       validate:"required"`
	Remote         string        `mapstructure:"remote"          validate:"required"`
	Branch         string        `mapstructure:"branch"          validate:"required"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" validate:"min=1s,max=10m"`
}

// GitHubConfig holds settings for the GitHub API used by the repository
// import feature. Token is expected to come from the environment
// (GITCHAT_GITHUB_TOKEN); it is never accepted from request input.
type GitHubConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url" validate:"url"`
}

// SyncConfig controls the scheduled auto-push task.
type SyncConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. The YAML file at configPath (optional)
// 3. GITCHAT_* environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("GITCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
		// Missing config file is fine, defaults and environment apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if cfg.Sync.Enabled && cfg.Sync.Schedule == "" {
		return nil, fmt.Errorf("%w: sync.schedule is required when sync.enabled is true", ErrConfiguration)
	}

	return cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	// viper reports a plain *fs.PathError when SetConfigFile points at a
	// missing path rather than ConfigFileNotFoundError.
	return strings.Contains(err.Error(), "no such file")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8888")
	v.SetDefault("server.default_page_size", 20)
	v.SetDefault("server.max_page_size", 100)
	v.SetDefault("server.max_content_length", 10000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.path", "database/messages.db")

	v.SetDefault("mirror.dir", "messages")

	v.SetDefault("git.work_tree", ".")
	v.SetDefault("git.remote", "origin")
	v.SetDefault("git.branch", "main")
	v.SetDefault("git.command_timeout", 30*time.Second)

	v.SetDefault("github.base_url", "https://api.github.com")

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.schedule", "")
}
