package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the leave backend REST client.
type APIConfig struct {
	// BaseURL is the root of the REST API, including the /api prefix.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how often a rate-limited request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// NotificationConfig holds notification polling settings.
type NotificationConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// MicrosoftConfig holds settings for Microsoft sign-in.
type MicrosoftConfig struct {
	// ClientID is the Azure AD application (public client) ID.
	// Microsoft sign-in is unavailable when empty.
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	// Authority is the identity platform base, e.g.
	// https://login.microsoftonline.com/<tenant>.
	Authority string `mapstructure:"authority" yaml:"authority"`

	// GraphEndpoint is the Microsoft Graph API root.
	GraphEndpoint string `mapstructure:"graph_endpoint" yaml:"graph_endpoint"`

	Scopes []string `mapstructure:"scopes" yaml:"scopes"`

	// AllowedDomains restricts which email domains may sign in when
	// EnforceDomains is set.
	AllowedDomains []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`
	EnforceDomains bool     `mapstructure:"enforce_domains" yaml:"enforce_domains"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// StorageConfig locates the local cache database and session keyring.
type StorageConfig struct {
	DBPath     string `mapstructure:"db_path" yaml:"db_path"`
	KeyringDir string `mapstructure:"keyring_dir" yaml:"keyring_dir"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig          `mapstructure:"api" yaml:"api"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Microsoft     MicrosoftConfig    `mapstructure:"microsoft" yaml:"microsoft"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`
	Storage       StorageConfig      `mapstructure:"storage" yaml:"storage"`
}

// envPrefix scopes environment overrides, e.g. LEAVEDESK_API_BASE_URL.
const envPrefix = "LEAVEDESK"

// ConfigDir returns ~/.config/leavedesk, falling back to the working
// directory when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "leavedesk")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/leavedesk/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// setDefaults registers every default on v so that missing keys and
// environment-only setups resolve to sensible values.
func setDefaults(v *viper.Viper) {
	dir := ConfigDir()

	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("notifications.poll_interval_sec", 60)
	v.SetDefault("microsoft.client_id", "")
	v.SetDefault("microsoft.authority", "https://login.microsoftonline.com/common")
	v.SetDefault("microsoft.graph_endpoint", "https://graph.microsoft.com/v1.0")
	v.SetDefault("microsoft.scopes", []string{"openid", "profile", "email", "User.Read"})
	v.SetDefault("microsoft.allowed_domains", []string{})
	v.SetDefault("microsoft.enforce_domains", false)
	v.SetDefault("display.theme", "default")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "leavedesk.log"))
	v.SetDefault("storage.db_path", filepath.Join(dir, "cache.db"))
	v.SetDefault("storage.keyring_dir", filepath.Join(dir, "credentials"))
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults; LEAVEDESK_* environment variables
// override both.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.PollIntervalSec <= 0 {
		cfg.Notifications.PollIntervalSec = 60
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 30
	}
	if cfg.API.MaxRetries < 0 {
		cfg.API.MaxRetries = 0
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("notifications", cfg.Notifications)
	v.Set("microsoft", cfg.Microsoft)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("storage", cfg.Storage)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
