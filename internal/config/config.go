package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"query-registry-mcp/pkg/models"
)

// Config holds the configuration for the application.
type Config struct {
	Environment string `mapstructure:"environment"`
	DB          struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		PoolMin  int    `mapstructure:"pool_min"`
		PoolMax  int    `mapstructure:"pool_max"`
	} `mapstructure:"db"`
	Limits struct {
		HardMaxRows    int `mapstructure:"hard_max_rows"`
		DefaultMaxRows int `mapstructure:"default_max_rows"`
	} `mapstructure:"limits"`
	Audit struct {
		LogPath    string `mapstructure:"log_path"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"audit"`
	Auth struct {
		Issuer        string `mapstructure:"issuer"`
		ClientID      string `mapstructure:"client_id"`
		DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	} `mapstructure:"auth"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment.
// An empty path falls back to config.yaml in the working directory or
// ./config.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.AutomaticEnv()

	viper.SetDefault("environment", string(models.EnvLocal))
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("db.pool_min", 1)
	viper.SetDefault("db.pool_max", 10)
	viper.SetDefault("limits.hard_max_rows", 2000)
	viper.SetDefault("limits.default_max_rows", 500)
	viper.SetDefault("audit.log_path", "audit.log")
	viper.SetDefault("audit.max_size_mb", 50)
	viper.SetDefault("audit.max_backups", 30)
	viper.SetDefault("audit.max_age_days", 0)
	viper.SetDefault("server.addr", ":8080")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// normalize issuer url (strip trailing slash if any) so users can paste
	// the full URL from the provider console
	config.Auth.Issuer = strings.TrimRight(strings.TrimSpace(config.Auth.Issuer), "/")

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validate(cfg *Config) error {
	switch models.Environment(cfg.Environment) {
	case models.EnvLocal, models.EnvDev, models.EnvSIT, models.EnvUAT, models.EnvProd:
	default:
		return fmt.Errorf("unknown environment %q", cfg.Environment)
	}
	if cfg.Limits.HardMaxRows <= 0 {
		return fmt.Errorf("limits.hard_max_rows must be positive, got %d", cfg.Limits.HardMaxRows)
	}
	if cfg.Limits.DefaultMaxRows <= 0 || cfg.Limits.DefaultMaxRows > cfg.Limits.HardMaxRows {
		return fmt.Errorf("limits.default_max_rows must be in (0, hard_max_rows], got %d", cfg.Limits.DefaultMaxRows)
	}
	if cfg.TLS.Enable && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		return fmt.Errorf("tls.enable requires tls.cert_file and tls.key_file")
	}
	return nil
}

// Env returns the configured deployment tier.
func (c *Config) Env() models.Environment {
	return models.Environment(c.Environment)
}
