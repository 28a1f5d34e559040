package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Twilio  TwilioConfig  `mapstructure:"twilio"`
	Sheet   SheetConfig   `mapstructure:"sheet"`
	Media   MediaConfig   `mapstructure:"media"`
	Local   LocalConfig   `mapstructure:"local"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	APIBaseURL string `mapstructure:"api_base_url"`
}

type SheetConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Tab             string `mapstructure:"tab"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type MediaConfig struct {
	// PublicBaseURL is where this service is reachable; proxy links in
	// stored records are built from it. Empty disables link construction.
	PublicBaseURL string `mapstructure:"public_base_url"`

	// AccessToken gates the media proxy. Empty means open access.
	AccessToken string `mapstructure:"access_token"`
}

type LocalConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("twilio.api_base_url", "https://api.twilio.com")
	v.SetDefault("sheet.tab", "whatsapp_inbox_v2")
	v.SetDefault("sheet.credentials_file", "credentials.json")
	v.SetDefault("local.timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.lock_ttl", "10s")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "sluice.records")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sluice")
	}

	// Environment variables override
	v.SetEnvPrefix("SLUICE")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Twilio.AccountSID == "" {
		return fmt.Errorf("twilio.account_sid is required")
	}
	if c.Twilio.AuthToken == "" {
		return fmt.Errorf("twilio.auth_token is required")
	}
	if c.Sheet.SpreadsheetID == "" {
		return fmt.Errorf("sheet.spreadsheet_id is required")
	}
	return nil
}
