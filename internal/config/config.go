package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type RateLimitConfig struct {
	Capacity        int     `yaml:"capacity"`
	Burst           int     `yaml:"burst"`
	RefillPerSecond float64 `yaml:"refill_per_second"`
}

type VerificationConfig struct {
	CodeExpiryMinutes     int `yaml:"code_expiry_minutes"`
	MaxAttempts           int `yaml:"max_attempts"`
	ResendCooldownSeconds int `yaml:"resend_cooldown_seconds"`
}

type CleanupConfig struct {
	RevokedRetentionDays int `yaml:"revoked_retention_days"`
	ExpiredGraceDays     int `yaml:"expired_grace_days"`
	IntervalMinutes      int `yaml:"interval_minutes"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	JWT struct {
		Secret                string `yaml:"secret"`
		AccessTokenTTLMinutes int    `yaml:"access_token_ttl_minutes"`
		RefreshTokenTTLDays   int    `yaml:"refresh_token_ttl_days"`
	} `yaml:"jwt"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Verification VerificationConfig `yaml:"verification"`
	Cleanup      CleanupConfig      `yaml:"cleanup"`
	Telegram     TelegramConfig     `yaml:"telegram"`
}

func LoadConfig() *Config {
	return LoadConfigFile("config/config.yaml")
}

func LoadConfigFile(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		panic("Failed to open " + path + ": " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse " + path + ": " + err.Error())
	}
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.JWT.AccessTokenTTLMinutes == 0 {
		c.JWT.AccessTokenTTLMinutes = 15
	}
	if c.JWT.RefreshTokenTTLDays == 0 {
		c.JWT.RefreshTokenTTLDays = 30
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 20
	}
	if c.RateLimit.RefillPerSecond == 0 {
		c.RateLimit.RefillPerSecond = 1
	}
	if c.Verification.CodeExpiryMinutes == 0 {
		c.Verification.CodeExpiryMinutes = 10
	}
	if c.Verification.MaxAttempts == 0 {
		c.Verification.MaxAttempts = 5
	}
	if c.Verification.ResendCooldownSeconds == 0 {
		c.Verification.ResendCooldownSeconds = 60
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 60
	}
}
