package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"

	"github.com/sandeepkv93/focusd/internal/sound"
)

type SoundConfig struct {
	Mode       string `mapstructure:"mode"` // "always", "background-only" or "off"
	Path       string `mapstructure:"path"`
	MaxSeconds int    `mapstructure:"max_seconds"`
}

type RetryConfig struct {
	BaseDelayMs int64 `mapstructure:"base_delay_ms"`
	MaxDelayMs  int64 `mapstructure:"max_delay_ms"`
}

type Config struct {
	DatabasePath         string      `mapstructure:"database_path"`
	WatchdogCron         string      `mapstructure:"watchdog_cron"`
	DrainLimit           int         `mapstructure:"drain_limit"`
	DesktopNotifications bool        `mapstructure:"desktop_notifications"`
	UIDensity            int         `mapstructure:"ui_density"`
	Retry                RetryConfig `mapstructure:"retry"`
	Sound                SoundConfig `mapstructure:"sound"`
}

func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/focusd")
		viper.AddConfigPath("/etc/focusd/")
	}

	viper.SetEnvPrefix("FOCUSD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("database_path", "focusd.db")
	viper.SetDefault("watchdog_cron", "* * * * *")
	viper.SetDefault("drain_limit", 3)
	viper.SetDefault("desktop_notifications", true)
	viper.SetDefault("ui_density", 1)
	viper.SetDefault("retry.base_delay_ms", 2000)
	viper.SetDefault("retry.max_delay_ms", 60000)
	viper.SetDefault("sound.mode", "always")
	viper.SetDefault("sound.path", "")
	viper.SetDefault("sound.max_seconds", 5)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.clamp()
	return &cfg, nil
}

// clamp repairs out-of-range values in place with a logged warning,
// matching the defensive posture of the persisted-state parser.
func (c *Config) clamp() {
	if c.Retry.BaseDelayMs < 1 {
		log.Printf("Warning: retry.base_delay_ms %d too low, setting to 2000", c.Retry.BaseDelayMs)
		c.Retry.BaseDelayMs = 2000
	}
	if c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		log.Printf("Warning: retry.max_delay_ms %d below base delay, raising to %d", c.Retry.MaxDelayMs, c.Retry.BaseDelayMs)
		c.Retry.MaxDelayMs = c.Retry.BaseDelayMs
	}
	if c.DrainLimit < 1 {
		log.Printf("Warning: drain_limit %d too low, setting to 3", c.DrainLimit)
		c.DrainLimit = 3
	}
	if c.UIDensity < 1 || c.UIDensity > 3 {
		log.Printf("Warning: ui_density %d out of range, setting to 1", c.UIDensity)
		c.UIDensity = 1
	}
	if mode := sound.NormalizeMode(c.Sound.Mode); string(mode) != c.Sound.Mode {
		log.Printf("Warning: invalid sound.mode '%s', defaulting to '%s'", c.Sound.Mode, mode)
		c.Sound.Mode = string(mode)
	}
	if clamped := sound.ClampDurationSec(c.Sound.MaxSeconds); clamped != c.Sound.MaxSeconds {
		log.Printf("Warning: sound.max_seconds %d out of range, setting to %d", c.Sound.MaxSeconds, clamped)
		c.Sound.MaxSeconds = clamped
	}
}
