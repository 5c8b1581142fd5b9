package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Engine   *EngineConfig   `mapstructure:"engine"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	BaseURL            string   `mapstructure:"base_url"`
	Port               string   `mapstructure:"port"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// EngineConfig holds the orchestration engine tunables.
type EngineConfig struct {
	EventID               string            `mapstructure:"event_id"`
	EventName             string            `mapstructure:"event_name"`
	AllowResetAfterFinish bool              `mapstructure:"allow_reset_after_finish"`
	QueueCapacity         int               `mapstructure:"queue_capacity"`
	DedupeTTLSeconds      int               `mapstructure:"dedupe_ttl_seconds"`
	Congestion            *CongestionConfig `mapstructure:"congestion"`
	Insights              *InsightConfig    `mapstructure:"insights"`
	Dispatch              *DispatchConfig   `mapstructure:"dispatch"`
}

// CongestionConfig sets the open-visit counts at which a station is
// classified medium, high and critical. Below Medium is low.
type CongestionConfig struct {
	Medium   int `mapstructure:"medium"`
	High     int `mapstructure:"high"`
	Critical int `mapstructure:"critical"`
}

type InsightConfig struct {
	LowParticipationBelow float64 `mapstructure:"low_participation_below"`
	GoodCompletionAbove   float64 `mapstructure:"good_completion_above"`
	LowCompletionBelow    float64 `mapstructure:"low_completion_below"`
	DifficultyAbove       float64 `mapstructure:"difficulty_above"`
	StalledAfterMinutes   int     `mapstructure:"stalled_after_minutes"`
}

type DispatchConfig struct {
	RetryAttempts      int `mapstructure:"retry_attempts"`
	RetryBackoffMillis int `mapstructure:"retry_backoff_millis"`
	MessagesPerMinute  int `mapstructure:"messages_per_minute"`
}

// DedupeTTL returns the duplicate-suppression window for the event bus.
func (c *EngineConfig) DedupeTTL() time.Duration {
	if c.DedupeTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}

// StalledAfter returns the inactivity window after which an active team
// counts as stalled.
func (c *InsightConfig) StalledAfter() time.Duration {
	if c.StalledAfterMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.StalledAfterMinutes) * time.Minute
}

// RetryBackoff returns the initial backoff between dispatch retries.
func (c *DispatchConfig) RetryBackoff() time.Duration {
	if c.RetryBackoffMillis <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

func Load(configPath string) (*AppConfig, error) {
	viper.SetConfigFile(configPath)

	viper.SetEnvPrefix("SCAVHUNT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper.ReadInConfig -> %w", err)
	}

	config := &AppConfig{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal -> %w", err)
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("config file changed", zap.String("file", e.Name))

		if err := viper.Unmarshal(config); err != nil {
			zap.L().Error("failed to reload config", zap.Error(err))
		}
	})
	viper.WatchConfig()

	return config, nil
}
