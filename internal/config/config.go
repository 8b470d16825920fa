package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Collect   CollectConfig   `yaml:"collect" mapstructure:"collect"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Retention RetentionConfig `yaml:"retention" mapstructure:"retention"`
	Queue     QueueConfig     `yaml:"queue" mapstructure:"queue"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the canonical record store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// CollectConfig bounds collector execution within a run.
type CollectConfig struct {
	MaxConcurrent   int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestTimeout  int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	RequestsPerSec  float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	JijiBaseURL     string  `yaml:"jiji_base_url" mapstructure:"jiji_base_url"`
	VConnectBaseURL string  `yaml:"vconnect_base_url" mapstructure:"vconnect_base_url"`
	EventsBaseURL   string  `yaml:"events_base_url" mapstructure:"events_base_url"`
}

// NormalizeConfig holds confidence scoring knobs. Every increment is
// explicit so tests can override scoring without touching globals.
type NormalizeConfig struct {
	BaseScore          float64 `yaml:"base_score" mapstructure:"base_score"`
	TradeLanguageBonus float64 `yaml:"trade_language_bonus" mapstructure:"trade_language_bonus"`
	MOQBonus           float64 `yaml:"moq_bonus" mapstructure:"moq_bonus"`
	PhoneBonus         float64 `yaml:"phone_bonus" mapstructure:"phone_bonus"`
	WhatsAppBonus      float64 `yaml:"whatsapp_bonus" mapstructure:"whatsapp_bonus"`
	EmailBonus         float64 `yaml:"email_bonus" mapstructure:"email_bonus"`
	RegionBonus        float64 `yaml:"region_bonus" mapstructure:"region_bonus"`
	RegistrationBonus  float64 `yaml:"registration_bonus" mapstructure:"registration_bonus"`
	CategoriesBonus    float64 `yaml:"categories_bonus" mapstructure:"categories_bonus"`
	NoTradeTermPenalty float64 `yaml:"no_trade_term_penalty" mapstructure:"no_trade_term_penalty"`
	TradeDetectCutoff  float64 `yaml:"trade_detect_cutoff" mapstructure:"trade_detect_cutoff"`
	ApprovalThreshold  float64 `yaml:"approval_threshold" mapstructure:"approval_threshold"`
	MaxEvidence        int     `yaml:"max_evidence" mapstructure:"max_evidence"`
}

// MatchConfig holds the similarity weights and threshold policy.
type MatchConfig struct {
	NameWeight     float64 `yaml:"name_weight" mapstructure:"name_weight"`
	PhoneWeight    float64 `yaml:"phone_weight" mapstructure:"phone_weight"`
	RegionWeight   float64 `yaml:"region_weight" mapstructure:"region_weight"`
	WebEmailWeight float64 `yaml:"web_email_weight" mapstructure:"web_email_weight"`
	AutoMergeAt    float64 `yaml:"auto_merge_at" mapstructure:"auto_merge_at"`
	ReviewAt       float64 `yaml:"review_at" mapstructure:"review_at"`
}

// RetentionConfig configures the post-run retention sweep. Only event-kind
// records are ever swept; supplier retirement is human/blacklist-driven.
type RetentionConfig struct {
	EventWindowDays int `yaml:"event_window_days" mapstructure:"event_window_days"`
}

// QueueConfig configures the run job queue and worker.
type QueueConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffSecs int `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	PollSecs    int `yaml:"poll_secs" mapstructure:"poll_secs"`
	Workers     int `yaml:"workers" mapstructure:"workers"`
}

// ScheduleConfig names the recurring trigger slots.
type ScheduleConfig struct {
	MonthStartCron string `yaml:"month_start_cron" mapstructure:"month_start_cron"`
	MidMonthCron   string `yaml:"mid_month_cron" mapstructure:"mid_month_cron"`
}

// ExportConfig configures snapshot artifacts.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// NotifyConfig configures the completion webhook. Empty URL disables it.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the trigger/review HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "directory.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("collect.max_concurrent", 3)
	v.SetDefault("collect.request_timeout_secs", 20)
	v.SetDefault("collect.requests_per_sec", 2.0)
	v.SetDefault("collect.user_agent", "partybase-directory/1.0")
	v.SetDefault("collect.jiji_base_url", "https://jiji.ng")
	v.SetDefault("collect.vconnect_base_url", "https://www.vconnect.com")
	v.SetDefault("collect.events_base_url", "https://api.allevents.ng")

	v.SetDefault("normalize.base_score", 0.3)
	v.SetDefault("normalize.trade_language_bonus", 0.15)
	v.SetDefault("normalize.moq_bonus", 0.05)
	v.SetDefault("normalize.phone_bonus", 0.1)
	v.SetDefault("normalize.whatsapp_bonus", 0.05)
	v.SetDefault("normalize.email_bonus", 0.05)
	v.SetDefault("normalize.region_bonus", 0.1)
	v.SetDefault("normalize.registration_bonus", 0.1)
	v.SetDefault("normalize.categories_bonus", 0.05)
	v.SetDefault("normalize.no_trade_term_penalty", 0.1)
	v.SetDefault("normalize.trade_detect_cutoff", 0.3)
	v.SetDefault("normalize.approval_threshold", 0.6)
	v.SetDefault("normalize.max_evidence", 5)

	v.SetDefault("match.name_weight", 0.4)
	v.SetDefault("match.phone_weight", 0.3)
	v.SetDefault("match.region_weight", 0.1)
	v.SetDefault("match.web_email_weight", 0.2)
	v.SetDefault("match.auto_merge_at", 0.95)
	v.SetDefault("match.review_at", 0.70)

	v.SetDefault("retention.event_window_days", 7)

	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.backoff_secs", 60)
	v.SetDefault("queue.poll_secs", 5)
	v.SetDefault("queue.workers", 1)

	// 06:00 on the 1st and 15th.
	v.SetDefault("schedule.month_start_cron", "0 6 1 * *")
	v.SetDefault("schedule.mid_month_cron", "0 6 15 * *")

	v.SetDefault("export.dir", "exports")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
