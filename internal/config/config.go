package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"lottobot/internal/generator"
	"lottobot/internal/logger"
)

const defaultExternalHTTPTimeout = 30 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	defaultProviderBaseURL = "https://www.dhlottery.co.kr"
	defaultSyncSchedule    = "0 21 * * 6" // Saturday evening, after the draw
	defaultLLMModel        = "claude-sonnet-4-5-20250929"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	DBPath string `yaml:"db_path"`

	ProviderBaseURL            string  `yaml:"provider_base_url"`
	ProviderRatePerSecond      float64 `yaml:"provider_rate_per_second"`
	ExternalHTTPTimeoutSeconds int     `yaml:"external_http_timeout_seconds"`
	SyncSchedule               string  `yaml:"sync_schedule"`
	SyncMaxRounds              int     `yaml:"sync_max_rounds"`

	PicksChannelID string `yaml:"picks_channel_id"`
	PicksDay       string `yaml:"picks_day"`
	PicksTime      string `yaml:"picks_time"`
	PicksCount     int    `yaml:"picks_count"`
	PicksStrategy  string `yaml:"picks_strategy"`

	HistoryWindow       int  `yaml:"history_window"`
	RecentWindow        int  `yaml:"recent_window"`
	IncludeBonus        bool `yaml:"include_bonus"`
	CacheSize           int  `yaml:"cache_size"`
	SimulationMaxTrials int  `yaml:"simulation_max_trials"`

	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Timezone    string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig is Load for process startup: any error is fatal.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	return cfg
}

// Load reads config.yaml (or CONFIG_PATH), applies env overrides and
// defaults, and validates the result.
func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", configPath, err)
		}
		logger.Info("loaded config", zap.String("path", configPath))
	}

	overrides := []error{
		envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN"),
		envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN"),
		envOverride(&cfg.DBPath, "DB_PATH"),
		envOverride(&cfg.ProviderBaseURL, "PROVIDER_BASE_URL"),
		envOverrideFloat(&cfg.ProviderRatePerSecond, "PROVIDER_RATE_PER_SECOND"),
		envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"),
		envOverride(&cfg.SyncSchedule, "SYNC_SCHEDULE"),
		envOverrideInt(&cfg.SyncMaxRounds, "SYNC_MAX_ROUNDS"),
		envOverrideAllowEmpty(&cfg.PicksChannelID, "PICKS_CHANNEL_ID"),
		envOverride(&cfg.PicksDay, "PICKS_DAY"),
		envOverride(&cfg.PicksTime, "PICKS_TIME"),
		envOverrideInt(&cfg.PicksCount, "PICKS_COUNT"),
		envOverride(&cfg.PicksStrategy, "PICKS_STRATEGY"),
		envOverrideInt(&cfg.HistoryWindow, "HISTORY_WINDOW"),
		envOverrideInt(&cfg.RecentWindow, "RECENT_WINDOW"),
		envOverrideBool(&cfg.IncludeBonus, "INCLUDE_BONUS"),
		envOverrideInt(&cfg.CacheSize, "CACHE_SIZE"),
		envOverrideInt(&cfg.SimulationMaxTrials, "SIMULATION_MAX_TRIALS"),
		envOverride(&cfg.LLMModel, "LLM_MODEL"),
		envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY"),
		envOverrideAllowEmpty(&cfg.MetricsAddr, "METRICS_ADDR"),
		envOverride(&cfg.LogLevel, "LOG_LEVEL"),
		envOverride(&cfg.LogFormat, "LOG_FORMAT"),
		envOverride(&cfg.Timezone, "TIMEZONE"),
	}
	for _, err := range overrides {
		if err != nil {
			return cfg, err
		}
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "./lottobot.db"
	}
	if cfg.ProviderBaseURL == "" {
		cfg.ProviderBaseURL = defaultProviderBaseURL
	}
	cfg.ProviderBaseURL = strings.TrimRight(cfg.ProviderBaseURL, "/")
	if cfg.ProviderRatePerSecond == 0 {
		cfg.ProviderRatePerSecond = 2
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.SyncSchedule == "" {
		cfg.SyncSchedule = defaultSyncSchedule
	}
	if cfg.SyncMaxRounds == 0 {
		cfg.SyncMaxRounds = 100
	}
	if cfg.PicksDay == "" {
		cfg.PicksDay = "Friday"
	}
	if cfg.PicksTime == "" {
		cfg.PicksTime = "18:00"
	}
	if cfg.PicksCount == 0 {
		cfg.PicksCount = 5
	}
	if cfg.PicksStrategy == "" {
		cfg.PicksStrategy = string(generator.StrategyStatistical)
	}
	if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = 100
	}
	if cfg.RecentWindow == 0 {
		cfg.RecentWindow = 10
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 32
	}
	if cfg.SimulationMaxTrials == 0 {
		cfg.SimulationMaxTrials = 30000
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultLLMModel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Seoul"
	}
}

func (c *Config) validate() error {
	required := []struct{ name, val string }{
		{"slack_bot_token", c.SlackBotToken},
		{"slack_app_token", c.SlackAppToken},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("required config '%s' is not set (via config.yaml or env var)", r.name)
		}
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}

	if _, err := ParseSchedule(c.SyncSchedule); err != nil {
		return fmt.Errorf("invalid sync_schedule '%s': %w", c.SyncSchedule, err)
	}
	if _, err := ParseWeekday(c.PicksDay); err != nil {
		return fmt.Errorf("invalid picks_day '%s': %w", c.PicksDay, err)
	}
	if _, _, err := ParseClock(c.PicksTime); err != nil {
		return fmt.Errorf("invalid picks_time '%s': %w", c.PicksTime, err)
	}
	if _, err := generator.ParseStrategy(c.PicksStrategy); err != nil {
		return fmt.Errorf("invalid picks_strategy: %w", err)
	}
	if c.PicksCount < 1 || c.PicksCount > 10 {
		return fmt.Errorf("invalid picks_count '%d': must be between 1 and 10", c.PicksCount)
	}
	if c.ProviderRatePerSecond <= 0 {
		return fmt.Errorf("invalid provider_rate_per_second '%g': must be > 0", c.ProviderRatePerSecond)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds)
	}
	if c.SyncMaxRounds < 1 {
		return fmt.Errorf("invalid sync_max_rounds '%d': must be >= 1", c.SyncMaxRounds)
	}
	if c.HistoryWindow < 1 {
		return fmt.Errorf("invalid history_window '%d': must be >= 1", c.HistoryWindow)
	}
	if c.RecentWindow < 1 || c.RecentWindow > c.HistoryWindow {
		return fmt.Errorf("invalid recent_window '%d': must be between 1 and history_window (%d)", c.RecentWindow, c.HistoryWindow)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("invalid cache_size '%d': must be >= 1", c.CacheSize)
	}
	if c.SimulationMaxTrials < 1 || c.SimulationMaxTrials > 1_000_000 {
		return fmt.Errorf("invalid simulation_max_trials '%d': must be between 1 and 1000000", c.SimulationMaxTrials)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log_format '%s': must be 'json' or 'console'", c.LogFormat)
	}
	if c.PicksChannelID == "" {
		logger.Warn("picks_channel_id is not set; weekly picks and sync summaries will not be posted")
	}
	return nil
}

// LLMEnabled reports whether /lotto-insight can reach Anthropic.
func (c Config) LLMEnabled() bool {
	return c.AnthropicAPIKey != ""
}

func (c Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.LogLevel, Format: c.LogFormat, ServiceName: "lottobot"}
}

func envOverride(field *string, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
	return nil
}

func envOverrideAllowEmpty(field *string, envKey string) error {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
	return nil
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

// ParseSchedule parses a five-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(spec)
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (int, int, error) {
	var hour, min int
	_, err := fmt.Sscanf(s, "%d:%d", &hour, &min)
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time out of range: %02d:%02d", hour, min)
	}
	return hour, min, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return day, nil
}
