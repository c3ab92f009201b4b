package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"lottobot/internal/config"
	"lottobot/internal/fetch"
	"lottobot/internal/history"
	"lottobot/internal/httpx"
	"lottobot/internal/integrations/dhlottery"
	llm "lottobot/internal/integrations/llm"
	slackbot "lottobot/internal/integrations/slack"
	"lottobot/internal/logger"
	"lottobot/internal/metrics"
	"lottobot/internal/picks"
	"lottobot/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LoggerConfig())
	defer func() { _ = logger.Sync() }()

	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	logger.Info("config loaded",
		zap.String("timezone", cfg.Timezone),
		zap.String("provider", cfg.ProviderBaseURL),
		zap.String("sync_schedule", cfg.SyncSchedule),
		zap.String("picks", cfg.PicksDay+" "+cfg.PicksTime),
		zap.Int("history_window", cfg.HistoryWindow),
		zap.Bool("llm_enabled", cfg.LLMEnabled()),
		zap.Duration("external_http_timeout", appliedHTTPTimeout),
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to init database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", cfg.DBPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go reloadLogLevelOnHangup(ctx)

	cache, err := history.NewCache(cfg.CacheSize)
	if err != nil {
		logger.Fatal("failed to create history cache", zap.Error(err))
	}
	provider := dhlottery.NewClient(dhlottery.Options{
		BaseURL:       cfg.ProviderBaseURL,
		RatePerSecond: cfg.ProviderRatePerSecond,
		HTTPClient:    httpx.ExternalClient(),
	})
	svc := history.NewService(sqlite.NewStore(db), provider, cache, history.Options{MaxRounds: cfg.SyncMaxRounds})

	metrics.Serve(ctx, cfg.MetricsAddr)

	api := slack.New(
		cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
	)

	fetch.StartSyncScheduler(ctx, cfg, svc, api)
	picks.StartPicksScheduler(ctx, cfg, svc, api)

	bot := slackbot.New(cfg, db, api, svc, llm.New(cfg.AnthropicAPIKey, cfg.LLMModel))
	logger.Info("starting lotto bot")
	if err := bot.Run(ctx, api); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("slack bot error", zap.Error(err))
		return
	}
	logger.Info("lotto bot stopped")
}

// reloadLogLevelOnHangup re-reads the configuration on SIGHUP and applies its
// log level. Other settings need a restart.
func reloadLogLevelOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load()
			if err != nil {
				logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			logger.SetLevel(cfg.LogLevel)
			logger.Info("log level reloaded", zap.String("level", cfg.LogLevel))
		}
	}
}
