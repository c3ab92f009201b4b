// Package picks posts a weekly set of generated combinations to Slack.
package picks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"lottobot/internal/config"
	"lottobot/internal/domain"
	"lottobot/internal/generator"
	"lottobot/internal/logger"
	"lottobot/internal/metrics"
	"lottobot/internal/report"
	"lottobot/internal/stats"
)

const (
	hotLimit  = 8
	coldLimit = 6
)

type Source interface {
	Recent(ctx context.Context, window int) ([]domain.Draw, error)
}

type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type Options struct {
	Count         int
	Strategy      generator.Strategy
	HistoryWindow int
	RecentWindow  int
	IncludeBonus  bool
}

func OptionsFromConfig(cfg config.Config) Options {
	strategy, _ := generator.ParseStrategy(cfg.PicksStrategy)
	return Options{
		Count:         cfg.PicksCount,
		Strategy:      strategy,
		HistoryWindow: cfg.HistoryWindow,
		RecentWindow:  cfg.RecentWindow,
		IncludeBonus:  cfg.IncludeBonus,
	}
}

// Build generates opts.Count combinations seeded with the current hot and
// cold numbers. With no stored history the generator's fallback lists are
// used and latestRound is 0.
func Build(ctx context.Context, src Source, gen *generator.Generator, opts Options) (results []generator.Result, latestRound int, err error) {
	var hot, cold []int
	draws, err := src.Recent(ctx, opts.HistoryWindow)
	switch {
	case errors.Is(err, domain.ErrEmptyHistory):
		logger.Info("no draw history yet, weekly picks use default hot/cold numbers")
	case err != nil:
		return nil, 0, fmt.Errorf("loading history: %w", err)
	default:
		st := stats.Compute(draws, stats.Options{RecentWindow: opts.RecentWindow, IncludeBonus: opts.IncludeBonus})
		hot, cold = st.Hot(hotLimit), st.Cold(coldLimit)
		latestRound = st.LatestRound
	}

	results, err = gen.GenerateN(generator.Config{Strategy: opts.Strategy, Hot: hot, Cold: cold}, opts.Count)
	if err != nil {
		metrics.RecordGeneration(string(opts.Strategy), false, err)
		return nil, latestRound, err
	}
	for _, r := range results {
		metrics.RecordGeneration(string(r.Strategy), len(r.Relaxed) > 0, nil)
	}
	return results, latestRound, nil
}

func FormatPicks(results []generator.Result, latestRound int) string {
	header := "*This week's picks*"
	if latestRound > 0 {
		header += fmt.Sprintf(" for round %d", latestRound+1)
	}
	return header + "\n" + report.Generation(results)
}

// PostPicks builds and posts one set of picks to channelID.
func PostPicks(ctx context.Context, src Source, gen *generator.Generator, poster Poster, channelID string, opts Options) error {
	results, latest, err := Build(ctx, src, gen, opts)
	if err != nil {
		return err
	}
	_, _, err = poster.PostMessage(channelID, slack.MsgOptionText(FormatPicks(results, latest), false))
	if err != nil {
		return fmt.Errorf("posting picks to %s: %w", channelID, err)
	}
	logger.Info("posted weekly picks", zap.String("channel", channelID), zap.Int("count", len(results)))
	return nil
}

func StartPicksScheduler(ctx context.Context, cfg config.Config, src Source, poster Poster) {
	if cfg.PicksChannelID == "" {
		logger.Info("no picks_channel_id configured, weekly picks disabled")
		return
	}

	weekday, err := config.ParseWeekday(cfg.PicksDay)
	if err != nil {
		logger.Warn("invalid picks_day, using Friday", zap.String("picks_day", cfg.PicksDay))
		weekday = time.Friday
	}
	hour, min, err := config.ParseClock(cfg.PicksTime)
	if err != nil {
		logger.Warn("invalid picks_time, using 18:00", zap.String("picks_time", cfg.PicksTime), zap.Error(err))
		hour, min = 18, 0
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	opts := OptionsFromConfig(cfg)

	logger.Info("weekly picks scheduled",
		zap.Stringer("day", weekday),
		zap.String("time", fmt.Sprintf("%02d:%02d", hour, min)),
		zap.Int("count", opts.Count),
		zap.String("strategy", string(opts.Strategy)))

	go func() {
		gen := generator.NewRandom()
		for {
			now := time.Now().In(loc)
			next := nextWeekday(now, weekday, hour, min)
			wait := next.Sub(now)
			logger.Info("next weekly picks", zap.Time("at", next), zap.Duration("in", wait.Round(time.Minute)))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if err := PostPicks(ctx, src, gen, poster, cfg.PicksChannelID, opts); err != nil {
				logger.Error("weekly picks failed", zap.Error(err))
			}
		}
	}()
}

func nextWeekday(now time.Time, day time.Weekday, hour, min int) time.Time {
	daysUntil := (day - now.Weekday() + 7) % 7
	if daysUntil == 0 {
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if now.Before(target) {
			return target
		}
		daysUntil = 7
	}
	return time.Date(now.Year(), now.Month(), now.Day()+int(daysUntil), hour, min, 0, 0, now.Location())
}
