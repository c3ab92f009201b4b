// Package fetch runs the scheduled draw sync and reports it to Slack.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"lottobot/internal/config"
	"lottobot/internal/history"
	"lottobot/internal/logger"
	"lottobot/internal/report"
)

type Syncer interface {
	Sync(ctx context.Context) (history.SyncResult, error)
}

// Poster is the subset of *slack.Client used to publish summaries.
type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// FormatSyncSummary returns a human-readable summary of a sync.
func FormatSyncSummary(result history.SyncResult, syncErr error) string {
	if errors.Is(syncErr, history.ErrSyncInProgress) {
		return "A sync is already running, try again in a minute."
	}
	if syncErr != nil && result.Stored() == 0 {
		return fmt.Sprintf("Error syncing draws: %v", syncErr)
	}

	var msg string
	switch result.Stored() {
	case 0:
		msg = fmt.Sprintf("Already up to date (latest round %d).", result.Latest)
	case 1:
		msg = fmt.Sprintf("Stored round %d.", result.Latest)
	default:
		msg = fmt.Sprintf("Stored %d new draws, rounds %d-%d.", result.Stored(), result.PreviousLatest+1, result.Latest)
	}
	if result.Truncated {
		msg += " More rounds are pending; they will be fetched on the next sync."
	}
	if syncErr != nil {
		msg += fmt.Sprintf("\nWarning: %v", syncErr)
	}
	return msg
}

// SyncAndReport runs one sync and, when channelID is set, posts the summary
// followed by the newest draw.
func SyncAndReport(ctx context.Context, svc Syncer, poster Poster, channelID string) (history.SyncResult, error) {
	result, syncErr := svc.Sync(ctx)
	summary := FormatSyncSummary(result, syncErr)
	if syncErr != nil {
		logger.Warn("draw sync error", zap.Error(syncErr))
	}

	if channelID == "" || poster == nil {
		return result, syncErr
	}
	var sb strings.Builder
	sb.WriteString("Draw sync complete: " + summary)
	if n := len(result.Fetched); n > 0 {
		sb.WriteString("\n\n" + report.Draw(result.Fetched[n-1]))
	}
	if _, _, err := poster.PostMessage(channelID, slack.MsgOptionText(sb.String(), false)); err != nil {
		logger.Error("sync summary post failed", zap.String("channel", channelID), zap.Error(err))
	}
	return result, syncErr
}

// StartSyncScheduler runs SyncAndReport on the cron schedule until ctx is done.
// The schedule is a standard 5-field cron expression, e.g. "0 21 * * 6".
func StartSyncScheduler(ctx context.Context, cfg config.Config, svc Syncer, poster Poster) {
	spec := strings.TrimSpace(cfg.SyncSchedule)
	if spec == "" {
		logger.Info("draw sync disabled (sync_schedule not set)")
		return
	}
	sched, err := config.ParseSchedule(spec)
	if err != nil {
		logger.Error("invalid sync_schedule, draw sync disabled", zap.String("schedule", spec), zap.Error(err))
		return
	}
	logger.Info("draw sync scheduled", zap.String("cron", spec))

	go runSchedule(ctx, sched, cfg.Location, func() {
		SyncAndReport(ctx, svc, poster, cfg.PicksChannelID)
	})
}

func runSchedule(ctx context.Context, sched cron.Schedule, loc *time.Location, job func()) {
	if loc == nil {
		loc = time.Local
	}
	for {
		now := time.Now().In(loc)
		next := sched.Next(now)
		wait := next.Sub(now)
		logger.Info("next draw sync", zap.Time("at", next), zap.Duration("in", wait.Round(time.Minute)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		job()
	}
}
