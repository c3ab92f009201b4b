// Package slackbot serves the lottery slash commands over Slack socket mode.
package slackbot

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lottobot/internal/config"
	"lottobot/internal/domain"
	"lottobot/internal/generator"
	"lottobot/internal/history"
	llm "lottobot/internal/integrations/llm"
	"lottobot/internal/logger"
	"lottobot/internal/metrics"
	"lottobot/internal/simulation"
	"lottobot/internal/stats"
)

const (
	maxConcurrentSimulations = 2
	simulationTimeout        = 2 * time.Minute
	commandTimeout           = 30 * time.Second
	limiterCacheSize         = 1024
)

var (
	errSimulationsBusy = errors.New("too many simulations running")
	errSlowDown        = errors.New("simulation rate limit exceeded")
)

// History is the draw archive as seen by the commands.
type History interface {
	Recent(ctx context.Context, window int) ([]domain.Draw, error)
	Latest(ctx context.Context) (domain.Draw, error)
	Draw(ctx context.Context, round int) (domain.Draw, error)
	Sync(ctx context.Context) (history.SyncResult, error)
	Count() (int, error)
}

type Insighter interface {
	Enabled() bool
	Insight(ctx context.Context, st stats.Statistics, question string) (llm.Insight, error)
}

// Messenger is the subset of *slack.Client used to answer commands.
type Messenger interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
}

type reply struct {
	text   string
	public bool
}

type Bot struct {
	cfg     config.Config
	db      *sql.DB
	api     Messenger
	history History
	insight Insighter

	simSlots    chan struct{}
	simLimiters *lru.Cache[string, *rate.Limiter]

	newGenerator func() *generator.Generator
	newMatcher   func() *simulation.Matcher
	now          func() time.Time
}

func New(cfg config.Config, db *sql.DB, api Messenger, hist History, insight Insighter) *Bot {
	limiters, _ := lru.New[string, *rate.Limiter](limiterCacheSize)
	return &Bot{
		cfg:          cfg,
		db:           db,
		api:          api,
		history:      hist,
		insight:      insight,
		simSlots:     make(chan struct{}, maxConcurrentSimulations),
		simLimiters:  limiters,
		newGenerator: generator.NewRandom,
		newMatcher:   simulation.NewRandom,
		now:          time.Now,
	}
}

// Run connects over socket mode and handles commands until ctx is done.
func (b *Bot) Run(ctx context.Context, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-client.Events:
				if !ok {
					return
				}
				switch evt.Type {
				case socketmode.EventTypeConnected:
					logger.Info("slack bot connected via socket mode")
				case socketmode.EventTypeSlashCommand:
					client.Ack(*evt.Request)
					cmd, ok := evt.Data.(slack.SlashCommand)
					if !ok {
						continue
					}
					go b.handleSlashCommand(ctx, cmd)
				}
			}
		}
	}()

	return client.RunContext(ctx)
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	start := b.now()
	r, err := b.execute(ctx, cmd)
	status := "ok"
	if err != nil {
		status = "error"
		r = reply{text: userMessage(err)}
	}
	metrics.RecordCommand(cmd.Command, status)
	logger.Info("slash command",
		zap.String("command", cmd.Command),
		zap.String("user", cmd.UserID),
		zap.String("channel", cmd.ChannelID),
		zap.String("status", status),
		zap.Duration("elapsed", b.now().Sub(start)),
		zap.Error(err))
	b.respond(cmd, r)
}

func (b *Bot) execute(ctx context.Context, cmd slack.SlashCommand) (reply, error) {
	a, err := parseArgs(cmd.Text)
	if err != nil {
		return reply{}, err
	}

	switch cmd.Command {
	case "/lotto-gen":
		return b.cmdGenerate(ctx, cmd, a)
	case "/lotto-stats":
		return b.cmdStats(ctx, a)
	case "/lotto-pairs":
		return b.cmdPairs(ctx, a)
	case "/lotto-sim":
		return b.cmdSimulate(ctx, cmd, a)
	case "/lotto-draw":
		return b.cmdDraw(ctx, a)
	case "/lotto-sync":
		return b.cmdSync(ctx, cmd)
	case "/lotto-save":
		return b.cmdSave(cmd, a)
	case "/lotto-mine":
		return b.cmdMine(ctx, cmd, a)
	case "/lotto-insight":
		return b.cmdInsight(ctx, cmd)
	case "/lotto-help":
		return reply{text: helpText()}, nil
	}
	return reply{text: "Unknown command " + cmd.Command + ". Try `/lotto-help`."}, nil
}

func (b *Bot) respond(cmd slack.SlashCommand, r reply) {
	if r.public {
		_, _, err := b.api.PostMessage(cmd.ChannelID, slack.MsgOptionText(r.text, false))
		if err == nil {
			return
		}
		logger.Warn("public reply failed, falling back to ephemeral", zap.String("channel", cmd.ChannelID), zap.Error(err))
	}
	b.postEphemeral(cmd, r.text)
}

func (b *Bot) postEphemeral(cmd slack.SlashCommand, text string) {
	if _, err := b.api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false)); err != nil {
		logger.Error("ephemeral post failed", zap.String("user", cmd.UserID), zap.Error(err))
	}
}

func (b *Bot) simulationLimiter(userID string) *rate.Limiter {
	if l, ok := b.simLimiters.Get(userID); ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(10*time.Second), 3)
	if prev, ok, _ := b.simLimiters.PeekOrAdd(userID, l); ok {
		return prev
	}
	return l
}

// userMessage maps domain errors to the text shown in Slack.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyHistory):
		return "No draw data yet, run `/lotto-sync` first."
	case errors.Is(err, domain.ErrInfeasibleTarget):
		return "Target unreachable with these required numbers: " + detail(err, domain.ErrInfeasibleTarget)
	case errors.Is(err, domain.ErrExhausted):
		return "Search exhausted " + detail(err, domain.ErrExhausted) + "."
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return "Configuration rejected: " + detail(err, domain.ErrInvalidConfiguration)
	case errors.Is(err, domain.ErrDrawNotFound):
		return "That round has not been drawn yet."
	case errors.Is(err, llm.ErrDisabled):
		return "Insight is disabled here: no Anthropic API key is configured."
	case errors.Is(err, history.ErrSyncInProgress):
		return "A sync is already running, try again in a minute."
	case errors.Is(err, errSimulationsBusy):
		return "Too many simulations are running right now, try again shortly."
	case errors.Is(err, errSlowDown):
		return "You're starting simulations too quickly, wait a few seconds."
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long and was stopped."
	}
	return "Something went wrong: " + err.Error()
}

// detail strips the sentinel's own text from err's message.
func detail(err, sentinel error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	return strings.TrimSpace(msg)
}
