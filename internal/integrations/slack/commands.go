package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"lottobot/internal/domain"
	"lottobot/internal/fetch"
	"lottobot/internal/generator"
	llm "lottobot/internal/integrations/llm"
	"lottobot/internal/logger"
	"lottobot/internal/metrics"
	"lottobot/internal/report"
	"lottobot/internal/simulation"
	"lottobot/internal/storage/sqlite"
	"lottobot/internal/stats"
)

const (
	maxGenerateCount = 10
	maxWindow        = 5000
	defaultListLimit = 10
	maxListLimit     = 50
	hotSeedLimit     = 8
	coldSeedLimit    = 6
)

func (b *Bot) cmdGenerate(ctx context.Context, cmd slack.SlashCommand, a args) (reply, error) {
	if err := a.only("strategy", "count", "include", "exclude", "sum", "odd_even", "high_low", "run", "save"); err != nil {
		return reply{}, err
	}
	name := a.str("strategy", "")
	if name == "" && len(a.positional) > 0 {
		name = a.positional[0]
	}
	strategy, err := generator.ParseStrategy(name)
	if err != nil {
		return reply{}, err
	}
	count, err := a.intValue("count", 1, 1, maxGenerateCount)
	if err != nil {
		return reply{}, err
	}
	gcfg := generator.Config{Strategy: strategy}
	if gcfg.Include, err = a.numbers("include"); err != nil {
		return reply{}, err
	}
	if gcfg.Exclude, err = a.numbers("exclude"); err != nil {
		return reply{}, err
	}
	if a.has("sum") {
		lo, hi, err := parseRange(a.named["sum"])
		if err != nil {
			return reply{}, err
		}
		gcfg.Sum = &generator.SumRange{Min: lo, Max: hi}
	}
	if a.has("odd_even") {
		odd, even, err := parseRatio(a.named["odd_even"])
		if err != nil {
			return reply{}, err
		}
		gcfg.OddEven = &generator.OddEvenRatio{Odd: odd, Even: even}
	}
	if a.has("high_low") {
		high, low, err := parseRatio(a.named["high_low"])
		if err != nil {
			return reply{}, err
		}
		gcfg.HighLow = &generator.HighLowRatio{High: high, Low: low}
	}
	if gcfg.ConsecutiveLimit, err = a.intValue("run", 0, 0, domain.PickCount); err != nil {
		return reply{}, err
	}
	save, err := a.boolValue("save", false)
	if err != nil {
		return reply{}, err
	}

	if strategy == generator.StrategyStatistical {
		gcfg.Hot, gcfg.Cold, err = b.hotCold(ctx)
		if err != nil {
			return reply{}, err
		}
	}

	results, err := b.newGenerator().GenerateN(gcfg, count)
	if err != nil {
		metrics.RecordGeneration(string(strategy), false, err)
		return reply{}, err
	}
	for _, r := range results {
		metrics.RecordGeneration(string(r.Strategy), len(r.Relaxed) > 0, nil)
	}

	text := report.Generation(results)
	if save {
		ids, err := b.savePicks(cmd.UserID, results)
		if err != nil {
			return reply{}, fmt.Errorf("saving picks: %w", err)
		}
		text += fmt.Sprintf("\nSaved as %s. See `/lotto-mine`.", pickIDs(ids))
	}
	return reply{text: text, public: true}, nil
}

// hotCold returns nil lists when there is no history yet, so the generator
// falls back to its defaults.
func (b *Bot) hotCold(ctx context.Context) ([]int, []int, error) {
	draws, err := b.history.Recent(ctx, b.cfg.HistoryWindow)
	if errors.Is(err, domain.ErrEmptyHistory) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	st := stats.Compute(draws, stats.Options{RecentWindow: b.cfg.RecentWindow, IncludeBonus: b.cfg.IncludeBonus})
	return st.Hot(hotSeedLimit), st.Cold(coldSeedLimit), nil
}

func (b *Bot) savePicks(userID string, results []generator.Result) ([]int64, error) {
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		nums, err := domain.NewNumbers(r.Numbers)
		if err != nil {
			return ids, err
		}
		id, err := sqlite.InsertSavedPick(b.db, domain.SavedPick{
			UserID:    userID,
			Numbers:   nums,
			Strategy:  string(r.Strategy),
			CreatedAt: b.now().UTC(),
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func pickIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}

func (b *Bot) statsWindow(a args) (int, error) {
	return a.intValue("window", b.cfg.HistoryWindow, 1, maxWindow)
}

func (b *Bot) cmdStats(ctx context.Context, a args) (reply, error) {
	if err := a.only("window", "recent", "bonus", "top"); err != nil {
		return reply{}, err
	}
	window, err := b.statsWindow(a)
	if err != nil {
		return reply{}, err
	}
	recent, err := a.intValue("recent", min(b.cfg.RecentWindow, window), 1, window)
	if err != nil {
		return reply{}, err
	}
	bonus, err := a.boolValue("bonus", b.cfg.IncludeBonus)
	if err != nil {
		return reply{}, err
	}
	top, err := a.intValue("top", 10, 1, domain.MaxNumber)
	if err != nil {
		return reply{}, err
	}

	draws, err := b.history.Recent(ctx, window)
	if err != nil {
		return reply{}, err
	}
	st := stats.Compute(draws, stats.Options{RecentWindow: recent, IncludeBonus: bonus})
	return reply{text: report.Statistics(st, top), public: true}, nil
}

func (b *Bot) cmdPairs(ctx context.Context, a args) (reply, error) {
	if err := a.only("window", "numbers", "triples", "limit"); err != nil {
		return reply{}, err
	}
	window, err := b.statsWindow(a)
	if err != nil {
		return reply{}, err
	}
	subset, err := a.numbers("numbers")
	if err != nil {
		return reply{}, err
	}
	if len(subset) == 0 && len(a.positional) > 0 {
		if subset, err = parseNumberList(strings.Join(a.positional, " ")); err != nil {
			return reply{}, err
		}
	}
	for _, n := range subset {
		if n < domain.MinNumber || n > domain.MaxNumber {
			return reply{}, badArg("number %d out of range", n)
		}
	}
	triples, err := a.boolValue("triples", false)
	if err != nil {
		return reply{}, err
	}
	limit, err := a.intValue("limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		return reply{}, err
	}

	draws, err := b.history.Recent(ctx, window)
	if err != nil {
		return reply{}, err
	}
	if triples {
		return reply{text: report.Triples(stats.Triples(draws, subset), len(draws), limit), public: true}, nil
	}
	return reply{text: report.Pairs(stats.Pairs(draws, subset), len(draws), limit), public: true}, nil
}

func (b *Bot) cmdSimulate(ctx context.Context, cmd slack.SlashCommand, a args) (reply, error) {
	if len(a.positional) > 0 && strings.EqualFold(a.positional[0], "history") {
		return b.simulationHistory(cmd.UserID)
	}
	if err := a.only("round", "required", "min", "trials"); err != nil {
		return reply{}, err
	}
	round, err := a.intValue("round", 0, 0, 1<<20)
	if err != nil {
		return reply{}, err
	}
	required, err := a.numbers("required")
	if err != nil {
		return reply{}, err
	}
	minRequired, err := a.intValue("min", min(len(required), domain.PickCount), 0, domain.PickCount)
	if err != nil {
		return reply{}, err
	}
	trials, err := a.intValue("trials", b.cfg.SimulationMaxTrials, 1, b.cfg.SimulationMaxTrials)
	if err != nil {
		return reply{}, err
	}

	if !b.simulationLimiter(cmd.UserID).Allow() {
		return reply{}, errSlowDown
	}
	select {
	case b.simSlots <- struct{}{}:
		defer func() { <-b.simSlots }()
	default:
		return reply{}, errSimulationsBusy
	}

	var target domain.Draw
	if round == 0 {
		target, err = b.history.Latest(ctx)
	} else {
		target, err = b.history.Draw(ctx, round)
	}
	if err != nil {
		return reply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, simulationTimeout)
	defer cancel()
	run, err := b.newMatcher().Run(ctx, simulation.Config{
		Target:      target,
		Required:    required,
		MinRequired: minRequired,
		MaxTrials:   trials,
	}, nil)
	if run.Outcome != "" {
		metrics.RecordSimulation(string(run.Outcome), run.Trials)
	}
	if run.Outcome == "" || run.Outcome == simulation.OutcomeInfeasible {
		return reply{}, err
	}

	if err := sqlite.InsertSimulationRun(b.db, run.Record(cmd.UserID, b.now().UTC())); err != nil {
		logger.Error("saving simulation run failed", zap.String("run", run.ID), zap.Error(err))
	}
	return reply{text: report.Simulation(run), public: true}, nil
}

func (b *Bot) simulationHistory(userID string) (reply, error) {
	records, err := sqlite.ListSimulationRuns(b.db, userID, defaultListLimit)
	if err != nil {
		return reply{}, fmt.Errorf("loading simulations: %w", err)
	}
	return reply{text: report.SimulationHistory(records, b.cfg.Location)}, nil
}

func (b *Bot) cmdDraw(ctx context.Context, a args) (reply, error) {
	if err := a.only("round"); err != nil {
		return reply{}, err
	}
	raw := a.str("round", "")
	if raw == "" && len(a.positional) > 0 {
		raw = a.positional[0]
	}

	var d domain.Draw
	var err error
	if raw == "" || strings.EqualFold(raw, "latest") {
		d, err = b.history.Latest(ctx)
	} else {
		round, convErr := strconv.Atoi(raw)
		if convErr != nil || round < 1 {
			return reply{}, badArg("round must be a positive number, got %q", raw)
		}
		d, err = b.history.Draw(ctx, round)
	}
	if err != nil {
		return reply{}, err
	}
	return reply{text: report.Draw(d), public: true}, nil
}

func (b *Bot) cmdSync(ctx context.Context, cmd slack.SlashCommand) (reply, error) {
	b.postEphemeral(cmd, "Syncing draws from the provider...")
	result, err := b.history.Sync(ctx)
	if err != nil {
		logger.Warn("manual draw sync error", zap.String("user", cmd.UserID), zap.Error(err))
	}
	text := fetch.FormatSyncSummary(result, err)
	if total, cerr := b.history.Count(); cerr != nil {
		logger.Warn("counting stored draws", zap.Error(cerr))
	} else {
		text += fmt.Sprintf("\nArchive holds %d draws.", total)
	}
	if n := len(result.Fetched); n > 0 {
		text += "\n\n" + report.Draw(result.Fetched[n-1])
	}
	return reply{text: text}, nil
}

func (b *Bot) cmdSave(cmd slack.SlashCommand, a args) (reply, error) {
	if err := a.only("delete"); err != nil {
		return reply{}, err
	}
	if a.has("delete") {
		id, err := strconv.ParseInt(a.named["delete"], 10, 64)
		if err != nil {
			return reply{}, badArg("delete needs a pick number, got %q", a.named["delete"])
		}
		ok, err := sqlite.DeleteSavedPick(b.db, id, cmd.UserID)
		if err != nil {
			return reply{}, fmt.Errorf("deleting pick: %w", err)
		}
		if !ok {
			return reply{text: fmt.Sprintf("You have no saved pick #%d.", id)}, nil
		}
		return reply{text: fmt.Sprintf("Deleted pick #%d.", id)}, nil
	}

	var nums []int
	var note []string
	for _, tok := range a.positional {
		parsed, err := parseNumberList(tok)
		if err != nil {
			note = append(note, tok)
			continue
		}
		nums = append(nums, parsed...)
	}
	if len(nums) == 0 {
		return reply{text: "Usage: `/lotto-save 3 9 17 22 31 44 [note]` or `/lotto-save delete=<id>`"}, nil
	}
	combo, err := domain.NewNumbers(nums)
	if err == nil {
		err = domain.IsValidCombination(combo[:])
	}
	if err != nil {
		return reply{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	id, err := sqlite.InsertSavedPick(b.db, domain.SavedPick{
		UserID:    cmd.UserID,
		Numbers:   combo,
		Note:      strings.Join(note, " "),
		CreatedAt: b.now().UTC(),
	})
	if err != nil {
		return reply{}, fmt.Errorf("saving pick: %w", err)
	}
	return reply{text: fmt.Sprintf("Saved pick #%d: %s", id, report.Numbers(combo[:]))}, nil
}

func (b *Bot) cmdMine(ctx context.Context, cmd slack.SlashCommand, a args) (reply, error) {
	if len(a.positional) > 0 && strings.EqualFold(a.positional[0], "sims") {
		return b.simulationHistory(cmd.UserID)
	}
	if err := a.only("limit"); err != nil {
		return reply{}, err
	}
	limit, err := a.intValue("limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		return reply{}, err
	}
	picks, err := sqlite.ListSavedPicks(b.db, cmd.UserID, limit)
	if err != nil {
		return reply{}, fmt.Errorf("loading picks: %w", err)
	}

	var latest *domain.Draw
	d, err := b.history.Latest(ctx)
	switch {
	case err == nil:
		latest = &d
	case !errors.Is(err, domain.ErrEmptyHistory):
		return reply{}, err
	}
	return reply{text: report.SavedPicks(picks, latest, b.cfg.Location)}, nil
}

func (b *Bot) cmdInsight(ctx context.Context, cmd slack.SlashCommand) (reply, error) {
	if b.insight == nil || !b.insight.Enabled() {
		return reply{}, llm.ErrDisabled
	}
	draws, err := b.history.Recent(ctx, b.cfg.HistoryWindow)
	if err != nil {
		return reply{}, err
	}
	b.postEphemeral(cmd, "Asking for a commentary on the last draws...")

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	st := stats.Compute(draws, stats.Options{RecentWindow: b.cfg.RecentWindow, IncludeBonus: b.cfg.IncludeBonus})
	in, err := b.insight.Insight(ctx, st, cmd.Text)
	if err != nil {
		return reply{}, err
	}
	logger.Info("insight generated", zap.String("model", in.Model), zap.Int64("tokens", in.Usage.TotalTokens()))
	text := fmt.Sprintf("*Commentary on the last %d draws*\n%s\n_Past draws do not change the odds of future ones._", st.DrawCount, in.Text)
	return reply{text: text, public: true}, nil
}

func helpText() string {
	return strings.Join([]string{
		"*Lotto bot commands*",
		"",
		"`/lotto-gen [strategy] [count=5] [include=7,21] [exclude=1,2] [sum=100-170] [odd_even=3:3] [high_low=3:3] [run=2] [save=yes]`",
		">Strategies: `random`, `statistical`, `odd_even`, `high_low`, `pattern`, `consecutive`.",
		"`/lotto-stats [window=100] [recent=10] [bonus=yes] [top=10]` — frequency, hot/cold and sum ranges.",
		"`/lotto-pairs [numbers=3,7,15] [triples=yes] [window=100] [limit=10]` — numbers drawn together.",
		"`/lotto-sim [round=1100] required=3,7,15 [min=2] [trials=30000]` — random search for a past draw.",
		"`/lotto-sim history` — your recent simulations.",
		"`/lotto-draw [round]` — a draw's numbers and prizes (latest by default).",
		"`/lotto-sync` — fetch new draws now.",
		"`/lotto-save 3 9 17 22 31 44 [note]` / `/lotto-save delete=<id>` — keep a combination.",
		"`/lotto-mine [limit=10]` — your saved picks, checked against the latest draw.",
		"`/lotto-insight [question]` — a short commentary on recent statistics.",
		"`/lotto-help` — show this help.",
	}, "\n")
}
