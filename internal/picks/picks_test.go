package picks

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottobot/internal/config"
	"lottobot/internal/domain"
	"lottobot/internal/generator"
)

type fakeSource struct {
	draws []domain.Draw
	err   error
}

func (f fakeSource) Recent(_ context.Context, window int) ([]domain.Draw, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.draws) > window {
		return f.draws[:window], nil
	}
	return f.draws, nil
}

type capturePoster struct {
	channel string
	text    string
	err     error
}

func (p *capturePoster) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("token", channelID, "https://slack.test/api/", options...)
	if err != nil {
		return "", "", err
	}
	p.channel = channelID
	p.text = values.Get("text")
	return channelID, "1.0", p.err
}

func sampleDraws() []domain.Draw {
	return []domain.Draw{
		{Round: 3, Numbers: [6]int{2, 4, 11, 20, 33, 40}, Bonus: 7},
		{Round: 2, Numbers: [6]int{2, 4, 12, 21, 34, 41}, Bonus: 8},
		{Round: 1, Numbers: [6]int{2, 4, 13, 22, 35, 42}, Bonus: 9},
	}
}

func testGenerator() *generator.Generator {
	return generator.New(rand.NewPCG(1, 2))
}

func TestNextWeekday(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"same day before time", time.Date(2026, 2, 20, 9, 0, 0, 0, loc), time.Date(2026, 2, 20, 18, 0, 0, 0, loc)},
		{"same day after time", time.Date(2026, 2, 20, 19, 0, 0, 0, loc), time.Date(2026, 2, 27, 18, 0, 0, 0, loc)},
		{"earlier in week", time.Date(2026, 2, 18, 12, 0, 0, 0, loc), time.Date(2026, 2, 20, 18, 0, 0, 0, loc)},
		{"day after", time.Date(2026, 2, 21, 12, 0, 0, 0, loc), time.Date(2026, 2, 27, 18, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextWeekday(tt.now, time.Friday, 18, 0)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestBuildSeedsFromHotNumbers(t *testing.T) {
	opts := Options{Count: 5, Strategy: generator.StrategyStatistical, HistoryWindow: 10, RecentWindow: 3}
	results, latest, err := Build(context.Background(), fakeSource{draws: sampleDraws()}, testGenerator(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, latest)
	require.Len(t, results, 5)
	for _, r := range results {
		require.NoError(t, domain.IsValidCombination(r.Numbers))
		// 2 and 4 are the only hot numbers, so both are always seeded
		assert.Contains(t, r.Numbers, 2)
		assert.Contains(t, r.Numbers, 4)
	}
}

func TestBuildWithoutHistoryUsesFallback(t *testing.T) {
	opts := Options{Count: 2, Strategy: generator.StrategyStatistical, HistoryWindow: 10}
	results, latest, err := Build(context.Background(), fakeSource{err: domain.ErrEmptyHistory}, testGenerator(), opts)
	require.NoError(t, err)
	assert.Zero(t, latest)
	assert.Len(t, results, 2)
}

func TestBuildPropagatesStoreErrors(t *testing.T) {
	_, _, err := Build(context.Background(), fakeSource{err: errors.New("disk I/O error")}, testGenerator(), Options{Count: 1, HistoryWindow: 10})
	assert.ErrorContains(t, err, "disk I/O error")
}

func TestPostPicks(t *testing.T) {
	poster := &capturePoster{}
	opts := Options{Count: 3, Strategy: generator.StrategyRandom, HistoryWindow: 10}

	err := PostPicks(context.Background(), fakeSource{draws: sampleDraws()}, testGenerator(), poster, "C42", opts)
	require.NoError(t, err)
	assert.Equal(t, "C42", poster.channel)
	assert.Contains(t, poster.text, "*This week's picks* for round 4")
	assert.Contains(t, poster.text, "*3 combination(s)*, strategy `random`")
}

func TestPostPicksReportsPostFailure(t *testing.T) {
	poster := &capturePoster{err: errors.New("not_in_channel")}
	err := PostPicks(context.Background(), fakeSource{draws: sampleDraws()}, testGenerator(), poster, "C42", Options{Count: 1, HistoryWindow: 10})
	assert.ErrorContains(t, err, "not_in_channel")
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.Config{PicksCount: 4, PicksStrategy: "odd-even", HistoryWindow: 50, RecentWindow: 5, IncludeBonus: true})
	assert.Equal(t, Options{Count: 4, Strategy: generator.StrategyOddEven, HistoryWindow: 50, RecentWindow: 5, IncludeBonus: true}, opts)
}
