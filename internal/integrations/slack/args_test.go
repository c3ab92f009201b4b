package slackbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottobot/internal/domain"
)

func TestParseArgs(t *testing.T) {
	a, err := parseArgs("  statistical count=5 Include=3,7,15   exclude= ")
	require.NoError(t, err)
	assert.Equal(t, []string{"statistical"}, a.positional)
	assert.Equal(t, map[string]string{"count": "5", "include": "3,7,15", "exclude": ""}, a.named)

	empty, err := parseArgs("")
	require.NoError(t, err)
	assert.Empty(t, empty.positional)
	assert.Empty(t, empty.named)
}

func TestParseArgsRejectsMalformed(t *testing.T) {
	for _, text := range []string{"count=1 count=2", "=5"} {
		_, err := parseArgs(text)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration, text)
	}
}

func TestArgsOnly(t *testing.T) {
	a, err := parseArgs("window=10 colour=red")
	require.NoError(t, err)
	err = a.only("window", "top")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `"colour"`)
	assert.NoError(t, a.only("window", "colour"))
}

func TestArgsInt(t *testing.T) {
	a, err := parseArgs("count=3 big=99 word=abc")
	require.NoError(t, err)

	n, err := a.intValue("count", 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = a.intValue("missing", 7, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = a.intValue("big", 1, 1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	_, err = a.intValue("word", 1, 1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestArgsBool(t *testing.T) {
	a, err := parseArgs("save=yes bonus=off odd=maybe")
	require.NoError(t, err)

	v, err := a.boolValue("save", false)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = a.boolValue("bonus", true)
	require.NoError(t, err)
	assert.False(t, v)
	v, err = a.boolValue("missing", true)
	require.NoError(t, err)
	assert.True(t, v)
	_, err = a.boolValue("odd", false)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestParseNumberList(t *testing.T) {
	got, err := parseNumberList("3,7, 15 22")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7, 15, 22}, got)

	got, err = parseNumberList("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseNumberList("3,x")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestParseRangeAndRatio(t *testing.T) {
	lo, hi, err := parseRange("100-170")
	require.NoError(t, err)
	assert.Equal(t, [2]int{100, 170}, [2]int{lo, hi})

	odd, even, err := parseRatio("4:2")
	require.NoError(t, err)
	assert.Equal(t, [2]int{4, 2}, [2]int{odd, even})

	for _, bad := range []string{"100", "a-b", "100-"} {
		_, _, err := parseRange(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration, bad)
	}
	for _, bad := range []string{"3", "3:x", ":3"} {
		_, _, err := parseRatio(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration, bad)
	}
}
