package main

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/simerr"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("amount", "", "")
	fs.String("slippage", "", "")
	fs.StringSlice("coin", nil, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestAmountFlag(t *testing.T) {
	q, err := amountFlag(testFlags(t, "--amount", "12.5"), "amount", 6)
	require.NoError(t, err)
	assert.Equal(t, "12.500000", q.String())

	_, err = amountFlag(testFlags(t, "--amount", "1.1234567"), "amount", 6)
	var inputErr *simerr.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "amount", inputErr.Field)
}

func TestSlippageFlagFallsBack(t *testing.T) {
	fallback := decimal.RequireFromString("0.5")

	d, err := slippageFlag(testFlags(t), fallback)
	require.NoError(t, err)
	assert.True(t, d.Equal(fallback))

	d, err = slippageFlag(testFlags(t, "--slippage", "2"), fallback)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(2)))

	_, err = slippageFlag(testFlags(t, "--slippage", "lots"), fallback)
	assert.Error(t, err)
}

func TestCoinsFlagNormalizes(t *testing.T) {
	coins, err := coinsFlag(testFlags(t, "--coin", "0xABC, 0x1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0x0abc", "0x01"}, coins)

	_, err = coinsFlag(testFlags(t, "--coin", "0xzz"))
	assert.Error(t, err)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger("loud")
	assert.Error(t, err)

	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
