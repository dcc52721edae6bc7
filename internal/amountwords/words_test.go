package amountwords

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "Zero pesos only"},
		{1, "One pesos only"},
		{15, "Fifteen pesos only"},
		{20, "Twenty pesos only"},
		{115, "One hundred fifteen pesos only"},
		{1000, "One thousand pesos only"},
		{10000, "Ten thousand pesos only"},
		{12345, "Twelve thousand three hundred forty five pesos only"},
		{55000, "Fifty five thousand pesos only"},
		{250000, "Two hundred fifty thousand pesos only"},
		{1000000, "One million pesos only"},
		{1000001, "One million one pesos only"},
		{2000000000, "Two billion pesos only"},
		{999999999999999, "Nine hundred ninety nine trillion nine hundred ninety nine billion nine hundred ninety nine million nine hundred ninety nine thousand nine hundred ninety nine pesos only"},
	}
	for _, tc := range cases {
		got, err := Format(tc.amount)
		require.NoError(t, err, "amount %d", tc.amount)
		require.Equal(t, tc.want, got, "amount %d", tc.amount)
	}
}

func TestFormatRejectsOutOfRange(t *testing.T) {
	for _, amount := range []int64{-1, Limit, Limit + 1} {
		_, err := Format(amount)
		require.True(t, errors.Is(err, ErrOutOfRange), "amount %d", amount)
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	first := MustFormat(48_750)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, MustFormat(48_750))
	}
}

func TestMustFormatPanics(t *testing.T) {
	require.Panics(t, func() { MustFormat(-5) })
}
