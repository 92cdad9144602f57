package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	m, err := Parse("2026-09")
	require.NoError(t, err)
	assert.Equal(t, "2026-09", m.String())
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC), m.End())

	_, err = Parse("2026/09")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestArithmetic(t *testing.T) {
	m := MustParse("2026-01")
	assert.Equal(t, "2025-12", m.Prev().String())
	assert.Equal(t, "2026-02", m.Next().String())
	assert.Equal(t, "2027-01", m.AddMonths(12).String())
	assert.True(t, m.Before(m.Next()))
	assert.True(t, m.After(m.Prev()))
	assert.False(t, m.Before(m))

	trailing := m.Trailing(3)
	require.Len(t, trailing, 3)
	assert.Equal(t, "2025-10", trailing[0].String())
	assert.Equal(t, "2025-12", trailing[2].String())
}

func TestMonthsUntil(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 12.0, MonthsUntil(from, from.AddDate(1, 0, 0)), 0.05)
	assert.Less(t, MonthsUntil(from, from.AddDate(0, -1, 0)), 0.0)
}

func TestTextRoundTrip(t *testing.T) {
	var m Month
	require.NoError(t, m.UnmarshalText([]byte("2026-07")))
	b, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2026-07", string(b))

	require.NoError(t, m.UnmarshalText(nil))
	assert.True(t, m.IsZero())

	z, err := ParseOrZero("")
	require.NoError(t, err)
	assert.True(t, z.IsZero())
}
