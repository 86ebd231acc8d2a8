package logbook

import (
	"testing"
	"time"

	"Divelog/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
}

func sampleLog() []models.LogEntry {
	return []models.LogEntry{
		{Date: day(3), Site: "Zoetersbout", Diver: "Bram"},
		{Date: day(1), Site: "Zoetersbout", Diver: "Anna"},
		{Date: day(1), Site: "Dreischor", Diver: "Cor"},
		{Date: day(5), Site: "Dreischor", Diver: "Anna"},
		{Site: "Dreischor", Diver: "Dirk"},
		{Date: day(1), Site: "Dreischor", Diver: "Anna"},
	}
}

func divers(entries []models.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Diver
	}
	return out
}

func TestApplyWithoutFilterSorts(t *testing.T) {
	got := Apply(sampleLog(), Filter{})

	require.Len(t, got, 6)
	assert.Equal(t, "Dirk", got[0].Diver, "undated entries sort first")
	assert.Equal(t, []string{"Dirk", "Anna", "Cor", "Anna", "Bram", "Anna"}, divers(got))
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "date range inclusive", filter: Filter{From: day(1), To: day(3)}, want: []string{"Anna", "Cor", "Anna", "Bram"}},
		{name: "only from", filter: Filter{From: day(4)}, want: []string{"Anna"}},
		{name: "diver", filter: Filter{Diver: "Anna"}, want: []string{"Anna", "Anna", "Anna"}},
		{name: "site and range", filter: Filter{From: day(1), To: day(5), Site: "Dreischor"}, want: []string{"Anna", "Cor", "Anna"}},
		{name: "no match", filter: Filter{Diver: "Eva"}, want: []string{}},
		{name: "bounds with time of day", filter: Filter{From: day(5).Add(10 * time.Hour), To: day(5).Add(10 * time.Hour)}, want: []string{"Anna"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, divers(Apply(sampleLog(), tt.filter)))
		})
	}
}

func TestDateSpan(t *testing.T) {
	first, last := DateSpan(sampleLog(), day(20))
	assert.Equal(t, day(1), first)
	assert.Equal(t, day(5), last)

	today := time.Date(2024, 6, 7, 15, 0, 0, 0, time.UTC)
	first, last = DateSpan(nil, today)
	assert.Equal(t, time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, first, last)
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"Anna", "Bram", "Cor", "Dirk"}, DistinctDivers(sampleLog()))
	assert.Equal(t, []string{"Dreischor", "Zoetersbout"}, DistinctSites(sampleLog()))
}

func TestSettle(t *testing.T) {
	fee := decimal.RequireFromString("5.50")
	s := Settle(sampleLog(), day(1), day(5), fee)

	require.Len(t, s.Lines, 3)
	assert.Equal(t, "Anna", s.Lines[0].Diver)
	assert.Equal(t, 3, s.Lines[0].Dives)
	assert.True(t, s.Lines[0].Amount.Equal(decimal.RequireFromString("16.50")))
	assert.Equal(t, "Bram", s.Lines[1].Diver)
	assert.Equal(t, "Cor", s.Lines[2].Diver)

	for _, l := range s.Lines {
		assert.True(t, l.Amount.Equal(fee.Mul(decimal.NewFromInt(int64(l.Dives)))))
	}
	assert.True(t, s.Total.Equal(decimal.RequireFromString("27.50")))
	assert.Len(t, s.Entries, 5)
	assert.False(t, s.Empty())
}

func TestSettleSkipsEntriesWithoutDiver(t *testing.T) {
	entries := []models.LogEntry{
		{Date: day(1), Site: "Dreischor", Diver: "Anna"},
		{Date: day(1), Site: "Dreischor", Diver: ""},
		{Date: day(1), Site: "Dreischor", Diver: "  "},
	}
	s := Settle(entries, day(1), day(1), decimal.NewFromInt(5))

	require.Len(t, s.Lines, 1)
	assert.Equal(t, "Anna", s.Lines[0].Diver)
	assert.True(t, s.Total.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, []string{"Anna"}, divers(s.Entries))
}

func TestSettleOnlyEntriesWithoutDiverIsEmpty(t *testing.T) {
	s := Settle([]models.LogEntry{{Date: day(1), Site: "Dreischor"}}, day(1), day(1), decimal.NewFromInt(5))

	assert.True(t, s.Empty())
	assert.True(t, s.Total.IsZero())
}

func TestSettleEmptyRange(t *testing.T) {
	s := Settle(sampleLog(), day(10), day(12), decimal.NewFromInt(5))

	assert.True(t, s.Empty())
	assert.Empty(t, s.Lines)
	assert.True(t, s.Total.IsZero())
}

func TestSettleZeroFee(t *testing.T) {
	s := Settle(sampleLog(), day(1), day(1), decimal.Zero)

	require.Len(t, s.Lines, 2)
	assert.Equal(t, 2, s.Lines[0].Dives)
	assert.True(t, s.Total.IsZero())
}

func TestParseFee(t *testing.T) {
	fee, err := ParseFee(" 7,25 ")
	require.NoError(t, err)
	assert.Equal(t, "7.25", fee.String())

	fee, err = ParseFee("-1")
	require.NoError(t, err)
	assert.True(t, fee.IsNegative())

	for _, v := range []string{"vijf", "1e5000000", "1E2", "10000.01", "7,255", "0.001"} {
		_, err := ParseFee(v)
		assert.Error(t, err, v)
	}

	fee, err = ParseFee("10000")
	require.NoError(t, err)
	assert.True(t, fee.Equal(MaxFee))
}

func TestFormatEuro(t *testing.T) {
	tests := map[string]string{
		"0":         "€ 0,00",
		"5":         "€ 5,00",
		"27.5":      "€ 27,50",
		"999.999":   "€ 1.000,00",
		"1234.5":    "€ 1.234,50",
		"1234567.8": "€ 1.234.567,80",
		"-12.3":     "€ -12,30",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatEuro(decimal.RequireFromString(in)), in)
	}
}
