package logbook

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"Divelog/models"

	"github.com/shopspring/decimal"
)

// Line is the settlement of one diver.
type Line struct {
	Diver  string          `json:"diver"`
	Dives  int             `json:"dives"`
	Amount decimal.Decimal `json:"amount"`
}

type Settlement struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Fee   decimal.Decimal `json:"fee"`
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
	// Entries are the dives counted, ordered by date, site and diver.
	Entries []models.LogEntry `json:"-"`
}

func (s Settlement) Empty() bool {
	return len(s.Entries) == 0
}

// Settle counts the dives per diver between from and to inclusive and pays
// fee for each of them. Entries without a diver are not paid and left out.
func Settle(entries []models.LogEntry, from, to time.Time, fee decimal.Decimal) Settlement {
	var selected []models.LogEntry
	counts := make(map[string]int)
	for _, e := range Apply(entries, Filter{From: from, To: to}) {
		if strings.TrimSpace(e.Diver) == "" {
			continue
		}
		selected = append(selected, e)
		counts[e.Diver]++
	}

	s := Settlement{
		From:    models.DateOnly(from),
		To:      models.DateOnly(to),
		Fee:     fee,
		Lines:   make([]Line, 0, len(counts)),
		Total:   decimal.Zero,
		Entries: selected,
	}
	for diver, n := range counts {
		amount := fee.Mul(decimal.NewFromInt(int64(n)))
		s.Lines = append(s.Lines, Line{Diver: diver, Dives: n, Amount: amount})
		s.Total = s.Total.Add(amount)
	}
	sort.Slice(s.Lines, func(i, j int) bool { return s.Lines[i].Diver < s.Lines[j].Diver })
	return s
}

// MaxFee is the highest fee per dive ParseFee accepts.
var MaxFee = decimal.NewFromInt(10000)

// ParseFee reads a fee typed with either a decimal comma or point. Exponent
// notation, more than two decimals and fees above MaxFee are rejected.
func ParseFee(v string) (decimal.Decimal, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
	if strings.ContainsAny(v, "eE") {
		return decimal.Zero, fmt.Errorf("fee %q: exponent notation not allowed", v)
	}
	fee, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	if fee.Abs().GreaterThan(MaxFee) {
		return decimal.Zero, fmt.Errorf("fee %s is above %s", fee, MaxFee)
	}
	if !fee.Equal(fee.Round(2)) {
		return decimal.Zero, fmt.Errorf("fee %s has more than two decimals", fee)
	}
	return fee, nil
}

// FormatEuro renders an amount the Dutch way, e.g. "€ 1.234,50".
func FormatEuro(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return "€ " + sign + b.String() + "," + frac
}
