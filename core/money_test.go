package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercentOfCents_EndowmentShareOfPlatformFee(t *testing.T) {
	gross := int64(10000)
	fee := PercentOfCents(gross, decimal.NewFromInt(1))
	if fee != 100 {
		t.Fatalf("expected 1%% fee of 100 cents, got %d", fee)
	}
	if got := PercentOfCents(fee, decimal.NewFromInt(30)); got != 30 {
		t.Fatalf("expected endowment share of 30 cents, got %d", got)
	}
}

func TestPercentOfCents_SplitEntries(t *testing.T) {
	if got := PercentOfCents(10000, decimal.NewFromInt(40)); got != 4000 {
		t.Fatalf("expected 4000, got %d", got)
	}
	if got := PercentOfCents(10000, decimal.NewFromInt(25)); got != 2500 {
		t.Fatalf("expected 2500, got %d", got)
	}
}

func TestPercentOfCents_RoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount  int64
		percent string
		want    int64
	}{
		{amount: 5, percent: "50", want: 3},
		{amount: 15, percent: "10", want: 2},
		{amount: 14, percent: "10", want: 1},
		{amount: 1, percent: "49", want: 0},
		{amount: 101, percent: "33.33", want: 34},
		{amount: 0, percent: "40", want: 0},
	}
	for _, tc := range cases {
		got := PercentOfCents(tc.amount, decimal.RequireFromString(tc.percent))
		if got != tc.want {
			t.Fatalf("round_half_up(%s%% of %d): expected %d, got %d", tc.percent, tc.amount, tc.want, got)
		}
	}
}

func TestParsePercent_Range(t *testing.T) {
	if _, err := ParsePercent("100"); err != nil {
		t.Fatalf("expected 100 to be valid: %v", err)
	}
	for _, raw := range []string{"-1", "100.01", "abc"} {
		if _, err := ParsePercent(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestFormatCents(t *testing.T) {
	if got := FormatCents(10000, "usd"); got != "$100.00" {
		t.Fatalf("expected $100.00, got %q", got)
	}
	if got := FormatCents(1250, "cad"); got != "12.50 CAD" {
		t.Fatalf("expected 12.50 CAD, got %q", got)
	}
}
