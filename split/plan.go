package split

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

var maxTotalPercent = decimal.NewFromInt(100)

// Entry is one configured allocation. Processor-native entries name a
// connected account; internal bank entries name one of the organization's
// own bank accounts.
type Entry struct {
	Percentage    decimal.Decimal `json:"percentage"`
	AccountID     string          `json:"account_id"`
	BankAccountID string          `json:"bank_account_id"`
}

func (e Entry) Destination() string {
	if id := strings.TrimSpace(e.AccountID); id != "" {
		return id
	}
	return strings.TrimSpace(e.BankAccountID)
}

// ModeFromMetadata reads the split mode flag. Absent means no split.
func ModeFromMetadata(metadata core.Metadata) (core.SplitMode, error) {
	switch mode := core.SplitMode(strings.ToLower(metadata.Get(core.MetaSplitMode))); mode {
	case core.SplitModeNone, core.SplitModeProcessorNative, core.SplitModeInternalBank:
		return mode, nil
	default:
		return "", core.ValidationError("split: unknown split mode", map[string]any{"split_mode": string(mode)})
	}
}

// ParseEntries decodes the splits JSON array. Percentages must each be in
// [0,100] and together must not exceed 100. A destination may appear once,
// since each leg's idempotency key is derived from it.
func ParseEntries(raw string) ([]Entry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, core.ValidationError("split: configuration is not a valid JSON array", map[string]any{
			"error": err.Error(),
		})
	}
	total := decimal.Zero
	seen := make(map[string]int, len(entries))
	for index, entry := range entries {
		destination := entry.Destination()
		if destination == "" {
			return nil, core.ValidationError("split: entry destination is required", map[string]any{"index": index})
		}
		if first, ok := seen[destination]; ok {
			return nil, core.ValidationError("split: duplicate entry destination", map[string]any{
				"index":       index,
				"first_index": first,
				"destination": destination,
			})
		}
		seen[destination] = index
		if entry.Percentage.IsNegative() || entry.Percentage.GreaterThan(maxTotalPercent) {
			return nil, core.ValidationError("split: entry percentage out of range", map[string]any{
				"index":      index,
				"percentage": entry.Percentage.String(),
			})
		}
		total = total.Add(entry.Percentage)
	}
	if total.GreaterThan(maxTotalPercent) {
		return nil, core.ValidationError("split: percentages sum above 100", map[string]any{
			"total_percentage": total.String(),
		})
	}
	return entries, nil
}

// ComputeLegs applies round_half_up(p/100 * base) per entry and drops
// entries that come to zero cents.
func ComputeLegs(entries []Entry, baseCents int64) []core.SplitLeg {
	legs := make([]core.SplitLeg, 0, len(entries))
	for _, entry := range entries {
		amount := core.PercentOfCents(baseCents, entry.Percentage)
		if amount <= 0 {
			continue
		}
		legs = append(legs, core.SplitLeg{
			Destination: entry.Destination(),
			Percentage:  entry.Percentage.String(),
			AmountCents: amount,
		})
	}
	return legs
}
