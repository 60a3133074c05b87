// Package billing holds the pure cost model for completion usage: token
// counts in, money out. It has no dependencies and no failure modes.
package billing

// UsageRecord is the token accounting for a single completion call, as
// reported by the provider. Ephemeral: produced per call, consumed by Cost.
type UsageRecord struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Rate is the price per million tokens for one model.
type Rate struct {
	PerMillionInputTokens  float64
	PerMillionOutputTokens float64
}

// rateTable maps model identifiers to their fixed rates.
var rateTable = map[string]Rate{
	"gpt-4o-mini": {PerMillionInputTokens: 0.15, PerMillionOutputTokens: 0.60},
}

// RateFor returns the rate for a model identifier. Unknown models fall back
// to the zero rate, which bills nothing rather than failing the request.
func RateFor(model string) Rate {
	return rateTable[model]
}

// Cost converts a usage record to a monetary amount under the given rate.
// Pure and total; zero usage yields zero cost.
func Cost(usage UsageRecord, rate Rate) float64 {
	return float64(usage.InputTokens)/1_000_000*rate.PerMillionInputTokens +
		float64(usage.OutputTokens)/1_000_000*rate.PerMillionOutputTokens
}
