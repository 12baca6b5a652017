package app

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Per-million-token USD pricing for the configured agents. The tokenizer is
// external; these rates only turn reported counts into run cost summaries.
var agentPricing = map[string]struct{ in, out float64 }{
	"gpt_pro":   {in: 15.0, out: 60.0},
	"gpt_codex": {in: 3.0, out: 12.0},
	"gemini":    {in: 1.25, out: 10.0},
	"claude":    {in: 3.0, out: 15.0},
}

// CostSummary is the per-stage evidence record <stage>_cost_summary.json.
type CostSummary struct {
	SpecID       string  `json:"spec_id"`
	RunID        string  `json:"run_id"`
	Stage        string  `json:"stage"`
	Agent        string  `json:"agent"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	DurationMs   int64   `json:"duration_ms"`
	CostUSD      float64 `json:"cost_usd"`
}

// EstimateCostUSD converts token counts to USD for an agent. Unknown agents
// cost zero rather than guessing a rate.
func EstimateCostUSD(agent string, tokensIn, tokensOut int) float64 {
	rate, ok := agentPricing[agent]
	if !ok {
		return 0
	}
	return (float64(tokensIn)*rate.in + float64(tokensOut)*rate.out) / 1e6
}

// loadCostSummary reads one cost summary evidence file.
func loadCostSummary(dir, filename string) (CostSummary, bool) {
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return CostSummary{}, false
	}
	var summary CostSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return CostSummary{}, false
	}
	return summary, true
}
