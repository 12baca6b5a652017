package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEstimateCostUSD(t *testing.T) {
	tests := []struct {
		agent     string
		tokensIn  int
		tokensOut int
		want      float64
	}{
		{"gpt_pro", 1_000_000, 1_000_000, 75.0},
		{"gpt_codex", 500_000, 0, 1.5},
		{"gemini", 0, 100_000, 1.0},
		{"claude", 1_000_000, 0, 3.0},
		{"unknown_agent", 1_000_000, 1_000_000, 0},
		{"gpt_pro", 0, 0, 0},
	}
	for _, tt := range tests {
		if got := EstimateCostUSD(tt.agent, tt.tokensIn, tt.tokensOut); got != tt.want {
			t.Errorf("EstimateCostUSD(%s, %d, %d) = %v, want %v", tt.agent, tt.tokensIn, tt.tokensOut, got, tt.want)
		}
	}
}

func TestLoadCostSummary(t *testing.T) {
	dir := t.TempDir()
	data := `{"spec_id": "SPEC-KIT-001", "stage": "plan", "agent": "gpt_pro", "input_tokens": 100, "output_tokens": 50, "cost_usd": 0.0045}`
	if err := os.WriteFile(filepath.Join(dir, "plan_cost_summary.json"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	summary, ok := loadCostSummary(dir, "plan_cost_summary.json")
	if !ok {
		t.Fatal("loadCostSummary() failed on a valid file")
	}
	if summary.Stage != "plan" || summary.InputTokens != 100 || summary.CostUSD != 0.0045 {
		t.Errorf("summary = %+v", summary)
	}

	if _, ok := loadCostSummary(dir, "missing.json"); ok {
		t.Error("loadCostSummary() reported ok for a missing file")
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := loadCostSummary(dir, "bad.json"); ok {
		t.Error("loadCostSummary() reported ok for malformed JSON")
	}
}
