// Package reflex contains the health probe for the optional local inference
// endpoint consulted by the Implement stage routing decision.
package reflex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/example/speckit/internal/ports/secondary"
)

const probeTimeout = 2 * time.Second

// Probe implements secondary.ReflexProbe against an OpenAI-compatible
// local server (GET /v1/models).
type Probe struct {
	endpoint string
	client   *http.Client
}

// NewProbe creates a probe for the given endpoint, e.g. "http://127.0.0.1:8080".
func NewProbe(endpoint string) *Probe {
	return &Probe{
		endpoint: endpoint,
		client:   &http.Client{Timeout: probeTimeout},
	}
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Check probes the endpoint's model list and samples host memory. An
// unreachable endpoint or missing model is a result, not an error; errors
// are reserved for a mis-built request.
func (p *Probe) Check(ctx context.Context, model string) (*secondary.ReflexHealth, error) {
	health := &secondary.ReflexHealth{}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		health.FreeMemory = vm.Available
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	health.Latency = time.Since(start)
	if err != nil {
		health.Detail = err.Error()
		return health, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		health.Detail = fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		return health, nil
	}
	health.Reachable = true

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		health.Detail = "malformed model list: " + err.Error()
		return health, nil
	}
	for _, m := range models.Data {
		if m.ID == model {
			health.ModelAvailable = true
			break
		}
	}
	if !health.ModelAvailable {
		health.Detail = fmt.Sprintf("model %s not loaded", model)
	}
	return health, nil
}
