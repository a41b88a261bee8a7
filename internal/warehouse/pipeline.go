package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PipelineRun describes the outcome of a pipeline trigger call.
type PipelineRun struct {
	Pipeline    string         `json:"pipeline"`
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"` // triggered or simulated
	Parameters  map[string]any `json:"parameters,omitempty"`
	TriggeredAt time.Time      `json:"triggered_at"`
}

// PipelineTrigger starts downstream warehouse pipelines. With no endpoint
// configured it simulates runs, mirroring a warehouse-less development
// environment.
type PipelineTrigger struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// TriggerOption configures a PipelineTrigger.
type TriggerOption func(*PipelineTrigger)

// WithTriggerHTTPClient overrides the default HTTP client.
func WithTriggerHTTPClient(c *http.Client) TriggerOption {
	return func(t *PipelineTrigger) { t.httpClient = c }
}

// NewPipelineTrigger creates a PipelineTrigger posting to url; an empty url
// selects simulated mode.
func NewPipelineTrigger(url string, logger zerolog.Logger, opts ...TriggerOption) *PipelineTrigger {
	t := &PipelineTrigger{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Trigger starts the named pipeline with the given parameters.
func (t *PipelineTrigger) Trigger(ctx context.Context, pipeline string, params map[string]any) (PipelineRun, error) {
	now := t.now().UTC()

	if t.url == "" {
		run := PipelineRun{
			Pipeline:    pipeline,
			RunID:       fmt.Sprintf("mock_run_%d", now.Unix()),
			Status:      "simulated",
			Parameters:  params,
			TriggeredAt: now,
		}
		t.logger.Info().
			Str("pipeline", pipeline).
			Str("run_id", run.RunID).
			Msg("pipeline trigger simulated (no endpoint configured)")
		return run, nil
	}

	body, err := json.Marshal(map[string]any{
		"pipeline":   pipeline,
		"parameters": params,
	})
	if err != nil {
		return PipelineRun{}, fmt.Errorf("marshal pipeline request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return PipelineRun{}, fmt.Errorf("build pipeline request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return PipelineRun{}, fmt.Errorf("trigger pipeline %s: %w", pipeline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PipelineRun{}, fmt.Errorf("trigger pipeline %s: endpoint returned status %d", pipeline, resp.StatusCode)
	}

	run := PipelineRun{
		Pipeline:    pipeline,
		Status:      "triggered",
		Parameters:  params,
		TriggeredAt: now,
	}
	var reply struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err == nil && reply.RunID != "" {
		run.RunID = reply.RunID
	} else {
		run.RunID = fmt.Sprintf("run_%d", now.Unix())
	}

	t.logger.Info().
		Str("pipeline", pipeline).
		Str("run_id", run.RunID).
		Msg("pipeline triggered")
	return run, nil
}
