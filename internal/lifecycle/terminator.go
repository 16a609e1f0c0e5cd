// Package lifecycle tears down the compute instance a pipeline run executes
// on, once the run is complete. Termination is guarded by an explicit enable
// flag so interactive and development runs are never affected.
package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config describes the instance control endpoints.
type Config struct {
	// Enabled gates the whole terminate flow; when false TerminateSelf is a
	// no-op.
	Enabled bool
	// MetadataURL answers a GET with {"instanceId": ..., "status": ...}.
	MetadataURL string
	// TerminateURL accepts a POST with {"instanceId": ...}.
	TerminateURL string
	Timeout      time.Duration
	Logger       zerolog.Logger
}

type instanceInfo struct {
	InstanceID string `json:"instanceId"`
	Status     string `json:"status"`
}

// Terminator shuts down the current instance.
type Terminator interface {
	TerminateSelf(ctx context.Context) error
}

// InstanceTerminator implements Terminator against an HTTP instance-control
// API.
type InstanceTerminator struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// NewInstanceTerminator constructs the terminator.
func NewInstanceTerminator(cfg Config) *InstanceTerminator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &InstanceTerminator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger.With().Str("component", "lifecycle").Logger(),
	}
}

// TerminateSelf queries the instance identity and status, then issues a
// terminate command unless the instance is already on its way down.
func (t *InstanceTerminator) TerminateSelf(ctx context.Context) error {
	if !t.cfg.Enabled {
		t.logger.Info().Msg("self-termination disabled, skipping")
		return nil
	}

	info, err := t.instanceInfo(ctx)
	if err != nil {
		return fmt.Errorf("query instance metadata: %w", err)
	}

	if info.Status == "terminated" || info.Status == "shutting-down" {
		t.logger.Info().
			Str("instance_id", info.InstanceID).
			Str("status", info.Status).
			Msg("instance already terminating, skipping")
		return nil
	}

	payload, err := json.Marshal(map[string]string{"instanceId": info.InstanceID})
	if err != nil {
		return fmt.Errorf("marshal terminate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.TerminateURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build terminate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("terminate instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("terminate instance: status %d", resp.StatusCode)
	}

	t.logger.Info().Str("instance_id", info.InstanceID).Msg("instance termination requested")

	return nil
}

func (t *InstanceTerminator) instanceInfo(ctx context.Context) (instanceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.MetadataURL, nil)
	if err != nil {
		return instanceInfo{}, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return instanceInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return instanceInfo{}, fmt.Errorf("metadata endpoint returned status %d", resp.StatusCode)
	}

	var info instanceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return instanceInfo{}, fmt.Errorf("decode instance metadata: %w", err)
	}

	return info, nil
}
