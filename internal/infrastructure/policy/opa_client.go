// Package policy implements the client for the external policy decision
// engine, an OPA-compatible HTTP endpoint. The engine stays external by
// design: this service consumes decisions, it does not evaluate rules.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/core/domain"
)

const defaultTimeout = 2 * time.Second

// Config captures the settings for reaching the decision engine.
type Config struct {
	// URL is the full decision endpoint, e.g.
	// http://localhost:8181/v1/data/bank/authz
	URL     string
	Timeout time.Duration
}

type OPAClient struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewOPAClient(cfg Config, log zerolog.Logger) *OPAClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OPAClient{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// opaRequest is the OPA data-API envelope.
type opaRequest struct {
	Input domain.PolicyInput `json:"input"`
}

// opaResponse accepts both result shapes OPA can return for a rule:
// a bare boolean or an object with an "allow" field.
type opaResponse struct {
	Result json.RawMessage `json:"result"`
}

type opaResultObject struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

// Decide submits the input and interprets the verdict. A transport failure or
// timeout is returned as an error: never an implicit allow or deny.
func (c *OPAClient) Decide(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error) {
	body, err := json.Marshal(opaRequest{Input: input})
	if err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("encode policy input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("build policy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("policy engine call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PolicyDecision{}, fmt.Errorf("policy engine returned status %d", resp.StatusCode)
	}

	var envelope opaResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("decode policy response: %w", err)
	}
	if len(envelope.Result) == 0 {
		// An undefined result means no rule matched the input document.
		return domain.PolicyDecision{}, fmt.Errorf("policy engine returned no result")
	}

	decision, err := interpretResult(envelope.Result)
	if err != nil {
		return domain.PolicyDecision{}, err
	}

	c.log.Debug().
		Bool("allowed", decision.Allowed).
		Str("action", input.Action).
		Dur("duration", time.Since(start)).
		Msg("policy decision")

	return decision, nil
}

func interpretResult(raw json.RawMessage) (domain.PolicyDecision, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return domain.PolicyDecision{Allowed: b}, nil
	}

	var obj opaResultObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("unexpected policy result shape: %w", err)
	}
	return domain.PolicyDecision{Allowed: obj.Allow, Reason: obj.Reason}, nil
}
