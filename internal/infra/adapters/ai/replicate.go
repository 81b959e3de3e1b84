package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*ReplicateImageGenerator)(nil)

// ReplicateImageGenerator runs a hosted model through the predictions API.
// It asks the server to wait and polls when the prediction is still running.
type ReplicateImageGenerator struct {
	token        string
	base         string
	model        string // owner/name
	client       *http.Client
	pollInterval time.Duration
}

func NewReplicateImageGenerator(token, model string) (*ReplicateImageGenerator, error) {
	if token == "" {
		return nil, errors.New("replicate token empty")
	}
	if model == "" {
		model = "black-forest-labs/flux-schnell"
	}
	return &ReplicateImageGenerator{
		token:        token,
		base:         "https://api.replicate.com/v1",
		model:        model,
		client:       &http.Client{Timeout: 90 * time.Second},
		pollInterval: time.Second,
	}, nil
}

func (g *ReplicateImageGenerator) Name() string { return "replicate" }

type prediction struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (g *ReplicateImageGenerator) GenerateImage(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error) {
	body, _ := json.Marshal(map[string]any{
		"input": map[string]any{
			"prompt":        req.Prompt,
			"aspect_ratio":  "1:1",
			"num_outputs":   1,
			"output_format": "png",
			"go_fast":       true,
		},
	})
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/models/"+g.model+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Prefer", "wait")

	p, err := g.do(hreq)
	if err != nil {
		return nil, err
	}
	for p.Status == "starting" || p.Status == "processing" {
		if p.URLs.Get == "" {
			return nil, errors.New("replicate: running prediction without poll url")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.pollInterval):
		}
		preq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URLs.Get, nil)
		if err != nil {
			return nil, err
		}
		if p, err = g.do(preq); err != nil {
			return nil, err
		}
	}
	if p.Status != "succeeded" {
		return nil, fmt.Errorf("replicate prediction %s: %v", p.Status, p.Error)
	}
	url := firstOutputURL(p.Output)
	if url == "" {
		return nil, domain.ErrEmptyResult
	}
	return &adapter.Asset{URL: url, MIMEType: "image/png", Provider: g.Name()}, nil
}

func (g *ReplicateImageGenerator) do(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Bearer "+g.token)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("replicate http %d", resp.StatusCode)
	}
	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// firstOutputURL accepts both a single URL and a list of URLs.
func firstOutputURL(raw json.RawMessage) string {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return strings.TrimSpace(one)
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		for _, u := range many {
			if u = strings.TrimSpace(u); u != "" {
				return u
			}
		}
	}
	return ""
}
