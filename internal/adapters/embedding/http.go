package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ski_resort_finder/internal/adapters/observability"
)

// HTTPEmbedder calls an OpenAI-compatible POST {base}/embeddings endpoint.
type HTTPEmbedder struct {
	url   string
	model string
	key   string
	hc    *http.Client
}

func NewHTTP(baseURL, model, key string) (*HTTPEmbedder, error) {
	if baseURL == "" {
		return nil, errors.New("embedding url is required")
	}
	if model == "" {
		return nil, errors.New("embedding model is required")
	}
	return &HTTPEmbedder{
		url:   strings.TrimRight(baseURL, "/") + "/embeddings",
		model: model,
		key:   key,
		hc:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed sends all texts in one request so query and candidates share a model.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.key != "" {
		req.Header.Set("Authorization", "Bearer "+e.key)
	}

	start := time.Now()
	resp, err := e.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("embedding", "/embeddings", 0, time.Since(start))
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("embedding", "/embeddings", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding: decode: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(out.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	dim := -1
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("embedding: bad index %d", d.Index)
		}
		if dim == -1 {
			dim = len(d.Embedding)
		}
		if len(d.Embedding) != dim || dim == 0 {
			return nil, fmt.Errorf("embedding: inconsistent dimension")
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
