package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"ski_resort_finder/internal/adapters/observability"
)

// DefaultModelPath is where a sentence-transformers ONNX export
// (all-MiniLM-L6-v2) is expected when no path is configured.
const DefaultModelPath = "models/all-MiniLM-L6-v2"

// HugotEmbedder runs a sentence-transformers model in process through a
// hugot feature-extraction pipeline. One pipeline is loaded at startup and
// shared by every search.
type HugotEmbedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

func NewHugot(modelPath string) (*HugotEmbedder, error) {
	if modelPath == "" {
		return nil, errors.New("embedding model path is required")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("embedding model %s: %w", modelPath, err)
	}
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("hugot session: %w", err)
	}
	p, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "resort-embedder",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("load embedding model %s: %w", modelPath, err)
	}
	return &HugotEmbedder{session: session, pipeline: p}, nil
}

func (h *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	out, err := h.pipeline.RunPipeline(texts)
	status := 200
	if err != nil {
		status = 500
	}
	observability.ObserveExternal("hugot", "feature_extraction", status, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("model returned %d vectors for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

// Close releases the model session.
func (h *HugotEmbedder) Close() error { return h.session.Destroy() }
