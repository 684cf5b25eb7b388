package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"ski_resort_finder/internal/domain"
)

type RankingMode string

const (
	ModeRating   RankingMode = "rating"
	ModeSemantic RankingMode = "semantic"
	ModeBlended  RankingMode = "blended"

	DefaultTopN = 10
)

func ParseRankingMode(s string) (RankingMode, error) {
	switch m := RankingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeBlended, nil
	case ModeRating, ModeSemantic, ModeBlended:
		return m, nil
	default:
		return "", fmt.Errorf("unknown ranking mode %q", s)
	}
}

// Weights of the blended score. NormKm is the distance at which the
// proximity term reaches zero.
type Weights struct {
	Similarity float64
	Proximity  float64
	Rating     float64
	NormKm     float64
}

func DefaultWeights() Weights {
	return Weights{Similarity: 0.4, Proximity: 0.3, Rating: 0.3, NormKm: 100}
}

// Score combines similarity, distance and rating into one value.
func (w Weights) Score(sim, distKm, rating float64) float64 {
	norm := w.NormKm
	if norm <= 0 {
		norm = 100
	}
	prox := 1 - math.Min(distKm/norm, 1)
	return w.Similarity*sim + w.Proximity*prox + w.Rating*(rating/5)
}

type Ranker struct {
	embedder domain.Embedder
	mode     RankingMode
	topN     int
	weights  Weights
}

func NewRanker(e domain.Embedder, mode RankingMode, topN int, w Weights) *Ranker {
	if mode == "" {
		mode = ModeBlended
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Ranker{embedder: e, mode: mode, topN: topN, weights: w}
}

func (r *Ranker) Mode() RankingMode { return r.mode }

// Rank orders candidates and keeps the top N. Seeded candidates are never cut.
// If embedding fails the ranker falls back to rating order.
func (r *Ranker) Rank(ctx context.Context, query string, cands []domain.Candidate) []domain.RankedResort {
	if len(cands) == 0 {
		return nil
	}
	mode := r.mode
	var sims []float64
	if mode != ModeRating {
		var err error
		sims, err = r.similarities(ctx, query, cands)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("mode", string(mode)).Msg("embedding failed; ranking by rating")
			mode = ModeRating
			sims = nil
		}
	}
	if sims == nil {
		sims = make([]float64, len(cands))
	}

	idx := make([]int, len(cands))
	for i := range idx {
		idx[i] = i
	}
	byRating := func(ids []int) {
		sort.SliceStable(ids, func(a, b int) bool {
			ca, cb := cands[ids[a]], cands[ids[b]]
			if ca.Rating != cb.Rating {
				return ca.Rating > cb.Rating
			}
			return ca.Distance() < cb.Distance()
		})
	}

	scores := make([]float64, len(cands))
	switch mode {
	case ModeRating:
		byRating(idx)
		idx = r.shortlist(cands, idx)
		for i, c := range cands {
			scores[i] = c.Rating / 5
		}
	case ModeSemantic:
		sort.SliceStable(idx, func(a, b int) bool { return sims[idx[a]] > sims[idx[b]] })
		idx = r.shortlist(cands, idx)
		byRating(idx)
		copy(scores, sims)
	default:
		sort.SliceStable(idx, func(a, b int) bool { return sims[idx[a]] > sims[idx[b]] })
		idx = r.shortlist(cands, idx)
		for _, i := range idx {
			scores[i] = r.weights.Score(sims[i], cands[i].Distance(), cands[i].Rating)
		}
		sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	}

	out := make([]domain.RankedResort, len(idx))
	for rank, i := range idx {
		out[rank] = domain.RankedResort{
			Candidate:  cands[i],
			Similarity: sims[i],
			Score:      scores[i],
			Rank:       rank + 1,
		}
	}
	return out
}

// shortlist keeps the first topN of order plus every seeded candidate beyond
// it, preserving relative order.
func (r *Ranker) shortlist(cands []domain.Candidate, order []int) []int {
	if len(order) <= r.topN {
		return order
	}
	out := append([]int(nil), order[:r.topN]...)
	for _, i := range order[r.topN:] {
		if cands[i].Seeded {
			out = append(out, i)
		}
	}
	return out
}

// similarities embeds the query and every candidate in one call so they share
// a model, then returns cosine similarity per candidate.
func (r *Ranker) similarities(ctx context.Context, query string, cands []domain.Candidate) ([]float64, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	texts := make([]string, 0, len(cands)+1)
	texts = append(texts, query)
	for _, c := range cands {
		texts = append(texts, strings.TrimSpace(c.Name+" "+c.Address))
	}
	vecs, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	sims := make([]float64, len(cands))
	for i := range cands {
		s, err := Cosine(vecs[0], vecs[i+1])
		if err != nil {
			return nil, err
		}
		sims[i] = s
	}
	return sims, nil
}

// Cosine similarity of a and b; zero vectors have similarity 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
