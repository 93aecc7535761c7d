// Package classify predicts a text's industry domain from its embedding.
//
// Each corpus version stores one centroid per label, the normalized mean of
// the posting embeddings carrying that label. A text is classified by a
// temperature softmax over its cosine similarity to every centroid.
package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/metrics"
)

// DefaultTemperature sharpens cosine gaps of a few hundredths into a usable
// probability spread.
const DefaultTemperature = 0.05

const metricsName = "centroid"

var _ domain.Classifier = (*Centroid)(nil)

// Centroid implements domain.Classifier over the live corpus centroids.
type Centroid struct {
	embedder    Embedder
	store       CentroidStore
	versions    VersionSource
	temperature float64
	logger      *zap.Logger

	loaded atomic.Pointer[centroidSet]
}

type centroidSet struct {
	version   string
	dim       int
	centroids map[label.Label][]float32
}

// NewCentroid creates a centroid classifier. temperature <= 0 selects
// DefaultTemperature.
func NewCentroid(
	embedder Embedder, store CentroidStore, versions VersionSource,
	temperature float64, logger *zap.Logger,
) *Centroid {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &Centroid{
		embedder:    embedder,
		store:       store,
		versions:    versions,
		temperature: temperature,
		logger:      logger,
	}
}

// Classify embeds text and scores it against the centroids of the live
// corpus version. An embedding stored with domain.ContextWithQueryEmbedding
// is used instead of embedding text when its dimension matches. Every
// failure wraps domain.ErrClassifierUnavailable.
func (c *Centroid) Classify(ctx context.Context, text string) (label.Distribution, error) {
	dist, err := c.classify(ctx, text)
	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues(metricsName, "error").Inc()
		return label.Distribution{}, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}
	metrics.ClassifierRequestsTotal.WithLabelValues(metricsName, "success").Inc()
	return dist, nil
}

func (c *Centroid) classify(ctx context.Context, text string) (label.Distribution, error) {
	set, err := c.current(ctx)
	if err != nil {
		return label.Distribution{}, err
	}
	if vec, ok := domain.QueryEmbeddingFromContext(ctx); ok && len(vec) == set.dim {
		return Softmax(vec, set.centroids, c.temperature)
	}
	res, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return label.Distribution{}, fmt.Errorf("embed: %w", err)
	}
	return Softmax(res.Embedding, set.centroids, c.temperature)
}

// current returns the centroids of the live version, loading them once per
// version change. The load runs without holding any lock; requests racing
// on a fresh version may each load, and the last one published wins.
func (c *Centroid) current(ctx context.Context) (*centroidSet, error) {
	version := c.versions.Acquire().Version
	if version == "" {
		return nil, errors.New("no corpus loaded")
	}
	if set := c.loaded.Load(); set != nil && set.version == version {
		return set, nil
	}

	centroids, err := c.store.LoadCentroids(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("load centroids: %w", err)
	}
	set := &centroidSet{version: version, centroids: centroids}
	for _, cv := range centroids {
		set.dim = len(cv)
		break
	}
	c.loaded.Store(set)
	c.logger.Info("Classifier centroids loaded",
		zap.String("version", version),
		zap.Int("labels", len(centroids)),
	)
	return set, nil
}

// Softmax turns cosine similarities to the centroids into a distribution.
// Labels without a centroid get zero mass.
func Softmax(vec []float32, centroids map[label.Label][]float32, temperature float64) (label.Distribution, error) {
	if len(centroids) == 0 {
		return label.Distribution{}, errors.New("no centroids")
	}
	qn := norm(vec)
	if qn == 0 {
		return label.Distribution{}, errors.New("zero query vector")
	}

	logits := make(map[label.Label]float64, len(centroids))
	maxLogit := math.Inf(-1)
	for l, cv := range centroids {
		if len(cv) != len(vec) {
			return label.Distribution{}, domain.NewDimensionMismatch(len(cv), len(vec))
		}
		cn := norm(cv)
		if cn == 0 {
			continue
		}
		z := dot(vec, cv) / (qn * cn) / temperature
		logits[l] = z
		maxLogit = math.Max(maxLogit, z)
	}
	if len(logits) == 0 {
		return label.Distribution{}, errors.New("all centroids are zero")
	}

	var sum float64
	for l, z := range logits {
		e := math.Exp(z - maxLogit)
		logits[l] = e
		sum += e
	}
	for l := range logits {
		logits[l] /= sum
	}
	return label.NewDistribution(logits)
}

// ComputeCentroids averages the unit-normalized embeddings of each label and
// normalizes the result.
func ComputeCentroids(postings []job.Posting) map[label.Label][]float32 {
	sums := make(map[label.Label][]float64)
	for i := range postings {
		p := &postings[i]
		v := p.Embedding()
		n := norm(v)
		if n == 0 {
			continue
		}
		acc, ok := sums[p.Domain()]
		if !ok {
			acc = make([]float64, len(v))
			sums[p.Domain()] = acc
		}
		if len(acc) != len(v) {
			continue
		}
		for j, x := range v {
			acc[j] += float64(x) / n
		}
	}

	out := make(map[label.Label][]float32, len(sums))
	for l, acc := range sums {
		var sq float64
		for _, x := range acc {
			sq += x * x
		}
		if sq == 0 {
			continue
		}
		n := math.Sqrt(sq)
		c := make([]float32, len(acc))
		for j, x := range acc {
			c[j] = float32(x / n)
		}
		out[l] = c
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
