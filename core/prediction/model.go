package prediction

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Bias is the fixed intercept added to every raw score. It is not trained.
const Bias = 0.1

// Weights maps each feature of the Schema to its coefficient.
type Weights map[Feature]float64

// weightVector holds weights in Schema order.
type weightVector [NumFeatures]float64

func (w weightVector) toMap() Weights {
	out := make(Weights, NumFeatures)
	for i, name := range Schema {
		out[name] = w[i]
	}
	return out
}

func vectorFromMap(w Weights) (weightVector, error) {
	var v weightVector
	if len(w) != NumFeatures {
		return v, fmt.Errorf("expected %d weights, got %d", NumFeatures, len(w))
	}
	for i, name := range Schema {
		val, ok := w[name]
		if !ok {
			return v, fmt.Errorf("missing weight for %s", name)
		}
		v[i] = val
	}
	return v, nil
}

// Model is a linear scoring model over the feature Schema. Weight sets are
// published as a whole so concurrent readers never observe a partial update.
type Model struct {
	weights atomic.Pointer[weightVector]
}

// NewModel draws every weight uniformly from [-1,1) using rng. A nil rng is
// seeded from the clock, which makes the untrained model non-deterministic.
func NewModel(rng *rand.Rand) *Model {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var w weightVector
	for i := range w {
		w[i] = rng.Float64()*2 - 1
	}
	m := &Model{}
	m.weights.Store(&w)
	return m
}

// NewSeededModel is shorthand for NewModel with a generator seeded by seed.
func NewSeededModel(seed int64) *Model {
	return NewModel(rand.New(rand.NewSource(seed)))
}

// NewModelWithWeights builds a model from an explicit weight set. Every
// feature of the Schema must be present and no other key is accepted.
func NewModelWithWeights(w Weights) (*Model, error) {
	v, err := vectorFromMap(w)
	if err != nil {
		return nil, err
	}
	m := &Model{}
	m.weights.Store(&v)
	return m, nil
}

// Weights returns a copy of the current weight set.
func (m *Model) Weights() Weights {
	return m.weights.Load().toMap()
}

// SetWeights replaces the whole weight set atomically.
func (m *Model) SetWeights(w Weights) error {
	v, err := vectorFromMap(w)
	if err != nil {
		return err
	}
	m.publish(v)
	return nil
}

func (m *Model) snapshot() weightVector { return *m.weights.Load() }

func (m *Model) publish(v weightVector) { m.weights.Store(&v) }

// Score returns the raw score: the dot product of features and weights plus Bias.
func (m *Model) Score(f FeatureVector) float64 {
	w := m.snapshot()
	return rawScore(f, w)
}

func rawScore(f FeatureVector, w weightVector) float64 {
	return floats.Dot(f[:], w[:]) + Bias
}

// Probability maps a raw score through the logistic sigmoid. The result stays
// inside the open interval (0,1) even where float64 would round to an end.
func Probability(raw float64) float64 {
	p := 1.0 / (1.0 + math.Exp(-raw))
	switch {
	case p >= 1:
		return math.Nextafter(1, 0)
	case p <= 0:
		return math.SmallestNonzeroFloat64
	}
	return p
}

// Confidence grows with the magnitude of the raw score and ignores its sign.
// It is bounded in [0,1).
func Confidence(raw float64) float64 {
	a := math.Abs(raw)
	c := a / (a + 1)
	if c >= 1 || math.IsNaN(c) {
		return math.Nextafter(1, 0)
	}
	return c
}
