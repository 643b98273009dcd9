package layer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Fabio-83/aihwkit/internal/rpu"
	"github.com/Fabio-83/aihwkit/internal/tile"
)

// AnalogLinear is a fully connected layer on an analog tile, the
// non-indexed sibling of the convolution layers. Inputs map one to one
// onto tile lines, so no gather table is involved.
type AnalogLinear struct {
	inFeatures  int
	outFeatures int
	hasBias     bool
	rpuCfg      rpu.Config
	realistic   bool

	weight []float64
	bias   []float64

	t tile.Tile

	lastBatch int
	training  bool
}

// NewAnalogLinear creates an analog fully connected layer with
// inFeatures inputs and outFeatures outputs.
func NewAnalogLinear(inFeatures, outFeatures int, bias bool, cfg rpu.Config, realistic bool) (*AnalogLinear, error) {
	if inFeatures < 1 || outFeatures < 1 {
		return nil, fmt.Errorf("AnalogLinear: features %dx%d: %w", inFeatures, outFeatures, rpu.ErrConfig)
	}
	t, err := tile.New(inFeatures, outFeatures, bias, cfg, realistic)
	if err != nil {
		return nil, fmt.Errorf("AnalogLinear: %w", err)
	}

	l := &AnalogLinear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		hasBias:     bias,
		rpuCfg:      cfg,
		realistic:   realistic,
		weight:      make([]float64, outFeatures*inFeatures),
		t:           t,
	}
	if bias {
		l.bias = make([]float64, outFeatures)
	}
	bound := 1 / math.Sqrt(float64(inFeatures))
	for i := range l.weight {
		l.weight[i] = rand.Float64()*2*bound - bound
	}
	for i := range l.bias {
		l.bias[i] = rand.Float64()*2*bound - bound
	}
	if err := t.SetWeights(l.weight, l.bias); err != nil {
		return nil, fmt.Errorf("AnalogLinear: %w", err)
	}
	return l, nil
}

// Forward runs a single sample through the tile.
func (l *AnalogLinear) Forward(x []float64) []float64 {
	out, err := l.t.Forward(x, 1, !l.training)
	if err != nil {
		panic(fmt.Sprintf("AnalogLinear: %v", err))
	}
	l.lastBatch = 1
	return out
}

// ForwardBatch runs a batch of samples through the tile in one pass.
func (l *AnalogLinear) ForwardBatch(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	flat := make([]float64, 0, len(x)*l.inFeatures)
	for i := range x {
		if len(x[i]) != l.inFeatures {
			panic(fmt.Sprintf("AnalogLinear: sample %d has length %d, want %d", i, len(x[i]), l.inFeatures))
		}
		flat = append(flat, x[i]...)
	}
	out, err := l.t.Forward(flat, len(x), !l.training)
	if err != nil {
		panic(fmt.Sprintf("AnalogLinear: %v", err))
	}
	l.lastBatch = len(x)
	result := make([][]float64, len(x))
	for i := range result {
		result[i] = out[i*l.outFeatures : (i+1)*l.outFeatures]
	}
	return result
}

// Backward maps the output gradient back through the tile, applying the
// in-tile update when training.
func (l *AnalogLinear) Backward(grad []float64) []float64 {
	if l.lastBatch == 0 {
		panic("AnalogLinear: Backward called before Forward")
	}
	gradIn, err := l.t.Backward(grad, l.lastBatch)
	if err != nil {
		panic(fmt.Sprintf("AnalogLinear: %v", err))
	}
	if l.training {
		if err := l.t.Update(grad, l.lastBatch); err != nil {
			panic(fmt.Sprintf("AnalogLinear: %v", err))
		}
	}
	return gradIn
}

// SetTraining sets whether forward passes retain activations for updates.
func (l *AnalogLinear) SetTraining(training bool) {
	l.training = training
}

// Parameters returns the shadow parameter registry.
func (l *AnalogLinear) Parameters() []Param {
	params := []Param{{Name: "weight", Data: l.weight, Role: RoleWeight}}
	if l.hasBias {
		params = append(params, Param{Name: "bias", Data: l.bias, Role: RoleBias})
	}
	return params
}

// Tile returns the analog tile behind the layer.
func (l *AnalogLinear) Tile() tile.Tile {
	return l.t
}

// GetWeights reads the authoritative values from the tile and refreshes the
// shadow copies.
func (l *AnalogLinear) GetWeights() ([]float64, []float64, error) {
	weights, bias, err := l.t.GetWeights()
	if err != nil {
		return nil, nil, err
	}
	copy(l.weight, weights)
	copy(l.bias, bias)
	return weights, bias, nil
}

// SetWeights writes new values into the tile and the shadow copies.
func (l *AnalogLinear) SetWeights(weights, bias []float64) error {
	if err := l.t.SetWeights(weights, bias); err != nil {
		return err
	}
	copy(l.weight, weights)
	copy(l.bias, bias)
	return nil
}

// InFeatures returns the input width.
func (l *AnalogLinear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *AnalogLinear) OutFeatures() int {
	return l.outFeatures
}

// HasBias reports whether the layer carries a bias.
func (l *AnalogLinear) HasBias() bool {
	return l.hasBias
}

// RPU returns the tile configuration the layer was built with.
func (l *AnalogLinear) RPU() rpu.Config {
	return l.rpuCfg
}

// Realistic reports whether tile reads and writes are perturbed.
func (l *AnalogLinear) Realistic() bool {
	return l.realistic
}
