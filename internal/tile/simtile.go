package tile

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Fabio-83/aihwkit/internal/fold"
	"github.com/Fabio-83/aihwkit/internal/rpu"
)

// SimTile is an in-process simulated resistive crossbar. Weights live in a
// single augmented array of outFeatures rows by inFeatures(+1) input lines;
// when the tile has a bias row, the extra line carries the bias values and
// is driven by the constant-1 entries of the gather table.
//
// The numerics are deliberately plain floating point: matrix products via
// gonum, optional Gaussian output noise per forward pass, and Gaussian
// perturbation of realistic weight reads and writes. Device physics beyond
// that are out of scope.
type SimTile struct {
	inFeatures  int
	outFeatures int
	hasBias     bool

	cfg       rpu.Config
	realistic bool
	src       rand.Source

	// weights is the augmented crossbar array, [outFeatures x lines].
	weights *mat.Dense

	// Indexed mode state, set by SetIndexed.
	indices   []int32
	geom      ImageGeometry
	positions int

	// Input matrix retained by the last non-inference forward, consumed by
	// the update step.
	lastX     *mat.Dense
	lastBatch int
}

var _ Tile = (*SimTile)(nil)

// New creates a tile with the given logical dimensions. The configuration
// is validated against the physical line counts, bias row included.
func New(inFeatures, outFeatures int, bias bool, cfg rpu.Config, realisticReadWrite bool) (*SimTile, error) {
	cfg = cfg.Normalized()
	lines := inFeatures
	if bias {
		lines++
	}
	if err := cfg.Validate(lines, outFeatures); err != nil {
		return nil, err
	}
	var src rand.Source
	if cfg.Seed != 0 {
		src = rand.NewSource(cfg.Seed)
	}
	return &SimTile{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		hasBias:     bias,
		cfg:         cfg,
		realistic:   realisticReadWrite,
		src:         src,
		weights:     mat.NewDense(outFeatures, lines, nil),
	}, nil
}

// InFeatures returns the number of logical inputs, excluding the bias row.
func (t *SimTile) InFeatures() int { return t.inFeatures }

// OutFeatures returns the number of outputs.
func (t *SimTile) OutFeatures() int { return t.outFeatures }

// HasBias reports whether the tile carries a bias row.
func (t *SimTile) HasBias() bool { return t.hasBias }

// Config returns the tile's normalized configuration.
func (t *SimTile) Config() rpu.Config { return t.cfg }

func (t *SimTile) lines() int {
	if t.hasBias {
		return t.inFeatures + 1
	}
	return t.inFeatures
}

// SetIndexed declares the gather table and geometry for the indexed
// operations. The table must provide one row per input line over the
// geometry's output positions, and every entry must be a sentinel or a
// valid flat input address.
func (t *SimTile) SetIndexed(indices []int32, geom ImageGeometry) error {
	positions := geom.Positions()
	if positions <= 0 || geom.InputSize() <= 0 {
		return fmt.Errorf("tile: empty geometry %v", geom.Flatten())
	}
	if want := t.lines() * positions; len(indices) != want {
		return fmt.Errorf("tile: index map has %d entries, want %d (%d lines over %d positions)",
			len(indices), want, t.lines(), positions)
	}
	max := int32(geom.InputSize()) + fold.InputBase - 1
	for i, idx := range indices {
		if idx < fold.PadIndex || idx > max {
			return fmt.Errorf("tile: index %d at entry %d outside [0, %d]", idx, i, max)
		}
	}
	t.indices = append(t.indices[:0:0], indices...)
	t.geom = geom
	t.positions = positions
	t.lastX = nil
	return nil
}

// gather assembles the tile input matrix from the index map: one column per
// output position per sample, one row per input line. Sentinel entries read
// nothing, bias entries read the constant 1, everything else reads the
// addressed input element.
func (t *SimTile) gather(input []float64, batch, sampleSize int) *mat.Dense {
	lines := t.lines()
	x := mat.NewDense(lines, batch*t.positions, nil)
	for r := 0; r < lines; r++ {
		base := r * t.positions
		for b := 0; b < batch; b++ {
			sample := input[b*sampleSize : (b+1)*sampleSize]
			col := b * t.positions
			for p := 0; p < t.positions; p++ {
				switch idx := t.indices[base+p]; idx {
				case fold.PadIndex:
				case fold.BiasIndex:
					x.Set(r, col+p, 1)
				default:
					x.Set(r, col+p, sample[idx-fold.InputBase])
				}
			}
		}
	}
	return x
}

// IndexedForward runs the gather and matrix product for a batch of samples
// and returns the flat [batch, outFeatures, positions] output. When
// inference is false the assembled input matrix is retained for the update
// step.
func (t *SimTile) IndexedForward(input []float64, batch int, weight, bias []float64, inference bool) ([]float64, error) {
	if t.indices == nil {
		return nil, fmt.Errorf("tile: SetIndexed has not been called")
	}
	if batch < 1 {
		return nil, fmt.Errorf("tile: batch size %d", batch)
	}
	sampleSize := t.geom.InputSize()
	if len(input) != batch*sampleSize {
		return nil, fmt.Errorf("tile: input length %d, want %d samples of %d", len(input), batch, sampleSize)
	}

	x := t.gather(input, batch, sampleSize)
	var y mat.Dense
	y.Mul(t.weights, x)
	t.addOutputNoise(&y)

	if inference {
		t.lastX = nil
	} else {
		t.lastX, t.lastBatch = x, batch
	}

	out := make([]float64, batch*t.outFeatures*t.positions)
	for b := 0; b < batch; b++ {
		for o := 0; o < t.outFeatures; o++ {
			dst := (b*t.outFeatures + o) * t.positions
			for p := 0; p < t.positions; p++ {
				out[dst+p] = y.At(o, b*t.positions+p)
			}
		}
	}
	return out, nil
}

// IndexedBackward maps an output gradient back to an input gradient by
// scattering the transposed product through the gather table. Sentinel and
// bias entries contribute nothing.
func (t *SimTile) IndexedBackward(gradOut []float64, batch int) ([]float64, error) {
	if t.indices == nil {
		return nil, fmt.Errorf("tile: SetIndexed has not been called")
	}
	d, err := t.indexedGrad(gradOut, batch)
	if err != nil {
		return nil, err
	}

	var dx mat.Dense
	dx.Mul(t.weights.T(), d)

	sampleSize := t.geom.InputSize()
	gradIn := make([]float64, batch*sampleSize)
	for r := 0; r < t.lines(); r++ {
		base := r * t.positions
		for b := 0; b < batch; b++ {
			sample := gradIn[b*sampleSize : (b+1)*sampleSize]
			col := b * t.positions
			for p := 0; p < t.positions; p++ {
				if idx := t.indices[base+p]; idx >= fold.InputBase {
					sample[idx-fold.InputBase] += dx.At(r, col+p)
				}
			}
		}
	}
	return gradIn, nil
}

// IndexedUpdate applies the in-tile rank update from the retained input
// matrix and the given output gradient, scaled by the configured learning
// rate. The bias line updates through the same product because its gather
// entries are constant 1.
func (t *SimTile) IndexedUpdate(gradOut []float64, batch int) error {
	if t.lastX == nil {
		return fmt.Errorf("tile: no retained activations; update requires a preceding non-inference forward")
	}
	if batch != t.lastBatch {
		return fmt.Errorf("tile: update batch %d does not match forward batch %d", batch, t.lastBatch)
	}
	d, err := t.indexedGrad(gradOut, batch)
	if err != nil {
		return err
	}

	var delta mat.Dense
	delta.Mul(d, t.lastX.T())
	floats.AddScaled(t.weights.RawMatrix().Data, -t.cfg.LearningRate, delta.RawMatrix().Data)
	return nil
}

// indexedGrad reshapes a flat [batch, outFeatures, positions] gradient into
// the [outFeatures x batch*positions] matrix the products run on.
func (t *SimTile) indexedGrad(gradOut []float64, batch int) (*mat.Dense, error) {
	if batch < 1 {
		return nil, fmt.Errorf("tile: batch size %d", batch)
	}
	if len(gradOut) != batch*t.outFeatures*t.positions {
		return nil, fmt.Errorf("tile: gradient length %d, want %d", len(gradOut), batch*t.outFeatures*t.positions)
	}
	d := mat.NewDense(t.outFeatures, batch*t.positions, nil)
	for b := 0; b < batch; b++ {
		for o := 0; o < t.outFeatures; o++ {
			src := (b*t.outFeatures + o) * t.positions
			for p := 0; p < t.positions; p++ {
				d.Set(o, b*t.positions+p, gradOut[src+p])
			}
		}
	}
	return d, nil
}

// Forward is the fully-connected analog product: one column per sample, the
// bias line driven with the constant 1.
func (t *SimTile) Forward(input []float64, batch int, inference bool) ([]float64, error) {
	if batch < 1 {
		return nil, fmt.Errorf("tile: batch size %d", batch)
	}
	if len(input) != batch*t.inFeatures {
		return nil, fmt.Errorf("tile: input length %d, want %d samples of %d", len(input), batch, t.inFeatures)
	}

	lines := t.lines()
	x := mat.NewDense(lines, batch, nil)
	for b := 0; b < batch; b++ {
		for r := 0; r < t.inFeatures; r++ {
			x.Set(r, b, input[b*t.inFeatures+r])
		}
		if t.hasBias {
			x.Set(lines-1, b, 1)
		}
	}

	var y mat.Dense
	y.Mul(t.weights, x)
	t.addOutputNoise(&y)

	if inference {
		t.lastX = nil
	} else {
		t.lastX, t.lastBatch = x, batch
	}

	out := make([]float64, batch*t.outFeatures)
	for b := 0; b < batch; b++ {
		for o := 0; o < t.outFeatures; o++ {
			out[b*t.outFeatures+o] = y.At(o, b)
		}
	}
	return out, nil
}

// Backward maps an output gradient back through the fully-connected
// product.
func (t *SimTile) Backward(gradOut []float64, batch int) ([]float64, error) {
	if batch < 1 {
		return nil, fmt.Errorf("tile: batch size %d", batch)
	}
	if len(gradOut) != batch*t.outFeatures {
		return nil, fmt.Errorf("tile: gradient length %d, want %d", len(gradOut), batch*t.outFeatures)
	}

	d := mat.NewDense(t.outFeatures, batch, nil)
	for b := 0; b < batch; b++ {
		for o := 0; o < t.outFeatures; o++ {
			d.Set(o, b, gradOut[b*t.outFeatures+o])
		}
	}

	var dx mat.Dense
	dx.Mul(t.weights.T(), d)

	gradIn := make([]float64, batch*t.inFeatures)
	for b := 0; b < batch; b++ {
		for r := 0; r < t.inFeatures; r++ {
			gradIn[b*t.inFeatures+r] = dx.At(r, b)
		}
	}
	return gradIn, nil
}

// Update applies the fully-connected rank update from the retained input
// matrix.
func (t *SimTile) Update(gradOut []float64, batch int) error {
	if t.lastX == nil {
		return fmt.Errorf("tile: no retained activations; update requires a preceding non-inference forward")
	}
	if batch != t.lastBatch {
		return fmt.Errorf("tile: update batch %d does not match forward batch %d", batch, t.lastBatch)
	}
	if len(gradOut) != batch*t.outFeatures {
		return fmt.Errorf("tile: gradient length %d, want %d", len(gradOut), batch*t.outFeatures)
	}

	d := mat.NewDense(t.outFeatures, batch, nil)
	for b := 0; b < batch; b++ {
		for o := 0; o < t.outFeatures; o++ {
			d.Set(o, b, gradOut[b*t.outFeatures+o])
		}
	}

	var delta mat.Dense
	delta.Mul(d, t.lastX.T())
	floats.AddScaled(t.weights.RawMatrix().Data, -t.cfg.LearningRate, delta.RawMatrix().Data)
	return nil
}

// GetWeights reads the crossbar values, weight matrix and bias vector
// separately. On a realistic tile each read is perturbed by the configured
// read noise; the array itself is untouched.
func (t *SimTile) GetWeights() ([]float64, []float64, error) {
	weights := make([]float64, t.outFeatures*t.inFeatures)
	for o := 0; o < t.outFeatures; o++ {
		for r := 0; r < t.inFeatures; r++ {
			weights[o*t.inFeatures+r] = t.weights.At(o, r)
		}
	}
	var bias []float64
	if t.hasBias {
		bias = make([]float64, t.outFeatures)
		for o := 0; o < t.outFeatures; o++ {
			bias[o] = t.weights.At(o, t.inFeatures)
		}
	}
	if t.realistic {
		t.perturb(weights, t.cfg.ReadNoiseStd)
		t.perturb(bias, t.cfg.ReadNoiseStd)
	}
	return weights, bias, nil
}

// SetWeights writes the crossbar values. On a realistic tile every written
// value is perturbed by the configured write noise.
func (t *SimTile) SetWeights(weights, bias []float64) error {
	if len(weights) != t.outFeatures*t.inFeatures {
		return fmt.Errorf("tile: weight length %d, want %d", len(weights), t.outFeatures*t.inFeatures)
	}
	if t.hasBias {
		if len(bias) != t.outFeatures {
			return fmt.Errorf("tile: bias length %d, want %d", len(bias), t.outFeatures)
		}
	} else if len(bias) != 0 {
		return fmt.Errorf("tile: bias given to a tile without a bias row")
	}

	weights = append([]float64(nil), weights...)
	bias = append([]float64(nil), bias...)
	if t.realistic {
		t.perturb(weights, t.cfg.WriteNoiseStd)
		t.perturb(bias, t.cfg.WriteNoiseStd)
	}
	for o := 0; o < t.outFeatures; o++ {
		for r := 0; r < t.inFeatures; r++ {
			t.weights.Set(o, r, weights[o*t.inFeatures+r])
		}
		if t.hasBias {
			t.weights.Set(o, t.inFeatures, bias[o])
		}
	}
	return nil
}

// addOutputNoise perturbs every output of a forward pass when the
// configuration asks for analog output noise.
func (t *SimTile) addOutputNoise(y *mat.Dense) {
	if t.cfg.OutNoise > 0 {
		t.perturb(y.RawMatrix().Data, t.cfg.OutNoise)
	}
}

func (t *SimTile) perturb(data []float64, std float64) {
	if std <= 0 || len(data) == 0 {
		return
	}
	n := distuv.Normal{Sigma: std, Src: t.src}
	for i := range data {
		data[i] += n.Rand()
	}
}
