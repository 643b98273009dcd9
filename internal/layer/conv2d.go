// Package layer provides neural network layer implementations.
package layer

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/Fabio-83/aihwkit/internal/fold"
	"github.com/Fabio-83/aihwkit/internal/rpu"
	"github.com/Fabio-83/aihwkit/internal/tile"
)

// Conv2dConfig configures an analog 2D convolution layer. The zero value of
// Stride, Dilation, Groups and PaddingMode means 1, 1, 1 and "zeros"; only
// those values are supported for the latter two.
type Conv2dConfig struct {
	InChannels  int
	OutChannels int
	Kernel      [2]int
	Stride      [2]int
	Padding     [2]int
	Dilation    [2]int
	Groups      int
	NoBias      bool
	PaddingMode string

	// RPU configures the analog tile; Realistic enables noisy weight
	// reads and writes on it.
	RPU       rpu.Config
	Realistic bool

	// Tile overrides the tile construction, DefaultTileFactory when nil.
	Tile TileFactory
}

func (cfg Conv2dConfig) normalized() Conv2dConfig {
	if cfg.Stride == ([2]int{}) {
		cfg.Stride = [2]int{1, 1}
	}
	if cfg.Dilation == ([2]int{}) {
		cfg.Dilation = [2]int{1, 1}
	}
	if cfg.Groups == 0 {
		cfg.Groups = 1
	}
	if cfg.PaddingMode == "" {
		cfg.PaddingMode = "zeros"
	}
	return cfg
}

func (cfg Conv2dConfig) validate() error {
	if cfg.InChannels < 1 || cfg.OutChannels < 1 {
		return fmt.Errorf("AnalogConv2d: channels %dx%d: %w", cfg.InChannels, cfg.OutChannels, rpu.ErrConfig)
	}
	for axis := 0; axis < 2; axis++ {
		if cfg.Kernel[axis] < 1 || cfg.Stride[axis] < 1 || cfg.Dilation[axis] < 1 || cfg.Padding[axis] < 0 {
			return fmt.Errorf("AnalogConv2d: kernel %v stride %v padding %v dilation %v: %w",
				cfg.Kernel, cfg.Stride, cfg.Padding, cfg.Dilation, rpu.ErrConfig)
		}
	}
	if cfg.Groups != 1 {
		return fmt.Errorf("AnalogConv2d: only groups == 1 is supported, got %d: %w", cfg.Groups, rpu.ErrConfig)
	}
	if cfg.PaddingMode != "zeros" {
		return fmt.Errorf("AnalogConv2d: only \"zeros\" padding mode is supported, got %q: %w", cfg.PaddingMode, rpu.ErrConfig)
	}
	return nil
}

// AnalogConv2d is a 2D convolution whose multiply-accumulate runs on an
// analog tile. The sliding-window semantics are translated once per input
// geometry into a flat gather-index table; forward passes then reduce to a
// single indexed tile call.
type AnalogConv2d struct {
	inChannels  int
	outChannels int
	kernel      [2]int
	stride      [2]int
	padding     [2]int
	dilation    [2]int
	hasBias     bool
	rpuCfg      rpu.Config
	realistic   bool

	// inFeatures is the tile input width: inChannels * kernel area.
	inFeatures int

	// Shadow parameters; the tile array holds the authoritative values.
	weight []float64
	bias   []float64

	t tile.Tile

	// mu guards the geometry key and the index-map rebuild it triggers.
	mu        sync.Mutex
	inputSize float64
	setHeight int
	setWidth  int

	lastBatch int
	training  bool
}

// NewAnalogConv2d creates an analog 2D convolution layer. The tile is
// created from the config, the weights are initialized with the standard
// fan-in uniform scheme and written to the tile, so the tile is the source
// of truth from construction on.
func NewAnalogConv2d(cfg Conv2dConfig) (*AnalogConv2d, error) {
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	inFeatures := cfg.InChannels * cfg.Kernel[0] * cfg.Kernel[1]
	factory := cfg.Tile
	if factory == nil {
		factory = DefaultTileFactory
	}
	t, err := factory(inFeatures, cfg.OutChannels, !cfg.NoBias, cfg.RPU, cfg.Realistic)
	if err != nil {
		return nil, fmt.Errorf("AnalogConv2d: %w", err)
	}

	c := &AnalogConv2d{
		inChannels:  cfg.InChannels,
		outChannels: cfg.OutChannels,
		kernel:      cfg.Kernel,
		stride:      cfg.Stride,
		padding:     cfg.Padding,
		dilation:    cfg.Dilation,
		hasBias:     !cfg.NoBias,
		rpuCfg:      cfg.RPU,
		realistic:   cfg.Realistic,
		inFeatures:  inFeatures,
		weight:      make([]float64, cfg.OutChannels*inFeatures),
		t:           t,
	}
	if c.hasBias {
		c.bias = make([]float64, cfg.OutChannels)
	}
	c.resetParameters()
	if err := t.SetWeights(c.weight, c.bias); err != nil {
		return nil, fmt.Errorf("AnalogConv2d: %w", err)
	}
	return c, nil
}

// resetParameters draws weights and bias uniformly from ±1/sqrt(fanIn).
func (c *AnalogConv2d) resetParameters() {
	bound := 1 / math.Sqrt(float64(c.inFeatures))
	for i := range c.weight {
		c.weight[i] = rand.Float64()*2*bound - bound
	}
	for i := range c.bias {
		c.bias[i] = rand.Float64()*2*bound - bound
	}
}

// SetInputSize declares the spatial input dimensions for following forward
// passes, overriding square inference. The next forward rebuilds the index
// map.
func (c *AnalogConv2d) SetInputSize(height, width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setHeight = height
	c.setWidth = width
	c.inputSize = 0
}

// spatialSize resolves the input height and width for a per-sample element
// count, preferring explicitly declared dimensions.
func (c *AnalogConv2d) spatialSize(perSample int) ([2]int, error) {
	if c.setHeight > 0 && c.setWidth > 0 {
		if c.inChannels*c.setHeight*c.setWidth != perSample {
			return [2]int{}, fmt.Errorf("declared input %dx%d does not match %d elements over %d channels",
				c.setHeight, c.setWidth, perSample, c.inChannels)
		}
		return [2]int{c.setHeight, c.setWidth}, nil
	}
	if perSample < 1 || perSample%c.inChannels != 0 {
		return [2]int{}, fmt.Errorf("input length %d not divisible by %d channels", perSample, c.inChannels)
	}
	channelSize := perSample / c.inChannels
	side := int(math.Round(math.Sqrt(float64(channelSize))))
	if side*side != channelSize {
		return [2]int{}, fmt.Errorf("cannot infer a square image from %d elements per channel; call SetInputSize", channelSize)
	}
	return [2]int{side, side}, nil
}

// ensureIndexed rebuilds the gather-index table when the per-sample element
// count differs from the cached geometry key, and pushes it into the tile.
// Stable shapes skip straight through.
func (c *AnalogConv2d) ensureIndexed(inputSize float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputSize == inputSize {
		return nil
	}
	in, err := c.spatialSize(int(inputSize))
	if err != nil {
		return err
	}
	indices, out := fold.Conv2dIndices(c.inChannels, in, c.kernel, c.stride, c.padding, c.dilation, c.hasBias)
	geom := tile.ImageGeometry{InChannels: c.inChannels, In: in[:], Out: out[:]}
	if err := c.t.SetIndexed(indices, geom); err != nil {
		return err
	}
	c.inputSize = inputSize
	return nil
}

func (c *AnalogConv2d) forward(input []float64, batch int) ([]float64, error) {
	if batch < 1 || len(input)%batch != 0 {
		return nil, fmt.Errorf("input length %d does not divide into %d samples", len(input), batch)
	}
	if err := c.ensureIndexed(float64(len(input) / batch)); err != nil {
		return nil, err
	}
	c.lastBatch = batch
	return c.t.IndexedForward(input, batch, c.weight, c.bias, !c.training)
}

// Forward runs a single sample through the tile.
// input: flattened [inChannels, height, width]
// Returns: flattened [outChannels, outHeight, outWidth]
func (c *AnalogConv2d) Forward(x []float64) []float64 {
	out, err := c.forward(x, 1)
	if err != nil {
		panic(fmt.Sprintf("AnalogConv2d: %v", err))
	}
	return out
}

// ForwardBatch runs a batch of equally-shaped samples through the tile in
// one indexed pass.
func (c *AnalogConv2d) ForwardBatch(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	sample := len(x[0])
	flat := make([]float64, 0, len(x)*sample)
	for i := range x {
		if len(x[i]) != sample {
			panic(fmt.Sprintf("AnalogConv2d: sample %d has length %d, want %d", i, len(x[i]), sample))
		}
		flat = append(flat, x[i]...)
	}
	out, err := c.forward(flat, len(x))
	if err != nil {
		panic(fmt.Sprintf("AnalogConv2d: %v", err))
	}
	per := len(out) / len(x)
	result := make([][]float64, len(x))
	for i := range result {
		result[i] = out[i*per : (i+1)*per]
	}
	return result
}

// Backward maps the output gradient back through the tile. In training mode
// the tile also applies its in-tile rank update from the retained forward
// activations.
func (c *AnalogConv2d) Backward(grad []float64) []float64 {
	if c.lastBatch == 0 {
		panic("AnalogConv2d: Backward called before Forward")
	}
	gradIn, err := c.t.IndexedBackward(grad, c.lastBatch)
	if err != nil {
		panic(fmt.Sprintf("AnalogConv2d: %v", err))
	}
	if c.training {
		if err := c.t.IndexedUpdate(grad, c.lastBatch); err != nil {
			panic(fmt.Sprintf("AnalogConv2d: %v", err))
		}
	}
	return gradIn
}

// SetTraining sets whether forward passes retain activations for updates.
func (c *AnalogConv2d) SetTraining(training bool) {
	c.training = training
}

// Parameters returns the shadow parameter registry.
func (c *AnalogConv2d) Parameters() []Param {
	params := []Param{{Name: "weight", Data: c.weight, Role: RoleWeight}}
	if c.hasBias {
		params = append(params, Param{Name: "bias", Data: c.bias, Role: RoleBias})
	}
	return params
}

// Tile returns the analog tile behind the layer.
func (c *AnalogConv2d) Tile() tile.Tile {
	return c.t
}

// GetWeights reads the authoritative values from the tile and refreshes the
// shadow copies.
func (c *AnalogConv2d) GetWeights() ([]float64, []float64, error) {
	weights, bias, err := c.t.GetWeights()
	if err != nil {
		return nil, nil, err
	}
	copy(c.weight, weights)
	copy(c.bias, bias)
	return weights, bias, nil
}

// SetWeights writes new values into the tile and the shadow copies.
func (c *AnalogConv2d) SetWeights(weights, bias []float64) error {
	if err := c.t.SetWeights(weights, bias); err != nil {
		return err
	}
	copy(c.weight, weights)
	copy(c.bias, bias)
	return nil
}

// InChannels returns the number of input channels.
func (c *AnalogConv2d) InChannels() int {
	return c.inChannels
}

// OutChannels returns the number of output feature maps.
func (c *AnalogConv2d) OutChannels() int {
	return c.outChannels
}

// InFeatures returns the tile input width (inChannels * kernel area).
func (c *AnalogConv2d) InFeatures() int {
	return c.inFeatures
}

// Kernel returns the kernel size per axis.
func (c *AnalogConv2d) Kernel() [2]int {
	return c.kernel
}

// Stride returns the stride per axis.
func (c *AnalogConv2d) Stride() [2]int {
	return c.stride
}

// Padding returns the zero padding per axis.
func (c *AnalogConv2d) Padding() [2]int {
	return c.padding
}

// Dilation returns the dilation per axis.
func (c *AnalogConv2d) Dilation() [2]int {
	return c.dilation
}

// HasBias reports whether the layer carries a bias.
func (c *AnalogConv2d) HasBias() bool {
	return c.hasBias
}

// RPU returns the tile configuration the layer was built with.
func (c *AnalogConv2d) RPU() rpu.Config {
	return c.rpuCfg
}

// Realistic reports whether tile reads and writes are perturbed.
func (c *AnalogConv2d) Realistic() bool {
	return c.realistic
}
