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

// Conv3dConfig configures an analog 3D convolution layer. Dilation is not
// supported in three dimensions; the zero value (meaning 1 per axis) is the
// only accepted one.
type Conv3dConfig struct {
	InChannels  int
	OutChannels int
	Kernel      [3]int
	Stride      [3]int
	Padding     [3]int
	Dilation    [3]int
	Groups      int
	NoBias      bool
	PaddingMode string

	RPU       rpu.Config
	Realistic bool

	Tile TileFactory
}

func (cfg Conv3dConfig) normalized() Conv3dConfig {
	if cfg.Stride == ([3]int{}) {
		cfg.Stride = [3]int{1, 1, 1}
	}
	if cfg.Dilation == ([3]int{}) {
		cfg.Dilation = [3]int{1, 1, 1}
	}
	if cfg.Groups == 0 {
		cfg.Groups = 1
	}
	if cfg.PaddingMode == "" {
		cfg.PaddingMode = "zeros"
	}
	return cfg
}

func (cfg Conv3dConfig) validate() error {
	if cfg.InChannels < 1 || cfg.OutChannels < 1 {
		return fmt.Errorf("AnalogConv3d: channels %dx%d: %w", cfg.InChannels, cfg.OutChannels, rpu.ErrConfig)
	}
	for axis := 0; axis < 3; axis++ {
		if cfg.Kernel[axis] < 1 || cfg.Stride[axis] < 1 || cfg.Padding[axis] < 0 {
			return fmt.Errorf("AnalogConv3d: kernel %v stride %v padding %v: %w",
				cfg.Kernel, cfg.Stride, cfg.Padding, rpu.ErrConfig)
		}
	}
	if cfg.Groups != 1 {
		return fmt.Errorf("AnalogConv3d: only groups == 1 is supported, got %d: %w", cfg.Groups, rpu.ErrConfig)
	}
	if cfg.PaddingMode != "zeros" {
		return fmt.Errorf("AnalogConv3d: only \"zeros\" padding mode is supported, got %q: %w", cfg.PaddingMode, rpu.ErrConfig)
	}
	if cfg.Dilation != ([3]int{1, 1, 1}) {
		return fmt.Errorf("AnalogConv3d: dilation is not supported, got %v: %w", cfg.Dilation, rpu.ErrConfig)
	}
	return nil
}

// AnalogConv3d is the volumetric counterpart of AnalogConv2d: the same
// indexed-tile delegation over [inChannels, depth, height, width] inputs.
type AnalogConv3d struct {
	inChannels  int
	outChannels int
	kernel      [3]int
	stride      [3]int
	padding     [3]int
	hasBias     bool
	rpuCfg      rpu.Config
	realistic   bool
	inFeatures  int

	weight []float64
	bias   []float64

	t tile.Tile

	mu        sync.Mutex
	inputSize float64
	setDepth  int
	setHeight int
	setWidth  int

	lastBatch int
	training  bool
}

// NewAnalogConv3d creates an analog 3D convolution layer.
func NewAnalogConv3d(cfg Conv3dConfig) (*AnalogConv3d, error) {
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	inFeatures := cfg.InChannels * cfg.Kernel[0] * cfg.Kernel[1] * cfg.Kernel[2]
	factory := cfg.Tile
	if factory == nil {
		factory = DefaultTileFactory
	}
	t, err := factory(inFeatures, cfg.OutChannels, !cfg.NoBias, cfg.RPU, cfg.Realistic)
	if err != nil {
		return nil, fmt.Errorf("AnalogConv3d: %w", err)
	}

	c := &AnalogConv3d{
		inChannels:  cfg.InChannels,
		outChannels: cfg.OutChannels,
		kernel:      cfg.Kernel,
		stride:      cfg.Stride,
		padding:     cfg.Padding,
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
		return nil, fmt.Errorf("AnalogConv3d: %w", err)
	}
	return c, nil
}

func (c *AnalogConv3d) resetParameters() {
	bound := 1 / math.Sqrt(float64(c.inFeatures))
	for i := range c.weight {
		c.weight[i] = rand.Float64()*2*bound - bound
	}
	for i := range c.bias {
		c.bias[i] = rand.Float64()*2*bound - bound
	}
}

// SetInputSize declares the volume dimensions for following forward passes,
// overriding cube inference.
func (c *AnalogConv3d) SetInputSize(depth, height, width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setDepth = depth
	c.setHeight = height
	c.setWidth = width
	c.inputSize = 0
}

func (c *AnalogConv3d) spatialSize(perSample int) ([3]int, error) {
	if c.setDepth > 0 && c.setHeight > 0 && c.setWidth > 0 {
		if c.inChannels*c.setDepth*c.setHeight*c.setWidth != perSample {
			return [3]int{}, fmt.Errorf("declared input %dx%dx%d does not match %d elements over %d channels",
				c.setDepth, c.setHeight, c.setWidth, perSample, c.inChannels)
		}
		return [3]int{c.setDepth, c.setHeight, c.setWidth}, nil
	}
	if perSample < 1 || perSample%c.inChannels != 0 {
		return [3]int{}, fmt.Errorf("input length %d not divisible by %d channels", perSample, c.inChannels)
	}
	channelSize := perSample / c.inChannels
	side := int(math.Round(math.Cbrt(float64(channelSize))))
	if side*side*side != channelSize {
		return [3]int{}, fmt.Errorf("cannot infer a cubic volume from %d elements per channel; call SetInputSize", channelSize)
	}
	return [3]int{side, side, side}, nil
}

func (c *AnalogConv3d) ensureIndexed(inputSize float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputSize == inputSize {
		return nil
	}
	in, err := c.spatialSize(int(inputSize))
	if err != nil {
		return err
	}
	indices, out := fold.Conv3dIndices(c.inChannels, in, c.kernel, c.stride, c.padding, c.hasBias)
	geom := tile.ImageGeometry{InChannels: c.inChannels, In: in[:], Out: out[:]}
	if err := c.t.SetIndexed(indices, geom); err != nil {
		return err
	}
	c.inputSize = inputSize
	return nil
}

func (c *AnalogConv3d) forward(input []float64, batch int) ([]float64, error) {
	if batch < 1 || len(input)%batch != 0 {
		return nil, fmt.Errorf("input length %d does not divide into %d samples", len(input), batch)
	}
	if err := c.ensureIndexed(float64(len(input) / batch)); err != nil {
		return nil, err
	}
	c.lastBatch = batch
	return c.t.IndexedForward(input, batch, c.weight, c.bias, !c.training)
}

// Forward runs a single flattened [inChannels, depth, height, width] volume
// through the tile.
func (c *AnalogConv3d) Forward(x []float64) []float64 {
	out, err := c.forward(x, 1)
	if err != nil {
		panic(fmt.Sprintf("AnalogConv3d: %v", err))
	}
	return out
}

// ForwardBatch runs a batch of equally-shaped volumes in one indexed pass.
func (c *AnalogConv3d) ForwardBatch(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	sample := len(x[0])
	flat := make([]float64, 0, len(x)*sample)
	for i := range x {
		if len(x[i]) != sample {
			panic(fmt.Sprintf("AnalogConv3d: sample %d has length %d, want %d", i, len(x[i]), sample))
		}
		flat = append(flat, x[i]...)
	}
	out, err := c.forward(flat, len(x))
	if err != nil {
		panic(fmt.Sprintf("AnalogConv3d: %v", err))
	}
	per := len(out) / len(x)
	result := make([][]float64, len(x))
	for i := range result {
		result[i] = out[i*per : (i+1)*per]
	}
	return result
}

// Backward maps the output gradient back through the tile, applying the
// in-tile update when training.
func (c *AnalogConv3d) Backward(grad []float64) []float64 {
	if c.lastBatch == 0 {
		panic("AnalogConv3d: Backward called before Forward")
	}
	gradIn, err := c.t.IndexedBackward(grad, c.lastBatch)
	if err != nil {
		panic(fmt.Sprintf("AnalogConv3d: %v", err))
	}
	if c.training {
		if err := c.t.IndexedUpdate(grad, c.lastBatch); err != nil {
			panic(fmt.Sprintf("AnalogConv3d: %v", err))
		}
	}
	return gradIn
}

// SetTraining sets whether forward passes retain activations for updates.
func (c *AnalogConv3d) SetTraining(training bool) {
	c.training = training
}

// Parameters returns the shadow parameter registry.
func (c *AnalogConv3d) Parameters() []Param {
	params := []Param{{Name: "weight", Data: c.weight, Role: RoleWeight}}
	if c.hasBias {
		params = append(params, Param{Name: "bias", Data: c.bias, Role: RoleBias})
	}
	return params
}

// Tile returns the analog tile behind the layer.
func (c *AnalogConv3d) Tile() tile.Tile {
	return c.t
}

// GetWeights reads the authoritative values from the tile and refreshes the
// shadow copies.
func (c *AnalogConv3d) GetWeights() ([]float64, []float64, error) {
	weights, bias, err := c.t.GetWeights()
	if err != nil {
		return nil, nil, err
	}
	copy(c.weight, weights)
	copy(c.bias, bias)
	return weights, bias, nil
}

// SetWeights writes new values into the tile and the shadow copies.
func (c *AnalogConv3d) SetWeights(weights, bias []float64) error {
	if err := c.t.SetWeights(weights, bias); err != nil {
		return err
	}
	copy(c.weight, weights)
	copy(c.bias, bias)
	return nil
}

// InChannels returns the number of input channels.
func (c *AnalogConv3d) InChannels() int {
	return c.inChannels
}

// OutChannels returns the number of output feature maps.
func (c *AnalogConv3d) OutChannels() int {
	return c.outChannels
}

// InFeatures returns the tile input width (inChannels * kernel volume).
func (c *AnalogConv3d) InFeatures() int {
	return c.inFeatures
}

// Kernel returns the kernel size per axis.
func (c *AnalogConv3d) Kernel() [3]int {
	return c.kernel
}

// Stride returns the stride per axis.
func (c *AnalogConv3d) Stride() [3]int {
	return c.stride
}

// Padding returns the zero padding per axis.
func (c *AnalogConv3d) Padding() [3]int {
	return c.padding
}

// HasBias reports whether the layer carries a bias.
func (c *AnalogConv3d) HasBias() bool {
	return c.hasBias
}

// RPU returns the tile configuration the layer was built with.
func (c *AnalogConv3d) RPU() rpu.Config {
	return c.rpuCfg
}

// Realistic reports whether tile reads and writes are perturbed.
func (c *AnalogConv3d) Realistic() bool {
	return c.realistic
}
