// Package layer provides neural network layer implementations. The analog
// layers delegate their multiply-accumulate work to a resistive crossbar
// tile; the remaining layers are plain digital glue so an analog network
// composes end to end.
package layer

import (
	"github.com/Fabio-83/aihwkit/internal/rpu"
	"github.com/Fabio-83/aihwkit/internal/tile"
)

// Layer is a neural network layer.
type Layer interface {
	Forward(x []float64) []float64
	Backward(grad []float64) []float64
	Parameters() []Param
}

// Role classifies a parameter tensor.
type Role int

const (
	RoleWeight Role = iota
	RoleBias
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleWeight:
		return "weight"
	case RoleBias:
		return "bias"
	}
	return "unknown"
}

// Param is one named parameter tensor of a layer. Training collaborators
// select parameters by role instead of inspecting layer internals.
type Param struct {
	Name string
	Data []float64
	Role Role
}

// BatchForwarder is implemented by layers with a batched forward path.
// The batch is processed in a single tile pass for analog layers.
type BatchForwarder interface {
	ForwardBatch(x [][]float64) [][]float64
}

// Trainer is implemented by layers that behave differently between
// training and inference passes.
type Trainer interface {
	SetTraining(training bool)
}

// AnalogLayer is implemented by layers backed by an analog tile. The
// framework-visible weight and bias are shadow copies; the authoritative
// values live in the tile and are reconciled only through GetWeights and
// SetWeights.
type AnalogLayer interface {
	Layer
	Tile() tile.Tile
	GetWeights() ([]float64, []float64, error)
	SetWeights(weights, bias []float64) error
}

// TileFactory builds the analog tile behind a layer. Constructors use
// DefaultTileFactory unless a config supplies another one (tests inject
// recording stubs this way).
type TileFactory func(inFeatures, outFeatures int, bias bool, cfg rpu.Config, realistic bool) (tile.Tile, error)

// DefaultTileFactory backs layers with the in-process simulated tile.
func DefaultTileFactory(inFeatures, outFeatures int, bias bool, cfg rpu.Config, realistic bool) (tile.Tile, error) {
	return tile.New(inFeatures, outFeatures, bias, cfg, realistic)
}
