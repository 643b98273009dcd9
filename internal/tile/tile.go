// Package tile defines the analog tile boundary and a simulated resistive
// crossbar implementing it. A tile performs matrix products against weights
// stored in its array; it has no notion of convolution. Layers that need one
// hand the tile a gather-index table once per input geometry, and the tile's
// indexed operations assemble the im2col matrix from it on every call.
package tile

// ImageGeometry describes one input geometry of an indexed layer: channel
// count, input spatial dimensions and output spatial dimensions. It tells
// the tile how to slice flat inputs and lay out flat outputs around the
// gather table.
type ImageGeometry struct {
	InChannels int
	In         []int
	Out        []int
}

// InputSize returns the number of elements in one input sample.
func (g ImageGeometry) InputSize() int {
	n := g.InChannels
	for _, d := range g.In {
		n *= d
	}
	return n
}

// Positions returns the number of output positions per sample, the column
// count of the gather table.
func (g ImageGeometry) Positions() int {
	n := 1
	for _, d := range g.Out {
		n *= d
	}
	return n
}

// Flatten returns the geometry in its flat wire form,
// [channels, in dims..., out dims...].
func (g ImageGeometry) Flatten() []int {
	flat := make([]int, 0, 1+len(g.In)+len(g.Out))
	flat = append(flat, g.InChannels)
	flat = append(flat, g.In...)
	return append(flat, g.Out...)
}

// Tile is the analog crossbar boundary. The weight and bias passed to the
// forward operations are the caller's framework-visible shadow copies; the
// analog computation always runs against the tile's own array, which is
// reconciled with the shadows only through GetWeights and SetWeights.
//
// The indexed operations require SetIndexed first and fail before it. The
// non-inference forward retains its assembled input matrix so a following
// Update can perform the in-tile rank update.
type Tile interface {
	SetIndexed(indices []int32, geom ImageGeometry) error
	IndexedForward(input []float64, batch int, weight, bias []float64, inference bool) ([]float64, error)
	IndexedBackward(gradOut []float64, batch int) ([]float64, error)
	IndexedUpdate(gradOut []float64, batch int) error

	Forward(input []float64, batch int, inference bool) ([]float64, error)
	Backward(gradOut []float64, batch int) ([]float64, error)
	Update(gradOut []float64, batch int) error

	GetWeights() (weights, bias []float64, err error)
	SetWeights(weights, bias []float64) error

	InFeatures() int
	OutFeatures() int
	HasBias() bool
}
