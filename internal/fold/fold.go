// Package fold builds the gather-index tables that let an analog tile
// emulate convolution. A resistive crossbar tile only performs indexed
// matrix products, so each convolution layer translates its sliding-window
// addressing into a flat table of input indices once per input geometry and
// hands it to the tile.
//
// Index values share one encoding across ranks: 0 marks a zero-padding slot
// that never reads the input, 1 marks the constant bias input, and values
// from 2 upward address flattened input elements (element i is index i+2).
package fold

import "math"

const (
	// PadIndex is the gather slot for zero-padding positions. The tile
	// substitutes 0.0 for it instead of reading the input.
	PadIndex int32 = 0

	// BiasIndex is the gather slot for the constant bias input. The tile
	// substitutes 1.0 for it.
	BiasIndex int32 = 1

	// InputBase is the first index that addresses a real input element;
	// flat input element i is addressed by index i+InputBase.
	InputBase = 2
)

// OutputSize returns the spatial output size along one axis for the given
// kernel, stride, padding and dilation.
func OutputSize(size, kernel, stride, padding, dilation int) int {
	return (size+2*padding-dilation*(kernel-1)-1)/stride + 1
}

// Conv2dIndices builds the flat gather-index table for a 2D convolution
// over an input of shape [inChannels, in[0], in[1]] and returns it together
// with the output spatial size per axis.
//
// The table is produced by running the generic window extraction over a
// synthetic address image whose flattened values count up from 2 in storage
// order, so every table entry is the flat input address (offset by 2) that
// feeds the corresponding patch slot, or 0 where the window overlaps
// padding. Entries are laid out patch-slot-major: all output positions for
// patch slot 0, then all positions for slot 1, and so on. When withBias is
// set, one trailing block of bias markers (one per output position) is
// appended.
func Conv2dIndices(inChannels int, in, kernel, stride, padding, dilation [2]int, withBias bool) ([]int32, [2]int) {
	height, width := in[0], in[1]

	// Synthetic address image: value = flat position + 2, channel-major.
	addr := make([]float64, inChannels*height*width)
	for i := range addr {
		addr[i] = float64(i + InputBase)
	}

	table, out := Unfold2d(addr, inChannels, in, kernel, stride, padding, dilation)

	positions := out[0] * out[1]
	indices := make([]int32, len(table), len(table)+biasSlots(withBias, positions))
	for i, v := range table {
		// The extraction runs in float64; round defensively before
		// narrowing to the tile's index type.
		indices[i] = int32(math.Round(v))
	}

	if withBias {
		indices = appendBias(indices, positions)
	}
	return indices, out
}

// appendBias adds one bias marker per output position at the end of the
// table. The markers occupy the trailing gather row of the tile's input
// matrix; the tile turns each one into the constant 1.0.
func appendBias(indices []int32, positions int) []int32 {
	for i := 0; i < positions; i++ {
		indices = append(indices, BiasIndex)
	}
	return indices
}

func biasSlots(withBias bool, positions int) int {
	if withBias {
		return positions
	}
	return 0
}
