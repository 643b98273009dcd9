package fold

import "math"

// Conv3dIndices builds the flat gather-index table for a 3D convolution
// over an input of shape [inChannels, in[0], in[1], in[2]] and returns it
// together with the output spatial size per axis. Dilation is fixed at 1;
// layers reject any other value before calling here.
//
// Unlike the 2D builder there is no generic rank-3 extraction primitive, so
// the table is assembled by hand: a single-channel address volume is
// zero-padded explicitly, windowed along depth, height and width in turn,
// and flattened patch-slot-major with positions fastest, the same layout
// Unfold2d produces. The remaining channels are derived from the first by
// shifting every real address up by one per-channel element stride; padding
// entries stay at the sentinel no matter the channel.
func Conv3dIndices(inChannels int, in, kernel, stride, padding [3]int, withBias bool) ([]int32, [3]int) {
	depth, height, width := in[0], in[1], in[2]
	channelSize := depth * height * width

	// Single-channel address volume, values 2..D*H*W+1 in row-major order.
	addr := make([]float64, channelSize)
	for i := range addr {
		addr[i] = float64(i + InputBase)
	}

	dims := in
	if padding != [3]int{} {
		addr, dims = pad3d(addr, in, padding)
	}

	out := [3]int{
		OutputSize(depth, kernel[0], stride[0], padding[0], 1),
		OutputSize(height, kernel[1], stride[1], padding[1], 1),
		OutputSize(width, kernel[2], stride[2], padding[2], 1),
	}
	positions := out[0] * out[1] * out[2]

	// Window the padded volume axis by axis. Patch slot (i,j,l) of output
	// position (od,oh,ow) reads padded cell (od*sd+i, oh*sh+j, ow*sw+l).
	single := make([]int32, kernel[0]*kernel[1]*kernel[2]*positions)
	slot := 0
	for i := 0; i < kernel[0]; i++ {
		for j := 0; j < kernel[1]; j++ {
			for l := 0; l < kernel[2]; l++ {
				slotBase := slot * positions
				for od := 0; od < out[0]; od++ {
					d := od*stride[0] + i
					for oh := 0; oh < out[1]; oh++ {
						h := oh*stride[1] + j
						rowBase := (d*dims[1] + h) * dims[2]
						outBase := slotBase + (od*out[1]+oh)*out[2]
						for ow := 0; ow < out[2]; ow++ {
							w := ow*stride[2] + l
							single[outBase+ow] = int32(math.Round(addr[rowBase+w]))
						}
					}
				}
				slot++
			}
		}
	}

	// Replicate for the remaining channels. Channel c addresses element
	// e+c*channelSize wherever channel 0 addresses element e; sentinel
	// entries are left untouched so padding stays padding on every channel.
	indices := make([]int32, 0, inChannels*len(single)+biasSlots(withBias, positions))
	indices = append(indices, single...)
	for c := 1; c < inChannels; c++ {
		offset := int32(c * channelSize)
		for _, v := range single {
			if v != PadIndex {
				v += offset
			}
			indices = append(indices, v)
		}
	}

	if withBias {
		indices = appendBias(indices, positions)
	}
	return indices, out
}

// pad3d surrounds the volume with symmetric zero padding on all three axes
// and returns the padded data with its dimensions. The zeros are the
// padding sentinel in the address encoding.
func pad3d(data []float64, in, padding [3]int) ([]float64, [3]int) {
	dims := [3]int{in[0] + 2*padding[0], in[1] + 2*padding[1], in[2] + 2*padding[2]}
	padded := make([]float64, dims[0]*dims[1]*dims[2])
	for d := 0; d < in[0]; d++ {
		for h := 0; h < in[1]; h++ {
			src := (d*in[1] + h) * in[2]
			dst := ((d+padding[0])*dims[1]+h+padding[1])*dims[2] + padding[2]
			copy(padded[dst:dst+in[2]], data[src:src+in[2]])
		}
	}
	return padded, dims
}
