package fold

// Unfold2d extracts sliding windows from data laid out as
// [channels, in[0], in[1]] and arranges them as an im2col table of shape
// [channels*kernel[0]*kernel[1], outH*outW], flattened row by row so output
// positions vary fastest. Window cells that fall into the zero padding stay
// at 0 in the table.
//
// The index builders run this over a synthetic address image, but it works
// on any float64 image data with the same layout.
func Unfold2d(data []float64, channels int, in, kernel, stride, padding, dilation [2]int) ([]float64, [2]int) {
	height, width := in[0], in[1]
	outH := OutputSize(height, kernel[0], stride[0], padding[0], dilation[0])
	outW := OutputSize(width, kernel[1], stride[1], padding[1], dilation[1])
	positions := outH * outW

	table := make([]float64, channels*kernel[0]*kernel[1]*positions)
	row := 0
	for c := 0; c < channels; c++ {
		channelBase := c * height * width
		for i := 0; i < kernel[0]; i++ {
			for j := 0; j < kernel[1]; j++ {
				rowBase := row * positions
				for oh := 0; oh < outH; oh++ {
					h := oh*stride[0] - padding[0] + i*dilation[0]
					if h < 0 || h >= height {
						continue
					}
					inBase := channelBase + h*width
					outBase := rowBase + oh*outW
					for ow := 0; ow < outW; ow++ {
						w := ow*stride[1] - padding[1] + j*dilation[1]
						if w < 0 || w >= width {
							continue
						}
						table[outBase+ow] = data[inBase+w]
					}
				}
				row++
			}
		}
	}
	return table, [2]int{outH, outW}
}
