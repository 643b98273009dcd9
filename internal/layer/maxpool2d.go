package layer

import (
	"fmt"
	"math"
)

// MaxPool2d implements 2D max pooling.
// Downsamples by taking the maximum over sliding windows.
// Stores argmax indices for correct gradient flow during backward pass.
type MaxPool2d struct {
	inChannels int
	kernelSize int
	stride     int
	padding    int

	inputHeight  int
	inputWidth   int
	outputHeight int
	outputWidth  int

	outputBuf []float64
	gradInBuf []float64
	argmaxBuf []int

	savedLen int
}

// NewMaxPool2d creates a new 2D max pooling layer.
// inChannels: number of input channels
// kernelSize: size of pooling window (square)
// stride: stride for pooling
// padding: zero padding size
func NewMaxPool2d(inChannels, kernelSize, stride, padding int) *MaxPool2d {
	return &MaxPool2d{
		inChannels: inChannels,
		kernelSize: kernelSize,
		stride:     stride,
		padding:    padding,
	}
}

func (m *MaxPool2d) computeOutputSize(inputHeight, inputWidth int) (int, int) {
	// Output size: (input + 2*padding - kernel) / stride + 1
	outH := (inputHeight+2*m.padding-m.kernelSize)/m.stride + 1
	outW := (inputWidth+2*m.padding-m.kernelSize)/m.stride + 1
	return outH, outW
}

// Forward performs a forward pass through the max pooling layer.
// input: flattened [inChannels, height, width], square spatial dims
// Returns: flattened [inChannels, outHeight, outWidth]
func (m *MaxPool2d) Forward(input []float64) []float64 {
	totalInput := len(input)
	if totalInput == 0 || totalInput%m.inChannels != 0 {
		panic(fmt.Sprintf("MaxPool2d: input length %d not divisible by inChannels %d", totalInput, m.inChannels))
	}
	channelSize := totalInput / m.inChannels

	m.inputHeight = int(math.Round(math.Sqrt(float64(channelSize))))
	if m.inputHeight*m.inputHeight != channelSize {
		panic(fmt.Sprintf("MaxPool2d: cannot infer a square image from %d elements per channel", channelSize))
	}
	m.inputWidth = m.inputHeight

	m.outputHeight, m.outputWidth = m.computeOutputSize(m.inputHeight, m.inputWidth)
	outSize := m.outputHeight * m.outputWidth
	requiredOutput := m.inChannels * outSize

	if len(m.outputBuf) < requiredOutput {
		m.outputBuf = make([]float64, requiredOutput)
	}
	if cap(m.argmaxBuf) < requiredOutput {
		m.argmaxBuf = make([]int, requiredOutput)
	}
	m.argmaxBuf = m.argmaxBuf[:requiredOutput]
	if len(m.gradInBuf) < totalInput {
		m.gradInBuf = make([]float64, totalInput)
	}
	m.savedLen = totalInput

	channelStride := m.inputHeight * m.inputWidth
	for c := 0; c < m.inChannels; c++ {
		channelOffset := c * channelStride
		outputOffset := c * outSize

		for oh := 0; oh < m.outputHeight; oh++ {
			for ow := 0; ow < m.outputWidth; ow++ {
				maxVal := math.Inf(-1)
				maxIdx := -1

				for kh := 0; kh < m.kernelSize; kh++ {
					for kw := 0; kw < m.kernelSize; kw++ {
						inH := oh*m.stride + kh - m.padding
						inW := ow*m.stride + kw - m.padding
						if inH >= 0 && inH < m.inputHeight && inW >= 0 && inW < m.inputWidth {
							idx := channelOffset + inH*m.inputWidth + inW
							if input[idx] > maxVal {
								maxVal = input[idx]
								maxIdx = idx
							}
						}
					}
				}

				pos := outputOffset + oh*m.outputWidth + ow
				m.outputBuf[pos] = maxVal
				m.argmaxBuf[pos] = maxIdx
			}
		}
	}

	return m.outputBuf[:requiredOutput]
}

// Backward performs backpropagation through the max pooling layer.
// The gradient of each output position flows only to the input position
// that won the max.
func (m *MaxPool2d) Backward(grad []float64) []float64 {
	gradIn := m.gradInBuf[:m.savedLen]
	for i := range gradIn {
		gradIn[i] = 0
	}

	outSize := m.outputHeight * m.outputWidth
	for c := 0; c < m.inChannels; c++ {
		outputOffset := c * outSize
		for pos := 0; pos < outSize; pos++ {
			if maxIdx := m.argmaxBuf[outputOffset+pos]; maxIdx >= 0 {
				gradIn[maxIdx] += grad[outputOffset+pos]
			}
		}
	}
	return gradIn
}

// Parameters returns the parameter registry (empty for MaxPool2d).
func (m *MaxPool2d) Parameters() []Param {
	return nil
}

// KernelSize returns the pooling window size.
func (m *MaxPool2d) KernelSize() int {
	return m.kernelSize
}

// Stride returns the stride.
func (m *MaxPool2d) Stride() int {
	return m.stride
}

// Padding returns the padding.
func (m *MaxPool2d) Padding() int {
	return m.padding
}

// InChannels returns the number of channels.
func (m *MaxPool2d) InChannels() int {
	return m.inChannels
}

// Argmax returns the argmax indices of the last forward pass.
func (m *MaxPool2d) Argmax() []int {
	return m.argmaxBuf
}
