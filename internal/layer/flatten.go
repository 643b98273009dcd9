package layer

// Flatten marks the transition from spatial feature maps to a flat feature
// vector. Layer inputs are already flat slices, so the work is a defensive
// copy; the layer exists so network definitions read like their diagrams.
type Flatten struct {
	outputBuf []float64
}

// NewFlatten creates a new flatten layer.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Forward returns the input as a flat feature vector.
func (f *Flatten) Forward(x []float64) []float64 {
	if len(f.outputBuf) < len(x) {
		f.outputBuf = make([]float64, len(x))
	}
	copy(f.outputBuf, x)
	return f.outputBuf[:len(x)]
}

// Backward passes the gradient through unchanged.
func (f *Flatten) Backward(grad []float64) []float64 {
	return grad
}

// Parameters returns the parameter registry (empty for Flatten).
func (f *Flatten) Parameters() []Param {
	return nil
}
