package layer

import (
	"fmt"

	"github.com/Fabio-83/aihwkit/internal/activations"
)

// Activation applies an element-wise activation function as a standalone
// layer. The analog layers return raw tile outputs, so activations compose
// after them instead of being baked in.
type Activation struct {
	act activations.Activation

	// Saved state for the backward pass: pre-activation input for
	// element-wise functions, the output distribution for softmax.
	preActBuf []float64
	outputBuf []float64
	lastLen   int
}

// NewActivation creates an activation layer around the given function.
func NewActivation(act activations.Activation) *Activation {
	return &Activation{act: act}
}

// NewReLU creates a ReLU activation layer.
func NewReLU() *Activation { return NewActivation(activations.ReLU{}) }

// NewSigmoid creates a Sigmoid activation layer.
func NewSigmoid() *Activation { return NewActivation(activations.Sigmoid{}) }

// NewTanh creates a Tanh activation layer.
func NewTanh() *Activation { return NewActivation(activations.Tanh{}) }

// NewLeakyReLU creates a LeakyReLU activation layer with the given slope.
func NewLeakyReLU(alpha float64) *Activation {
	return NewActivation(activations.NewLeakyReLU(alpha))
}

// NewSoftmax creates a Softmax activation layer.
func NewSoftmax() *Activation { return NewActivation(activations.Softmax{}) }

// Forward applies the activation element-wise; softmax runs over the whole
// vector.
func (a *Activation) Forward(x []float64) []float64 {
	n := len(x)
	if len(a.preActBuf) < n {
		a.preActBuf = make([]float64, n)
		a.outputBuf = make([]float64, n)
	}
	a.lastLen = n
	copy(a.preActBuf[:n], x)

	if _, ok := a.act.(activations.Softmax); ok {
		out := a.outputBuf[:n]
		copy(out, x)
		return activations.Softmax{}.ActivateBatch(out)
	}

	out := a.outputBuf[:n]
	for i, v := range x {
		out[i] = a.act.Activate(v)
	}
	return out
}

// Backward applies the activation derivative to the gradient. For softmax
// the full Jacobian-vector product over the saved distribution is used.
func (a *Activation) Backward(grad []float64) []float64 {
	n := a.lastLen
	if len(grad) != n {
		panic(fmt.Sprintf("Activation: gradient length %d, want %d", len(grad), n))
	}

	gradIn := make([]float64, n)
	if _, ok := a.act.(activations.Softmax); ok {
		// dx_i = y_i * (g_i - sum_j g_j*y_j) with y the saved output.
		y := a.outputBuf[:n]
		dot := 0.0
		for i := range y {
			dot += grad[i] * y[i]
		}
		for i := range y {
			gradIn[i] = y[i] * (grad[i] - dot)
		}
		return gradIn
	}

	for i := range gradIn {
		gradIn[i] = grad[i] * a.act.Derivative(a.preActBuf[i])
	}
	return gradIn
}

// Parameters returns the parameter registry (empty for Activation).
func (a *Activation) Parameters() []Param {
	return nil
}

// Func returns the wrapped activation function.
func (a *Activation) Func() activations.Activation {
	return a.act
}
