// Package net provides the sequential container for analog networks.
package net

import (
	"fmt"

	"github.com/Fabio-83/aihwkit/internal/layer"
)

// Sequential chains layers into a network. It owns no parameters of its
// own; it forwards, backwards and mode changes to its layers in order and
// exposes the aggregate parameter registry.
type Sequential struct {
	layers   []layer.Layer
	training bool
}

// NewSequential creates a new Sequential model from the given layers.
func NewSequential(layers ...layer.Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Add appends a layer to the network, propagating the current mode.
func (s *Sequential) Add(l layer.Layer) {
	s.layers = append(s.layers, l)
	if t, ok := l.(layer.Trainer); ok {
		t.SetTraining(s.training)
	}
}

// Forward performs a forward pass through all layers.
func (s *Sequential) Forward(x []float64) []float64 {
	curr := x
	for i := range s.layers {
		curr = s.layers[i].Forward(curr)
	}
	return curr
}

// ForwardBatch performs a forward pass on a batch of samples. Layers with a
// native batched path run it once; the rest run per sample.
func (s *Sequential) ForwardBatch(x [][]float64) [][]float64 {
	curr := x
	for i := range s.layers {
		if bf, ok := s.layers[i].(layer.BatchForwarder); ok {
			curr = bf.ForwardBatch(curr)
			continue
		}
		next := make([][]float64, len(curr))
		for j := range curr {
			// Layers reuse their output buffers between calls, so each
			// sample's result is copied out before the next call.
			out := s.layers[i].Forward(curr[j])
			next[j] = append([]float64(nil), out...)
		}
		curr = next
	}
	return curr
}

// Backward performs a backward pass through all layers in reverse order.
// Analog layers in training mode apply their in-tile update as the gradient
// passes through them.
func (s *Sequential) Backward(grad []float64) []float64 {
	curr := grad
	for i := len(s.layers) - 1; i >= 0; i-- {
		curr = s.layers[i].Backward(curr)
	}
	return curr
}

// SetTraining sets the training mode for the model and every layer that
// distinguishes modes. For analog layers this drives the inference flag of
// the tile calls.
func (s *Sequential) SetTraining(training bool) {
	s.training = training
	for _, l := range s.layers {
		if t, ok := l.(layer.Trainer); ok {
			t.SetTraining(training)
		}
	}
}

// Training reports the current mode.
func (s *Sequential) Training() bool {
	return s.training
}

// Parameters returns the aggregate parameter registry with names prefixed
// by the layer position, e.g. "0.weight".
func (s *Sequential) Parameters() []layer.Param {
	var params []layer.Param
	for i, l := range s.layers {
		for _, p := range l.Parameters() {
			p.Name = fmt.Sprintf("%d.%s", i, p.Name)
			params = append(params, p)
		}
	}
	return params
}

// AnalogLayers returns the layers backed by an analog tile, in network
// order.
func (s *Sequential) AnalogLayers() []layer.AnalogLayer {
	var analog []layer.AnalogLayer
	for _, l := range s.layers {
		if a, ok := l.(layer.AnalogLayer); ok {
			analog = append(analog, a)
		}
	}
	return analog
}

// Layers returns the network's layers slice.
func (s *Sequential) Layers() []layer.Layer {
	return s.layers
}

// Summary prints a summary of the network architecture.
func (s *Sequential) Summary() {
	fmt.Println("Model: Sequential")
	fmt.Println("_________________________________________________________________")
	fmt.Printf("%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Println("=================================================================")

	totalParams := 0
	analogCount := 0
	for i, l := range s.layers {
		lType := fmt.Sprintf("%T", l)
		// Extract simple type name
		for j := len(lType) - 1; j >= 0; j-- {
			if lType[j] == '.' {
				lType = lType[j+1:]
				break
			}
		}

		params := 0
		for _, p := range l.Parameters() {
			params += len(p.Data)
		}
		totalParams += params
		if _, ok := l.(layer.AnalogLayer); ok {
			analogCount++
		}

		fmt.Printf("%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", lType, i), outputShape(l), params)
	}
	fmt.Println("=================================================================")
	fmt.Printf("Total params: %d (on %d analog tiles)\n", totalParams, analogCount)
	fmt.Println("_________________________________________________________________")
}

// outputShape renders what is known of a layer's output shape before any
// forward pass; spatial dims depend on the input and print as placeholders.
func outputShape(l layer.Layer) string {
	switch v := l.(type) {
	case *layer.AnalogConv2d:
		return fmt.Sprintf("(%d, H', W')", v.OutChannels())
	case *layer.AnalogConv3d:
		return fmt.Sprintf("(%d, D', H', W')", v.OutChannels())
	case *layer.AnalogLinear:
		return fmt.Sprintf("(%d)", v.OutFeatures())
	case *layer.MaxPool2d:
		return fmt.Sprintf("(%d, H/%d, W/%d)", v.InChannels(), v.Stride(), v.Stride())
	default:
		return "(as input)"
	}
}
