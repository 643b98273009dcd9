package aihwkit

import (
	"github.com/Fabio-83/aihwkit/internal/layer"
	"github.com/Fabio-83/aihwkit/internal/net"
	"github.com/Fabio-83/aihwkit/internal/rpu"
	"github.com/Fabio-83/aihwkit/internal/tile"
)

// Re-export common types and functions for easier access
type (
	Model       = net.Sequential
	Layer       = layer.Layer
	AnalogLayer = layer.AnalogLayer
	Param       = layer.Param
	Tile        = tile.Tile
	Config      = rpu.Config

	// Full per-axis configuration forms of the analog convolutions.
	Conv2dConfig = layer.Conv2dConfig
	Conv3dConfig = layer.Conv3dConfig
)

// ErrConfig is the sentinel wrapped by every construction error.
var ErrConfig = rpu.ErrConfig

// DefaultConfig returns the reference tile configuration: default crossbar
// limits, default learning rate, no noise.
func DefaultConfig() Config {
	return rpu.Default()
}

// Model creation
func NewSequential(layers ...Layer) *Model {
	return net.NewSequential(layers...)
}

// Analog layers. The square and cubic forms cover the common case; the
// NewAnalogConv* forms take the full per-axis configuration.

func AnalogConv2d(inChannels, outChannels, kernelSize, stride, padding int, cfg Config, realistic bool) (*layer.AnalogConv2d, error) {
	return layer.NewAnalogConv2d(Conv2dConfig{
		InChannels:  inChannels,
		OutChannels: outChannels,
		Kernel:      [2]int{kernelSize, kernelSize},
		Stride:      [2]int{stride, stride},
		Padding:     [2]int{padding, padding},
		RPU:         cfg,
		Realistic:   realistic,
	})
}

func NewAnalogConv2d(cfg Conv2dConfig) (*layer.AnalogConv2d, error) {
	return layer.NewAnalogConv2d(cfg)
}

func AnalogConv3d(inChannels, outChannels, kernelSize, stride, padding int, cfg Config, realistic bool) (*layer.AnalogConv3d, error) {
	return layer.NewAnalogConv3d(Conv3dConfig{
		InChannels:  inChannels,
		OutChannels: outChannels,
		Kernel:      [3]int{kernelSize, kernelSize, kernelSize},
		Stride:      [3]int{stride, stride, stride},
		Padding:     [3]int{padding, padding, padding},
		RPU:         cfg,
		Realistic:   realistic,
	})
}

func NewAnalogConv3d(cfg Conv3dConfig) (*layer.AnalogConv3d, error) {
	return layer.NewAnalogConv3d(cfg)
}

func AnalogLinear(inFeatures, outFeatures int, bias bool, cfg Config, realistic bool) (*layer.AnalogLinear, error) {
	return layer.NewAnalogLinear(inFeatures, outFeatures, bias, cfg, realistic)
}

// Digital layers
func MaxPool2d(inChannels, kernelSize, stride, padding int) Layer {
	return layer.NewMaxPool2d(inChannels, kernelSize, stride, padding)
}

func Flatten() Layer {
	return layer.NewFlatten()
}

// Activation layers
func ReLU() Layer {
	return layer.NewReLU()
}

func Sigmoid() Layer {
	return layer.NewSigmoid()
}

func Tanh() Layer {
	return layer.NewTanh()
}

func LeakyReLU(alpha float64) Layer {
	return layer.NewLeakyReLU(alpha)
}

func Softmax() Layer {
	return layer.NewSoftmax()
}

// Model Persistence
func Load(filename string) (*Model, error) {
	return net.Load(filename)
}
