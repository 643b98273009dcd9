package net

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/Fabio-83/aihwkit/internal/activations"
	"github.com/Fabio-83/aihwkit/internal/layer"
	"github.com/Fabio-83/aihwkit/internal/rpu"
)

// LayerConfig holds the configuration needed to reconstruct a layer: its
// type, its construction arguments and, for analog layers, the tile weights
// read back through the analog path at save time.
type LayerConfig struct {
	Type string

	// Analog convolution layers
	InChannels  int
	OutChannels int
	Kernel      []int
	Stride      []int
	Padding     []int
	Dilation    []int
	NoBias      bool
	RPU         rpu.Config
	Realistic   bool

	// Analog linear layers
	InFeatures  int
	OutFeatures int

	// Activation layers
	Activation string
	Alpha      float64

	// Pooling layers (InChannels is shared with the convolutions)
	PoolKernel  int
	PoolStride  int
	PoolPadding int

	// Tile weights at save time
	Weights []float64
	Bias    []float64
}

// ExtractLayerConfig extracts the configuration from a layer. Analog
// weights are read through GetWeights, so a realistic tile saves what a
// realistic read returns.
func ExtractLayerConfig(l layer.Layer) (LayerConfig, error) {
	switch v := l.(type) {
	case *layer.AnalogConv2d:
		weights, bias, err := v.GetWeights()
		if err != nil {
			return LayerConfig{}, fmt.Errorf("failed to read tile weights: %w", err)
		}
		k, s, p, d := v.Kernel(), v.Stride(), v.Padding(), v.Dilation()
		return LayerConfig{
			Type:        "AnalogConv2d",
			InChannels:  v.InChannels(),
			OutChannels: v.OutChannels(),
			Kernel:      []int{k[0], k[1]},
			Stride:      []int{s[0], s[1]},
			Padding:     []int{p[0], p[1]},
			Dilation:    []int{d[0], d[1]},
			NoBias:      !v.HasBias(),
			RPU:         v.RPU(),
			Realistic:   v.Realistic(),
			Weights:     weights,
			Bias:        bias,
		}, nil

	case *layer.AnalogConv3d:
		weights, bias, err := v.GetWeights()
		if err != nil {
			return LayerConfig{}, fmt.Errorf("failed to read tile weights: %w", err)
		}
		k, s, p := v.Kernel(), v.Stride(), v.Padding()
		return LayerConfig{
			Type:        "AnalogConv3d",
			InChannels:  v.InChannels(),
			OutChannels: v.OutChannels(),
			Kernel:      []int{k[0], k[1], k[2]},
			Stride:      []int{s[0], s[1], s[2]},
			Padding:     []int{p[0], p[1], p[2]},
			NoBias:      !v.HasBias(),
			RPU:         v.RPU(),
			Realistic:   v.Realistic(),
			Weights:     weights,
			Bias:        bias,
		}, nil

	case *layer.AnalogLinear:
		weights, bias, err := v.GetWeights()
		if err != nil {
			return LayerConfig{}, fmt.Errorf("failed to read tile weights: %w", err)
		}
		return LayerConfig{
			Type:        "AnalogLinear",
			InFeatures:  v.InFeatures(),
			OutFeatures: v.OutFeatures(),
			NoBias:      !v.HasBias(),
			RPU:         v.RPU(),
			Realistic:   v.Realistic(),
			Weights:     weights,
			Bias:        bias,
		}, nil

	case *layer.MaxPool2d:
		return LayerConfig{
			Type:        "MaxPool2d",
			InChannels:  v.InChannels(),
			PoolKernel:  v.KernelSize(),
			PoolStride:  v.Stride(),
			PoolPadding: v.Padding(),
		}, nil

	case *layer.Flatten:
		return LayerConfig{Type: "Flatten"}, nil

	case *layer.Activation:
		name, alpha, err := activationName(v.Func())
		if err != nil {
			return LayerConfig{}, err
		}
		return LayerConfig{Type: "Activation", Activation: name, Alpha: alpha}, nil
	}

	return LayerConfig{}, fmt.Errorf("unsupported layer type: %T", l)
}

// CreateLayer creates a new layer from the configuration. Analog weights
// are written back through SetWeights, so a realistic tile replays the
// write noise of a deployment.
func (c *LayerConfig) CreateLayer() (layer.Layer, error) {
	switch c.Type {
	case "AnalogConv2d":
		if len(c.Kernel) != 2 || len(c.Stride) != 2 || len(c.Padding) != 2 || len(c.Dilation) != 2 {
			return nil, fmt.Errorf("malformed AnalogConv2d config")
		}
		conv, err := layer.NewAnalogConv2d(layer.Conv2dConfig{
			InChannels:  c.InChannels,
			OutChannels: c.OutChannels,
			Kernel:      [2]int{c.Kernel[0], c.Kernel[1]},
			Stride:      [2]int{c.Stride[0], c.Stride[1]},
			Padding:     [2]int{c.Padding[0], c.Padding[1]},
			Dilation:    [2]int{c.Dilation[0], c.Dilation[1]},
			NoBias:      c.NoBias,
			RPU:         c.RPU,
			Realistic:   c.Realistic,
		})
		if err != nil {
			return nil, err
		}
		if err := conv.SetWeights(c.Weights, c.Bias); err != nil {
			return nil, err
		}
		return conv, nil

	case "AnalogConv3d":
		if len(c.Kernel) != 3 || len(c.Stride) != 3 || len(c.Padding) != 3 {
			return nil, fmt.Errorf("malformed AnalogConv3d config")
		}
		conv, err := layer.NewAnalogConv3d(layer.Conv3dConfig{
			InChannels:  c.InChannels,
			OutChannels: c.OutChannels,
			Kernel:      [3]int{c.Kernel[0], c.Kernel[1], c.Kernel[2]},
			Stride:      [3]int{c.Stride[0], c.Stride[1], c.Stride[2]},
			Padding:     [3]int{c.Padding[0], c.Padding[1], c.Padding[2]},
			NoBias:      c.NoBias,
			RPU:         c.RPU,
			Realistic:   c.Realistic,
		})
		if err != nil {
			return nil, err
		}
		if err := conv.SetWeights(c.Weights, c.Bias); err != nil {
			return nil, err
		}
		return conv, nil

	case "AnalogLinear":
		lin, err := layer.NewAnalogLinear(c.InFeatures, c.OutFeatures, !c.NoBias, c.RPU, c.Realistic)
		if err != nil {
			return nil, err
		}
		if err := lin.SetWeights(c.Weights, c.Bias); err != nil {
			return nil, err
		}
		return lin, nil

	case "MaxPool2d":
		return layer.NewMaxPool2d(c.InChannels, c.PoolKernel, c.PoolStride, c.PoolPadding), nil

	case "Flatten":
		return layer.NewFlatten(), nil

	case "Activation":
		switch c.Activation {
		case "ReLU":
			return layer.NewReLU(), nil
		case "Sigmoid":
			return layer.NewSigmoid(), nil
		case "Tanh":
			return layer.NewTanh(), nil
		case "LeakyReLU":
			return layer.NewLeakyReLU(c.Alpha), nil
		case "Softmax":
			return layer.NewSoftmax(), nil
		}
		return nil, fmt.Errorf("unsupported activation type: %s", c.Activation)
	}

	return nil, fmt.Errorf("unsupported layer type: %s", c.Type)
}

// activationName maps an activation function to its persisted name.
func activationName(act activations.Activation) (string, float64, error) {
	switch a := act.(type) {
	case activations.ReLU:
		return "ReLU", 0, nil
	case activations.Sigmoid:
		return "Sigmoid", 0, nil
	case activations.Tanh:
		return "Tanh", 0, nil
	case *activations.LeakyReLU:
		return "LeakyReLU", a.Alpha, nil
	case activations.Softmax:
		return "Softmax", 0, nil
	}
	return "", 0, fmt.Errorf("unsupported activation type: %T", act)
}

// Save saves the network to a file using gob encoding.
func (s *Sequential) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return s.Encode(file)
}

// Encode writes the network to an io.Writer using gob encoding.
func (s *Sequential) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	if err := encoder.Encode(int32(len(s.layers))); err != nil {
		return fmt.Errorf("failed to encode layer count: %w", err)
	}

	for i, l := range s.layers {
		cfg, err := ExtractLayerConfig(l)
		if err != nil {
			return fmt.Errorf("failed to extract layer %d: %w", i, err)
		}
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode layer %d: %w", i, err)
		}
	}
	return nil
}

// Load loads a network from a file.
func Load(filename string) (*Sequential, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a network from an io.Reader. The model comes back in eval
// mode.
func Decode(r io.Reader) (*Sequential, error) {
	decoder := gob.NewDecoder(r)

	var numLayers int32
	if err := decoder.Decode(&numLayers); err != nil {
		return nil, fmt.Errorf("failed to read layer count: %w", err)
	}
	if numLayers < 0 {
		return nil, fmt.Errorf("invalid layer count %d", numLayers)
	}

	layers := make([]layer.Layer, 0, numLayers)
	for i := 0; i < int(numLayers); i++ {
		var cfg LayerConfig
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read layer %d: %w", i, err)
		}
		l, err := cfg.CreateLayer()
		if err != nil {
			return nil, fmt.Errorf("failed to create layer %d: %w", i, err)
		}
		layers = append(layers, l)
	}

	return NewSequential(layers...), nil
}
