// Package rpu holds the resistive-processing-unit configuration shared by
// analog tiles and the layers that request them.
package rpu

import (
	"errors"
	"fmt"
)

// ErrConfig is wrapped by every configuration error raised at layer or tile
// construction: unsupported layer options, crossbar dimension limits, and
// invalid parameter values. Construction never completes once it is raised.
var ErrConfig = errors.New("invalid analog configuration")

// Default dimension limits, roughly one physical crossbar array.
const (
	DefaultMaxInputSize  = 512
	DefaultMaxOutputSize = 512
)

// DefaultLearningRate is the in-tile update step size when none is set.
const DefaultLearningRate = 0.01

// Config describes the simulated resistive crossbar behind a tile. The zero
// value is usable: dimension limits and the learning rate fall back to the
// defaults above and all noise is off, giving an exact reference tile.
//
// Noise takes effect as follows: OutNoise perturbs every analog output on
// every forward pass; WriteNoiseStd and ReadNoiseStd perturb weight writes
// and reads, but only on tiles created with realistic read/write enabled.
type Config struct {
	// MaxInputSize and MaxOutputSize bound the crossbar dimensions a tile
	// may be created with, bias row included.
	MaxInputSize  int
	MaxOutputSize int

	// OutNoise is the standard deviation of the additive Gaussian noise on
	// each analog output value.
	OutNoise float64

	// WriteNoiseStd and ReadNoiseStd are the standard deviations of the
	// perturbation applied when weights are written to or read from the
	// crossbar.
	WriteNoiseStd float64
	ReadNoiseStd  float64

	// LearningRate scales the in-tile rank update.
	LearningRate float64

	// Seed fixes the tile's noise source. Zero leaves the source shared
	// and unseeded.
	Seed uint64
}

// Default returns the reference configuration: default limits, default
// learning rate, no noise.
func Default() Config {
	return Config{
		MaxInputSize:  DefaultMaxInputSize,
		MaxOutputSize: DefaultMaxOutputSize,
		LearningRate:  DefaultLearningRate,
	}
}

// Normalized fills unset fields with their defaults.
func (c Config) Normalized() Config {
	if c.MaxInputSize == 0 {
		c.MaxInputSize = DefaultMaxInputSize
	}
	if c.MaxOutputSize == 0 {
		c.MaxOutputSize = DefaultMaxOutputSize
	}
	if c.LearningRate == 0 {
		c.LearningRate = DefaultLearningRate
	}
	return c
}

// Validate checks the configuration against the requested crossbar
// dimensions, input lines by output lines.
func (c Config) Validate(inputLines, outputLines int) error {
	if inputLines <= 0 || outputLines <= 0 {
		return fmt.Errorf("rpu: tile dimensions %dx%d: %w", inputLines, outputLines, ErrConfig)
	}
	if c.MaxInputSize > 0 && inputLines > c.MaxInputSize {
		return fmt.Errorf("rpu: %d input lines exceed the maximum of %d: %w", inputLines, c.MaxInputSize, ErrConfig)
	}
	if c.MaxOutputSize > 0 && outputLines > c.MaxOutputSize {
		return fmt.Errorf("rpu: %d output lines exceed the maximum of %d: %w", outputLines, c.MaxOutputSize, ErrConfig)
	}
	if c.OutNoise < 0 || c.WriteNoiseStd < 0 || c.ReadNoiseStd < 0 {
		return fmt.Errorf("rpu: negative noise deviation: %w", ErrConfig)
	}
	if c.LearningRate < 0 {
		return fmt.Errorf("rpu: negative learning rate: %w", ErrConfig)
	}
	return nil
}
