// Package main - Examples of analog convolution networks
// Run: go run cmd/convnet/main.go
package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/Fabio-83/aihwkit/internal/layer"
	"github.com/Fabio-83/aihwkit/internal/net"
	"github.com/Fabio-83/aihwkit/internal/rpu"
)

func main() {
	fmt.Println("=============================================================")
	fmt.Println("  aihwkit - Analog Convolution Examples")
	fmt.Println("=============================================================")
	fmt.Println()

	// Seed rand for reproducibility
	rand.Seed(42)

	// Example 1: Analog convolution forward passes
	fmt.Println("--- Example 1: Analog Convolution Forward (2D and 3D) ---")
	analogForward()
	fmt.Println()

	// Example 2: Analog CNN on synthetic images
	fmt.Println("--- Example 2: Analog CNN on Synthetic Images ---")
	analogCNN()
	fmt.Println()

	// Example 3: Hardware realism (noisy tiles)
	fmt.Println("--- Example 3: Noisy Tiles ---")
	noisyTiles()
	fmt.Println()

	// Example 4: Save / Load round trip
	fmt.Println("--- Example 4: Save / Load Round Trip ---")
	saveLoad()
	fmt.Println()
}

// ============================================================================
// Example 1: Analog convolution forward passes
// ============================================================================

func analogForward() {
	conv, err := layer.NewAnalogConv2d(layer.Conv2dConfig{
		InChannels:  1,
		OutChannels: 4,
		Kernel:      [2]int{3, 3},
		Padding:     [2]int{1, 1}, // Keep same spatial size
	})
	if err != nil {
		fmt.Println("conv2d:", err)
		return
	}

	// Input: 1 channel, 8x8 = 64 values
	input := make([]float64, 64)
	for i := range input {
		input[i] = rand.Float64()
	}
	output := conv.Forward(input)

	fmt.Printf("  2D input shape: [1, 8, 8]\n")
	fmt.Printf("  2D output shape: [4, 8, 8], length %d\n", len(output))
	fmt.Printf("  Sample output values: %.4f, %.4f, %.4f\n",
		output[0], output[1], output[2])

	// The first forward builds the gather-index table; later calls on the
	// same geometry reuse it.
	conv3, err := layer.NewAnalogConv3d(layer.Conv3dConfig{
		InChannels:  1,
		OutChannels: 2,
		Kernel:      [3]int{2, 2, 2},
	})
	if err != nil {
		fmt.Println("conv3d:", err)
		return
	}

	// Input: 1 channel, 4x4x4 volume
	volume := make([]float64, 64)
	for i := range volume {
		volume[i] = rand.Float64()
	}
	out3 := conv3.Forward(volume)

	fmt.Printf("  3D input shape: [1, 4, 4, 4]\n")
	fmt.Printf("  3D output shape: [2, 3, 3, 3], length %d\n", len(out3))
	fmt.Printf("  Sample output values: %.4f, %.4f, %.4f\n",
		out3[0], out3[1], out3[2])
}

// ============================================================================
// Example 2: Analog CNN on synthetic images
// ============================================================================

func analogCNN() {
	model, err := buildCNN(rpu.Config{})
	if err != nil {
		fmt.Println("build:", err)
		return
	}
	model.Summary()

	trainX, trainY := generateQuadrantImages(40, 8)
	testX, testY := generateQuadrantImages(20, 8)

	fmt.Printf("  Accuracy before training: %.1f%%\n", accuracy(model, testX, testY))

	// A few passes of on-tile gradient descent: the mean-squared-error
	// gradient on the class probabilities flows back through the softmax
	// and the tiles apply their rank update in place.
	model.SetTraining(true)
	for epoch := 0; epoch < 30; epoch++ {
		for i := range trainX {
			pred := model.Forward(trainX[i])
			grad := make([]float64, len(pred))
			for j := range grad {
				grad[j] = pred[j] - trainY[i][j]
			}
			model.Backward(grad)
		}
	}
	model.SetTraining(false)

	fmt.Printf("  Accuracy after training: %.1f%%\n", accuracy(model, testX, testY))

	// The tile holds the trained weights; the shadow copies refresh on read.
	analog := model.AnalogLayers()
	weights, _, err := analog[0].GetWeights()
	if err != nil {
		fmt.Println("weights:", err)
		return
	}
	fmt.Printf("  First conv filter after training: %.4f, %.4f, %.4f, ...\n",
		weights[0], weights[1], weights[2])
}

// ============================================================================
// Example 3: Hardware realism (noisy tiles)
// ============================================================================

func noisyTiles() {
	cfg := rpu.Config{
		OutNoise:      0.05,
		WriteNoiseStd: 0.02,
		ReadNoiseStd:  0.02,
		Seed:          7,
	}
	conv, err := layer.NewAnalogConv2d(layer.Conv2dConfig{
		InChannels:  1,
		OutChannels: 1,
		Kernel:      [2]int{2, 2},
		RPU:         cfg,
		Realistic:   true,
	})
	if err != nil {
		fmt.Println("conv2d:", err)
		return
	}
	target := []float64{1, 2, 3, 4}
	if err := conv.SetWeights(target, []float64{0}); err != nil {
		fmt.Println("set weights:", err)
		return
	}

	input := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	first := append([]float64(nil), conv.Forward(input)...)
	second := conv.Forward(input)

	fmt.Println("  Output noise makes repeated analog reads differ:")
	fmt.Printf("  First pass:  %.4f, %.4f, %.4f, %.4f\n", first[0], first[1], first[2], first[3])
	fmt.Printf("  Second pass: %.4f, %.4f, %.4f, %.4f\n", second[0], second[1], second[2], second[3])

	weights, _, err := conv.GetWeights()
	if err != nil {
		fmt.Println("weights:", err)
		return
	}
	fmt.Println("  Realistic write and read perturb the stored values:")
	fmt.Printf("  Requested: %.4f, %.4f, %.4f, %.4f\n", target[0], target[1], target[2], target[3])
	fmt.Printf("  Read back: %.4f, %.4f, %.4f, %.4f\n", weights[0], weights[1], weights[2], weights[3])
}

// ============================================================================
// Example 4: Save / Load round trip
// ============================================================================

func saveLoad() {
	model, err := buildCNN(rpu.Config{})
	if err != nil {
		fmt.Println("build:", err)
		return
	}

	input := make([]float64, 64)
	for i := range input {
		input[i] = rand.Float64()
	}
	before := append([]float64(nil), model.Forward(input)...)

	dir, err := os.MkdirTemp("", "aihwkit")
	if err != nil {
		fmt.Println("tempdir:", err)
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "convnet.gob")

	if err := model.Save(path); err != nil {
		fmt.Println("save:", err)
		return
	}
	loaded, err := net.Load(path)
	if err != nil {
		fmt.Println("load:", err)
		return
	}
	after := loaded.Forward(input)

	maxDiff := 0.0
	for i := range before {
		if d := math.Abs(before[i] - after[i]); d > maxDiff {
			maxDiff = d
		}
	}
	fmt.Printf("  Saved %d layers to %s\n", len(model.Layers()), filepath.Base(path))
	fmt.Printf("  Max output difference after reload: %.2e\n", maxDiff)
}

// ============================================================================
// Helpers
// ============================================================================

// buildCNN creates a small analog CNN for 8x8 single-channel images:
// conv 1->4 (k3) -> ReLU -> pool 2x2 -> flatten -> linear 36->2 -> softmax.
func buildCNN(cfg rpu.Config) (*net.Sequential, error) {
	conv, err := layer.NewAnalogConv2d(layer.Conv2dConfig{
		InChannels:  1,
		OutChannels: 4,
		Kernel:      [2]int{3, 3},
		RPU:         cfg,
	})
	if err != nil {
		return nil, err
	}
	lin, err := layer.NewAnalogLinear(4*3*3, 2, true, cfg, false)
	if err != nil {
		return nil, err
	}
	return net.NewSequential(
		conv, // 8 -> 6
		layer.NewReLU(),
		layer.NewMaxPool2d(4, 2, 2, 0), // 6 -> 3
		layer.NewFlatten(),
		lin,
		layer.NewSoftmax(),
	), nil
}

// generateQuadrantImages creates size x size images whose bright quadrant
// encodes the class: top-left for class 0, bottom-right for class 1.
func generateQuadrantImages(nSamples, size int) ([][]float64, [][]float64) {
	X := make([][]float64, nSamples)
	y := make([][]float64, nSamples)

	for i := 0; i < nSamples; i++ {
		img := make([]float64, size*size)
		class := i % 2

		for j := range img {
			row := j / size
			col := j % size
			img[j] = rand.Float64() * 0.2
			topLeft := row < size/2 && col < size/2
			bottomRight := row >= size/2 && col >= size/2
			if (class == 0 && topLeft) || (class == 1 && bottomRight) {
				img[j] += 0.8
			}
		}

		X[i] = img
		if class == 0 {
			y[i] = []float64{1, 0}
		} else {
			y[i] = []float64{0, 1}
		}
	}

	return X, y
}

// accuracy computes the argmax accuracy of the model on a labelled set.
func accuracy(model *net.Sequential, X, y [][]float64) float64 {
	correct := 0
	for i := range X {
		pred := model.Forward(X[i])
		predClass := 0
		for j := 1; j < len(pred); j++ {
			if pred[j] > pred[predClass] {
				predClass = j
			}
		}
		trueClass := 0
		for j := 1; j < len(y[i]); j++ {
			if y[i][j] > y[i][trueClass] {
				trueClass = j
			}
		}
		if predClass == trueClass {
			correct++
		}
	}
	return float64(correct) / float64(len(X)) * 100
}
