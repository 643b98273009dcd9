package layer

import (
	"errors"
	"math"
	"testing"

	"github.com/Fabio-83/aihwkit/internal/rpu"
)

func newLinear(t *testing.T) *AnalogLinear {
	t.Helper()
	l, err := NewAnalogLinear(3, 2, true, rpu.Config{}, false)
	if err != nil {
		t.Fatalf("NewAnalogLinear failed: %v", err)
	}
	if err := l.SetWeights([]float64{1, 2, 3, 4, 5, 6}, []float64{0.5, -0.5}); err != nil {
		t.Fatalf("SetWeights failed: %v", err)
	}
	return l
}

func TestAnalogLinearForward(t *testing.T) {
	l := newLinear(t)

	out := l.Forward([]float64{1, 2, 3})

	// Row dot products plus bias: 1+4+9+0.5 and 4+10+18-0.5.
	expected := []float64{14.5, 31.5}
	if !floatsClose(out, expected, 1e-9) {
		t.Errorf("Expected %v, got %v", expected, out)
	}
}

func TestAnalogLinearForwardBatch(t *testing.T) {
	l := newLinear(t)

	out := l.ForwardBatch([][]float64{
		{1, 2, 3},
		{0, 0, 0},
	})

	if len(out) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(out))
	}
	if !floatsClose(out[0], []float64{14.5, 31.5}, 1e-9) {
		t.Errorf("Sample 0: expected [14.5 31.5], got %v", out[0])
	}
	// The zero sample reduces to the bias.
	if !floatsClose(out[1], []float64{0.5, -0.5}, 1e-9) {
		t.Errorf("Sample 1: expected [0.5 -0.5], got %v", out[1])
	}
}

func TestAnalogLinearBackward(t *testing.T) {
	l := newLinear(t)

	l.Forward([]float64{1, 2, 3})
	gradIn := l.Backward([]float64{1, 1})

	// Transposed weights times gradient, column sums of the weight matrix.
	expected := []float64{5, 7, 9}
	if !floatsClose(gradIn, expected, 1e-9) {
		t.Errorf("Expected %v, got %v", expected, gradIn)
	}
}

func TestAnalogLinearTrainingUpdate(t *testing.T) {
	l := newLinear(t)
	l.SetTraining(true)

	l.Forward([]float64{1, 2, 3})
	gradIn := l.Backward([]float64{1, 2})

	// The input gradient uses the weights before the update.
	if expected := []float64{9, 12, 15}; !floatsClose(gradIn, expected, 1e-9) {
		t.Errorf("Expected gradIn %v, got %v", expected, gradIn)
	}

	weights, bias, err := l.GetWeights()
	if err != nil {
		t.Fatalf("GetWeights failed: %v", err)
	}
	// W -= lr * grad x input with the default learning rate 0.01.
	expectedW := []float64{0.99, 1.98, 2.97, 3.98, 4.96, 5.94}
	expectedB := []float64{0.49, -0.52}
	if !floatsClose(weights, expectedW, 1e-9) {
		t.Errorf("Expected weights %v, got %v", expectedW, weights)
	}
	if !floatsClose(bias, expectedB, 1e-9) {
		t.Errorf("Expected bias %v, got %v", expectedB, bias)
	}
}

func TestAnalogLinearEvalDoesNotUpdate(t *testing.T) {
	l := newLinear(t)

	l.Forward([]float64{1, 2, 3})
	l.Backward([]float64{1, 2})

	weights, bias, err := l.GetWeights()
	if err != nil {
		t.Fatalf("GetWeights failed: %v", err)
	}
	for i, w := range []float64{1, 2, 3, 4, 5, 6} {
		if weights[i] != w {
			t.Errorf("Weight %d changed to %v in eval mode", i, weights[i])
		}
	}
	if bias[0] != 0.5 || bias[1] != -0.5 {
		t.Errorf("Bias changed to %v in eval mode", bias)
	}
}

func TestAnalogLinearBackwardBeforeForwardPanics(t *testing.T) {
	l := newLinear(t)
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for Backward before Forward")
		}
	}()
	l.Backward([]float64{1, 1})
}

func TestAnalogLinearParameters(t *testing.T) {
	l := newLinear(t)

	params := l.Parameters()
	if len(params) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(params))
	}
	if params[0].Name != "weight" || params[0].Role != RoleWeight || len(params[0].Data) != 6 {
		t.Errorf("Unexpected weight parameter: %+v", params[0])
	}
	if params[1].Name != "bias" || params[1].Role != RoleBias || len(params[1].Data) != 2 {
		t.Errorf("Unexpected bias parameter: %+v", params[1])
	}

	noBias, err := NewAnalogLinear(3, 2, false, rpu.Config{}, false)
	if err != nil {
		t.Fatalf("NewAnalogLinear failed: %v", err)
	}
	if got := noBias.Parameters(); len(got) != 1 {
		t.Errorf("Expected 1 parameter without bias, got %d", len(got))
	}
}

func TestAnalogLinearValidation(t *testing.T) {
	if _, err := NewAnalogLinear(0, 2, true, rpu.Config{}, false); !errors.Is(err, rpu.ErrConfig) {
		t.Errorf("Expected ErrConfig for zero input features, got %v", err)
	}
	if _, err := NewAnalogLinear(3, 0, true, rpu.Config{}, false); !errors.Is(err, rpu.ErrConfig) {
		t.Errorf("Expected ErrConfig for zero output features, got %v", err)
	}
	// Bias occupies one tile line on top of the input features.
	if _, err := NewAnalogLinear(512, 2, true, rpu.Config{}, false); !errors.Is(err, rpu.ErrConfig) {
		t.Errorf("Expected ErrConfig when bias exceeds the tile, got %v", err)
	}
	if _, err := NewAnalogLinear(512, 2, false, rpu.Config{}, false); err != nil {
		t.Errorf("Expected a full-width tile without bias to fit, got %v", err)
	}
}

func TestAnalogLinearWeightInitRange(t *testing.T) {
	l, err := NewAnalogLinear(16, 4, true, rpu.Config{}, false)
	if err != nil {
		t.Fatalf("NewAnalogLinear failed: %v", err)
	}
	bound := 1 / math.Sqrt(16)
	weights, bias, err := l.GetWeights()
	if err != nil {
		t.Fatalf("GetWeights failed: %v", err)
	}
	for i, w := range weights {
		if w < -bound || w > bound {
			t.Errorf("Weight %d = %v outside [%v, %v]", i, w, -bound, bound)
		}
	}
	for i, b := range bias {
		if b < -bound || b > bound {
			t.Errorf("Bias %d = %v outside [%v, %v]", i, b, -bound, bound)
		}
	}
}
