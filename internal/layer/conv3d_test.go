package layer

import (
	"errors"
	"testing"

	"github.com/Fabio-83/aihwkit/internal/rpu"
)

func TestAnalogConv3dForward(t *testing.T) {
	c, err := NewAnalogConv3d(Conv3dConfig{
		InChannels:  1,
		OutChannels: 1,
		Kernel:      [3]int{1, 2, 2},
	})
	if err != nil {
		t.Fatalf("NewAnalogConv3d failed: %v", err)
	}
	if err := c.SetWeights([]float64{1, 2, 3, 4}, []float64{0}); err != nil {
		t.Fatalf("SetWeights failed: %v", err)
	}

	// 2x2x2 volume 1..8: each depth plane is one full 2x2 patch.
	out := c.Forward([]float64{1, 2, 3, 4, 5, 6, 7, 8})

	// Plane 0: 1+2*2+3*3+4*4 = 30; plane 1: 5+2*6+3*7+4*8 = 70.
	expected := []float64{30, 70}
	if !floatsClose(out, expected, 1e-9) {
		t.Errorf("Expected %v, got %v", expected, out)
	}
}

func TestAnalogConv3dBackward(t *testing.T) {
	c, err := NewAnalogConv3d(Conv3dConfig{
		InChannels:  1,
		OutChannels: 1,
		Kernel:      [3]int{1, 2, 2},
	})
	if err != nil {
		t.Fatalf("NewAnalogConv3d failed: %v", err)
	}
	if err := c.SetWeights([]float64{1, 2, 3, 4}, []float64{0}); err != nil {
		t.Fatalf("SetWeights failed: %v", err)
	}

	c.Forward([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	gradIn := c.Backward([]float64{1, 1})

	// Each depth plane receives the kernel weights once.
	expected := []float64{1, 2, 3, 4, 1, 2, 3, 4}
	if !floatsClose(gradIn, expected, 1e-9) {
		t.Errorf("Expected %v, got %v", expected, gradIn)
	}
}

func TestAnalogConv3dWholeVolumeKernel(t *testing.T) {
	c, err := NewAnalogConv3d(Conv3dConfig{
		InChannels:  1,
		OutChannels: 1,
		Kernel:      [3]int{2, 2, 2},
	})
	if err != nil {
		t.Fatalf("NewAnalogConv3d failed: %v", err)
	}
	if err := c.SetWeights([]float64{1, 1, 1, 1, 1, 1, 1, 1}, []float64{0.25}); err != nil {
		t.Fatalf("SetWeights failed: %v", err)
	}

	// Kernel covers the whole cube: single position, plain sum.
	out := c.Forward([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	if expected := []float64{36.25}; !floatsClose(out, expected, 1e-9) {
		t.Errorf("Expected %v, got %v", expected, out)
	}
}

// A depth-1 volume must behave exactly like the 2D layer.
func TestAnalogConv3dDepthOneMatchesConv2d(t *testing.T) {
	c2, err := NewAnalogConv2d(Conv2dConfig{
		InChannels:  1,
		OutChannels: 1,
		Kernel:      [2]int{2, 2},
	})
	if err != nil {
		t.Fatalf("NewAnalogConv2d failed: %v", err)
	}
	c3, err := NewAnalogConv3d(Conv3dConfig{
		InChannels:  1,
		OutChannels: 1,
		Kernel:      [3]int{1, 2, 2},
	})
	if err != nil {
		t.Fatalf("NewAnalogConv3d failed: %v", err)
	}

	weights := []float64{0.5, -1, 2, 0.25}
	bias := []float64{0.125}
	if err := c2.SetWeights(weights, bias); err != nil {
		t.Fatalf("SetWeights failed: %v", err)
	}
	if err := c3.SetWeights(weights, bias); err != nil {
		t.Fatalf("SetWeights failed: %v", err)
	}
	c3.SetInputSize(1, 3, 3)

	input := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out2 := c2.Forward(input)
	out3 := c3.Forward(input)
	if !floatsClose(out2, out3, 1e-12) {
		t.Errorf("2D and depth-1 3D disagree: %v vs %v", out2, out3)
	}
}

func TestAnalogConv3dCubeInference(t *testing.T) {
	var rec *recordingTile
	c, err := NewAnalogConv3d(Conv3dConfig{
		InChannels:  2,
		OutChannels: 1,
		Kernel:      [3]int{2, 2, 2},
		Tile:        recordingFactory(&rec),
	})
	if err != nil {
		t.Fatalf("NewAnalogConv3d failed: %v", err)
	}

	c.Forward(make([]float64, 2*27)) // 2 channels of 3x3x3
	geom := rec.lastGeom
	if geom.InChannels != 2 || len(geom.In) != 3 || geom.In[0] != 3 || geom.In[1] != 3 || geom.In[2] != 3 {
		t.Errorf("Expected 2 channels of 3x3x3, got %+v", geom)
	}
	if geom.Out[0] != 2 || geom.Out[1] != 2 || geom.Out[2] != 2 {
		t.Errorf("Expected 2x2x2 output, got %v", geom.Out)
	}

	// A non-cubic count panics without declared dimensions.
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic for non-cubic input")
			}
		}()
		c.Forward(make([]float64, 2*12))
	}()
}

func TestAnalogConv3dIndexCacheReuse(t *testing.T) {
	var rec *recordingTile
	c, err := NewAnalogConv3d(Conv3dConfig{
		InChannels:  1,
		OutChannels: 1,
		Kernel:      [3]int{2, 2, 2},
		Tile:        recordingFactory(&rec),
	})
	if err != nil {
		t.Fatalf("NewAnalogConv3d failed: %v", err)
	}

	cube2 := make([]float64, 8)
	c.Forward(cube2)
	c.Forward(cube2)
	if rec.setIndexedCalls != 1 {
		t.Errorf("Expected 1 index-map build for a stable shape, got %d", rec.setIndexedCalls)
	}

	c.Forward(make([]float64, 27))
	if rec.setIndexedCalls != 2 {
		t.Errorf("Expected 2 index-map builds after a volume change, got %d", rec.setIndexedCalls)
	}
}

func TestAnalogConv3dConfigValidation(t *testing.T) {
	base := Conv3dConfig{InChannels: 1, OutChannels: 1, Kernel: [3]int{2, 2, 2}}

	bad := base
	bad.Dilation = [3]int{2, 1, 1}
	if _, err := NewAnalogConv3d(bad); !errors.Is(err, rpu.ErrConfig) {
		t.Errorf("Expected ErrConfig for 3D dilation, got %v", err)
	}

	bad = base
	bad.Groups = 3
	if _, err := NewAnalogConv3d(bad); !errors.Is(err, rpu.ErrConfig) {
		t.Errorf("Expected ErrConfig for groups != 1, got %v", err)
	}

	bad = base
	bad.PaddingMode = "circular"
	if _, err := NewAnalogConv3d(bad); !errors.Is(err, rpu.ErrConfig) {
		t.Errorf("Expected ErrConfig for circular padding, got %v", err)
	}

	bad = base
	bad.Padding = [3]int{-1, 0, 0}
	if _, err := NewAnalogConv3d(bad); !errors.Is(err, rpu.ErrConfig) {
		t.Errorf("Expected ErrConfig for negative padding, got %v", err)
	}

	// The explicit unit dilation is accepted.
	ok := base
	ok.Dilation = [3]int{1, 1, 1}
	if _, err := NewAnalogConv3d(ok); err != nil {
		t.Errorf("Expected unit dilation to be accepted, got %v", err)
	}
}

func TestAnalogConv3dParameters(t *testing.T) {
	c, err := NewAnalogConv3d(Conv3dConfig{
		InChannels:  2,
		OutChannels: 3,
		Kernel:      [3]int{1, 2, 2},
	})
	if err != nil {
		t.Fatalf("NewAnalogConv3d failed: %v", err)
	}
	if c.InFeatures() != 2*1*2*2 {
		t.Errorf("Expected 8 input features, got %d", c.InFeatures())
	}
	params := c.Parameters()
	if len(params) != 2 || len(params[0].Data) != 3*8 || len(params[1].Data) != 3 {
		t.Errorf("Unexpected parameter shapes: %d params", len(params))
	}
}
