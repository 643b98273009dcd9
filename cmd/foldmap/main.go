// Package main - Prints the gather-index table for a convolution geometry
// Run: go run cmd/foldmap/main.go -in 3,3 -kernel 2,2 -stride 1,1
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Fabio-83/aihwkit/internal/fold"
)

func main() {
	channels := flag.Int("channels", 1, "input channels")
	inStr := flag.String("in", "3,3", "input size per axis: H,W or D,H,W")
	kernelStr := flag.String("kernel", "2,2", "kernel size per axis")
	strideStr := flag.String("stride", "", "stride per axis (default 1 per axis)")
	paddingStr := flag.String("padding", "", "zero padding per axis (default 0 per axis)")
	dilationStr := flag.String("dilation", "", "dilation per axis, 2D only (default 1 per axis)")
	bias := flag.Bool("bias", true, "append the bias line")
	flag.Parse()

	in, err := parseDims(*inStr)
	if err != nil {
		fail("bad -in: %v", err)
	}
	rank := len(in)
	if rank != 2 && rank != 3 {
		fail("-in needs 2 or 3 axes, got %d", rank)
	}

	kernel := parseOrFail("-kernel", *kernelStr, rank, 0)
	stride := parseOrFail("-stride", *strideStr, rank, 1)
	padding := parseOrFail("-padding", *paddingStr, rank, 0)
	dilation := parseOrFail("-dilation", *dilationStr, rank, 1)

	var indices []int32
	var out []int
	switch rank {
	case 2:
		idx, o := fold.Conv2dIndices(*channels,
			[2]int{in[0], in[1]}, [2]int{kernel[0], kernel[1]},
			[2]int{stride[0], stride[1]}, [2]int{padding[0], padding[1]},
			[2]int{dilation[0], dilation[1]}, *bias)
		indices, out = idx, o[:]
	case 3:
		for _, d := range dilation {
			if d != 1 {
				fail("3D tables do not support dilation")
			}
		}
		idx, o := fold.Conv3dIndices(*channels,
			[3]int{in[0], in[1], in[2]}, [3]int{kernel[0], kernel[1], kernel[2]},
			[3]int{stride[0], stride[1], stride[2]}, [3]int{padding[0], padding[1], padding[2]},
			*bias)
		indices, out = idx, o[:]
	}

	positions := 1
	for _, d := range out {
		positions *= d
	}
	lines := len(indices) / positions

	fmt.Printf("Geometry: %d channel(s), input %s, kernel %s, stride %s, padding %s",
		*channels, dims(in), dims(kernel), dims(stride), dims(padding))
	if rank == 2 {
		fmt.Printf(", dilation %s", dims(dilation))
	}
	fmt.Println()
	fmt.Printf("Output positions: %s (%d)\n", dims(out), positions)
	fmt.Printf("Table: %d lines x %d positions", lines, positions)
	if *bias {
		fmt.Print(" (bias line included)")
	}
	fmt.Println()
	fmt.Println("Values: 0 = padding, 1 = bias, k >= 2 addresses input element k-2")
	fmt.Println()

	kernelSize := 1
	for _, d := range kernel {
		kernelSize *= d
	}
	for line := 0; line < lines; line++ {
		fmt.Printf("line %3d %-12s", line, lineLabel(line, *channels, kernel, kernelSize))
		for p := 0; p < positions; p++ {
			fmt.Printf(" %5d", indices[line*positions+p])
		}
		fmt.Println()
	}
}

// lineLabel names a table line by its channel and kernel offset; the bias
// line, when present, comes last.
func lineLabel(line, channels int, kernel []int, kernelSize int) string {
	if line >= channels*kernelSize {
		return "(bias)"
	}
	c := line / kernelSize
	rem := line % kernelSize
	coords := make([]int, len(kernel))
	for axis := len(kernel) - 1; axis >= 0; axis-- {
		coords[axis] = rem % kernel[axis]
		rem /= kernel[axis]
	}
	parts := make([]string, len(coords))
	for i, v := range coords {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("(ch %d, k %s)", c, strings.Join(parts, ","))
}

// parseDims splits "4,4" or "4x4" into ints.
func parseDims(s string) ([]int, error) {
	s = strings.ReplaceAll(s, "x", ",")
	parts := strings.Split(s, ",")
	dims := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", p)
		}
		dims = append(dims, v)
	}
	return dims, nil
}

// parseOrFail parses a per-axis flag, filling every axis with fallback when
// the flag is empty and broadcasting a single value across all axes.
func parseOrFail(name, s string, rank, fallback int) []int {
	dims := make([]int, rank)
	if s == "" {
		for i := range dims {
			dims[i] = fallback
		}
		return dims
	}
	parsed, err := parseDims(s)
	if err != nil {
		fail("bad %s: %v", name, err)
	}
	if len(parsed) == 1 {
		for i := range dims {
			dims[i] = parsed[0]
		}
		return dims
	}
	if len(parsed) != rank {
		fail("%s needs %d axes, got %d", name, rank, len(parsed))
	}
	return parsed
}

// dims renders a dim slice as "3x3".
func dims(d []int) string {
	parts := make([]string, len(d))
	for i, v := range d {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "x")
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
