package util_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/monolab/graybooth/util"
)

func ExampleSecsToDuration() {
	fmt.Println(util.SecsToDuration(1.5))
	// Output: 1.5s
}

func ExampleUniqueString() {
	fmt.Println(util.UniqueString([]string{"a.jpg", "b.jpg", "a.jpg"}))
	// Output: [a.jpg b.jpg]
}

func ExampleSwapExt() {
	fmt.Println(util.SwapExt("shots/beach.jpeg", "png"))
	// Output: shots/beach.png
}

func TestSecsToDurationRejectsJunk(t *testing.T) {
	for _, in := range []float64{-1, 0, math.NaN()} {
		if d := util.SecsToDuration(in); d != 0 {
			t.Errorf("expected 0 for %v, got %v", in, d)
		}
	}
	if d := util.SecsToDuration(0.25); d != 250*time.Millisecond {
		t.Errorf("expected 250ms got %v", d)
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	clamped := util.Clamp(-5, 0, 10)
	if clamped != 0 {
		t.Errorf("expected 0 got %f", clamped)
	}
}
