// Package util contains misc internal utilities.
package util

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// SecsToDuration converts a floating point number of seconds to a time.Duration.
// NaN and negative values become zero.
func SecsToDuration(secs float64) time.Duration {
	if math.IsNaN(secs) || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// UniqueString returns the unique strings of a slice, in order of first appearance
func UniqueString(input []string) []string {
	u := make([]string, 0, len(input))
	m := make(map[string]bool)
	for _, val := range input {
		if _, ok := m[val]; !ok {
			m[val] = true
			u = append(u, val)
		}
	}
	return u
}

// Clamp restricts input to [low, high]
func Clamp(input, low, high float64) float64 {
	if input < low {
		return low
	}
	if input > high {
		return high
	}
	return input
}

// SwapExt replaces the extension of fn with ext, which may be given with or without a dot.
// e.g. ("a/b.jpeg", "png") => "a/b.png"
func SwapExt(fn, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return strings.TrimSuffix(fn, filepath.Ext(fn)) + "." + ext
}
