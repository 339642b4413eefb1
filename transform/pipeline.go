package transform

import (
	"fmt"
	"image"
	"strings"

	"github.com/monolab/graybooth/photo"
)

// Policy decides what the Pipeline does when a stage fails
type Policy int

const (
	// Passthrough hands the failed stage's input to the next stage and records the failure
	Passthrough Policy = iota

	// Strict aborts the run on the first failure
	Strict
)

// ParsePolicy converts "passthrough" or "strict" to a Policy, case insensitive
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "passthrough":
		return Passthrough, nil
	case "strict":
		return Strict, nil
	}
	return Passthrough, fmt.Errorf("transform: unknown policy %q", s)
}

// String returns the config spelling of the policy
func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "passthrough"
}

const (
	// StageNormalize names the orientation stage in Failures
	StageNormalize = "normalize"

	// StageMonochrome names the filter stage in Failures
	StageMonochrome = "monochrome"
)

// Failure records a stage that did not complete
type Failure struct {
	Stage string
	Err   error
}

// Result is the outcome of one pipeline run
type Result struct {
	// Captured is the pipeline input
	Captured photo.Captured

	// Normalized is the output of the orientation stage
	Normalized photo.Captured

	// Output is the final bitmap, monochrome unless a stage was passed through
	Output image.Image

	// Failures lists every stage that failed, in order
	Failures []Failure
}

// Degraded is true when any stage failed and was passed through
func (r Result) Degraded() bool {
	return len(r.Failures) > 0
}

// Pipeline chains Normalizer and Monochrome synchronously
type Pipeline struct {
	Normalizer Normalizer
	Monochrome Monochrome
	Policy     Policy
}

// NewPipeline returns a pipeline with default settings
func NewPipeline() Pipeline {
	return Pipeline{Monochrome: DefaultMonochrome}
}

// Run normalizes then converts c.  With the Passthrough policy the error is
// always nil and failures are reported in Result.Failures.
func (p Pipeline) Run(c photo.Captured) (Result, error) {
	res := Result{Captured: c}

	norm, err := p.Normalizer.Normalize(c)
	if err != nil {
		if p.Policy == Strict {
			return res, fmt.Errorf("%s: %w", StageNormalize, err)
		}
		res.Failures = append(res.Failures, Failure{Stage: StageNormalize, Err: err})
		norm = c
	}
	res.Normalized = norm

	mono, err := p.Monochrome.Convert(norm.Image)
	if err != nil {
		if p.Policy == Strict {
			return res, fmt.Errorf("%s: %w", StageMonochrome, err)
		}
		res.Failures = append(res.Failures, Failure{Stage: StageMonochrome, Err: err})
		res.Output = norm.Image
		return res, nil
	}
	res.Output = mono
	return res, nil
}
