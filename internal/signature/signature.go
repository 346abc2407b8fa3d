// Package signature defines the model capabilities the processing layer
// depends on and resolves them to real or placeholder implementations once at
// startup.
package signature

import (
	"context"
	"fmt"

	"github.com/example/signature-verify/internal/imaging"
)

// DefaultMatchThreshold is the similarity cutoff at or above which two
// signatures are declared a match.
const DefaultMatchThreshold = 0.6

// Decision labels returned by the match pipeline.
const (
	DecisionMatch   = "match"
	DecisionNoMatch = "no match"
)

// Family identifies one of the two model families.
type Family string

const (
	FamilyCleaner Family = "cleaner"
	FamilyMatcher Family = "matcher"
)

// Mode reports which variant of a model family is active.
type Mode string

const (
	// ModeModel means the real inference backend serves requests.
	ModeModel Mode = "model"
	// ModeBypass means the deterministic placeholder serves requests.
	ModeBypass Mode = "bypass"
)

// Cleaner removes background noise from a signature image.
type Cleaner interface {
	Clean(ctx context.Context, img *imaging.Image) (*imaging.Image, error)
}

// Matcher scores the similarity of two signature images in [0,1].
type Matcher interface {
	Compare(ctx context.Context, a, b *imaging.Image) (float64, error)
}

// CleanerBackend is a Cleaner whose availability can be probed at startup.
type CleanerBackend interface {
	Cleaner
	Ping(ctx context.Context) error
}

// MatcherBackend is a Matcher whose availability can be probed at startup.
type MatcherBackend interface {
	Matcher
	Ping(ctx context.Context) error
}

// InvocationError reports a model capability that failed while serving a
// request.
type InvocationError struct {
	Family Family
	Err    error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s model invocation failed: %v", e.Family, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// InitError reports a model family that could not be brought up at startup
// while bypass mode was disabled. It is fatal; the process must not serve.
type InitError struct {
	Family Family
	Err    error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("%s model unavailable and bypass disabled: %v", e.Family, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InitError) Unwrap() error {
	return e.Err
}
