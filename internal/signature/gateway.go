package signature

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/imaging"
)

// Gateway presents a uniform cleaning and matching capability regardless of
// whether the real inference backends are reachable. Variants are resolved
// once here; request handling never consults the bypass flag again. The
// resolved state is immutable and shared read-only by all requests.
type Gateway struct {
	cleaner     Cleaner
	matcher     Matcher
	cleanerMode Mode
	matcherMode Mode
}

// NewGateway probes both backends and resolves each family independently.
// An unreachable backend resolves to its deterministic placeholder when
// bypass is enabled; with bypass disabled the error is fatal and the caller
// must not start serving.
func NewGateway(ctx context.Context, cleaner CleanerBackend, matcher MatcherBackend, bypass bool, logger *zap.Logger) (*Gateway, error) {
	gw := &Gateway{
		cleaner:     cleaner,
		matcher:     matcher,
		cleanerMode: ModeModel,
		matcherMode: ModeModel,
	}

	if err := cleaner.Ping(ctx); err != nil {
		if !bypass {
			return nil, &InitError{Family: FamilyCleaner, Err: err}
		}
		logger.Warn("cleaning model unavailable, running in bypass mode", zap.Error(err))
		gw.cleaner = MockCleaner{}
		gw.cleanerMode = ModeBypass
	}

	if err := matcher.Ping(ctx); err != nil {
		if !bypass {
			return nil, &InitError{Family: FamilyMatcher, Err: err}
		}
		logger.Warn("matching model unavailable, running in bypass mode", zap.Error(err))
		gw.matcher = MockMatcher{}
		gw.matcherMode = ModeBypass
	}

	return gw, nil
}

// Clean dispatches to the resolved cleaning variant.
func (gw *Gateway) Clean(ctx context.Context, img *imaging.Image) (*imaging.Image, error) {
	cleaned, err := gw.cleaner.Clean(ctx, img)
	if err != nil {
		return nil, &InvocationError{Family: FamilyCleaner, Err: err}
	}
	return cleaned, nil
}

// Compare dispatches to the resolved matching variant and enforces the
// score contract.
func (gw *Gateway) Compare(ctx context.Context, a, b *imaging.Image) (float64, error) {
	score, err := gw.matcher.Compare(ctx, a, b)
	if err != nil {
		return 0, &InvocationError{Family: FamilyMatcher, Err: err}
	}
	if score < 0 || score > 1 {
		return 0, &InvocationError{Family: FamilyMatcher, Err: fmt.Errorf("similarity score %g outside [0,1]", score)}
	}
	return score, nil
}

// CleanerMode reports which cleaning variant is active.
func (gw *Gateway) CleanerMode() Mode {
	return gw.cleanerMode
}

// MatcherMode reports which matching variant is active.
func (gw *Gateway) MatcherMode() Mode {
	return gw.matcherMode
}
