package provider

import domain "github.com/endalk200/better-webhook-sub002/internal/domain/capture"

// Detector inspects a capture's shape and reports a provider guess with a
// confidence in [0,1], or no match at all.
type Detector interface {
	Detect(ctx domain.DetectionContext) (domain.DetectionResult, bool)
}

// Registry runs every registered Detector against a capture and keeps the
// highest-confidence match (see SPEC_FULL.md §C / DESIGN.md for why this is
// highest-confidence-wins rather than first-match-wins).
type Registry struct {
	detectors []Detector
}

func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

func (r *Registry) Detect(ctx domain.DetectionContext) domain.DetectionResult {
	var (
		best    domain.DetectionResult
		hasBest bool
	)

	for _, detector := range r.detectors {
		result, matched := detector.Detect(ctx)
		if !matched {
			continue
		}
		if !hasBest || result.Confidence > best.Confidence {
			best = result
			hasBest = true
		}
	}

	if !hasBest || best.Provider == "" {
		best.Provider = domain.ProviderUnknown
	}
	return best
}
