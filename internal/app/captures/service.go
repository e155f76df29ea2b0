package captures

import (
	"context"
	"strings"

	domain "github.com/endalk200/better-webhook-sub002/internal/domain/capture"
)

// Service backs the `captures` CLI subcommands (list/delete) on top of a
// CaptureRepository, applying provider filtering that the repository itself
// doesn't know about.
type Service struct {
	repo CaptureRepository
}

type ListRequest struct {
	Limit    int
	Provider string
}

func NewService(repo CaptureRepository) *Service {
	return &Service{repo: repo}
}

// List returns up to request.Limit captures, newest first, optionally
// restricted to a single provider (case-insensitive, "unknown" substituted
// for an unset provider so `--provider unknown` is a usable filter).
func (s *Service) List(ctx context.Context, request ListRequest) ([]domain.CaptureFile, error) {
	captures, err := s.repo.List(ctx, request.Limit)
	if err != nil {
		return nil, err
	}

	provider := strings.TrimSpace(request.Provider)
	if provider == "" {
		return captures, nil
	}
	return filterByProvider(captures, provider), nil
}

func filterByProvider(captures []domain.CaptureFile, provider string) []domain.CaptureFile {
	filtered := make([]domain.CaptureFile, 0, len(captures))
	for _, item := range captures {
		if strings.EqualFold(captureProvider(item), provider) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func captureProvider(item domain.CaptureFile) string {
	if item.Capture.Provider == "" {
		return domain.ProviderUnknown
	}
	return item.Capture.Provider
}

// Resolve looks up a capture by id or unambiguous id prefix without
// deleting it, so callers (e.g. a delete confirmation prompt) can describe
// the target before committing.
func (s *Service) Resolve(ctx context.Context, selector string) (domain.CaptureFile, error) {
	return s.repo.ResolveByIDOrPrefix(ctx, selector)
}

// Delete resolves selector and removes the matching capture in one step.
func (s *Service) Delete(ctx context.Context, selector string) (domain.CaptureFile, error) {
	return s.repo.DeleteByIDOrPrefix(ctx, selector)
}

// DeleteResolved removes a capture that a caller already resolved via
// Resolve, deleting by its full id rather than re-running prefix resolution
// (which could become ambiguous if a new capture with a colliding prefix
// arrived between the resolve and the delete).
func (s *Service) DeleteResolved(ctx context.Context, target domain.CaptureFile) (domain.CaptureFile, error) {
	return s.repo.DeleteByIDOrPrefix(ctx, target.Capture.ID)
}
