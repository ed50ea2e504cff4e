package bilibili

import (
	"context"
	"errors"

	"bili-archive/domain/media"
)

// FallbackResolver tries the API resolver first and falls back to the
// watch page when the API refuses with a non-zero code. Transport errors
// are not retried against the page, since the page would be unreachable
// for the same reason.
type FallbackResolver struct {
	primary  media.Resolver
	fallback media.Resolver
}

// NewFallbackResolver creates a resolver that falls back from primary to
// fallback on API refusals
func NewFallbackResolver(primary, fallback media.Resolver) *FallbackResolver {
	return &FallbackResolver{primary: primary, fallback: fallback}
}

// Resolve implements media.Resolver
func (r *FallbackResolver) Resolve(ctx context.Context, bvid string) (*media.VideoInfo, error) {
	info, err := r.primary.Resolve(ctx, bvid)
	if err == nil {
		return info, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if info, fallbackErr := r.fallback.Resolve(ctx, bvid); fallbackErr == nil {
			return info, nil
		}
		// The API error names the real refusal, so it wins over whatever
		// the page attempt produced
	}

	return nil, err
}

// Ensure FallbackResolver implements media.Resolver
var _ media.Resolver = (*FallbackResolver)(nil)
