//go:build !inspect

package inspect

import (
	"context"
	"fmt"

	"bili-archive/domain/inspect"
)

// Inspector is a stub when GoCV/OpenCV is not available
type Inspector struct{}

// InspectorOption is a functional option for configuring Inspector
type InspectorOption func(*Inspector)

// WithSampleCount is a no-op in stub mode
func WithSampleCount(n int) InspectorOption {
	return func(i *Inspector) {}
}

// NewInspector creates a stub inspector (requires building with -tags=inspect)
func NewInspector(opts ...InspectorOption) *Inspector {
	return &Inspector{}
}

// Inspect returns an error indicating inspection is not available
func (i *Inspector) Inspect(ctx context.Context, path string) (inspect.Report, error) {
	return inspect.Report{}, fmt.Errorf("inspection not available: build with '-tags=inspect' and install OpenCV/GoCV")
}

// Close is a no-op in stub mode
func (i *Inspector) Close() {}

// Ensure Inspector implements inspect.Inspector
var _ inspect.Inspector = (*Inspector)(nil)
