//go:build inspect

package inspect

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"bili-archive/domain/inspect"
)

// Inspector implements inspect.Inspector using GoCV frame decoding
type Inspector struct {
	sampleCount int
}

// InspectorOption is a functional option for configuring Inspector
type InspectorOption func(*Inspector)

// WithSampleCount sets how many positions are probed across the file
func WithSampleCount(n int) InspectorOption {
	return func(i *Inspector) {
		if n > 0 {
			i.sampleCount = n
		}
	}
}

// NewInspector creates a new GoCV-based inspector
func NewInspector(opts ...InspectorOption) *Inspector {
	i := &Inspector{
		sampleCount: 5,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Inspect implements inspect.Inspector. It opens the file, reads the
// container properties, and decodes one frame at evenly spread positions.
func (i *Inspector) Inspect(ctx context.Context, path string) (inspect.Report, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return inspect.Report{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer capture.Close()

	report := inspect.Report{
		Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        capture.Get(gocv.VideoCaptureFPS),
		FrameCount: int(capture.Get(gocv.VideoCaptureFrameCount)),
	}

	img := gocv.NewMat()
	defer img.Close()

	samples := i.sampleCount
	if report.FrameCount > 0 && report.FrameCount < samples {
		samples = report.FrameCount
	}

	for s := 0; s < samples; s++ {
		select {
		case <-ctx.Done():
			return inspect.Report{}, ctx.Err()
		default:
		}

		if report.FrameCount > 0 {
			position := float64(report.FrameCount * s / samples)
			capture.Set(gocv.VideoCapturePosFrames, position)
		}

		report.SampledFrames++
		if capture.Read(&img) && !img.Empty() {
			report.DecodedFrames++
		}
	}

	return report, nil
}

// Close releases any resources
func (i *Inspector) Close() {}

// Ensure Inspector implements inspect.Inspector
var _ inspect.Inspector = (*Inspector)(nil)
