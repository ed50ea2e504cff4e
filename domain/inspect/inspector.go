package inspect

import "context"

// Report contains the outcome of checking a produced media file
type Report struct {
	// Width and Height are the decoded frame dimensions
	Width  int
	Height int

	// FPS is the container's declared frame rate
	FPS float64

	// FrameCount is the container's declared frame count
	FrameCount int

	// SampledFrames is the number of positions probed
	SampledFrames int

	// DecodedFrames is the number of probed positions that decoded
	DecodedFrames int
}

// Playable reports whether the file decoded well enough to be considered
// a usable video
func (r Report) Playable() bool {
	return r.Width > 0 && r.Height > 0 && r.DecodedFrames > 0
}

// Inspector defines the interface for verifying a muxed output file
// This is a port that can be implemented by different infrastructure adapters
type Inspector interface {
	// Inspect opens the file and sample-decodes frames across its length
	Inspect(ctx context.Context, path string) (Report, error)

	// Close releases any resources
	Close()
}
