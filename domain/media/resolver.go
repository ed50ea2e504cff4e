package media

import "context"

// VideoInfo is the resolved metadata and stream listing for one video
type VideoInfo struct {
	// BVID is the video's BV identifier
	BVID string

	// CID is the numeric id of the video's first page
	CID int64

	// Title is the video title as shown on the watch page
	Title string

	// Owner is the uploader's display name
	Owner string

	// Duration is the video length in seconds
	Duration int

	// Streams is the DASH descriptor for the video's first page
	Streams *Descriptor
}

// Resolver defines the interface for turning a BV id into stream metadata
// This is a port that can be implemented by different infrastructure adapters
type Resolver interface {
	// Resolve looks up the video page and returns its metadata together
	// with the DASH stream listing
	Resolve(ctx context.Context, bvid string) (*VideoInfo, error)
}
