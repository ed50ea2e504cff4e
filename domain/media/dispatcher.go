package media

import "context"

// Dispatcher defines the interface for handing a fetch request to whatever
// actually downloads and muxes the streams
// This is a port that can be implemented by different infrastructure adapters
type Dispatcher interface {
	// Fetch downloads the requested streams, muxes them, and returns the
	// path of the finished file
	Fetch(ctx context.Context, req *FetchRequest) (string, error)
}
