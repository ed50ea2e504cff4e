package media

import "context"

// StreamDownloader defines the interface for saving one remote stream to a
// local file
type StreamDownloader interface {
	// Download streams the first reachable of urls to destPath, trying
	// each mirror in order until one succeeds. It returns the number of
	// bytes written.
	Download(ctx context.Context, urls []string, destPath string) (int64, error)
}

// Muxer defines the interface for combining separate video and audio files
// into a single container
type Muxer interface {
	// Mux writes the combined file to outputPath without re-encoding
	Mux(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// FileChecker defines the interface for checking file existence
// This is used to skip downloads whose output already exists
type FileChecker interface {
	// Exists returns true if the file exists
	Exists(path string) bool
}
