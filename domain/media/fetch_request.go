package media

import (
	"fmt"
	"strings"
)

// FetchRequest carries everything needed to retrieve one video: the two
// stream URLs chosen from a descriptor and the identifier the output file
// is named after
type FetchRequest struct {
	VideoURL   string
	AudioURL   string
	Identifier string

	// VideoMirrors and AudioMirrors list every candidate URL for each
	// selected stream, primary first. Mirror-aware fetchers fall back
	// through them; the helper script only ever sees the primary URLs.
	VideoMirrors []string
	AudioMirrors []string
}

// NewFetchRequest builds a FetchRequest from a descriptor, taking the
// first listed video and audio streams
func NewFetchRequest(d *Descriptor, identifier string) (*FetchRequest, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}

	video, err := d.FirstVideo()
	if err != nil {
		return nil, err
	}
	audio, err := d.FirstAudio()
	if err != nil {
		return nil, err
	}

	return &FetchRequest{
		VideoURL:     video.URL(),
		AudioURL:     audio.URL(),
		Identifier:   identifier,
		VideoMirrors: video.CandidateURLs(),
		AudioMirrors: audio.CandidateURLs(),
	}, nil
}

// NewBestFetchRequest builds a FetchRequest picking the highest-bandwidth
// video and audio streams instead of the first listed ones
func NewBestFetchRequest(d *Descriptor, identifier string) (*FetchRequest, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}

	video, err := d.BestVideo()
	if err != nil {
		return nil, err
	}
	audio, err := d.BestAudio()
	if err != nil {
		return nil, err
	}

	return &FetchRequest{
		VideoURL:     video.URL(),
		AudioURL:     audio.URL(),
		Identifier:   identifier,
		VideoMirrors: video.CandidateURLs(),
		AudioMirrors: audio.CandidateURLs(),
	}, nil
}

// Validate checks that the request is complete enough to hand off
func (r *FetchRequest) Validate() error {
	if r.VideoURL == "" {
		return fmt.Errorf("video stream: %w", ErrMissingStreamURL)
	}
	if r.AudioURL == "" {
		return fmt.Errorf("audio stream: %w", ErrMissingStreamURL)
	}
	return validateIdentifier(r.Identifier)
}

// OutputFilename returns the filename the finished download is saved as
func (r *FetchRequest) OutputFilename() string {
	return r.Identifier + ".mp4"
}

// The identifier becomes both an argv element and the output filename, so
// it must not be empty or carry path separators
func validateIdentifier(id string) error {
	if id == "" {
		return ErrNoIdentifier
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return ErrBadIdentifier
	}
	return nil
}
