package media

import "errors"

var (
	// ErrNoDescriptor is returned when no stream descriptor is provided
	ErrNoDescriptor = errors.New("stream descriptor is required")

	// ErrNoVideoStream is returned when the descriptor lists no video streams
	ErrNoVideoStream = errors.New("descriptor has no video streams")

	// ErrNoAudioStream is returned when the descriptor lists no audio streams
	ErrNoAudioStream = errors.New("descriptor has no audio streams")

	// ErrMissingStreamURL is returned when a stream entry carries no URL
	ErrMissingStreamURL = errors.New("stream has no base URL")

	// ErrNoIdentifier is returned when the output identifier is missing
	ErrNoIdentifier = errors.New("identifier is required")

	// ErrBadIdentifier is returned when the identifier cannot be used as a filename
	ErrBadIdentifier = errors.New("identifier must not contain path separators")

	// ErrBadBVID is returned when an input does not contain a valid BV id
	ErrBadBVID = errors.New("not a valid BV id")
)
