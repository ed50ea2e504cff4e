package media

import (
	"encoding/json"
	"fmt"
)

// Descriptor is the DASH stream listing for a single video page, as
// returned by the playurl endpoint or embedded in the watch page
type Descriptor struct {
	Duration int              `json:"duration,omitempty"`
	Video    []Representation `json:"video"`
	Audio    []Representation `json:"audio"`
}

// Representation is one encoded variant of a stream.
// The playurl endpoint emits the URL fields under snake_case keys while
// the page-embedded playinfo uses camelCase, so both spellings are mapped
// and URL() returns whichever is populated.
type Representation struct {
	ID             int      `json:"id,omitempty"`
	BaseURL        string   `json:"base_url,omitempty"`
	BaseURLCamel   string   `json:"baseUrl,omitempty"`
	BackupURL      []string `json:"backup_url,omitempty"`
	BackupURLCamel []string `json:"backupUrl,omitempty"`
	Bandwidth      int      `json:"bandwidth,omitempty"`
	MimeType       string   `json:"mime_type,omitempty"`
	Codecs         string   `json:"codecs,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	FrameRate      string   `json:"frame_rate,omitempty"`
}

// URL returns the primary stream URL regardless of which key spelling the
// source used
func (r Representation) URL() string {
	if r.BaseURL != "" {
		return r.BaseURL
	}
	return r.BaseURLCamel
}

// CandidateURLs returns the primary URL followed by any backup mirrors,
// with duplicates removed
func (r Representation) CandidateURLs() []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	add(r.URL())
	for _, u := range r.BackupURL {
		add(u)
	}
	for _, u := range r.BackupURLCamel {
		add(u)
	}

	return urls
}

// Validate checks that the descriptor carries at least one video and one
// audio stream with a usable URL
func (d *Descriptor) Validate() error {
	if d == nil {
		return ErrNoDescriptor
	}
	if len(d.Video) == 0 {
		return ErrNoVideoStream
	}
	if len(d.Audio) == 0 {
		return ErrNoAudioStream
	}
	if d.Video[0].URL() == "" {
		return fmt.Errorf("video stream: %w", ErrMissingStreamURL)
	}
	if d.Audio[0].URL() == "" {
		return fmt.Errorf("audio stream: %w", ErrMissingStreamURL)
	}
	return nil
}

// FirstVideo returns the first listed video stream, which upstream orders
// highest quality first
func (d *Descriptor) FirstVideo() (Representation, error) {
	if len(d.Video) == 0 {
		return Representation{}, ErrNoVideoStream
	}
	return d.Video[0], nil
}

// FirstAudio returns the first listed audio stream
func (d *Descriptor) FirstAudio() (Representation, error) {
	if len(d.Audio) == 0 {
		return Representation{}, ErrNoAudioStream
	}
	return d.Audio[0], nil
}

// BestVideo returns the video stream with the highest declared bandwidth,
// falling back to the first entry when none declare one
func (d *Descriptor) BestVideo() (Representation, error) {
	return bestOf(d.Video, ErrNoVideoStream)
}

// BestAudio returns the audio stream with the highest declared bandwidth
func (d *Descriptor) BestAudio() (Representation, error) {
	return bestOf(d.Audio, ErrNoAudioStream)
}

func bestOf(reps []Representation, emptyErr error) (Representation, error) {
	if len(reps) == 0 {
		return Representation{}, emptyErr
	}

	best := reps[0]
	for _, r := range reps[1:] {
		if r.Bandwidth > best.Bandwidth {
			best = r
		}
	}
	return best, nil
}

// ParseDescriptor decodes a stream listing from raw JSON. It accepts the
// bare dash object as well as a full playurl response, so a saved API
// response can be passed in unmodified.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var bare Descriptor
	if err := json.Unmarshal(data, &bare); err == nil && len(bare.Video) > 0 {
		return &bare, nil
	}

	var wrapped struct {
		Dash *Descriptor `json:"dash"`
		Data struct {
			Dash *Descriptor `json:"dash"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor JSON: %w", err)
	}
	if wrapped.Data.Dash != nil && len(wrapped.Data.Dash.Video) > 0 {
		return wrapped.Data.Dash, nil
	}
	if wrapped.Dash != nil && len(wrapped.Dash.Video) > 0 {
		return wrapped.Dash, nil
	}

	return nil, ErrNoVideoStream
}
