package media

import (
	"errors"
	"testing"
)

func testDescriptor() *Descriptor {
	return &Descriptor{
		Duration: 213,
		Video: []Representation{
			{ID: 80, BaseURL: "https://cdn.example.com/video-80.m4s", Bandwidth: 2_000_000},
			{ID: 116, BaseURL: "https://cdn.example.com/video-116.m4s", Bandwidth: 3_500_000},
		},
		Audio: []Representation{
			{ID: 30232, BaseURL: "https://cdn.example.com/audio-30232.m4s", Bandwidth: 132_000},
			{ID: 30280, BaseURL: "https://cdn.example.com/audio-30280.m4s", Bandwidth: 192_000},
		},
	}
}

func TestNewFetchRequest(t *testing.T) {
	tests := []struct {
		name       string
		descriptor *Descriptor
		identifier string
		wantVideo  string
		wantAudio  string
		wantErr    error
	}{
		{
			name:       "takes first listed streams",
			descriptor: testDescriptor(),
			identifier: "BV1xz421B7ku",
			wantVideo:  "https://cdn.example.com/video-80.m4s",
			wantAudio:  "https://cdn.example.com/audio-30232.m4s",
		},
		{
			name:       "nil descriptor",
			descriptor: nil,
			identifier: "BV1xz421B7ku",
			wantErr:    ErrNoDescriptor,
		},
		{
			name: "descriptor without audio",
			descriptor: &Descriptor{
				Video: []Representation{{BaseURL: "https://cdn.example.com/v.m4s"}},
			},
			identifier: "BV1xz421B7ku",
			wantErr:    ErrNoAudioStream,
		},
		{
			name: "descriptor without video",
			descriptor: &Descriptor{
				Audio: []Representation{{BaseURL: "https://cdn.example.com/a.m4s"}},
			},
			identifier: "BV1xz421B7ku",
			wantErr:    ErrNoVideoStream,
		},
		{
			name:       "empty identifier",
			descriptor: testDescriptor(),
			identifier: "",
			wantErr:    ErrNoIdentifier,
		},
		{
			name:       "identifier with path separator",
			descriptor: testDescriptor(),
			identifier: "../escape",
			wantErr:    ErrBadIdentifier,
		},
		{
			name:       "identifier with backslash",
			descriptor: testDescriptor(),
			identifier: `dir\file`,
			wantErr:    ErrBadIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewFetchRequest(tt.descriptor, tt.identifier)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewFetchRequest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("NewFetchRequest() unexpected error: %v", err)
				return
			}

			if got.VideoURL != tt.wantVideo {
				t.Errorf("NewFetchRequest() VideoURL = %q, want %q", got.VideoURL, tt.wantVideo)
			}
			if got.AudioURL != tt.wantAudio {
				t.Errorf("NewFetchRequest() AudioURL = %q, want %q", got.AudioURL, tt.wantAudio)
			}
			if got.Identifier != tt.identifier {
				t.Errorf("NewFetchRequest() Identifier = %q, want %q", got.Identifier, tt.identifier)
			}
		})
	}
}

func TestNewFetchRequest_CarriesMirrors(t *testing.T) {
	d := testDescriptor()
	d.Video[0].BackupURL = []string{"https://mirror.example.com/video-80.m4s"}
	d.Audio[0].BackupURL = []string{"https://mirror.example.com/audio-30232.m4s"}

	got, err := NewFetchRequest(d, "BV1xz421B7ku")
	if err != nil {
		t.Fatalf("NewFetchRequest() unexpected error: %v", err)
	}

	if len(got.VideoMirrors) != 2 {
		t.Fatalf("NewFetchRequest() VideoMirrors = %v, want primary plus one mirror", got.VideoMirrors)
	}
	if got.VideoMirrors[0] != got.VideoURL {
		t.Errorf("NewFetchRequest() VideoMirrors[0] = %q, want primary URL %q", got.VideoMirrors[0], got.VideoURL)
	}
	if got.VideoMirrors[1] != "https://mirror.example.com/video-80.m4s" {
		t.Errorf("NewFetchRequest() VideoMirrors[1] = %q, want backup mirror", got.VideoMirrors[1])
	}
	if len(got.AudioMirrors) != 2 || got.AudioMirrors[0] != got.AudioURL {
		t.Errorf("NewFetchRequest() AudioMirrors = %v, want primary first", got.AudioMirrors)
	}
}

func TestNewBestFetchRequest(t *testing.T) {
	got, err := NewBestFetchRequest(testDescriptor(), "BV1xz421B7ku")
	if err != nil {
		t.Fatalf("NewBestFetchRequest() unexpected error: %v", err)
	}

	if got.VideoURL != "https://cdn.example.com/video-116.m4s" {
		t.Errorf("NewBestFetchRequest() VideoURL = %q, want highest bandwidth video", got.VideoURL)
	}
	if got.AudioURL != "https://cdn.example.com/audio-30280.m4s" {
		t.Errorf("NewBestFetchRequest() AudioURL = %q, want highest bandwidth audio", got.AudioURL)
	}
}

func TestFetchRequest_Validate(t *testing.T) {
	valid := FetchRequest{
		VideoURL:   "https://cdn.example.com/v.m4s",
		AudioURL:   "https://cdn.example.com/a.m4s",
		Identifier: "BV1xz421B7ku",
	}

	tests := []struct {
		name    string
		modify  func(*FetchRequest)
		wantErr error
	}{
		{
			name:    "valid request",
			modify:  func(r *FetchRequest) {},
			wantErr: nil,
		},
		{
			name:    "missing video URL",
			modify:  func(r *FetchRequest) { r.VideoURL = "" },
			wantErr: ErrMissingStreamURL,
		},
		{
			name:    "missing audio URL",
			modify:  func(r *FetchRequest) { r.AudioURL = "" },
			wantErr: ErrMissingStreamURL,
		},
		{
			name:    "missing identifier",
			modify:  func(r *FetchRequest) { r.Identifier = "" },
			wantErr: ErrNoIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid // Copy
			tt.modify(&req)
			err := req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchRequest_OutputFilename(t *testing.T) {
	req := &FetchRequest{Identifier: "BV1xz421B7ku"}

	want := "BV1xz421B7ku.mp4"
	if got := req.OutputFilename(); got != want {
		t.Errorf("FetchRequest.OutputFilename() = %q, want %q", got, want)
	}
}
