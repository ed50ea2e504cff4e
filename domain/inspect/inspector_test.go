package inspect

import "testing"

func TestReport_Playable(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   bool
	}{
		{
			name: "decoded frames with dimensions",
			report: Report{
				Width:         1920,
				Height:        1080,
				FPS:           29.97,
				FrameCount:    6390,
				SampledFrames: 5,
				DecodedFrames: 5,
			},
			want: true,
		},
		{
			name: "nothing decoded",
			report: Report{
				Width:         1920,
				Height:        1080,
				SampledFrames: 5,
				DecodedFrames: 0,
			},
			want: false,
		},
		{
			name: "no dimensions",
			report: Report{
				SampledFrames: 5,
				DecodedFrames: 5,
			},
			want: false,
		},
		{
			name:   "zero report",
			report: Report{},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Playable(); got != tt.want {
				t.Errorf("Playable() = %v, want %v", got, tt.want)
			}
		})
	}
}
