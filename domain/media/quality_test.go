package media

import "testing"

func TestQualityLabel(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{Quality1080P60, "1080P 60fps"},
		{Quality1080P, "1080P"},
		{Quality720P, "720P"},
		{AudioQuality192K, "audio 192K"},
		{999, "quality 999"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := QualityLabel(tt.id); got != tt.want {
				t.Errorf("QualityLabel(%d) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
