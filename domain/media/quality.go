package media

import "fmt"

// Video quality codes used by the playurl endpoint. Streams above 480P
// require a logged-in session cookie.
const (
	Quality8K      = 127
	Quality4K      = 120
	Quality1080P60 = 116
	Quality1080P   = 80
	Quality720P    = 64
	Quality480P    = 32
	Quality360P    = 16
)

// Audio quality codes used by the playurl endpoint
const (
	AudioQuality64K  = 30216
	AudioQuality132K = 30232
	AudioQuality192K = 30280
)

var qualityLabels = map[int]string{
	Quality8K:        "8K",
	Quality4K:        "4K",
	Quality1080P60:   "1080P 60fps",
	Quality1080P:     "1080P",
	Quality720P:      "720P",
	Quality480P:      "480P",
	Quality360P:      "360P",
	AudioQuality64K:  "audio 64K",
	AudioQuality132K: "audio 132K",
	AudioQuality192K: "audio 192K",
}

// QualityLabel returns a human-readable name for a stream quality code
func QualityLabel(id int) string {
	if label, ok := qualityLabels[id]; ok {
		return label
	}
	return fmt.Sprintf("quality %d", id)
}
