package media

import (
	"fmt"
	"regexp"
	"strings"
)

// bvidPattern matches the BV-prefixed base58 id assigned to every video.
// The alphabet excludes 0, I, O and l.
var bvidPattern = regexp.MustCompile(`BV[1-9A-HJ-NP-Za-km-z]{10}`)

// ParseBVID extracts a BV id from raw user input, which may be the bare id
// or a full video page URL
func ParseBVID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrNoIdentifier
	}

	m := bvidPattern.FindString(s)
	if m == "" {
		return "", fmt.Errorf("%w: %q", ErrBadBVID, input)
	}

	// A bare id with trailing garbage is more likely a typo than a URL
	if !strings.Contains(s, "/") && s != m {
		return "", fmt.Errorf("%w: %q", ErrBadBVID, input)
	}

	return m, nil
}

// WatchURL returns the public watch page URL for a BV id
func WatchURL(bvid string) string {
	return "https://www.bilibili.com/video/" + bvid
}
