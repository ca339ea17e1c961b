package suggest

import "strings"

// PlatformCompatible reports whether an entry with the given platform
// mask is usable on the requesting platform. An absent request platform
// applies no filter, an empty mask means "runs anywhere", and a mask
// carrying the "others" token opts in to every platform. Otherwise the
// request platform must appear in the comma-joined mask,
// case-insensitively.
func PlatformCompatible(mask, platform string) bool {
	if platform == "" || mask == "" {
		return true
	}

	mask = strings.ToLower(mask)
	if strings.Contains(mask, "others") {
		return true
	}
	return strings.Contains(mask, strings.ToLower(platform))
}
