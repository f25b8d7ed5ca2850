package onvif

// SelectMainProfile returns the profile for the main stream: cameras list
// their highest quality profile first
func SelectMainProfile(profiles []MediaProfile) (MediaProfile, bool) {
	if len(profiles) == 0 {
		return MediaProfile{}, false
	}
	return profiles[0], true
}

// SelectSubProfile returns the first profile within the sub-stream
// resolution limits, or the last profile when none is
func SelectSubProfile(profiles []MediaProfile) (MediaProfile, bool) {
	if len(profiles) == 0 {
		return MediaProfile{}, false
	}
	for _, p := range profiles {
		if IsSubStream(p) {
			return p, true
		}
	}
	return profiles[len(profiles)-1], true
}

// IsSubStream checks if a profile fits the sub-stream resolution limits.
// A profile without a reported resolution counts as 0x0 and fits.
func IsSubStream(p MediaProfile) bool {
	if p.Video == nil {
		return true
	}
	return p.Video.Width <= SubStreamMaxWidth && p.Video.Height <= SubStreamMaxHeight
}

// SelectProfile picks the profile for quality
func SelectProfile(profiles []MediaProfile, quality StreamQuality) (MediaProfile, bool) {
	if quality == SubStream {
		return SelectSubProfile(profiles)
	}
	return SelectMainProfile(profiles)
}
