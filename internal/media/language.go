package media

import (
	"slices"
	"strings"
)

const (
	origMarker   = "-orig"
	fallbackLang = "en"
)

// SelectLanguage picks the subtitle language to download.
//
// With manual tracks available, a single track wins regardless of requested;
// otherwise requested is used. Without manual tracks, requested is kept when an
// automatic caption exists for it, else the first automatic code containing
// "-orig" is used, else "en". The "-orig" scan only runs when requested has no
// automatic track.
func SelectLanguage(manual, automatic []string, requested string) (lang string, useAutomatic bool) {
	switch {
	case len(manual) == 1:
		return manual[0], false
	case len(manual) > 1:
		return requested, false
	}

	if requested != "" && slices.Contains(automatic, requested) {
		return requested, true
	}
	for _, code := range automatic {
		if strings.Contains(code, origMarker) {
			return code, true
		}
	}
	return fallbackLang, true
}
