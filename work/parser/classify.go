package parser

import (
	"strings"

	"github.com/grafov/m3u8"

	"tracktag-proxy/work/logger"
)

// PlaylistType classifies fetched playlist content.
type PlaylistType int

const (
	Unknown PlaylistType = iota // Not recognizable as an M3U8 playlist
	Master                      // Declares variant streams and/or alternate renditions
	Media                       // Lists media segments for one rendition/variant
)

// Classify determines whether playlist content is a master or a media
// playlist. It tries the grafov decoder first and falls back to a tag scan
// when decoding fails; real-world origins produce enough almost-valid
// playlists that the fallback path matters.
//
// The two checks are not mutually exclusive in principle, but master takes
// priority as a policy decision: segment references in media playlists are
// never rewritten, and track renaming only ever applies to masters.
func Classify(content string) PlaylistType {
	if _, listType, err := m3u8.DecodeFrom(strings.NewReader(content), true); err == nil {
		switch listType {
		case m3u8.MASTER:
			return Master
		case m3u8.MEDIA:
			return Media
		}
	} else {
		logger.Debug("{parser - Classify} grafov decode failed, using tag scan: %v", err)
	}

	if strings.Contains(content, "#EXT-X-STREAM-INF") || containsAudioMediaTag(content) {
		return Master
	}
	if strings.Contains(content, "#EXTINF:") {
		return Media
	}
	return Unknown
}

// containsAudioMediaTag reports whether any line of the content is an
// EXT-X-MEDIA tag declaring an audio rendition.
func containsAudioMediaTag(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if IsAudioMediaTag(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}
