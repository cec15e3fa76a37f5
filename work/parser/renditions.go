package parser

import (
	"strings"

	"tracktag-proxy/work/logger"
)

// AudioRendition is one #EXT-X-MEDIA:TYPE=AUDIO declaration extracted from a
// master playlist. It keeps the parsed tag so NAME/LANGUAGE replacements can
// reuse the recorded attribute byte ranges.
type AudioRendition struct {
	LineIndex  int    // Index of the line within the playlist
	Name       string // Current NAME attribute value
	Language   string // LANGUAGE attribute, lower-cased; empty when absent
	Channels   string // CHANNELS attribute; empty when absent
	GroupID    string // GROUP-ID attribute; empty when absent
	URI        string // URI attribute; empty when absent
	Default    bool   // DEFAULT=YES
	Autoselect bool   // AUTOSELECT=YES
	Tag        Tag    // Parsed tag with attribute source ranges
}

// IsAudioMediaTag reports whether a trimmed playlist line declares an audio
// rendition.
func IsAudioMediaTag(line string) bool {
	if !strings.HasPrefix(line, "#EXT-X-MEDIA:") {
		return false
	}
	return strings.ToUpper(ParseTag(line).Get("TYPE")) == "AUDIO"
}

// ExtractAudioRenditions collects the audio renditions declared in the given
// playlist lines, in declaration order. Renditions without a NAME attribute
// are skipped rather than failing the whole extraction; a single malformed
// line must never block a rewrite.
func ExtractAudioRenditions(lines []string) []AudioRendition {
	var renditions []AudioRendition

	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if !strings.HasPrefix(line, "#EXT-X-MEDIA:") {
			continue
		}

		tag := ParseTag(line)
		if !strings.EqualFold(tag.Get("TYPE"), "AUDIO") {
			continue
		}
		if !tag.Has("NAME") {
			logger.Debug("{parser - ExtractAudioRenditions} skipping audio rendition without NAME at line %d", i+1)
			continue
		}

		renditions = append(renditions, AudioRendition{
			LineIndex:  i,
			Name:       tag.Get("NAME"),
			Language:   strings.ToLower(tag.Get("LANGUAGE")),
			Channels:   tag.Get("CHANNELS"),
			GroupID:    tag.Get("GROUP-ID"),
			URI:        tag.Get("URI"),
			Default:    strings.EqualFold(tag.Get("DEFAULT"), "YES"),
			Autoselect: strings.EqualFold(tag.Get("AUTOSELECT"), "YES"),
			Tag:        tag,
		})
	}

	return renditions
}
