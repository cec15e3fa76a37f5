package enrich

import (
	"fmt"
	"strings"

	"github.com/grafana/regexp"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"tracktag-proxy/work/match"
	"tracktag-proxy/work/parser"
	"tracktag-proxy/work/types"
)

var (
	// numberedLabel and plainLabel recover a human label from a rendition's
	// pre-existing NAME when the API descriptor carries neither author nor
	// type: "2. Оригинал (ENG)" and "Оригинал (ENG)" respectively.
	numberedLabel = regexp.MustCompile(`^\d+[.\s-]\s*(.+?)\s*\(([A-Za-z]{2,3})\)\s*$`)
	plainLabel    = regexp.MustCompile(`^(.+?)\s*\(([A-Za-z]{2,3})\)\s*$`)

	// enrichedLabel matches names this proxy produced on an earlier pass, so
	// re-running the rewrite over its own output reproduces it byte for byte.
	enrichedLabel = regexp.MustCompile(`^\d+[.\s-]\s*(.+?)\s*$`)

	// codecSuffix strips a qualifier appended by an earlier pass; the codec
	// is re-derived and re-appended, which keeps the result stable.
	codecSuffix = regexp.MustCompile(`\s*\((?:AC3|EAC3)\)$`)

	// placeholderName rejects origin-generated labels that carry no
	// information worth preserving.
	placeholderName = regexp.MustCompile(`^(?i)(?:track|audio)\s*\d+$`)
)

// BuildName produces the replacement NAME for a matched rendition. The name
// always starts with a zero-padded display index; the descriptive part
// prefers the API descriptor's author and type, then a label recovered from
// the rendition's existing NAME, then the language's display name. A codec
// qualifier is appended last. The function is pure: identical inputs always
// yield the identical string.
func BuildName(track types.AudioTrack, rendition parser.AudioRendition, displayIndex int) string {
	base := fmt.Sprintf("%02d.", displayIndex)

	var desc string
	switch {
	case track.Author != "" && track.AudioType != "":
		desc = track.Author + " (" + strings.ToLower(track.AudioType) + ")"
	case track.Author != "":
		desc = track.Author
	case track.AudioType != "":
		desc = track.AudioType
	default:
		desc = recoverLabel(rendition.Name)
		if desc == "" {
			desc = LanguageDisplayName(pickLanguage(track, rendition))
			if desc != "" && rendition.Default {
				desc += " (Default)"
			}
		}
	}

	if desc == "" {
		return fmt.Sprintf("Audio %d", displayIndex)
	}

	name := base + " " + desc
	if codec := inferCodec(track, rendition); codec != "" {
		name += " (" + codec + ")"
	}
	return name
}

// UniquifyLanguages stamps each track with a language tag that is unique
// within the session: the first track of a language keeps its code, later
// ones get a numeric suffix ("rus", "rus2", "rus3"). The tag only feeds the
// player's language-based UI; the audio streams themselves are untouched.
func UniquifyLanguages(tracks []types.AudioTrack) {
	counts := make(map[string]int)
	for i := range tracks {
		code := strings.ToLower(tracks[i].Language)
		if code == "" {
			code = "und"
		}
		key := match.NormalizeLanguage(code)
		counts[key]++
		if counts[key] == 1 {
			tracks[i].UniqueLang = code
		} else {
			tracks[i].UniqueLang = fmt.Sprintf("%s%d", code, counts[key])
		}
	}
}

// UniqueLanguageFor returns the disambiguated language tag for a matched
// pair, falling back to a suffix derived from the track's position in its
// language group when the session was never stamped.
func UniqueLanguageFor(p match.Pair) string {
	if p.Track.UniqueLang != "" {
		return p.Track.UniqueLang
	}
	code := strings.ToLower(p.Track.Language)
	if code == "" {
		code = "und"
	}
	if p.GroupPos == 0 {
		return code
	}
	return fmt.Sprintf("%s%d", code, p.GroupPos+1)
}

// LanguageDisplayName renders a language code as its English display name
// ("ru" -> "Russian"). Undetermined or unparsable codes yield "".
func LanguageDisplayName(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" || c == "und" {
		return ""
	}
	tag, err := language.Parse(c)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(tag)
}

// recoverLabel pulls a usable human label out of an origin-provided NAME,
// rejecting generic "Track N"/"Audio N" placeholders.
func recoverLabel(name string) string {
	for _, re := range []*regexp.Regexp{numberedLabel, plainLabel, enrichedLabel} {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		text := codecSuffix.ReplaceAllString(strings.TrimSpace(m[1]), "")
		if text == "" || placeholderName.MatchString(text) {
			continue
		}
		return text
	}
	return ""
}

func pickLanguage(track types.AudioTrack, rendition parser.AudioRendition) string {
	if rendition.Language != "" {
		return rendition.Language
	}
	return track.Language
}

// inferCodec decides the codec qualifier for a rendition name. The API
// descriptor wins when it names a codec; AAC is suppressed everywhere since
// it is the implicit default. Without descriptor data the codec is guessed
// from the rendition's existing name text, then from its channel count:
// six-channel renditions are presumed AC3.
func inferCodec(track types.AudioTrack, rendition parser.AudioRendition) string {
	if c := strings.ToLower(strings.TrimSpace(track.Codec)); c != "" {
		if c == "aac" {
			return ""
		}
		return strings.ToUpper(c)
	}

	name := strings.ToLower(rendition.Name)
	switch {
	case strings.Contains(name, "eac3"), strings.Contains(name, "e-ac3"), strings.Contains(name, "e-ac-3"):
		return "EAC3"
	case strings.Contains(name, "ac3"), strings.Contains(name, "ac-3"):
		return "AC3"
	case strings.Contains(name, "aac"):
		return ""
	}

	if channels(rendition) == 6 {
		return "AC3"
	}
	return ""
}

// channels parses the leading channel count of a CHANNELS attribute, which
// may carry additional slash-separated parameters per RFC 8216.
func channels(rendition parser.AudioRendition) int {
	raw := rendition.Channels
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
