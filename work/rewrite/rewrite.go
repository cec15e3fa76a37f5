package rewrite

import (
	"net/url"
	"strings"

	"tracktag-proxy/work/enrich"
	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/match"
	"tracktag-proxy/work/parser"
	"tracktag-proxy/work/types"
)

// Rewrite transforms a fetched manifest before it is returned to the player.
//
// Every playlist, master or media, gets its nested playlist references
// resolved against baseURL and redirected through the proxy. Master playlists
// additionally get their audio rendition NAME/LANGUAGE attributes replaced
// with enriched values when a registered track set is available.
//
// The function never fails: a line that cannot be parsed or matched is
// forwarded unchanged and the rest of the manifest is still processed. The
// worst outcome is a manifest with proxied URLs and original names, and
// playback always proceeds.
func Rewrite(content string, baseURL string, tracks []types.AudioTrack, proxyURL ProxyURLFunc) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		logger.Warn("{rewrite - Rewrite} unparsable base URL %q: %v", baseURL, err)
		return content
	}

	playlistType := parser.Classify(content)

	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}

	if playlistType == parser.Master && len(tracks) > 0 {
		renameAudioRenditions(lines, tracks)
	}

	rewriteReferences(lines, base, proxyURL)

	return strings.Join(lines, "\n")
}

// renameAudioRenditions applies the matcher and enricher over the master
// playlist's audio renditions, replacing NAME and LANGUAGE in place on lines
// whose enriched name is materially different. Each replacement is computed
// as a pure function of the original line, never by mutating a shared buffer.
func renameAudioRenditions(lines []string, tracks []types.AudioTrack) {
	renditions := parser.ExtractAudioRenditions(lines)
	if len(renditions) == 0 {
		return
	}

	pairs := match.Match(renditions, tracks)
	logger.Debug("{rewrite - renameAudioRenditions} matched %d/%d renditions against %d tracks",
		len(pairs), len(renditions), len(tracks))

	for _, pair := range pairs {
		displayIndex := pair.Track.DisplayIndex(pair.TrackPos)
		newName := enrich.BuildName(pair.Track, pair.Rendition, displayIndex)
		if newName == "" || newName == pair.Rendition.Name {
			continue
		}

		values := map[string]string{"NAME": newName}
		if pair.Rendition.Tag.Has("LANGUAGE") {
			if lang := enrich.UniqueLanguageFor(pair); lang != "" {
				values["LANGUAGE"] = lang
			}
		}

		lines[pair.Rendition.LineIndex] = pair.Rendition.Tag.ReplaceAttributes(values)
	}
}

// rewriteReferences redirects every nested playlist reference through the
// proxy: bare URL lines ending in .m3u8 and URI attributes of EXT-X-MEDIA
// tags. Media segment references are left untouched.
func rewriteReferences(lines []string, base *url.URL, proxyURL ProxyURLFunc) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			if strings.HasPrefix(trimmed, "#EXT-X-MEDIA:") {
				lines[i] = rewriteMediaTagURI(line, base, proxyURL)
			}
			continue
		}

		if rewritten := proxyRef(trimmed, base, proxyURL); rewritten != trimmed {
			lines[i] = rewritten
		}
	}
}

// rewriteMediaTagURI proxies the URI attribute of an EXT-X-MEDIA tag when it
// references a playlist. The tag is re-parsed here because an earlier rename
// pass may have changed the line.
func rewriteMediaTagURI(line string, base *url.URL, proxyURL ProxyURLFunc) string {
	tag := parser.ParseTag(line)
	uri := tag.Get("URI")
	if uri == "" {
		return line
	}
	rewritten := proxyRef(uri, base, proxyURL)
	if rewritten == uri {
		return line
	}
	return tag.ReplaceAttributes(map[string]string{"URI": rewritten})
}
