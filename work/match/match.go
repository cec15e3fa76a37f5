package match

import (
	"strconv"
	"strings"

	"github.com/grafana/regexp"

	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/parser"
	"tracktag-proxy/work/types"
)

// Pair binds one playlist audio rendition to the API track descriptor chosen
// for it, together with enough positional context for name building.
type Pair struct {
	Rendition parser.AudioRendition
	Track     types.AudioTrack
	TrackPos  int // Index of the track within the full session list
	GroupPos  int // Original position of the track within its language group
}

// numberedPrefix matches rendition names that already carry an explicit track
// number, e.g. "01. LostFilm (RUS)", "2 Original" or "3-Dub".
var numberedPrefix = regexp.MustCompile(`^(\d+)[.\s-]`)

// NormalizeLanguage collapses the language spellings seen in playlists and
// API metadata onto a single grouping key. The three-letter and two-letter
// forms of the common codes map together explicitly; anything else keeps its
// first two characters lower-cased. The undetermined code is "und".
func NormalizeLanguage(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	switch c {
	case "":
		return "und"
	case "ru", "rus":
		return "ru"
	case "en", "eng":
		return "en"
	case "uk", "ukr":
		return "uk"
	}
	if len(c) > 2 {
		return c[:2]
	}
	return c
}

// Match pairs playlist renditions with API track descriptors.
//
// Descriptors are first grouped by normalized language. Renditions whose
// current NAME starts with an explicit number N are paired with the N-th
// descriptor of the session when its language agrees, else with the N-th
// descriptor of their language group; that numbering is authoritative even
// when it disagrees with list order. Remaining renditions are paired
// positionally within their language group, wrapping around when the group
// runs out so no rendition is ever left without a deterministic partner.
// If language grouping yields nothing at all, renditions and descriptors are
// paired purely by index.
func Match(renditions []parser.AudioRendition, tracks []types.AudioTrack) []Pair {
	if len(renditions) == 0 || len(tracks) == 0 {
		return nil
	}

	// group track indices by normalized language, preserving API order
	groups := make(map[string][]int)
	for i, t := range tracks {
		lang := NormalizeLanguage(t.Language)
		groups[lang] = append(groups[lang], i)
	}

	used := make(map[int]bool, len(tracks))
	chosen := make(map[int]int, len(renditions)) // rendition index -> track index

	// numbered pass: the playlist's own numbering wins when present
	for ri, rend := range renditions {
		m := numberedPrefix.FindStringSubmatch(rend.Name)
		if m == nil {
			continue
		}
		n := parseSmallInt(m[1])
		lang := NormalizeLanguage(rend.Language)
		ti := resolveNumbered(n, lang, tracks, groups[lang], used)
		if ti < 0 {
			logger.Debug("{match - Match} numbered rendition %q resolves to no descriptor (%d in session)", rend.Name, len(tracks))
			continue
		}
		chosen[ri] = ti
		used[ti] = true
	}

	// positional pass: first unused descriptor of the same language, with a
	// wrap-around fallback when the group is exhausted
	seen := make(map[string]int)
	for ri, rend := range renditions {
		lang := NormalizeLanguage(rend.Language)
		seen[lang]++
		if _, ok := chosen[ri]; ok {
			continue
		}
		group := groups[lang]
		if len(group) == 0 {
			continue
		}

		ti := -1
		for _, candidate := range group {
			if !used[candidate] {
				ti = candidate
				break
			}
		}
		if ti < 0 {
			ti = group[(seen[lang]-1)%len(group)]
		}
		chosen[ri] = ti
		used[ti] = true
	}

	// global fallback: all language grouping failed, pair by index
	if len(chosen) == 0 {
		logger.Debug("{match - Match} language grouping produced no pairs, falling back to index matching")
		limit := len(renditions)
		if len(tracks) < limit {
			limit = len(tracks)
		}
		for i := 0; i < limit; i++ {
			chosen[i] = i
		}
	}

	pairs := make([]Pair, 0, len(chosen))
	for ri, rend := range renditions {
		ti, ok := chosen[ri]
		if !ok {
			continue
		}
		track := tracks[ti]
		pairs = append(pairs, Pair{
			Rendition: rend,
			Track:     track,
			TrackPos:  ti,
			GroupPos:  positionInGroup(groups[NormalizeLanguage(track.Language)], ti),
		})
	}
	return pairs
}

// resolveNumbered maps an explicit NAME prefix N onto a descriptor index.
// Enriched names number tracks by their position in the full session list,
// so the global reading of N is tried first, gated on the descriptor's
// language agreeing with the rendition's; origin playlists that number
// within a language group are covered by the group-relative reading. At
// each reading an unused descriptor wins over a used one so two numbered
// renditions never collapse onto the same descriptor. Returns -1 when N
// resolves under neither reading.
func resolveNumbered(n int, lang string, tracks []types.AudioTrack, group []int, used map[int]bool) int {
	global := -1
	if n >= 1 && n <= len(tracks) && NormalizeLanguage(tracks[n-1].Language) == lang {
		global = n - 1
	}
	grouped := -1
	if n >= 1 && n <= len(group) {
		grouped = group[n-1]
	}

	switch {
	case global >= 0 && !used[global]:
		return global
	case grouped >= 0 && !used[grouped]:
		return grouped
	case global >= 0:
		return global
	case grouped >= 0:
		return grouped
	}
	return -1
}

func positionInGroup(group []int, trackIndex int) int {
	for pos, ti := range group {
		if ti == trackIndex {
			return pos
		}
	}
	return 0
}

func parseSmallInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
