package types

// AudioTrack is the content API's descriptor for one alternate audio track of
// an asset. The API returns these in its canonical presentation order; that
// order is the fallback match key when a playlist carries no explicit track
// numbering.
type AudioTrack struct {
	ID          string // Opaque API identifier
	GlobalIndex int    // 1-based display ordinal; 0 means unset and the list position is used instead
	Codec       string // Lower-case codec name ("aac", "ac3"); empty when unknown
	Language    string // ISO-ish 2/3 letter code; empty means undetermined
	AudioType   string // Human label such as "dubbed" or "multi-voice"
	Author      string // Studio or translator name
	UniqueLang  string // Synthetic per-session language tag assigned at registration, disambiguates same-language tracks in player UIs
}

// DisplayIndex returns the 1-based ordinal used for display numbering:
// the API-provided GlobalIndex when set, otherwise position+1 where position
// is the track's index within the session list.
func (t AudioTrack) DisplayIndex(position int) int {
	if t.GlobalIndex > 0 {
		return t.GlobalIndex
	}
	return position + 1
}

// Session is the audio-track set registered for one playback start. Only one
// session is active at a time; the ID lets manifest fetches that are still in
// flight when a new session begins resolve the track set they were issued
// under.
type Session struct {
	ID     string
	Tracks []AudioTrack
}
