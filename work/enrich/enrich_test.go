package enrich

import (
	"testing"

	"tracktag-proxy/work/match"
	"tracktag-proxy/work/parser"
	"tracktag-proxy/work/types"
)

func TestBuildName(t *testing.T) {
	tests := []struct {
		name      string
		track     types.AudioTrack
		rendition parser.AudioRendition
		index     int
		want      string
	}{
		{
			name:  "author and type",
			track: types.AudioTrack{Author: "LostFilm", AudioType: "Dubbed"},
			index: 1,
			want:  "01. LostFilm (dubbed)",
		},
		{
			name:  "author only",
			track: types.AudioTrack{Author: "HDRezka Studio"},
			index: 2,
			want:  "02. HDRezka Studio",
		},
		{
			name:  "type only",
			track: types.AudioTrack{AudioType: "Original"},
			index: 3,
			want:  "03. Original",
		},
		{
			name:      "label recovered from numbered rendition name",
			track:     types.AudioTrack{Language: "ru"},
			rendition: parser.AudioRendition{Name: "2. Оригинал (ENG)"},
			index:     2,
			want:      "02. Оригинал",
		},
		{
			name:      "label recovered from plain rendition name",
			track:     types.AudioTrack{},
			rendition: parser.AudioRendition{Name: "Дубляж (RUS)"},
			index:     1,
			want:      "01. Дубляж",
		},
		{
			name:      "placeholder rendition name falls back to language",
			track:     types.AudioTrack{Language: "ru"},
			rendition: parser.AudioRendition{Name: "Track 1"},
			index:     1,
			want:      "01. Russian",
		},
		{
			name:      "default rendition gets marked",
			track:     types.AudioTrack{Language: "en"},
			rendition: parser.AudioRendition{Name: "Audio 2", Default: true},
			index:     2,
			want:      "02. English (Default)",
		},
		{
			name:      "nothing usable degrades to ordinal",
			track:     types.AudioTrack{},
			rendition: parser.AudioRendition{Name: "Track 3"},
			index:     3,
			want:      "Audio 3",
		},
		{
			name:  "descriptor codec appended",
			track: types.AudioTrack{Author: "Jaskier", AudioType: "Multi", Codec: "ac3"},
			index: 1,
			want:  "01. Jaskier (multi) (AC3)",
		},
		{
			name:  "aac codec suppressed",
			track: types.AudioTrack{Author: "Jaskier", Codec: "aac"},
			index: 1,
			want:  "01. Jaskier",
		},
		{
			name:      "six channels presumed ac3",
			track:     types.AudioTrack{Author: "Original"},
			rendition: parser.AudioRendition{Name: "Surround", Channels: "6/JOC"},
			index:     1,
			want:      "01. Original (AC3)",
		},
		{
			name:      "codec guessed from rendition name",
			track:     types.AudioTrack{},
			rendition: parser.AudioRendition{Name: "Original EAC3 (ENG)"},
			index:     1,
			want:      "01. Original EAC3 (EAC3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildName(tt.track, tt.rendition, tt.index)
			if got != tt.want {
				t.Errorf("BuildName = %q, want %q", got, tt.want)
			}
			// pure function: a second call must reproduce the result
			if again := BuildName(tt.track, tt.rendition, tt.index); again != got {
				t.Errorf("BuildName not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestBuildNameStableOverOwnOutput(t *testing.T) {
	track := types.AudioTrack{Language: "ru"}
	rendition := parser.AudioRendition{Name: "LostFilm (RUS)", Language: "rus"}

	first := BuildName(track, rendition, 1)

	// feed the produced name back in as the rendition's current NAME
	rendition.Name = first
	second := BuildName(track, rendition, 1)
	if first != second {
		t.Errorf("second pass changed the name: %q -> %q", first, second)
	}
}

func TestUniquifyLanguages(t *testing.T) {
	tracks := []types.AudioTrack{
		{ID: "a", Language: "rus"},
		{ID: "b", Language: "rus"},
		{ID: "c", Language: "ru"},
		{ID: "d", Language: "eng"},
		{ID: "e", Language: ""},
	}
	UniquifyLanguages(tracks)

	want := []string{"rus", "rus2", "ru3", "eng", "und"}
	for i, w := range want {
		if tracks[i].UniqueLang != w {
			t.Errorf("track %s UniqueLang = %q, want %q", tracks[i].ID, tracks[i].UniqueLang, w)
		}
	}
}

func TestUniqueLanguageFor(t *testing.T) {
	stamped := match.Pair{Track: types.AudioTrack{Language: "rus", UniqueLang: "rus2"}}
	if got := UniqueLanguageFor(stamped); got != "rus2" {
		t.Errorf("stamped pair = %q, want rus2", got)
	}

	first := match.Pair{Track: types.AudioTrack{Language: "rus"}, GroupPos: 0}
	if got := UniqueLanguageFor(first); got != "rus" {
		t.Errorf("first of group = %q, want rus", got)
	}

	second := match.Pair{Track: types.AudioTrack{Language: "rus"}, GroupPos: 1}
	if got := UniqueLanguageFor(second); got != "rus2" {
		t.Errorf("second of group = %q, want rus2", got)
	}
}

func TestLanguageDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ru", "Russian"},
		{"en", "English"},
		{"uk", "Ukrainian"},
		{"und", ""},
		{"", ""},
		{"??", ""},
	}
	for _, tt := range tests {
		if got := LanguageDisplayName(tt.in); got != tt.want {
			t.Errorf("LanguageDisplayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
