package registry

import (
	"fmt"
	"testing"

	"tracktag-proxy/work/types"
)

func TestRegisterAndCurrent(t *testing.T) {
	r := New()

	if r.Current() != nil {
		t.Error("empty registry must report no current tracks")
	}
	if r.CurrentID() != "" {
		t.Error("empty registry must report no current ID")
	}

	tracks := []types.AudioTrack{
		{ID: "a", Language: "rus"},
		{ID: "b", Language: "rus"},
	}
	session := r.Register(tracks)

	if session.ID == "" {
		t.Fatal("session ID must not be empty")
	}
	if r.CurrentID() != session.ID {
		t.Errorf("CurrentID = %q, want %q", r.CurrentID(), session.ID)
	}

	current := r.Current()
	if len(current) != 2 {
		t.Fatalf("Current returned %d tracks, want 2", len(current))
	}
	// registration stamps disambiguated language tags
	if current[0].UniqueLang != "rus" || current[1].UniqueLang != "rus2" {
		t.Errorf("languages not uniquified: %q / %q", current[0].UniqueLang, current[1].UniqueLang)
	}

	// caller's slice must stay untouched
	if tracks[1].UniqueLang != "" {
		t.Error("Register mutated the caller's track slice")
	}
}

func TestLookup(t *testing.T) {
	r := New()
	first := r.Register([]types.AudioTrack{{ID: "old"}})
	second := r.Register([]types.AudioTrack{{ID: "new"}})

	if got := r.Lookup(first.ID); len(got) != 1 || got[0].ID != "old" {
		t.Errorf("Lookup(first) = %+v, want the old session", got)
	}
	if got := r.Lookup(second.ID); len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Lookup(second) = %+v, want the new session", got)
	}
	// empty and unknown IDs resolve to the current session
	if got := r.Lookup(""); len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Lookup(\"\") = %+v, want the current session", got)
	}
	if got := r.Lookup("nope"); len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Lookup(unknown) = %+v, want the current session", got)
	}
}

func TestEviction(t *testing.T) {
	r := New()

	var oldest string
	for i := 0; i < maxRetained+2; i++ {
		s := r.Register([]types.AudioTrack{{ID: fmt.Sprintf("t%d", i)}})
		if i == 0 {
			oldest = s.ID
		}
	}

	// the oldest session fell out of the retained window and resolves to the
	// current one
	if got := r.Lookup(oldest); len(got) != 1 || got[0].ID != fmt.Sprintf("t%d", maxRetained+1) {
		t.Errorf("evicted session Lookup = %+v, want fallback to current", got)
	}
}

func TestClear(t *testing.T) {
	r := New()
	s := r.Register([]types.AudioTrack{{ID: "a"}})

	gen := r.Generation()
	r.Clear()

	if r.Current() != nil || r.CurrentID() != "" {
		t.Error("Clear must drop the current session")
	}
	if got := r.Lookup(s.ID); got != nil {
		t.Errorf("Lookup after Clear = %+v, want nil", got)
	}
	if r.Generation() == gen {
		t.Error("Clear must advance the generation")
	}
}

func TestGenerationAdvancesPerRegister(t *testing.T) {
	r := New()
	g0 := r.Generation()
	r.Register(nil)
	g1 := r.Generation()
	r.Register(nil)
	g2 := r.Generation()

	if g0 == g1 || g1 == g2 {
		t.Errorf("generation did not advance: %d, %d, %d", g0, g1, g2)
	}
}
