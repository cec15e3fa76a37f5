package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"tracktag-proxy/work/enrich"
	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/types"
)

// maxRetained bounds how many past sessions stay resolvable by ID. A handful
// is enough to cover sub-playlist fetches still in flight when playback of a
// new asset begins.
const maxRetained = 4

// Registry holds the audio-track metadata for the asset currently being
// played. It is the only mutable state shared between the playback flow and
// concurrent manifest fetches: a single current slot guarded by a mutex,
// plus a small by-ID map so fetches issued under an earlier session still
// observe the track set they were registered with.
type Registry struct {
	mu      sync.RWMutex
	current *types.Session
	recent  []string // session IDs in registration order, oldest first

	sessions *xsync.MapOf[string, *types.Session]
	seq      atomic.Uint64
	gen      atomic.Uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		sessions: xsync.NewMapOf[string, *types.Session](),
	}
}

// Register replaces the current session wholesale with the given track list
// and returns the new session. Tracks are stamped with uniquified language
// tags so same-language tracks stay distinguishable in the player's UI.
func (r *Registry) Register(tracks []types.AudioTrack) *types.Session {
	copied := make([]types.AudioTrack, len(tracks))
	copy(copied, tracks)
	enrich.UniquifyLanguages(copied)

	session := &types.Session{
		ID:     fmt.Sprintf("%d-%d", r.seq.Add(1), time.Now().UnixNano()),
		Tracks: copied,
	}

	r.mu.Lock()
	r.current = session
	r.recent = append(r.recent, session.ID)
	var evicted []string
	if len(r.recent) > maxRetained {
		evicted = r.recent[:len(r.recent)-maxRetained]
		r.recent = r.recent[len(r.recent)-maxRetained:]
	}
	r.mu.Unlock()

	r.sessions.Store(session.ID, session)
	for _, id := range evicted {
		r.sessions.Delete(id)
	}
	r.gen.Add(1)

	logger.Debug("{registry - Register} registered session %s with %d tracks", session.ID, len(copied))
	return session
}

// Current returns a copy of the current session's track list; nil when no
// session is registered.
func (r *Registry) Current() []types.AudioTrack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil
	}
	return copyTracks(r.current.Tracks)
}

// Lookup resolves a track list by session ID, falling back to the current
// session for empty or unknown IDs.
func (r *Registry) Lookup(sessionID string) []types.AudioTrack {
	if sessionID != "" {
		if session, ok := r.sessions.Load(sessionID); ok {
			return copyTracks(session.Tracks)
		}
	}
	return r.Current()
}

// Clear drops all session state. Called when playback ends or the player is
// dismissed.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.current = nil
	r.recent = nil
	r.mu.Unlock()

	r.sessions.Range(func(id string, _ *types.Session) bool {
		r.sessions.Delete(id)
		return true
	})
	r.gen.Add(1)

	logger.Debug("{registry - Clear} cleared all sessions")
}

// CurrentID returns the active session's ID, or "".
func (r *Registry) CurrentID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ""
	}
	return r.current.ID
}

// Generation increments on every Register and Clear; the rewrite cache keys
// on it so stale enrichments never outlive a session change.
func (r *Registry) Generation() uint64 {
	return r.gen.Load()
}

func copyTracks(tracks []types.AudioTrack) []types.AudioTrack {
	out := make([]types.AudioTrack, len(tracks))
	copy(out, tracks)
	return out
}
