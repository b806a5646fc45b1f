package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"

	"github.com/polbb/annotations/internal/usecase/session"
)

const sessionCookie = "annotator_session"

// sessionStore keeps one pipeline session per browser, keyed by cookie.
// The mutex guards the map only; the pipeline itself is single-action
// synchronous and holds no shared state.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]session.Session)}
}

// get returns the session for the request's cookie, setting a fresh cookie
// if none exists. ok is false when the browser had no session yet.
func (s *sessionStore) get(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	id := s.ensureCookie(w, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// put stores the session under the request's cookie.
func (s *sessionStore) put(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id := s.ensureCookie(w, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) ensureCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Make the new cookie visible to later lookups within this request.
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})
	return id
}
