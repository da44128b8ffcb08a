// Package session holds the per-browser state of the web studio: the
// selected API key and the generation pipeline bound to that browser, kept
// behind the session cookie in a TTL cache.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"motion-typo-studio/internal/ad"
	"motion-typo-studio/internal/flow"
)

// Session is what one browser owns. It satisfies both the provider's
// Credentials and the controller's KeyProvider, so the same object answers
// "which key" and "is a key selected".
type Session struct {
	ID string

	mu     sync.Mutex
	apiKey string
	envKey string

	creator    *ad.Creator
	controller *flow.Controller
}

// APIKey resolves the key for the next provider call: the session's own key
// wins, the environment key is the shared fallback.
func (s *Session) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apiKey != "" {
		return s.apiKey
	}
	return s.envKey
}

// Selected reports whether a usable key exists at all.
func (s *Session) Selected() bool {
	return s.APIKey() != ""
}

// SetKey stores the key chosen in the key dialog. An empty value clears the
// selection back to the environment fallback.
func (s *Session) SetKey(key string) {
	s.mu.Lock()
	s.apiKey = strings.TrimSpace(key)
	s.mu.Unlock()
}

// Creator is this session's generation client, already wired to its key.
func (s *Session) Creator() *ad.Creator {
	return s.creator
}

// Controller is the view-state controller driving this session's flow.
func (s *Session) Controller() *flow.Controller {
	return s.controller
}

type Options struct {
	// TTL is how long an untouched session survives.
	TTL time.Duration
	// EnvKey is the shared fallback API key; empty means every browser must
	// select its own.
	EnvKey string
	// NewPipeline builds the per-session generation stack on first touch.
	// The session itself is handed in so it can serve as the credential
	// source.
	NewPipeline func(s *Session) (*ad.Creator, *flow.Controller)
}

// Store maps session cookie values to live sessions. Expired entries are
// dropped by the cache janitor; every Get refreshes the clock.
type Store struct {
	mu          sync.Mutex
	ttl         time.Duration
	cache       *cache.Cache
	envKey      string
	newPipeline func(s *Session) (*ad.Creator, *flow.Controller)
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &Store{
		ttl:         ttl,
		cache:       cache.New(ttl, ttl/2),
		envKey:      strings.TrimSpace(opts.EnvKey),
		newPipeline: opts.NewPipeline,
	}
}

// Get returns the session for an id, creating it on first touch. Touching a
// session resets its expiry, so an active browser never loses its state
// mid-generation.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache.Get(id); ok {
		sess := cached.(*Session)
		s.cache.Set(id, sess, cache.DefaultExpiration)
		return sess
	}

	sess := &Session{ID: id, envKey: s.envKey}
	if s.newPipeline != nil {
		sess.creator, sess.controller = s.newPipeline(sess)
	}
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess
}

// Peek looks a session up without creating or refreshing it.
func (s *Store) Peek(id string) (*Session, bool) {
	cached, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return cached.(*Session), true
}

// Len counts live sessions, expired ones included until the janitor runs.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
