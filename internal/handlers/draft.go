package handlers

import (
	"sync"
	"time"

	"motion-typo-studio/internal/flow"
	"motion-typo-studio/internal/gemini"
)

// Draft is the ad material one chat has staged for its next /ad: a scene
// reference photo and optional style, typography and link overrides.
type Draft struct {
	Style      string
	Typography string
	Link       string
	Reference  *gemini.Blob
	// Frames is how many photos the album that produced Reference carried;
	// 1 for a single photo, 0 when there is no reference.
	Frames    int
	UpdatedAt time.Time
}

type draftKey struct {
	ChatID int64
	UserID int64
}

// draftStore keeps drafts and controllers per chat/user pair. Drafts are
// wiped by /cancelar; controllers live for the process lifetime because a
// generation may be in flight when the draft is cleared.
type draftStore struct {
	mu            sync.Mutex
	drafts        map[draftKey]*Draft
	controllers   map[draftKey]*flow.Controller
	newController func() *flow.Controller
}

func newDraftStore(newController func() *flow.Controller) *draftStore {
	return &draftStore{
		drafts:        make(map[draftKey]*Draft),
		controllers:   make(map[draftKey]*flow.Controller),
		newController: newController,
	}
}

func (s *draftStore) Get(chatID, userID int64) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

func (s *draftStore) Update(chatID, userID int64, fn func(*Draft)) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(draft)
	}
	draft.UpdatedAt = time.Now()
	return *draft
}

func (s *draftStore) Clear(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, draftKey{ChatID: chatID, UserID: userID})
}

// Controller returns the chat's controller, building it on first use.
func (s *draftStore) Controller(chatID, userID int64) *flow.Controller {
	key := draftKey{ChatID: chatID, UserID: userID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctrl, ok := s.controllers[key]; ok {
		return ctrl
	}
	ctrl := s.newController()
	s.controllers[key] = ctrl
	return ctrl
}

func (s *draftStore) getOrCreateLocked(chatID, userID int64) *Draft {
	key := draftKey{ChatID: chatID, UserID: userID}
	if draft, ok := s.drafts[key]; ok {
		return draft
	}
	draft := &Draft{}
	s.drafts[key] = draft
	return draft
}
