package session

import (
	"testing"
	"time"

	"motion-typo-studio/internal/ad"
	"motion-typo-studio/internal/flow"
)

func TestGetCreatesOncePerID(t *testing.T) {
	built := 0
	store := NewStore(Options{
		TTL: time.Minute,
		NewPipeline: func(s *Session) (*ad.Creator, *flow.Controller) {
			built++
			creator := ad.NewCreator(ad.Options{})
			return creator, flow.NewController(flow.Options{Generator: creator, Keys: s})
		},
	})

	first := store.Get("sess-a")
	second := store.Get("sess-a")
	if first != second {
		t.Fatalf("same id must return the same session")
	}
	if built != 1 {
		t.Fatalf("pipeline factory calls: want=1 got=%d", built)
	}
	if first.Controller() == nil || first.Creator() == nil {
		t.Fatalf("session must carry its pipeline")
	}

	other := store.Get("sess-b")
	if other == first {
		t.Fatalf("distinct ids must not share sessions")
	}
	if built != 2 {
		t.Fatalf("pipeline factory calls: want=2 got=%d", built)
	}
}

func TestKeySelection(t *testing.T) {
	store := NewStore(Options{TTL: time.Minute})

	sess := store.Get("sess-a")
	if sess.Selected() {
		t.Fatalf("no env key and no session key: must not be selected")
	}

	sess.SetKey("  AIza-session  ")
	if !sess.Selected() || sess.APIKey() != "AIza-session" {
		t.Fatalf("session key: selected=%v key=%q", sess.Selected(), sess.APIKey())
	}

	sess.SetKey("")
	if sess.Selected() {
		t.Fatalf("clearing the key must deselect")
	}
}

func TestEnvKeyIsSharedFallback(t *testing.T) {
	store := NewStore(Options{TTL: time.Minute, EnvKey: "AIza-env"})

	sess := store.Get("sess-a")
	if !sess.Selected() || sess.APIKey() != "AIza-env" {
		t.Fatalf("env fallback: selected=%v key=%q", sess.Selected(), sess.APIKey())
	}

	sess.SetKey("AIza-own")
	if sess.APIKey() != "AIza-own" {
		t.Fatalf("session key must win over the env key")
	}
}

func TestSessionsExpireAndRefresh(t *testing.T) {
	store := NewStore(Options{TTL: 80 * time.Millisecond})

	sess := store.Get("sess-a")
	sess.SetKey("AIza")

	// Touching inside the TTL keeps the session alive past its original
	// deadline.
	time.Sleep(50 * time.Millisecond)
	if again := store.Get("sess-a"); again != sess {
		t.Fatalf("session expired despite being touched")
	}
	time.Sleep(50 * time.Millisecond)
	if again := store.Get("sess-a"); again != sess {
		t.Fatalf("refresh must extend the deadline")
	}

	time.Sleep(120 * time.Millisecond)
	if _, ok := store.Peek("sess-a"); ok {
		t.Fatalf("untouched session must expire")
	}

	fresh := store.Get("sess-a")
	if fresh == sess {
		t.Fatalf("expired id must produce a fresh session")
	}
	if fresh.Selected() {
		t.Fatalf("fresh session must not inherit the old key")
	}
}
