package mediagroup

import (
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu     sync.Mutex
	albums []Album
}

func (c *collector) add(a Album) {
	c.mu.Lock()
	c.albums = append(c.albums, a)
	c.mu.Unlock()
}

func (c *collector) all() []Album {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Album(nil), c.albums...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAlbumFlushesOnceWithOrderedPhotos(t *testing.T) {
	col := &collector{}
	ag := New(Options{Debounce: 30 * time.Millisecond, OnFlush: col.add})

	ag.Add(Photo{ChatID: 7, UserID: 1, MediaGroupID: "g1", FileID: "f1"})
	ag.Add(Photo{ChatID: 7, UserID: 1, MediaGroupID: "g1", FileID: "f2", Caption: "/ad Tênis Esportivo Azul"})
	ag.Add(Photo{ChatID: 7, UserID: 1, MediaGroupID: "g1", FileID: "f3"})

	waitFor(t, "flush", func() bool { return len(col.all()) == 1 })

	album := col.all()[0]
	if album.ChatID != 7 || album.Caption != "/ad Tênis Esportivo Azul" {
		t.Fatalf("album: %+v", album)
	}
	if len(album.FileIDs) != 3 || album.FileIDs[0] != "f1" || album.FileIDs[2] != "f3" {
		t.Fatalf("file order: %v", album.FileIDs)
	}

	// No second flush later.
	time.Sleep(80 * time.Millisecond)
	if got := len(col.all()); got != 1 {
		t.Fatalf("flush count: want=1 got=%d", got)
	}
}

func TestEachPhotoReArmsTheTimer(t *testing.T) {
	col := &collector{}
	ag := New(Options{Debounce: 60 * time.Millisecond, OnFlush: col.add})

	ag.Add(Photo{ChatID: 1, UserID: 1, MediaGroupID: "g2", FileID: "f1"})
	time.Sleep(35 * time.Millisecond)
	if len(col.all()) != 0 {
		t.Fatalf("flushed before debounce elapsed")
	}
	ag.Add(Photo{ChatID: 1, UserID: 1, MediaGroupID: "g2", FileID: "f2"})
	time.Sleep(35 * time.Millisecond)
	if len(col.all()) != 0 {
		t.Fatalf("second photo must restart the window")
	}

	waitFor(t, "flush", func() bool { return len(col.all()) == 1 })
	if got := col.all()[0].FileIDs; len(got) != 2 {
		t.Fatalf("file ids: %v", got)
	}
}

func TestSeparateChatsDoNotMix(t *testing.T) {
	col := &collector{}
	ag := New(Options{Debounce: 20 * time.Millisecond, OnFlush: col.add})

	ag.Add(Photo{ChatID: 1, UserID: 1, MediaGroupID: "g", FileID: "a"})
	ag.Add(Photo{ChatID: 2, UserID: 2, MediaGroupID: "g", FileID: "b"})

	waitFor(t, "both flushes", func() bool { return len(col.all()) == 2 })

	for _, album := range col.all() {
		if len(album.FileIDs) != 1 {
			t.Fatalf("albums leaked across chats: %+v", col.all())
		}
	}
}

func TestIgnoresPhotosWithoutGroupOrFile(t *testing.T) {
	col := &collector{}
	ag := New(Options{Debounce: 15 * time.Millisecond, OnFlush: col.add})

	ag.Add(Photo{ChatID: 1, UserID: 1, MediaGroupID: "", FileID: "f"})
	ag.Add(Photo{ChatID: 1, UserID: 1, MediaGroupID: "g", FileID: ""})

	time.Sleep(60 * time.Millisecond)
	if got := len(col.all()); got != 0 {
		t.Fatalf("nothing should flush, got %d albums", got)
	}
}
