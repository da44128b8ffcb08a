// Package mediagroup collapses the burst of messages Telegram emits for one
// photo album into a single event. Albums arrive as separate messages sharing
// a MediaGroupID with no terminator, so completion can only be inferred from
// a debounce timer.
package mediagroup

import (
	"fmt"
	"sync"
	"time"
)

// Photo is one album message as the bot receives it.
type Photo struct {
	ChatID       int64
	UserID       int64
	Username     string
	MediaGroupID string
	Caption      string
	FileID       string
}

// Album is the flushed result. FileIDs keep arrival order; the first one is
// what the ad flow uses as the scene reference. The caption travels along
// because Telegram attaches it to only one of the album's messages.
type Album struct {
	ChatID   int64
	UserID   int64
	Username string
	Caption  string
	FileIDs  []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Album)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Album)
	pending  map[string]*pendingAlbum
}

type pendingAlbum struct {
	album Album
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pendingAlbum),
	}
}

// Add records one album photo and re-arms the flush timer. The album is
// delivered once no new photo has arrived for a full debounce window.
func (a *Aggregator) Add(photo Photo) {
	if photo.MediaGroupID == "" || photo.FileID == "" {
		return
	}

	key := makeKey(photo.ChatID, photo.MediaGroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	pa, ok := a.pending[key]
	if !ok {
		pa = &pendingAlbum{
			album: Album{
				ChatID:   photo.ChatID,
				UserID:   photo.UserID,
				Username: photo.Username,
				Caption:  photo.Caption,
				FileIDs:  []string{photo.FileID},
			},
		}
		a.pending[key] = pa
	} else {
		pa.album.FileIDs = append(pa.album.FileIDs, photo.FileID)
		if photo.Caption != "" {
			pa.album.Caption = photo.Caption
		}
	}

	if pa.timer != nil {
		pa.timer.Stop()
	}
	pa.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pa, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	album := pa.album
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(album)
	}
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
