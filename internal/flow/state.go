package flow

import (
	"motion-typo-studio/internal/gemini"
)

// ViewState is the single lifecycle of the ad being generated. There is no
// separate "caption pending" state: the caption never gates the visuals.
type ViewState int

const (
	StateIdle ViewState = iota
	StateGeneratingImage
	StateGeneratingVideo
	StatePlaying
	StateError
)

func (s ViewState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGeneratingImage:
		return "generating_image"
	case StateGeneratingVideo:
		return "generating_video"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a generation sequence is in flight.
func (s ViewState) Busy() bool {
	return s == StateGeneratingImage || s == StateGeneratingVideo
}

// ScreenMode is which screen the interface shows. It changes independently of
// ViewState: navigating away does not cancel a run.
type ScreenMode int

const (
	ScreenGallery ScreenMode = iota
	ScreenCreate
	ScreenAuth
)

func (m ScreenMode) String() string {
	switch m {
	case ScreenGallery:
		return "gallery"
	case ScreenCreate:
		return "create"
	case ScreenAuth:
		return "auth"
	default:
		return "unknown"
	}
}

func ParseScreen(value string) (ScreenMode, bool) {
	switch value {
	case "gallery":
		return ScreenGallery, true
	case "create":
		return ScreenCreate, true
	case "auth":
		return ScreenAuth, true
	default:
		return ScreenGallery, false
	}
}

// Outcome is the synchronous answer to a submit attempt.
type Outcome int

const (
	OutcomeStarted Outcome = iota
	OutcomeBusy
	OutcomeEmptyText
	OutcomeNeedKey
)

// Route answers the main call-to-action: which screen to show and whether the
// key-selection dialog must open instead of navigating.
type Route struct {
	Screen        ScreenMode
	OpenKeyDialog bool
}

// Snapshot is the consumer-facing view of the controller, cheap enough to
// poll: asset bytes stay out, only locally served URLs travel.
type Snapshot struct {
	State    ViewState
	Status   string
	Error    string
	Screen   ScreenMode
	AdID     string
	Caption  string
	Link     string
	ImageURL string
	VideoURL string
}

// Result is the full current ad, including the in-memory payloads. They live
// until the next submit replaces them.
type Result struct {
	AdID        string
	ProductText string
	Style       string
	Typography  string
	Link        string
	Caption     string
	Image       gemini.Blob
	ImageURL    string
	Video       gemini.Blob
	VideoURL    string
}

// AdRecord is what gets persisted for the gallery once a run reaches Playing.
type AdRecord struct {
	ID          string
	ProductText string
	Style       string
	Typography  string
	Caption     string
	Link        string
	ImageURL    string
	VideoURL    string
}
