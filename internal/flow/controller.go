package flow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"

	"motion-typo-studio/internal/ad"
	"motion-typo-studio/internal/gemini"
)

const (
	statusGeneratingImage = "Criando a imagem tipográfica do seu anúncio..."
	statusGeneratingVideo = "Dando vida ao vídeo, isso pode levar alguns minutos..."
	statusReady           = "Seu anúncio está pronto!"

	errImageMessage   = "Não foi possível gerar a imagem do anúncio. Tente novamente."
	errVideoMessage   = "Não foi possível gerar o vídeo do anúncio. Tente novamente."
	errGenericMessage = "Algo deu errado na geração. Tente novamente."
)

// Generator is the pipeline slice the controller drives. *ad.Creator is the
// production implementation.
type Generator interface {
	GenerateCaption(ctx context.Context, req ad.Request, styleText string) string
	GenerateImage(ctx context.Context, req ad.Request, styleText string) (gemini.Blob, error)
	GenerateVideo(ctx context.Context, spec ad.VideoSpec) (gemini.Blob, error)
}

// KeyProvider answers whether an API credential is currently selected. The
// controller never sees the key itself.
type KeyProvider interface {
	Selected() bool
}

// Sink publishes finished assets as locally served URLs and persists the
// gallery record. A nil sink keeps everything in memory only.
type Sink interface {
	SaveImage(ctx context.Context, id string, img gemini.Blob) (string, error)
	SaveVideo(ctx context.Context, id string, vid gemini.Blob) (string, error)
	SaveAd(ctx context.Context, rec AdRecord) error
}

type Options struct {
	Generator Generator
	Keys      KeyProvider
	Sink      Sink
	// Pick draws the default style when the request leaves it blank.
	Pick     func(n int) int
	NewID    func() string
	OnChange func(Snapshot)
	Logger   *slog.Logger
}

// Controller owns one view-state lifecycle: one per browser session, one per
// chat. All mutations go through its mutex; the Idle/Error gate makes
// overlapping runs impossible.
type Controller struct {
	gen    Generator
	keys   KeyProvider
	sink   Sink
	pick   func(n int) int
	newID  func() string
	logger *slog.Logger

	mu       sync.Mutex
	onChange func(Snapshot)
	state    ViewState
	status   string
	errMsg   string
	screen   ScreenMode
	result   Result
}

func NewController(opts Options) *Controller {
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Controller{
		gen:      opts.Generator,
		keys:     opts.Keys,
		sink:     opts.Sink,
		pick:     pick,
		newID:    newID,
		logger:   logger,
		onChange: opts.OnChange,
		state:    StateIdle,
		screen:   ScreenGallery,
	}
}

// Submit runs one full generation sequence in the calling goroutine. The
// returned outcome tells whether the sequence actually started.
func (c *Controller) Submit(ctx context.Context, req ad.Request) Outcome {
	outcome, run := c.begin(req)
	if run != nil {
		run(ctx)
	}
	return outcome
}

// SubmitAsync starts the sequence in its own goroutine and returns the gate
// outcome immediately. Callers hand in a context that outlives their request.
func (c *Controller) SubmitAsync(ctx context.Context, req ad.Request) Outcome {
	outcome, run := c.begin(req)
	if run != nil {
		go run(ctx)
	}
	return outcome
}

// begin applies the submit gate atomically: trims and validates the request,
// checks the credential, claims the Idle (or Error) state and clears the
// previous result. The returned closure performs the sequence.
func (c *Controller) begin(req ad.Request) (Outcome, func(context.Context)) {
	req.ProductText = strings.TrimSpace(req.ProductText)
	if req.ProductText == "" {
		return OutcomeEmptyText, nil
	}
	if c.keys != nil && !c.keys.Selected() {
		return OutcomeNeedKey, nil
	}

	c.mu.Lock()
	if c.state != StateIdle && c.state != StateError {
		c.mu.Unlock()
		return OutcomeBusy, nil
	}

	id := c.newID()
	style := ad.ResolveStyle(req.Style, c.pick)
	c.result = Result{
		AdID:        id,
		ProductText: req.ProductText,
		Style:       style,
		Typography:  strings.TrimSpace(req.Typography),
		Link:        strings.TrimSpace(req.Link),
	}
	c.state = StateGeneratingImage
	c.status = statusGeneratingImage
	c.errMsg = ""
	c.mu.Unlock()
	c.changed()

	return OutcomeStarted, func(ctx context.Context) { c.run(ctx, req, id, style) }
}

func (c *Controller) run(ctx context.Context, req ad.Request, id, style string) {
	c.logger.Info("generation started", "ad", id, "product", req.ProductText)

	// The caption is issued first and stored as soon as it lands; it never
	// gates the image/video transitions.
	caption := c.gen.GenerateCaption(ctx, req, style)
	c.mu.Lock()
	c.result.Caption = caption
	c.mu.Unlock()
	c.changed()

	img, err := c.gen.GenerateImage(ctx, req, style)
	if err != nil {
		c.fail(id, err)
		return
	}

	imageURL := ""
	if c.sink != nil {
		imageURL, err = c.sink.SaveImage(ctx, id, img)
		if err != nil {
			c.fail(id, &ad.StageError{Stage: ad.StageImage, Err: err})
			return
		}
	}

	c.mu.Lock()
	c.result.Image = img
	c.result.ImageURL = imageURL
	c.state = StateGeneratingVideo
	c.status = statusGeneratingVideo
	c.mu.Unlock()
	c.changed()

	vid, err := c.gen.GenerateVideo(ctx, ad.VideoSpec{
		ProductText: req.ProductText,
		Style:       style,
		Caption:     caption,
		Image:       img,
	})
	if err != nil {
		c.fail(id, err)
		return
	}

	videoURL := ""
	if c.sink != nil {
		videoURL, err = c.sink.SaveVideo(ctx, id, vid)
		if err != nil {
			c.fail(id, &ad.StageError{Stage: ad.StageVideo, Err: err})
			return
		}
		rec := AdRecord{
			ID:          id,
			ProductText: req.ProductText,
			Style:       style,
			Typography:  strings.TrimSpace(req.Typography),
			Caption:     caption,
			Link:        strings.TrimSpace(req.Link),
			ImageURL:    imageURL,
			VideoURL:    videoURL,
		}
		if err := c.sink.SaveAd(ctx, rec); err != nil {
			c.fail(id, &ad.StageError{Stage: ad.StageVideo, Err: err})
			return
		}
	}

	c.mu.Lock()
	c.result.Video = vid
	c.result.VideoURL = videoURL
	c.state = StatePlaying
	c.status = statusReady
	c.mu.Unlock()
	c.changed()

	c.logger.Info("generation finished", "ad", id)
}

func (c *Controller) fail(id string, err error) {
	msg := errGenericMessage
	var stageErr *ad.StageError
	switch {
	case errors.As(err, &stageErr) && stageErr.Stage == ad.StageImage:
		msg = errImageMessage
	case errors.As(err, &stageErr) && stageErr.Stage == ad.StageVideo:
		msg = errVideoMessage
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		msg = "Geração cancelada."
	}

	c.mu.Lock()
	c.state = StateError
	c.errMsg = msg
	c.status = ""
	c.mu.Unlock()
	c.changed()

	c.logger.Error("generation failed", "ad", id, "error", err)
}

// Reset returns to Idle after playback. It is only legal from Playing; an
// Error is left by submitting again.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.status = ""
	c.mu.Unlock()
	c.changed()
}

// PrimaryAction routes the main call-to-action: onboarding wins over
// everything, then the credential, then creation.
func (c *Controller) PrimaryAction(hasProfile bool) Route {
	c.mu.Lock()
	if !hasProfile {
		c.screen = ScreenAuth
		c.mu.Unlock()
		c.changed()
		return Route{Screen: ScreenAuth}
	}
	if c.keys != nil && !c.keys.Selected() {
		screen := c.screen
		c.mu.Unlock()
		return Route{Screen: screen, OpenKeyDialog: true}
	}
	c.screen = ScreenCreate
	c.mu.Unlock()
	c.changed()
	return Route{Screen: ScreenCreate}
}

func (c *Controller) SetScreen(mode ScreenMode) {
	c.mu.Lock()
	if c.screen == mode {
		c.mu.Unlock()
		return
	}
	c.screen = mode
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Result hands out the full current ad including payload bytes. The slices
// are shared; callers must not mutate them.
func (c *Controller) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Controller) SetOnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		Status:   c.status,
		Error:    c.errMsg,
		Screen:   c.screen,
		AdID:     c.result.AdID,
		Caption:  c.result.Caption,
		Link:     c.result.Link,
		ImageURL: c.result.ImageURL,
		VideoURL: c.result.VideoURL,
	}
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
