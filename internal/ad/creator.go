package ad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"motion-typo-studio/internal/gemini"
)

// Request is one immutable ad order. Style, Typography and Link are optional;
// Reference carries the uploaded environment image when present.
type Request struct {
	ProductText string
	Style       string
	Typography  string
	Link        string
	Reference   *gemini.Blob
}

// VideoSpec feeds the motion pass with everything the image pass produced.
type VideoSpec struct {
	ProductText string
	Style       string
	Caption     string
	Image       gemini.Blob
}

const (
	StageImage = "image"
	StageVideo = "video"
)

// StageError tags a pipeline failure with the stage that produced it, so the
// consumer can report which half of the generation broke.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Provider is the slice of the model client the creator needs.
type Provider interface {
	GenerateText(ctx context.Context, instruction string) (string, error)
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.Blob, error)
	StartVideo(ctx context.Context, req gemini.VideoRequest) (gemini.Operation, error)
	PollVideo(ctx context.Context, op gemini.Operation) (gemini.Operation, error)
	FetchVideo(ctx context.Context, uri string) (gemini.Blob, error)
}

type Options struct {
	Provider Provider
	// Limiter paces generation submissions; polls are not limited.
	Limiter *rate.Limiter
	// PollEvery is the fixed delay between operation status reads.
	PollEvery time.Duration
	// Pick returns an index in [0,n); swapped for a seeded source in tests.
	Pick   func(n int) int
	Logger *slog.Logger
}

type Creator struct {
	provider  Provider
	limiter   *rate.Limiter
	pollEvery time.Duration
	pick      func(n int) int
	logger    *slog.Logger
}

func NewCreator(opts Options) *Creator {
	pollEvery := opts.PollEvery
	if pollEvery <= 0 {
		pollEvery = 5 * time.Second
	}

	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Creator{
		provider:  opts.Provider,
		limiter:   opts.Limiter,
		pollEvery: pollEvery,
		pick:      pick,
		logger:    logger,
	}
}

// Pick exposes the creator's randomness source so the consumer draws default
// styles from the same seed the fallback captions use.
func (c *Creator) Pick(n int) int { return c.pick(n) }

// SuggestStyle asks the text model for a short scene description. It never
// fails: any transport error or blank answer collapses to DefaultStyle.
func (c *Creator) SuggestStyle(ctx context.Context, productText string) string {
	if err := c.wait(ctx); err != nil {
		return DefaultStyle
	}

	text, err := c.provider.GenerateText(ctx, styleSuggestionInstruction(productText))
	if err != nil {
		c.logger.Warn("style suggestion failed", "error", err)
		return DefaultStyle
	}

	text = sanitizeCaption(text)
	if text == "" {
		return DefaultStyle
	}
	return text
}

// GenerateCaption produces the marketing caption for the ad. It never fails:
// transport errors, blank answers and too-short answers all fall back to one
// of the fixed templates, drawn with the injected randomness.
func (c *Creator) GenerateCaption(ctx context.Context, req Request, styleText string) string {
	if err := c.wait(ctx); err != nil {
		return fallbackCaption(req.ProductText, c.pick)
	}

	text, err := c.provider.GenerateText(ctx, captionInstruction(req.ProductText, styleText, req.Link))
	if err != nil {
		c.logger.Warn("caption generation failed", "error", err)
		return fallbackCaption(req.ProductText, c.pick)
	}

	text = sanitizeCaption(text)
	if !validCaption(text) {
		c.logger.Warn("caption rejected", "caption", text)
		return fallbackCaption(req.ProductText, c.pick)
	}
	return clampCaption(text)
}

// GenerateImage runs the key-visual pass. There is no fallback: any failure,
// including a response with no inline image, surfaces as a StageError.
func (c *Creator) GenerateImage(ctx context.Context, req Request, styleText string) (gemini.Blob, error) {
	if err := c.wait(ctx); err != nil {
		return gemini.Blob{}, err
	}

	img, err := c.provider.GenerateImage(ctx, gemini.ImageRequest{
		Prompt:      imagePrompt(req, styleText, ResolveTypography(req.Typography)),
		Reference:   req.Reference,
		AspectRatio: imageAspectRatio,
		ImageSize:   imageSizeTier,
	})
	if err != nil {
		return gemini.Blob{}, &StageError{Stage: StageImage, Err: err}
	}
	if img.Empty() {
		return gemini.Blob{}, &StageError{Stage: StageImage, Err: gemini.ErrNoImage}
	}

	c.logger.Info("ad image generated", "bytes", len(img.Data), "mime", img.Mime)
	return img, nil
}

// GenerateVideo runs the motion pass end to end: synthesize the opening
// frame, submit the job with the generated image pinned as the last frame,
// poll at a fixed interval until done, then download the result. There is no
// poll cap and no backoff; cancellation comes only from the context.
func (c *Creator) GenerateVideo(ctx context.Context, spec VideoSpec) (gemini.Blob, error) {
	first, err := placeholderFrame()
	if err != nil {
		return gemini.Blob{}, &StageError{Stage: StageVideo, Err: err}
	}

	if err := c.wait(ctx); err != nil {
		return gemini.Blob{}, err
	}

	op, err := c.provider.StartVideo(ctx, gemini.VideoRequest{
		Prompt:      videoPrompt(spec.ProductText, spec.Style, spec.Caption),
		FirstFrame:  first,
		LastFrame:   spec.Image,
		AspectRatio: videoAspectRatio,
		Resolution:  videoResolution,
		Count:       1,
	})
	if err != nil {
		return gemini.Blob{}, &StageError{Stage: StageVideo, Err: err}
	}

	c.logger.Info("video operation started", "operation", op.Name)

	for !op.Done {
		select {
		case <-ctx.Done():
			return gemini.Blob{}, ctx.Err()
		case <-time.After(c.pollEvery):
		}

		op, err = c.provider.PollVideo(ctx, op)
		if err != nil {
			return gemini.Blob{}, &StageError{Stage: StageVideo, Err: err}
		}
	}

	if op.Failure != "" {
		return gemini.Blob{}, &StageError{Stage: StageVideo, Err: errors.New(op.Failure)}
	}

	uri := strings.TrimSpace(op.URI())
	if uri == "" {
		return gemini.Blob{}, &StageError{Stage: StageVideo, Err: gemini.ErrNoVideoURI}
	}

	vid, err := c.provider.FetchVideo(ctx, uri)
	if err != nil {
		return gemini.Blob{}, &StageError{Stage: StageVideo, Err: err}
	}

	c.logger.Info("ad video downloaded", "bytes", len(vid.Data), "mime", vid.Mime)
	return vid, nil
}

func (c *Creator) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
