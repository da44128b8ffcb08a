package flow

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"motion-typo-studio/internal/ad"
	"motion-typo-studio/internal/gemini"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	caption string

	image    gemini.Blob
	imageErr error
	video    gemini.Blob
	videoErr error

	imageRunning chan struct{}
	imageGate    chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		caption: "Legenda pronta ✨",
		image:   gemini.Blob{Data: []byte("png"), Mime: "image/png"},
		video:   gemini.Blob{Data: []byte("mp4"), Mime: "video/mp4"},
	}
}

func (f *fakeGenerator) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeGenerator) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGenerator) GenerateCaption(ctx context.Context, req ad.Request, style string) string {
	f.record("caption")
	return f.caption
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req ad.Request, style string) (gemini.Blob, error) {
	f.record("image")
	if f.imageRunning != nil {
		f.imageRunning <- struct{}{}
	}
	if f.imageGate != nil {
		<-f.imageGate
	}
	if f.imageErr != nil {
		return gemini.Blob{}, f.imageErr
	}
	return f.image, nil
}

func (f *fakeGenerator) GenerateVideo(ctx context.Context, spec ad.VideoSpec) (gemini.Blob, error) {
	f.record("video")
	if f.videoErr != nil {
		return gemini.Blob{}, f.videoErr
	}
	return f.video, nil
}

type fakeSink struct {
	mu       sync.Mutex
	records  []AdRecord
	videoErr error
}

func (s *fakeSink) SaveImage(ctx context.Context, id string, img gemini.Blob) (string, error) {
	return "/media/" + id + ".png", nil
}

func (s *fakeSink) SaveVideo(ctx context.Context, id string, vid gemini.Blob) (string, error) {
	if s.videoErr != nil {
		return "", s.videoErr
	}
	return "/media/" + id + ".mp4", nil
}

func (s *fakeSink) SaveAd(ctx context.Context, rec AdRecord) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) saved() []AdRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AdRecord(nil), s.records...)
}

type fakeKeys struct{ selected bool }

func (k *fakeKeys) Selected() bool { return k.selected }

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) add(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

// states collapses consecutive duplicates so the assertion reads as the pure
// transition sequence.
func (r *recorder) states() []ViewState {
	var out []ViewState
	for _, s := range r.all() {
		if len(out) == 0 || out[len(out)-1] != s.State {
			out = append(out, s.State)
		}
	}
	return out
}

func newTestController(gen Generator, sink Sink, keys KeyProvider) (*Controller, *recorder) {
	rec := &recorder{}
	seq := 0
	ctrl := NewController(Options{
		Generator: gen,
		Keys:      keys,
		Sink:      sink,
		Pick:      func(int) int { return 0 },
		NewID: func() string {
			seq++
			return "ad-" + strconv.Itoa(seq)
		},
		OnChange: rec.add,
	})
	return ctrl, rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubmitHappyPathStateSequence(t *testing.T) {
	gen := newFakeGenerator()
	sink := &fakeSink{}
	ctrl, rec := newTestController(gen, sink, &fakeKeys{selected: true})

	outcome := ctrl.Submit(context.Background(), ad.Request{ProductText: "Tênis Esportivo Azul"})
	if outcome != OutcomeStarted {
		t.Fatalf("outcome: want=Started got=%v", outcome)
	}

	want := []ViewState{StateGeneratingImage, StateGeneratingVideo, StatePlaying}
	got := rec.states()
	if len(got) != len(want) {
		t.Fatalf("state sequence: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("state sequence: want=%v got=%v", want, got)
		}
	}

	// The caption lands while the image is still generating.
	var captionSeen bool
	for _, s := range rec.all() {
		if s.Caption != "" && s.State == StateGeneratingImage && s.ImageURL == "" {
			captionSeen = true
		}
	}
	if !captionSeen {
		t.Fatalf("caption should be stored before the image completes: %+v", rec.all())
	}

	final := ctrl.Snapshot()
	if final.State != StatePlaying || final.Error != "" {
		t.Fatalf("final snapshot: %+v", final)
	}
	if final.ImageURL == "" || final.VideoURL == "" {
		t.Fatalf("final snapshot must carry both asset URLs: %+v", final)
	}

	records := sink.saved()
	if len(records) != 1 {
		t.Fatalf("gallery records: want=1 got=%d", len(records))
	}
	recd := records[0]
	if recd.ProductText != "Tênis Esportivo Azul" || recd.Caption != gen.caption {
		t.Fatalf("record: %+v", recd)
	}
	if recd.Style != ad.DefaultStyle {
		t.Fatalf("pick=0 must resolve the first catalog style: got=%q", recd.Style)
	}

	if names := gen.callNames(); len(names) != 3 || names[0] != "caption" || names[1] != "image" || names[2] != "video" {
		t.Fatalf("pipeline order: %v", names)
	}
}

func TestSubmitRejectsBlankProductText(t *testing.T) {
	gen := newFakeGenerator()
	ctrl, _ := newTestController(gen, &fakeSink{}, &fakeKeys{selected: true})

	if outcome := ctrl.Submit(context.Background(), ad.Request{ProductText: "   \n"}); outcome != OutcomeEmptyText {
		t.Fatalf("outcome: want=EmptyText got=%v", outcome)
	}
	if got := ctrl.Snapshot().State; got != StateIdle {
		t.Fatalf("state must stay idle, got %v", got)
	}
	if calls := gen.callNames(); len(calls) != 0 {
		t.Fatalf("no pipeline calls expected, got %v", calls)
	}
}

func TestSubmitWithoutKeySurfacesDialog(t *testing.T) {
	gen := newFakeGenerator()
	ctrl, _ := newTestController(gen, &fakeSink{}, &fakeKeys{selected: false})

	if outcome := ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"}); outcome != OutcomeNeedKey {
		t.Fatalf("outcome: want=NeedKey got=%v", outcome)
	}
	if got := ctrl.Snapshot().State; got != StateIdle {
		t.Fatalf("state must stay idle, got %v", got)
	}
	if calls := gen.callNames(); len(calls) != 0 {
		t.Fatalf("no pipeline calls expected, got %v", calls)
	}
}

func TestSubmitWhileBusyIsNoOp(t *testing.T) {
	gen := newFakeGenerator()
	gen.imageRunning = make(chan struct{}, 1)
	gen.imageGate = make(chan struct{})
	ctrl, _ := newTestController(gen, &fakeSink{}, &fakeKeys{selected: true})

	done := make(chan Outcome, 1)
	go func() {
		done <- ctrl.Submit(context.Background(), ad.Request{ProductText: "Tênis Esportivo Azul"})
	}()
	<-gen.imageRunning

	before := ctrl.Snapshot()
	if outcome := ctrl.Submit(context.Background(), ad.Request{ProductText: "Outro Produto"}); outcome != OutcomeBusy {
		t.Fatalf("outcome: want=Busy got=%v", outcome)
	}
	after := ctrl.Snapshot()
	if before != after {
		t.Fatalf("busy submit must change nothing: before=%+v after=%+v", before, after)
	}

	close(gen.imageGate)
	if outcome := <-done; outcome != OutcomeStarted {
		t.Fatalf("first submit outcome: %v", outcome)
	}
	waitFor(t, "playing", func() bool { return ctrl.Snapshot().State == StatePlaying })

	// Playing still refuses submits until Reset.
	if outcome := ctrl.Submit(context.Background(), ad.Request{ProductText: "Mais Um"}); outcome != OutcomeBusy {
		t.Fatalf("playing submit: want=Busy got=%v", outcome)
	}

	var imageCalls int
	for _, name := range gen.callNames() {
		if name == "image" {
			imageCalls++
		}
	}
	if imageCalls != 1 {
		t.Fatalf("image calls: want=1 got=%d", imageCalls)
	}
}

func TestImageFailureSetsErrorAndLeavesVideoUnset(t *testing.T) {
	gen := newFakeGenerator()
	gen.imageErr = &ad.StageError{Stage: ad.StageImage, Err: gemini.ErrNoImage}
	ctrl, _ := newTestController(gen, &fakeSink{}, &fakeKeys{selected: true})

	if outcome := ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"}); outcome != OutcomeStarted {
		t.Fatalf("outcome: %v", outcome)
	}

	snap := ctrl.Snapshot()
	if snap.State != StateError {
		t.Fatalf("state: want=Error got=%v", snap.State)
	}
	if snap.Error != errImageMessage {
		t.Fatalf("error message: got=%q", snap.Error)
	}
	if snap.ImageURL != "" || snap.VideoURL != "" {
		t.Fatalf("no asset URLs expected: %+v", snap)
	}
	res := ctrl.Result()
	if !res.Video.Empty() || !res.Image.Empty() {
		t.Fatalf("payloads must stay unset: %+v", res)
	}
	for _, name := range gen.callNames() {
		if name == "video" {
			t.Fatalf("video stage must not run after image failure")
		}
	}
}

func TestVideoFailurePreservesImage(t *testing.T) {
	gen := newFakeGenerator()
	gen.videoErr = &ad.StageError{Stage: ad.StageVideo, Err: gemini.ErrNoVideoURI}
	ctrl, _ := newTestController(gen, &fakeSink{}, &fakeKeys{selected: true})

	ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"})

	snap := ctrl.Snapshot()
	if snap.State != StateError || snap.Error != errVideoMessage {
		t.Fatalf("snapshot: %+v", snap)
	}
	if snap.ImageURL == "" {
		t.Fatalf("image URL must be preserved")
	}
	if snap.VideoURL != "" {
		t.Fatalf("video URL must stay unset")
	}
	res := ctrl.Result()
	if res.Image.Empty() {
		t.Fatalf("image payload must be preserved")
	}
	if !res.Video.Empty() {
		t.Fatalf("video payload must stay unset")
	}
}

func TestErrorStateAcceptsFreshSubmit(t *testing.T) {
	gen := newFakeGenerator()
	gen.videoErr = &ad.StageError{Stage: ad.StageVideo, Err: errors.New("boom")}
	ctrl, rec := newTestController(gen, &fakeSink{}, &fakeKeys{selected: true})

	ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"})
	if ctrl.Snapshot().State != StateError {
		t.Fatalf("first run should fail")
	}
	firstID := ctrl.Snapshot().AdID

	gen.videoErr = nil
	if outcome := ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"}); outcome != OutcomeStarted {
		t.Fatalf("fresh submit from error: want=Started got=%v", outcome)
	}

	snap := ctrl.Snapshot()
	if snap.State != StatePlaying {
		t.Fatalf("second run should reach playing, got %v", snap.State)
	}
	if snap.AdID == firstID {
		t.Fatalf("new run must mint a new id")
	}

	// The retry re-entered GeneratingImage first.
	states := rec.states()
	var errorIdx, regenIdx int
	for i, s := range states {
		if s == StateError {
			errorIdx = i
		}
	}
	for i, s := range states {
		if i > errorIdx && s == StateGeneratingImage {
			regenIdx = i
			break
		}
	}
	if regenIdx == 0 {
		t.Fatalf("expected GeneratingImage after Error: %v", states)
	}
}

func TestNewSubmitReleasesPreviousResult(t *testing.T) {
	gen := newFakeGenerator()
	ctrl, _ := newTestController(gen, &fakeSink{}, &fakeKeys{selected: true})

	ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"})
	if ctrl.Result().Video.Empty() {
		t.Fatalf("first run should keep the video payload")
	}
	ctrl.Reset()

	gen.imageErr = &ad.StageError{Stage: ad.StageImage, Err: gemini.ErrNoImage}
	ctrl.Submit(context.Background(), ad.Request{ProductText: "Garrafa"})

	res := ctrl.Result()
	if !res.Video.Empty() || res.VideoURL != "" {
		t.Fatalf("previous payloads must be released on a new submit: %+v", res)
	}
	if res.ProductText != "Garrafa" {
		t.Fatalf("result must describe the new run: %+v", res)
	}
}

func TestResetOnlyFromPlaying(t *testing.T) {
	gen := newFakeGenerator()
	gen.imageErr = &ad.StageError{Stage: ad.StageImage, Err: gemini.ErrNoImage}
	ctrl, _ := newTestController(gen, &fakeSink{}, &fakeKeys{selected: true})

	ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"})
	ctrl.Reset()
	if got := ctrl.Snapshot().State; got != StateError {
		t.Fatalf("reset must not exit Error, got %v", got)
	}

	gen.imageErr = nil
	ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"})
	if got := ctrl.Snapshot().State; got != StatePlaying {
		t.Fatalf("expected playing, got %v", got)
	}
	ctrl.Reset()
	if got := ctrl.Snapshot().State; got != StateIdle {
		t.Fatalf("reset from playing must reach idle, got %v", got)
	}
}

func TestSinkFailureSurfacesAsError(t *testing.T) {
	gen := newFakeGenerator()
	sink := &fakeSink{videoErr: errors.New("disk full")}
	ctrl, _ := newTestController(gen, sink, &fakeKeys{selected: true})

	ctrl.Submit(context.Background(), ad.Request{ProductText: "Caneca"})

	snap := ctrl.Snapshot()
	if snap.State != StateError || snap.Error != errVideoMessage {
		t.Fatalf("snapshot: %+v", snap)
	}
}

func TestPrimaryActionRouting(t *testing.T) {
	keys := &fakeKeys{selected: false}
	ctrl, _ := newTestController(newFakeGenerator(), &fakeSink{}, keys)

	route := ctrl.PrimaryAction(false)
	if route.Screen != ScreenAuth || route.OpenKeyDialog {
		t.Fatalf("no profile: %+v", route)
	}
	if ctrl.Snapshot().Screen != ScreenAuth {
		t.Fatalf("screen should be auth")
	}

	route = ctrl.PrimaryAction(true)
	if !route.OpenKeyDialog {
		t.Fatalf("missing key must open the dialog: %+v", route)
	}
	if ctrl.Snapshot().Screen != ScreenAuth {
		t.Fatalf("key dialog must not navigate, got %v", ctrl.Snapshot().Screen)
	}

	keys.selected = true
	route = ctrl.PrimaryAction(true)
	if route.Screen != ScreenCreate || route.OpenKeyDialog {
		t.Fatalf("ready profile+key: %+v", route)
	}
	if ctrl.Snapshot().Screen != ScreenCreate {
		t.Fatalf("screen should be create")
	}
}

func TestSetScreenIsOrthogonalToState(t *testing.T) {
	ctrl, _ := newTestController(newFakeGenerator(), &fakeSink{}, &fakeKeys{selected: true})

	ctrl.SetScreen(ScreenCreate)
	snap := ctrl.Snapshot()
	if snap.Screen != ScreenCreate || snap.State != StateIdle {
		t.Fatalf("snapshot: %+v", snap)
	}

	ctrl.SetScreen(ScreenGallery)
	if got := ctrl.Snapshot().Screen; got != ScreenGallery {
		t.Fatalf("screen: want=gallery got=%v", got)
	}
}
