package audio

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/voice"
	"github.com/leeineian/mp3bot/proc"
)

type recordingSink struct {
	mu        sync.Mutex
	providers []voice.OpusFrameProvider
	speaking  []bool
	closes    int
}

func (r *recordingSink) sink() sink {
	return sink{
		setProvider: func(p voice.OpusFrameProvider) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.providers = append(r.providers, p)
		},
		speaking: func(ctx context.Context, on bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.speaking = append(r.speaking, on)
		},
		close: func(ctx context.Context) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closes++
		},
	}
}

type afterRecorder struct {
	mu    sync.Mutex
	calls []error
	done  chan struct{}
	once  sync.Once
}

func newAfterRecorder() *afterRecorder {
	return &afterRecorder{done: make(chan struct{})}
}

func (a *afterRecorder) after(err error) {
	a.mu.Lock()
	a.calls = append(a.calls, err)
	a.mu.Unlock()
	a.once.Do(func() { close(a.done) })
}

func (a *afterRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-a.done:
	case <-time.After(5 * time.Second):
		t.Fatal("after callback never ran")
	}
}

func TestOutputPlayMissingFile(t *testing.T) {
	rec := &recordingSink{}
	o := newOutput(rec.sink())
	a := newAfterRecorder()

	src := proc.AudioSource{Input: filepath.Join(t.TempDir(), "missing.mp3")}
	if err := o.Play(src, a.after); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	a.wait(t)

	// A late Stop must not fire the callback again.
	o.Stop()
	time.Sleep(20 * time.Millisecond)

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.calls) != 1 {
		t.Fatalf("after called %d times, want 1", len(a.calls))
	}
	if a.calls[0] == nil {
		t.Error("after got nil error for a missing file")
	}
	if o.IsPlaying() || o.IsPaused() {
		t.Error("output still reports a stream")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.providers) != 2 || rec.providers[1] != nil {
		t.Errorf("providers = %v, want set then cleared", rec.providers)
	}
}

func TestOutputStopCallsAfterOnce(t *testing.T) {
	o := newOutput((&recordingSink{}).sink())
	a := newAfterRecorder()

	// Keep a stream registered without a transcoder behind it.
	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{cancel: cancel, provider: NewProvider(ctx, o.paused.Load), after: a.after}
	o.current = st

	if !o.IsPlaying() {
		t.Fatal("IsPlaying = false with a current stream")
	}
	o.Pause()
	if o.IsPlaying() || !o.IsPaused() {
		t.Error("Pause did not take effect")
	}
	o.Resume()
	if !o.IsPlaying() {
		t.Error("Resume did not take effect")
	}

	o.Stop()
	o.Stop()
	o.finish(st, io.ErrUnexpectedEOF)
	a.wait(t)

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.calls) != 1 || a.calls[0] != nil {
		t.Errorf("after calls = %v, want a single nil", a.calls)
	}
	if ctx.Err() == nil {
		t.Error("stream context not cancelled")
	}
}

func TestOutputVolumeAndDisconnect(t *testing.T) {
	rec := &recordingSink{}
	o := newOutput(rec.sink())
	if o.Volume() != 1 {
		t.Errorf("default volume = %v, want 1", o.Volume())
	}
	o.SetVolume(0.35)
	if o.Volume() != 0.35 {
		t.Errorf("Volume = %v, want 0.35", o.Volume())
	}

	if err := o.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if rec.closes != 1 {
		t.Errorf("closes = %d, want 1", rec.closes)
	}
}

func TestProviderFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paused := false
	p := NewProvider(ctx, func() bool { return paused })
	go func() {
		p.Push([]byte{1})
		p.Push(nil)
	}()

	f, err := p.ProvideOpusFrame()
	for f == nil && err == nil {
		f, err = p.ProvideOpusFrame()
	}
	if err != nil || len(f) != 1 {
		t.Fatalf("first frame = %v, %v", f, err)
	}

	paused = true
	if f, err := p.ProvideOpusFrame(); f != nil || err != nil {
		t.Errorf("paused frame = %v, %v; want silence", f, err)
	}
	paused = false

	for i := 0; i < 50 && err == nil; i++ {
		_, err = p.ProvideOpusFrame()
	}
	if err != io.EOF {
		t.Errorf("end of stream err = %v, want io.EOF", err)
	}
	select {
	case <-p.Finished():
	default:
		t.Error("Finished not closed after the last frame")
	}
}
