package audio

import (
	"context"
	"io"
	"sync"
	"time"
)

// Provider feeds encoded Opus frames to a disgo voice connection.
// A nil frame marks the end of the stream.
type Provider struct {
	frames   chan []byte
	ctx      context.Context
	paused   func() bool
	finished chan struct{}
	once     sync.Once
}

func NewProvider(ctx context.Context, paused func() bool) *Provider {
	return &Provider{
		frames:   make(chan []byte, 100),
		ctx:      ctx,
		paused:   paused,
		finished: make(chan struct{}),
	}
}

// Push queues a frame, blocking while the buffer is full.
func (p *Provider) Push(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

// Finished is closed once the last frame has been handed out.
func (p *Provider) Finished() <-chan struct{} {
	return p.finished
}

func (p *Provider) ProvideOpusFrame() ([]byte, error) {
	if p.paused != nil && p.paused() {
		return nil, nil
	}

	select {
	case f := <-p.frames:
		if f == nil {
			p.Close()
			return nil, io.EOF
		}
		return f, nil
	case <-p.ctx.Done():
		p.Close()
		return nil, io.EOF
	case <-time.After(100 * time.Millisecond):
		return nil, nil
	}
}

func (p *Provider) Close() {
	p.once.Do(func() { close(p.finished) })
}
