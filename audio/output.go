package audio

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

type stream struct {
	cancel   context.CancelFunc
	provider *Provider
	after    func(error)
	once     sync.Once
}

// sink is the part of a voice connection the output drives.
type sink struct {
	setProvider func(p voice.OpusFrameProvider)
	speaking    func(ctx context.Context, on bool)
	close       func(ctx context.Context)
}

func connSink(conn voice.Conn) sink {
	return sink{
		setProvider: func(p voice.OpusFrameProvider) { conn.SetOpusFrameProvider(p) },
		speaking: func(ctx context.Context, on bool) {
			if on {
				conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)
				return
			}
			conn.SetSpeaking(ctx, 0)
		},
		close: func(ctx context.Context) { conn.Close(ctx) },
	}
}

// Output plays one stream at a time into a disgo voice connection.
type Output struct {
	conn   sink
	volume atomic.Uint64
	paused atomic.Bool

	mu      sync.Mutex
	current *stream
}

var _ proc.Voice = (*Output)(nil)

func NewOutput(conn voice.Conn) *Output {
	return newOutput(connSink(conn))
}

func newOutput(s sink) *Output {
	o := &Output{conn: s}
	o.SetVolume(1)
	return o
}

// Connector joins voice channels through the client's voice manager.
func Connector(client *bot.Client) proc.Connector {
	return func(ctx context.Context, guildID, channelID snowflake.ID) (proc.Voice, error) {
		conn := client.VoiceManager.CreateConn(guildID)
		if err := conn.Open(ctx, channelID, false, false); err != nil {
			conn.Close(ctx)
			return nil, err
		}
		return NewOutput(conn), nil
	}
}

// Play stops any current stream and starts src. after runs exactly once.
func (o *Output) Play(src proc.AudioSource, after func(error)) error {
	o.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{
		cancel:   cancel,
		provider: NewProvider(ctx, o.paused.Load),
		after:    after,
	}

	o.mu.Lock()
	o.current = st
	o.paused.Store(false)
	o.mu.Unlock()

	o.setProvider(st.provider)
	o.conn.speaking(ctx, true)

	go o.run(ctx, st, src)
	return nil
}

func (o *Output) run(ctx context.Context, st *stream, src proc.AudioSource) {
	errc := make(chan error, 1)
	go func() {
		t := NewTranscoder()
		defer t.Close()
		errc <- transcode(ctx, t, src.Input, o.Volume, st.provider.Push)
	}()

	var err error
	select {
	case err = <-errc:
		if err == nil {
			select {
			case <-st.provider.Finished():
			case <-ctx.Done():
			}
		}
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		sys.LogWarn(sys.MsgPlayerTranscodeFail, src.Input, err)
	}
	o.finish(st, err)
}

func transcode(ctx context.Context, t *Transcoder, input string, gain func() float64, push func([]byte)) error {
	if err := t.OpenInput(input); err != nil {
		push(nil)
		return err
	}
	if err := t.SetupDecoder(); err != nil {
		push(nil)
		return err
	}
	if err := t.SetupEncoder(); err != nil {
		push(nil)
		return err
	}
	return t.Transcode(ctx, gain, push)
}

func (o *Output) finish(st *stream, err error) {
	st.once.Do(func() {
		st.cancel()
		o.mu.Lock()
		last := o.current == st
		if last {
			o.current = nil
		}
		o.mu.Unlock()
		if last {
			o.setProvider(nil)
			o.conn.speaking(context.Background(), false)
		}
		if st.after != nil {
			st.after(err)
		}
	})
}

func (o *Output) setProvider(p *Provider) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogError(sys.MsgLoaderPanicRecovered, r)
		}
	}()
	if p == nil {
		o.conn.setProvider(nil)
		return
	}
	o.conn.setProvider(p)
}

// Stop ends the current stream; its after callback reports a nil error.
func (o *Output) Stop() {
	o.mu.Lock()
	st := o.current
	o.mu.Unlock()
	if st != nil {
		o.finish(st, nil)
	}
}

func (o *Output) Pause()  { o.paused.Store(true) }
func (o *Output) Resume() { o.paused.Store(false) }

func (o *Output) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil && !o.paused.Load()
}

func (o *Output) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil && o.paused.Load()
}

// SetVolume changes the gain of the live stream from its next frame.
func (o *Output) SetVolume(v float64) {
	o.volume.Store(math.Float64bits(v))
}

func (o *Output) Volume() float64 {
	return math.Float64frombits(o.volume.Load())
}

func (o *Output) Disconnect(ctx context.Context) error {
	o.Stop()
	o.conn.close(ctx)
	return nil
}
