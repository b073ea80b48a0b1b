package proc

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// fakeVoice records calls and lets tests decide when a stream completes.
type fakeVoice struct {
	mu          sync.Mutex
	plays       []AudioSource
	after       func(error)
	playing     bool
	paused      bool
	volume      float64
	volumes     []float64
	stops       int
	pauses      int
	resumes     int
	disconnects int
	playErr     error
	onPlay      func(n int)
}

func (v *fakeVoice) Play(src AudioSource, after func(error)) error {
	v.mu.Lock()
	if v.playErr != nil {
		err := v.playErr
		v.mu.Unlock()
		return err
	}
	v.plays = append(v.plays, src)
	v.after = after
	v.playing = true
	v.paused = false
	n := len(v.plays)
	hook := v.onPlay
	v.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

// finish ends the current stream as the audio goroutine would.
func (v *fakeVoice) finish(err error) {
	v.mu.Lock()
	after := v.after
	v.after = nil
	v.playing = false
	v.paused = false
	v.mu.Unlock()
	if after != nil {
		after(err)
	}
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	v.stops++
	v.mu.Unlock()
	go v.finish(nil)
}

func (v *fakeVoice) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		v.playing = false
		v.paused = true
		v.pauses++
	}
}

func (v *fakeVoice) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.paused {
		v.paused = false
		v.playing = true
		v.resumes++
	}
}

func (v *fakeVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *fakeVoice) IsPaused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

func (v *fakeVoice) SetVolume(f float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volume = f
	v.volumes = append(v.volumes, f)
}

func (v *fakeVoice) Disconnect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnects++
	return nil
}

func (v *fakeVoice) playCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.plays)
}

func (v *fakeVoice) disconnectCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnects
}

type fakeChannel struct {
	mu     sync.Mutex
	self   snowflake.ID
	states []discord.VoiceState
}

func (c *fakeChannel) SelfID() snowflake.ID { return c.self }

func (c *fakeChannel) VoiceStates() []discord.VoiceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]discord.VoiceState(nil), c.states...)
}

func (c *fakeChannel) set(states ...discord.VoiceState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = states
}

func member(id snowflake.ID, deaf bool) discord.VoiceState {
	return discord.VoiceState{UserID: id, SelfDeaf: deaf}
}

const botID = snowflake.ID(1000)

// newChannel returns a channel holding the bot and n listeners with IDs 1..n.
func newChannel(n int) *fakeChannel {
	states := []discord.VoiceState{member(botID, false)}
	for i := 1; i <= n; i++ {
		states = append(states, member(snowflake.ID(i), false))
	}
	return &fakeChannel{self: botID, states: states}
}

type fakeLogger struct {
	mu     sync.Mutex
	tracks []Track
	err    error
}

func (l *fakeLogger) LogTrack(ctx context.Context, t Track) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracks = append(l.tracks, t)
	return l.err
}

// staticScanner serves a mutable list of file names under dir.
type staticScanner struct {
	mu    sync.Mutex
	files []string
	scans int
}

func (s *staticScanner) scan(dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	out := make([]string, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, filepath.Join(dir, f))
	}
	return out, nil
}

func (s *staticScanner) setFiles(files ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
}

func noShuffle([]string) {}

func titleTags(path string) (*LocalTrack, error) {
	return &LocalTrack{Path: path, TrackTitle: titleFromPath(path), Artist: "Artist"}, nil
}

func testPlaylist(scanner *staticScanner, cacheLength int) (*Playlist, error) {
	return NewPlaylist("music", cacheLength,
		WithScanner(scanner.scan),
		WithShuffler(noShuffle),
		WithTagReader(titleTags),
	)
}
