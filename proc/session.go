package proc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/mp3bot/sys"
)

// AudioSource is what the voice output is asked to play.
type AudioSource struct {
	Input  string
	Remote bool
}

// Voice is the voice-transport the session drives.
// IsPlaying reports false while paused. after is called once per Play,
// from any goroutine, when the stream ends, fails or is stopped.
type Voice interface {
	Play(src AudioSource, after func(error)) error
	Pause()
	Resume()
	Stop()
	IsPlaying() bool
	IsPaused() bool
	SetVolume(v float64)
	Disconnect(ctx context.Context) error
}

// ChannelState reports who is in the session's voice channel.
type ChannelState interface {
	SelfID() snowflake.ID
	VoiceStates() []discord.VoiceState
}

type TrackLogger interface {
	LogTrack(ctx context.Context, t Track) error
}

type Recorder interface {
	RecordPlay(ctx context.Context, t Track) error
}

// StreamRefresher renews the stream URL of a remote track before it plays.
type StreamRefresher interface {
	Refresh(ctx context.Context, t *RemoteTrack) (*RemoteTrack, error)
}

type SessionConfig struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	Playlist  *Playlist
	Voice     Voice
	Channel   ChannelState
	Logger    TrackLogger
	Recorder  Recorder
	Refresher StreamRefresher
	Volume    float64
}

// Session plays tracks from one Playlist into one voice connection.
type Session struct {
	GuildID snowflake.ID

	playlist  *Playlist
	voice     Voice
	channel   ChannelState
	logger    TrackLogger
	recorder  Recorder
	refresher StreamRefresher

	running atomic.Bool
	started atomic.Bool

	mu         sync.Mutex
	channelID  snowflake.ID
	volume     float64
	nowPlaying Track
	skipVotes  map[snowflake.ID]struct{}

	disconnectOnce sync.Once
	done           chan struct{}
}

func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		GuildID:   cfg.GuildID,
		channelID: cfg.ChannelID,
		playlist:  cfg.Playlist,
		voice:     cfg.Voice,
		channel:   cfg.Channel,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
		refresher: cfg.Refresher,
		volume:    clampVolume(cfg.Volume),
		skipVotes: make(map[snowflake.ID]struct{}),
		done:      make(chan struct{}),
	}
	s.running.Store(true)
	return s
}

func (s *Session) Playlist() *Playlist { return s.playlist }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Running() bool { return s.running.Load() }

// ChannelID is the voice channel the bot currently plays in.
func (s *Session) ChannelID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// moveTo follows the bot into another channel. Votes cast in the old one
// no longer count.
func (s *Session) moveTo(channelID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelID == channelID {
		return false
	}
	s.channelID = channelID
	clear(s.skipVotes)
	return true
}

func (s *Session) NowPlaying() Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowPlaying
}

func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Listeners returns the members in the channel other than the bot and
// anyone self-deafened.
func (s *Session) Listeners() []discord.VoiceState {
	self := s.channel.SelfID()
	var out []discord.VoiceState
	for _, vs := range s.channel.VoiceStates() {
		if vs.UserID == self || vs.SelfDeaf {
			continue
		}
		out = append(out, vs)
	}
	return out
}

// ChangeVolume clamps v to [0, MaxVolume] and applies it to the live stream.
func (s *Session) ChangeVolume(v float64) float64 {
	v = clampVolume(v)
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
	s.voice.SetVolume(v)
	return v
}

// Stop marks the session inactive and halts the output. The loop exits once
// the output reports completion.
func (s *Session) Stop() {
	s.running.Store(false)
	s.voice.Stop()
}

// CheckVoiceState pauses with no listeners and resumes when one returns.
func (s *Session) CheckVoiceState() {
	n := len(s.Listeners())
	switch {
	case n == 0 && s.voice.IsPlaying():
		s.voice.Pause()
		sys.LogPlayer(sys.MsgPlayerPaused, s.GuildID)
	case n > 0 && s.voice.IsPaused():
		s.voice.Resume()
		sys.LogPlayer(sys.MsgPlayerResumed, s.GuildID)
	}
}

// VoteSkip records a vote from userID. The track is skipped once votes reach
// half the listeners, rounded up.
func (s *Session) VoteSkip(userID snowflake.ID) (votes, needed int, skipped bool) {
	needed = (len(s.Listeners()) + 1) / 2
	if needed < 1 {
		needed = 1
	}

	s.mu.Lock()
	if s.nowPlaying == nil {
		s.mu.Unlock()
		return 0, needed, false
	}
	s.skipVotes[userID] = struct{}{}
	votes = len(s.skipVotes)
	s.mu.Unlock()

	if votes >= needed {
		s.voice.Stop()
		return votes, needed, true
	}
	return votes, needed, false
}

// Run plays tracks until the session is stopped, the playlist runs dry or
// ctx is cancelled. It returns after disconnecting.
func (s *Session) Run(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	defer s.teardown()

	sys.LogPlayer(sys.MsgPlayerStarting, s.GuildID, s.ChannelID())

	for s.running.Load() {
		if ctx.Err() != nil {
			break
		}

		t, err := s.playlist.NextTrack()
		if err != nil {
			sys.LogError(sys.MsgPlayerNextFail, s.GuildID, err)
			break
		}
		t, err = s.refresh(ctx, t)
		if err != nil {
			sys.LogWarn(sys.MsgPlayerTrackError, err)
			continue
		}

		completion := s.play(ctx, t)
		s.CheckVoiceState()

		select {
		case err := <-completion:
			s.clearSkipVotes()
			if err != nil {
				sys.LogWarn(sys.MsgPlayerTrackError, err)
			}
		case <-ctx.Done():
			s.voice.Stop()
		}
	}
}

// refresh renews an expiring remote stream URL. Local tracks pass through.
func (s *Session) refresh(ctx context.Context, t Track) (Track, error) {
	rt, ok := t.(*RemoteTrack)
	if !ok || s.refresher == nil {
		return t, nil
	}
	fresh, err := s.refresher.Refresh(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("refresh %q: %w", rt.Title(), err)
	}
	return fresh, nil
}

// play starts t and returns the channel its completion is delivered on.
func (s *Session) play(ctx context.Context, t Track) <-chan error {
	completion := make(chan error, 1)
	after := func(err error) {
		select {
		case completion <- err:
		default:
		}
	}

	s.mu.Lock()
	s.nowPlaying = t
	volume := s.volume
	s.mu.Unlock()

	sys.LogPlayer(sys.MsgPlayerNowPlaying, t.Kind(), t.Title())

	if s.logger != nil {
		if err := s.logger.LogTrack(ctx, t); err != nil {
			sys.LogWarn(sys.MsgPlayerLogFail, t.Title(), err)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.RecordPlay(ctx, t); err != nil {
			sys.LogWarn(sys.MsgPlayerHistoryFail, t.Title(), err)
		}
	}

	s.voice.SetVolume(volume)
	if err := s.voice.Play(AudioSource{Input: t.Source(), Remote: t.Kind() == KindRemote}, after); err != nil {
		after(err)
	}

	// Stop may have landed between the loop check and Play.
	if !s.running.Load() {
		s.voice.Stop()
	}
	return completion
}

func (s *Session) clearSkipVotes() {
	s.mu.Lock()
	clear(s.skipVotes)
	s.mu.Unlock()
}

func (s *Session) teardown() {
	s.running.Store(false)

	s.mu.Lock()
	s.nowPlaying = nil
	s.mu.Unlock()

	s.disconnectOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.voice.Disconnect(ctx); err != nil {
			sys.LogWarn(sys.MsgPlayerDisconnectFail, s.GuildID, err)
		}
	})

	sys.LogPlayer(sys.MsgPlayerStopped, s.GuildID)
	close(s.done)
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > sys.MaxVolume:
		return sys.MaxVolume
	}
	return v
}
