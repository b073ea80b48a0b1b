package proc

import (
	"context"
	"fmt"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/mp3bot/sys"
)

// Connector joins a voice channel and returns the output to play into.
type Connector func(ctx context.Context, guildID, channelID snowflake.ID) (Voice, error)

type StartOptions struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	Channel   ChannelState
	Logger    TrackLogger
	Recorder  Recorder
	Refresher StreamRefresher
	Volume    float64
}

// Manager owns at most one Session per guild.
type Manager struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*Session
	starting map[snowflake.ID]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	connect      Connector
	dir          string
	cacheLength  int
	playlistOpts []PlaylistOption
}

func NewManager(ctx context.Context, connect Connector, dir string, cacheLength int, opts ...PlaylistOption) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		sessions:     make(map[snowflake.ID]*Session),
		starting:     make(map[snowflake.ID]struct{}),
		ctx:          ctx,
		cancel:       cancel,
		connect:      connect,
		dir:          dir,
		cacheLength:  cacheLength,
		playlistOpts: opts,
	}
}

// Get returns the running session for a guild, or nil.
func (m *Manager) Get(guildID snowflake.ID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

// Start builds a playlist, joins the channel and starts the playback loop.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (*Session, error) {
	m.mu.Lock()
	if _, ok := m.sessions[opts.GuildID]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	if _, ok := m.starting[opts.GuildID]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	m.starting[opts.GuildID] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.starting, opts.GuildID)
		m.mu.Unlock()
	}()

	playlist, err := NewPlaylist(m.dir, m.cacheLength, m.playlistOpts...)
	if err != nil {
		return nil, err
	}

	voice, err := m.connect(ctx, opts.GuildID, opts.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("join voice channel: %w", err)
	}

	s := NewSession(SessionConfig{
		GuildID:   opts.GuildID,
		ChannelID: opts.ChannelID,
		Playlist:  playlist,
		Voice:     voice,
		Channel:   opts.Channel,
		Logger:    opts.Logger,
		Recorder:  opts.Recorder,
		Refresher: opts.Refresher,
		Volume:    opts.Volume,
	})

	m.mu.Lock()
	m.sessions[opts.GuildID] = s
	m.mu.Unlock()

	go func() {
		s.Run(m.ctx)
		m.remove(s)
	}()
	return s, nil
}

// Stop stops the guild's session. The session leaves the map once its loop exits.
func (m *Manager) Stop(guildID snowflake.ID) error {
	s := m.Get(guildID)
	if s == nil {
		return ErrNotRunning
	}
	s.Stop()
	return nil
}

// OnVoiceStateUpdate re-evaluates pause state after a member moves. When the
// bot itself was moved the session follows it, and when it was disconnected
// the session stops.
func (m *Manager) OnVoiceStateUpdate(guildID, userID snowflake.ID, channelID *snowflake.ID) {
	s := m.Get(guildID)
	if s == nil {
		return
	}
	if userID == s.channel.SelfID() {
		if channelID == nil {
			sys.LogPlayer(sys.MsgPlayerBotLeft, guildID)
			s.Stop()
			return
		}
		if old := s.ChannelID(); s.moveTo(*channelID) {
			sys.LogPlayer(sys.MsgPlayerBotMoved, old, *channelID, guildID)
		}
	}
	s.CheckVoiceState()
}

// Sessions returns a snapshot of the running sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Shutdown stops every session and waits for them to disconnect.
func (m *Manager) Shutdown(ctx context.Context) {
	sessions := m.Sessions()

	for _, s := range sessions {
		s.Stop()
	}
	m.cancel()

	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.GuildID] == s {
		delete(m.sessions, s.GuildID)
	}
}
