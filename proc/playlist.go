package proc

import (
	"fmt"
	"sync"

	"github.com/leeineian/mp3bot/sys"
)

// QueueLimit is the maximum number of items returned by Queue.
const QueueLimit = 10

// Playlist keeps a shuffled backlog of local files, a small cache of
// resolved tracks and a FIFO of requests that play first.
type Playlist struct {
	mu          sync.Mutex
	dir         string
	cacheLength int
	backlog     []string
	cache       []Track
	requests    []Track

	scan     Scanner
	shuffle  Shuffler
	readTags TagReader
}

type PlaylistOption func(*Playlist)

func WithScanner(s Scanner) PlaylistOption {
	return func(p *Playlist) { p.scan = s }
}

func WithShuffler(s Shuffler) PlaylistOption {
	return func(p *Playlist) { p.shuffle = s }
}

func WithTagReader(r TagReader) PlaylistOption {
	return func(p *Playlist) { p.readTags = r }
}

// NewPlaylist scans dir and fills the cache to cacheLength tracks.
// It fails with ErrEmptySource when dir holds no MP3 files.
func NewPlaylist(dir string, cacheLength int, opts ...PlaylistOption) (*Playlist, error) {
	if cacheLength < 1 {
		cacheLength = 1
	}
	p := &Playlist{
		dir:         dir,
		cacheLength: cacheLength,
		scan:        ScanMP3,
		shuffle:     shuffle,
		readTags:    ReadTags,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.reload(); err != nil {
		return nil, err
	}
	total := len(p.backlog)

	if err := p.fill(cacheLength); err != nil {
		return nil, err
	}

	sys.LogPlaylist(sys.MsgPlaylistLoaded, total, dir)
	return p, nil
}

// AddRequest queues t ahead of the shuffled playlist.
func (p *Playlist) AddRequest(t Track) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, t)
	return len(p.requests)
}

// NextTrack removes and returns the next item: the oldest request if any,
// otherwise the cache head, replenishing the cache from the backlog.
func (p *Playlist) NextTrack() (Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.requests) > 0 {
		t := p.requests[0]
		p.requests[0] = nil
		p.requests = p.requests[1:]
		return t, nil
	}

	if err := p.fill(p.cacheLength + 1); err != nil {
		if len(p.cache) == 0 {
			return nil, err
		}
		sys.LogWarn(sys.MsgPlaylistRefillFail, err)
	}

	t := p.cache[0]
	p.cache[0] = nil
	p.cache = p.cache[1:]
	return t, nil
}

// Queue returns up to QueueLimit upcoming items, requests first.
func (p *Playlist) Queue() []Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Track, 0, QueueLimit)
	for _, t := range p.requests {
		if len(out) == QueueLimit {
			return out
		}
		out = append(out, t)
	}
	for _, t := range p.cache {
		if len(out) == QueueLimit {
			return out
		}
		out = append(out, t)
	}
	return out
}

// Len is the number of resolved items waiting to play.
func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests) + len(p.cache)
}

func (p *Playlist) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Rescan drops the backlog so the next refill reads the directory again.
func (p *Playlist) Rescan() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backlog = nil
}

func (p *Playlist) Dir() string { return p.dir }

// fill resolves backlog entries until the cache holds n tracks.
func (p *Playlist) fill(n int) error {
	for len(p.cache) < n {
		t, err := p.newTrack()
		if err != nil {
			return err
		}
		p.cache = append(p.cache, t)
	}
	return nil
}

// newTrack pops the backlog head, reloading the directory once when the
// backlog is empty.
func (p *Playlist) newTrack() (*LocalTrack, error) {
	if len(p.backlog) == 0 {
		if err := p.reload(); err != nil {
			return nil, err
		}
		sys.LogPlaylist(sys.MsgPlaylistReshuffled, len(p.backlog), p.dir)
	}

	path := p.backlog[0]
	p.backlog = p.backlog[1:]
	return p.resolve(path), nil
}

func (p *Playlist) reload() error {
	paths, err := p.scan(p.dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEmptySource, p.dir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySource, p.dir)
	}
	p.shuffle(paths)
	p.backlog = paths
	return nil
}

func (p *Playlist) resolve(path string) *LocalTrack {
	t, err := p.readTags(path)
	if err != nil {
		sys.LogWarn(sys.MsgPlaylistTagFail, path, err)
		t = nil
	}
	return withFallbacks(path, t)
}
