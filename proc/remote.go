package proc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
)

const ytdlpPrintFormat = "%(id)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(url)s"

// Resolver turns a request query or URL into a playable RemoteTrack.
// Stream URLs are signed and expire, so tracks older than MaxAge are
// resolved again before they play.
type Resolver struct {
	Timeout time.Duration
	MaxAge  time.Duration

	fetch func(ctx context.Context, target string) (string, error)
	now   func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{
		Timeout: 30 * time.Second,
		MaxAge:  5 * time.Minute,
		fetch:   fetchYtdlp,
		now:     time.Now,
	}
}

// Resolve looks query up on YouTube when it is not a URL, then asks yt-dlp
// for the metadata and best-audio stream URL.
func (r *Resolver) Resolve(ctx context.Context, query string, requester Requester) (*RemoteTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoResults
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	target := query
	if !IsURL(query) {
		res, err := ytsearch.NewClient(nil).Search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		if len(res.Results) == 0 {
			return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
		}
		target = "https://www.youtube.com/watch?v=" + res.Results[0].VideoID
	}

	t, err := r.lookup(ctx, target)
	if err != nil {
		return nil, err
	}
	t.Query = query
	t.RequestedBy = requester
	return t, nil
}

// Refresh returns t unchanged while its stream URL is younger than MaxAge.
// Otherwise it returns a copy carrying a freshly resolved stream URL.
func (r *Resolver) Refresh(ctx context.Context, t *RemoteTrack) (*RemoteTrack, error) {
	if r.MaxAge > 0 && !t.ResolvedAt.IsZero() && r.clock().Sub(t.ResolvedAt) < r.MaxAge {
		return t, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fresh, err := r.lookup(ctx, t.URL())
	if err != nil {
		return nil, err
	}
	out := *t
	out.StreamURL = fresh.StreamURL
	out.ResolvedAt = fresh.ResolvedAt
	if out.Duration == 0 {
		out.Duration = fresh.Duration
	}
	return &out, nil
}

func (r *Resolver) lookup(ctx context.Context, target string) (*RemoteTrack, error) {
	fetch := r.fetch
	if fetch == nil {
		fetch = fetchYtdlp
	}
	stdout, err := fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp %s: %w", target, err)
	}
	t, err := parseYtdlpOutput(stdout)
	if err != nil {
		return nil, err
	}
	t.ResolvedAt = r.clock()
	return t, nil
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout > 0 {
		return context.WithTimeout(ctx, r.Timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Resolver) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func fetchYtdlp(ctx context.Context, target string) (string, error) {
	res, err := ytdlp.New().
		Print(ytdlpPrintFormat).
		Format("bestaudio[ext=webm]/bestaudio").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", target)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// parseYtdlpOutput reads the first complete line printed with ytdlpPrintFormat.
func parseYtdlpOutput(stdout string) (*RemoteTrack, error) {
	for _, l := range strings.Split(strings.TrimSpace(stdout), "\n") {
		ps := strings.Split(strings.TrimRight(l, "\r"), "\t")
		if len(ps) < 6 || ps[5] == "" || ps[5] == "NA" {
			continue
		}
		d, _ := time.ParseDuration(ps[3] + "s")
		return &RemoteTrack{
			VideoID:      naToEmpty(ps[0]),
			TrackTitle:   naToEmpty(ps[1]),
			Author:       naToEmpty(ps[2]),
			Duration:     d,
			ThumbnailURL: naToEmpty(ps[4]),
			StreamURL:    ps[5],
		}, nil
	}
	return nil, fmt.Errorf("%w: yt-dlp printed no playable format", ErrNoResults)
}

func naToEmpty(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}

// IsURL reports whether s is an absolute http(s) URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ExtractVideoID pulls the video ID out of the common YouTube URL shapes.
func ExtractVideoID(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	host := strings.TrimPrefix(u.Host, "www.")
	path := strings.Trim(u.Path, "/")
	switch {
	case host == "youtu.be":
		return path
	case strings.HasPrefix(path, "shorts/"):
		return strings.TrimPrefix(path, "shorts/")
	}
	return ""
}
