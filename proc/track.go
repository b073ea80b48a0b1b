package proc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrEmptySource    = errors.New("no tracks found in playlist directory")
	ErrAlreadyRunning = errors.New("a session is already running in this guild")
	ErrNotRunning     = errors.New("no session is running in this guild")
	ErrNoResults      = errors.New("no results found")
)

// TrackKind distinguishes the two track variants.
type TrackKind string

const (
	KindLocal  TrackKind = "local"
	KindRemote TrackKind = "remote"
)

// Track is either a *LocalTrack or a *RemoteTrack.
type Track interface {
	Kind() TrackKind
	Title() string
	// Source is the file path or stream URL handed to the audio output.
	Source() string
	sealed()
}

// LocalTrack is an MP3 from the playlist directory.
type LocalTrack struct {
	Path       string
	TrackTitle string
	Artist     string
	Album      string
	Year       int
	Cover      []byte
	CoverMIME  string
}

func (t *LocalTrack) Kind() TrackKind { return KindLocal }
func (t *LocalTrack) Title() string   { return t.TrackTitle }
func (t *LocalTrack) Source() string  { return t.Path }
func (t *LocalTrack) sealed()         {}

// Date is the release year or "Unknown".
func (t *LocalTrack) Date() string {
	if t.Year <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%d", t.Year)
}

// CoverName is the attachment file name for the cover image.
func (t *LocalTrack) CoverName() string {
	switch strings.ToLower(t.CoverMIME) {
	case "image/png":
		return "cover.png"
	case "image/gif":
		return "cover.gif"
	default:
		return "cover.jpg"
	}
}

// Requester identifies who asked for a remote track.
type Requester struct {
	ID   snowflake.ID
	Name string
}

// RemoteTrack is a user request resolved through yt-dlp.
type RemoteTrack struct {
	Query        string
	VideoID      string
	TrackTitle   string
	Author       string
	ThumbnailURL string
	Duration     time.Duration
	StreamURL    string
	ResolvedAt   time.Time
	RequestedBy  Requester
}

func (t *RemoteTrack) Kind() TrackKind { return KindRemote }
func (t *RemoteTrack) Title() string   { return t.TrackTitle }
func (t *RemoteTrack) Source() string  { return t.StreamURL }
func (t *RemoteTrack) sealed()         {}

// URL is the short link to the video page.
func (t *RemoteTrack) URL() string {
	if t.VideoID == "" {
		return t.Query
	}
	return "https://youtu.be/" + t.VideoID
}

// Artist returns the best display artist for any track.
func Artist(t Track) string {
	switch v := t.(type) {
	case *LocalTrack:
		return v.Artist
	case *RemoteTrack:
		return v.Author
	}
	return ""
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
