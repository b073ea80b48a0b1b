package proc

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"
)

// TagReader parses a local file into a track.
type TagReader func(path string) (*LocalTrack, error)

// Scanner lists the playable files in a directory.
type Scanner func(dir string) ([]string, error)

// Shuffler reorders paths in place.
type Shuffler func(paths []string)

// ReadTags parses ID3 metadata and the embedded cover from an MP3 file.
func ReadTags(path string) (*LocalTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}

	t := &LocalTrack{
		Path:       path,
		TrackTitle: strings.TrimSpace(m.Title()),
		Artist:     strings.TrimSpace(m.Artist()),
		Album:      strings.TrimSpace(m.Album()),
		Year:       m.Year(),
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		t.Cover = pic.Data
		t.CoverMIME = pic.MIMEType
	}
	return t, nil
}

// ScanMP3 globs *.mp3 files in dir, sorted so callers shuffle a stable input.
func ScanMP3(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mp3") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func shuffle(paths []string) {
	rand.Shuffle(len(paths), func(i, j int) { paths[i], paths[j] = paths[j], paths[i] })
}

// withFallbacks fills blank fields so display code never sees an empty title.
func withFallbacks(path string, t *LocalTrack) *LocalTrack {
	if t == nil {
		t = &LocalTrack{Path: path}
	}
	t.Path = path
	if t.TrackTitle == "" {
		t.TrackTitle = titleFromPath(path)
	}
	if t.Artist == "" {
		t.Artist = "Unknown"
	}
	if t.Album == "" {
		t.Album = "Unknown"
	}
	return t
}
