package proc

import (
	"context"
	"sync"
	"time"

	"github.com/leeineian/mp3bot/sys"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

// MaxSuggestions is the Discord limit on autocomplete choices.
const MaxSuggestions = 25

type SearchResult struct {
	Title string
	URL   string
}

// Search collects autocomplete suggestions from YouTube Music and YouTube,
// music results first, deduplicated by video ID.
func Search(ctx context.Context, query string) []SearchResult {
	ctx, cancel := context.WithTimeout(ctx, 2600*time.Millisecond)
	defer cancel()

	var mu sync.Mutex
	var ytm, yt []SearchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			return
		}
		for _, v := range r.Tracks {
			if v.VideoID == "" {
				continue
			}
			art := ""
			if len(v.Artists) > 0 {
				art = " - " + v.Artists[0].Name
			}
			mu.Lock()
			ytm = append(ytm, SearchResult{
				URL:   "https://music.youtube.com/watch?v=" + v.VideoID,
				Title: sys.TruncateWithPreserve(v.Title, 100, "", art),
			})
			mu.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		r, err := ytsearch.NewClient(nil).Search(ctx, query)
		if err != nil {
			return
		}
		for _, v := range r.Results {
			if v.VideoID == "" {
				continue
			}
			mu.Lock()
			yt = append(yt, SearchResult{
				URL:   "https://www.youtube.com/watch?v=" + v.VideoID,
				Title: sys.TruncateCenter(v.Title, 100),
			})
			mu.Unlock()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	return mergeResults(ytm, yt)
}

func mergeResults(lists ...[]SearchResult) []SearchResult {
	seen := make(map[string]bool)
	var out []SearchResult
	for _, list := range lists {
		for _, r := range list {
			id := ExtractVideoID(r.URL)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, r)
			if len(out) == MaxSuggestions {
				return out
			}
		}
	}
	return out
}
