package proc

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

func TestTrackMessageLocal(t *testing.T) {
	tr := &LocalTrack{
		Path:       "music/song.mp3",
		TrackTitle: "Song",
		Artist:     "Band",
		Album:      "Record",
		Year:       1999,
		Cover:      []byte{0xff, 0xd8},
		CoverMIME:  "image/jpeg",
	}

	msg := TrackMessage(tr, nil)
	if len(msg.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(msg.Embeds))
	}
	e := msg.Embeds[0]
	if e.Title != "Song" || e.Description != "Record - (1999)" || e.Color != ColorLocal {
		t.Errorf("embed = %q / %q / %#x", e.Title, e.Description, e.Color)
	}
	if e.Author == nil || e.Author.Name != "Band" {
		t.Errorf("author = %+v, want Band", e.Author)
	}
	if e.Thumbnail == nil || e.Thumbnail.URL != "attachment://cover.jpg" {
		t.Errorf("thumbnail = %+v, want attachment://cover.jpg", e.Thumbnail)
	}
	if len(msg.Files) != 1 || msg.Files[0].Name != "cover.jpg" {
		t.Errorf("files = %+v, want cover.jpg", msg.Files)
	}
}

func TestTrackMessageLocalWithoutCover(t *testing.T) {
	tr := withFallbacks("music/bare.mp3", nil)
	msg := TrackMessage(tr, nil)
	e := msg.Embeds[0]
	if e.Title != "bare" || e.Description != "Unknown - (Unknown)" {
		t.Errorf("embed = %q / %q", e.Title, e.Description)
	}
	if e.Thumbnail != nil || len(msg.Files) != 0 {
		t.Errorf("unexpected cover: thumbnail=%+v files=%d", e.Thumbnail, len(msg.Files))
	}
}

func TestTrackMessageRemote(t *testing.T) {
	tr := &RemoteTrack{
		VideoID:      "dQw4w9WgXcQ",
		TrackTitle:   "Video",
		Author:       "Channel",
		ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		RequestedBy:  Requester{ID: 7, Name: "alice"},
	}

	msg := TrackMessage(tr, []byte("png"))
	e := msg.Embeds[0]
	if e.Title != "Video" || e.Description != "Channel" || e.Color != ColorRemote {
		t.Errorf("embed = %q / %q / %#x", e.Title, e.Description, e.Color)
	}
	if e.Author == nil {
		t.Fatal("missing author")
	}
	if e.Author.Name != "Youtube Video - requested by alice" {
		t.Errorf("author name = %q", e.Author.Name)
	}
	if e.Author.URL != "https://youtu.be/dQw4w9WgXcQ" || e.Author.IconURL != "attachment://youtube.png" {
		t.Errorf("author = %+v", e.Author)
	}
	if e.Thumbnail == nil || e.Thumbnail.URL != tr.ThumbnailURL {
		t.Errorf("thumbnail = %+v", e.Thumbnail)
	}
	if len(msg.Files) != 1 || msg.Files[0].Name != "youtube.png" {
		t.Errorf("files = %+v, want youtube.png", msg.Files)
	}

	bare := TrackMessage(tr, nil)
	if bare.Embeds[0].Author.IconURL != "" || len(bare.Files) != 0 {
		t.Error("logo attached without logo bytes")
	}
}

type fakeRest struct {
	channels []snowflake.ID
	err      error
}

func (f *fakeRest) CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error) {
	f.channels = append(f.channels, channelID)
	if f.err != nil {
		return nil, f.err
	}
	return &discord.Message{ChannelID: channelID}, nil
}

func TestChannelLogger(t *testing.T) {
	r := &fakeRest{}
	l := NewChannelLogger(r, 42, nil)
	if err := l.LogTrack(context.Background(), &LocalTrack{TrackTitle: "a"}); err != nil {
		t.Fatalf("LogTrack failed: %v", err)
	}
	if len(r.channels) != 1 || r.channels[0] != 42 {
		t.Errorf("posted to %v, want [42]", r.channels)
	}

	r.err = errors.New("missing access")
	if err := l.LogTrack(context.Background(), &LocalTrack{TrackTitle: "b"}); err == nil {
		t.Error("LogTrack swallowed the REST error")
	}

	silent := NewChannelLogger(r, 0, nil)
	if err := silent.LogTrack(context.Background(), &LocalTrack{TrackTitle: "c"}); err != nil {
		t.Errorf("LogTrack without channel = %v, want nil", err)
	}
	if len(r.channels) != 2 {
		t.Errorf("posted %d times, want 2", len(r.channels))
	}
}
