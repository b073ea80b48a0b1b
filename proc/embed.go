package proc

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"
)

const (
	ColorLocal  = 0x009688
	ColorRemote = 0xf44336

	youtubeLogoName = "youtube.png"
)

// TrackMessage builds the log-channel message announcing t.
// logo is attached as the author icon of remote tracks when non-empty.
func TrackMessage(t Track, logo []byte) discord.MessageCreate {
	switch v := t.(type) {
	case *LocalTrack:
		return localMessage(v)
	case *RemoteTrack:
		return remoteMessage(v, logo)
	}
	return discord.MessageCreate{Content: t.Title()}
}

func localMessage(t *LocalTrack) discord.MessageCreate {
	eb := discord.NewEmbedBuilder().
		SetTitle(t.Title()).
		SetDescription(fmt.Sprintf("%s - (%s)", t.Album, t.Date())).
		SetColor(ColorLocal).
		SetAuthor(t.Artist, "", "")

	msg := discord.MessageCreate{}
	if len(t.Cover) > 0 {
		name := t.CoverName()
		eb.SetThumbnail("attachment://" + name)
		msg.Files = []*discord.File{discord.NewFile(name, "", bytes.NewReader(t.Cover))}
	}
	msg.Embeds = []discord.Embed{eb.Build()}
	return msg
}

func remoteMessage(t *RemoteTrack, logo []byte) discord.MessageCreate {
	icon := ""
	msg := discord.MessageCreate{}
	if len(logo) > 0 {
		icon = "attachment://" + youtubeLogoName
		msg.Files = []*discord.File{discord.NewFile(youtubeLogoName, "", bytes.NewReader(logo))}
	}

	eb := discord.NewEmbedBuilder().
		SetTitle(t.Title()).
		SetDescription(t.Author).
		SetColor(ColorRemote).
		SetAuthor("Youtube Video - requested by "+t.RequestedBy.Name, t.URL(), icon)
	if t.ThumbnailURL != "" {
		eb.SetThumbnail(t.ThumbnailURL)
	}
	msg.Embeds = []discord.Embed{eb.Build()}
	return msg
}

// MessageCreator is the part of the disgo REST client used for posting.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// ChannelLogger posts track announcements to a text channel.
type ChannelLogger struct {
	rest      MessageCreator
	channelID snowflake.ID
	logo      []byte
	limiter   *rate.Limiter
}

func NewChannelLogger(r MessageCreator, channelID snowflake.ID, logo []byte) *ChannelLogger {
	return &ChannelLogger{
		rest:      r,
		channelID: channelID,
		logo:      logo,
		limiter:   rate.NewLimiter(rate.Limit(1), 3),
	}
}

func (l *ChannelLogger) LogTrack(ctx context.Context, t Track) error {
	if l.channelID == 0 {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := l.rest.CreateMessage(l.channelID, TrackMessage(t, l.logo), rest.WithCtx(ctx))
	return err
}
