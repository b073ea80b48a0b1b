package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

func handleMP3Queue(event *events.ApplicationCommandInteractionCreate) {
	s := currentSession(event)
	if s == nil {
		mp3Reply(event, sys.ErrCmdNotRunning)
		return
	}

	now := s.NowPlaying()
	color := proc.ColorLocal
	if now != nil && now.Kind() == proc.KindRemote {
		color = proc.ColorRemote
	}

	eb := discord.NewEmbedBuilder().
		SetTitle("Now playing: " + queueTitle(now)).
		SetDescription(formatQueue(s.Playlist().Queue())).
		SetColor(color).
		SetFooterText("Volume " + sys.FormatVolume(s.Volume()))

	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetEmbeds(eb.Build()).
		Build())
}

func queueTitle(t proc.Track) string {
	if t == nil {
		return "nothing"
	}
	return sys.TruncateCenter(t.Title(), 200)
}

// formatQueue renders one numbered line per upcoming track.
func formatQueue(items []proc.Track) string {
	if len(items) == 0 {
		return sys.MsgCmdQueueEmpty
	}
	var sb strings.Builder
	for i, t := range items {
		fmt.Fprintf(&sb, "`%d.` %s", i+1, sys.TruncateCenter(t.Title(), 80))
		if artist := proc.Artist(t); artist != "" {
			sb.WriteString(" - " + artist)
		}
		if rt, ok := t.(*proc.RemoteTrack); ok {
			fmt.Fprintf(&sb, " (%s, requested by %s)", sys.FormatDuration(rt.Duration), rt.RequestedBy.Name)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
