package home

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

const historyLimit = 10

func handleMP3History(event *events.ApplicationCommandInteractionCreate) {
	ctx := context.Background()
	guildID := *event.GuildID()

	records, err := sys.GetRecentPlays(ctx, guildID, historyLimit)
	if err != nil {
		sys.LogError(sys.MsgGenericError, err)
		mp3Reply(event, sys.ErrCmdHistoryFailed)
		return
	}
	if len(records) == 0 {
		mp3Reply(event, sys.MsgCmdHistoryEmpty)
		return
	}
	total, err := sys.GetPlayCount(ctx, guildID)
	if err != nil {
		total = len(records)
	}

	eb := discord.NewEmbedBuilder().
		SetTitle("Recently played").
		SetDescription(formatHistory(records)).
		SetColor(proc.ColorLocal).
		SetFooterText(fmt.Sprintf("%d tracks played in this server", total))

	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetEmbeds(eb.Build()).
		Build())
}

func formatHistory(records []*sys.PlayRecord) string {
	var sb strings.Builder
	for _, r := range records {
		fmt.Fprintf(&sb, "<t:%d:R> %s", r.PlayedAt.Unix(), sys.TruncateCenter(r.Title, 80))
		if r.Artist != "" {
			sb.WriteString(" - " + r.Artist)
		}
		if r.Requester != "" {
			sb.WriteString(" (requested by " + r.Requester + ")")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
