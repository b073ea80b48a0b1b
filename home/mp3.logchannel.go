package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/mp3bot/sys"
)

func handleMP3LogChannel(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if member := event.Member(); member == nil || !member.Permissions.Has(discord.PermissionManageGuild) {
		mp3Reply(event, sys.ErrCmdNoPermission)
		return
	}

	channelID := event.Channel().ID()
	if ch, ok := data.OptChannel("channel"); ok {
		channelID = ch.ID
	}

	if err := sys.SetGuildLogChannel(context.Background(), *event.GuildID(), channelID); err != nil {
		sys.LogError(sys.MsgGenericError, err)
		mp3Reply(event, sys.ErrCmdSettingsFailed)
		return
	}

	// Takes effect from the next /mp3 start.
	mp3Reply(event, fmt.Sprintf(sys.MsgCmdLogChannel, channelID.String()))
}
