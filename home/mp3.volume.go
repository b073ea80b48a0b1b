package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/mp3bot/sys"
)

func handleMP3Volume(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	percent := data.Int("percent")
	if percent < 0 || percent > 200 {
		mp3Reply(event, sys.ErrCmdInvalidVolume)
		return
	}
	volume := float64(percent) / 100

	if s := currentSession(event); s != nil {
		volume = s.ChangeVolume(volume)
	}
	if err := sys.SetGuildVolume(context.Background(), *event.GuildID(), volume); err != nil {
		sys.LogError(sys.MsgGenericError, err)
		mp3Reply(event, sys.ErrCmdSettingsFailed)
		return
	}

	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(fmt.Sprintf(sys.MsgCmdVolume, percent)).
		Build())
}
