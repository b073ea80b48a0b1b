package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/mp3bot/sys"
)

func handleMP3Skip(event *events.ApplicationCommandInteractionCreate) {
	s := currentSession(event)
	if s == nil || s.NowPlaying() == nil {
		mp3Reply(event, sys.ErrCmdNotRunning)
		return
	}

	voiceState, ok := event.Client().Caches.VoiceState(*event.GuildID(), event.User().ID)
	if !ok || voiceState.ChannelID == nil || *voiceState.ChannelID != s.ChannelID() {
		mp3Reply(event, sys.ErrCmdWrongChannel)
		return
	}

	votes, needed, skipped := s.VoteSkip(event.User().ID)
	content := fmt.Sprintf(sys.MsgCmdSkipVote, votes, needed)
	if skipped {
		content = sys.MsgCmdSkipped
	}
	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		Build())
}
