package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

func handleMP3Request(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	s := currentSession(event)
	if s == nil {
		mp3Reply(event, sys.ErrCmdNotRunning)
		return
	}
	query := data.String("query")

	_ = event.DeferCreateMessage(false)

	requester := proc.Requester{ID: event.User().ID, Name: event.User().EffectiveName()}
	track, err := resolver.Resolve(context.Background(), query, requester)
	if err != nil {
		mp3Update(event, fmt.Sprintf(sys.ErrCmdRequestFailed, err))
		return
	}

	pos := s.Playlist().AddRequest(track)
	mp3Update(event, fmt.Sprintf(sys.MsgCmdRequested, sys.TruncateCenter(track.Title(), 80), track.URL(), pos))
}

// currentSession returns the guild's running session, or nil.
func currentSession(event *events.ApplicationCommandInteractionCreate) *proc.Session {
	m := players.Load()
	if m == nil {
		return nil
	}
	return m.Get(*event.GuildID())
}
