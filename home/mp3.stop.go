package home

import (
	"errors"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

func handleMP3Stop(event *events.ApplicationCommandInteractionCreate) {
	m := players.Load()
	if m == nil {
		mp3Reply(event, sys.ErrCmdNotRunning)
		return
	}

	if err := m.Stop(*event.GuildID()); err != nil {
		if errors.Is(err, proc.ErrNotRunning) {
			mp3Reply(event, sys.ErrCmdNotRunning)
			return
		}
		mp3Reply(event, err.Error())
		return
	}

	mp3Reply(event, sys.MsgCmdStopped)
}
