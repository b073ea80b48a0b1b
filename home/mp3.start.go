package home

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

type historyRecorder struct {
	guildID snowflake.ID
}

func (r historyRecorder) RecordPlay(ctx context.Context, t proc.Track) error {
	rec := &sys.PlayRecord{
		GuildID: r.guildID,
		Kind:    string(t.Kind()),
		Title:   t.Title(),
		Artist:  proc.Artist(t),
	}
	if rt, ok := t.(*proc.RemoteTrack); ok {
		rec.Requester = rt.RequestedBy.Name
	}
	return sys.AddPlayRecord(ctx, rec)
}

func handleMP3Start(event *events.ApplicationCommandInteractionCreate) {
	m := players.Load()
	if m == nil {
		mp3Reply(event, sys.ErrCmdNotReady)
		return
	}

	guildID := *event.GuildID()
	voiceState, ok := event.Client().Caches.VoiceState(guildID, event.User().ID)
	if !ok || voiceState.ChannelID == nil {
		mp3Reply(event, sys.ErrCmdNotInVoice)
		return
	}
	if m.Get(guildID) != nil {
		mp3Reply(event, sys.ErrCmdAlreadyRunning)
		return
	}

	_ = event.DeferCreateMessage(false)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	cfg := sys.GlobalConfig
	volume := cfg.DefaultVolume
	logChannel := parseLogChannel(cfg.LogChannelID)
	settings, err := sys.GetGuildSettings(ctx, guildID)
	if err != nil {
		sys.LogWarn(sys.MsgGenericError, err)
	} else {
		if settings.HasVolume {
			volume = settings.Volume
		}
		if settings.LogChannelID != 0 {
			logChannel = settings.LogChannelID
		}
	}

	client := event.Client()
	_, err = m.Start(ctx, proc.StartOptions{
		GuildID:   guildID,
		ChannelID: *voiceState.ChannelID,
		Channel:   proc.NewCachedChannel(client.Caches, client.ID, guildID, *voiceState.ChannelID),
		Logger:    proc.NewChannelLogger(client.Rest, logChannel, youtubeLogo),
		Recorder:  historyRecorder{guildID: guildID},
		Refresher: resolver,
		Volume:    volume,
	})
	switch {
	case errors.Is(err, proc.ErrAlreadyRunning):
		mp3Update(event, sys.ErrCmdAlreadyRunning)
	case err != nil:
		mp3Update(event, fmt.Sprintf(sys.ErrCmdStartFailed, err))
	default:
		mp3Update(event, fmt.Sprintf(sys.MsgCmdStarted, voiceState.ChannelID.String()))
	}
}

func parseLogChannel(s string) snowflake.ID {
	if s == "" {
		return 0
	}
	id, err := snowflake.Parse(s)
	if err != nil {
		return 0
	}
	return id
}
