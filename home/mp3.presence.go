package home

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

const (
	presenceInterval = 20 * time.Second
	presenceIdle     = "the playlist"
)

var presenceClient atomic.Pointer[bot.Client]

func init() {
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		presenceClient.Store(client)
	})
	sys.RegisterDaemon(sys.LogPlayer, func(ctx context.Context) (bool, func(), func()) {
		client := presenceClient.Load()
		if client == nil {
			return false, nil, nil
		}
		return true, func() { runPresence(ctx, client) }, nil
	})
}

// runPresence mirrors the current track into the bot's "Listening to" activity.
func runPresence(ctx context.Context, client *bot.Client) {
	ticker := time.NewTicker(presenceInterval)
	defer ticker.Stop()

	last := presenceIdle
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var sessions []*proc.Session
		if m := players.Load(); m != nil {
			sessions = m.Sessions()
		}
		text := presenceText(sessions)
		if text == last {
			continue
		}
		err := client.SetPresence(ctx,
			gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			gateway.WithListeningActivity(text),
		)
		if err != nil {
			sys.LogDebug("Failed to update presence: %v", err)
			continue
		}
		last = text
	}
}

func presenceText(sessions []*proc.Session) string {
	switch len(sessions) {
	case 0:
		return presenceIdle
	case 1:
		if t := sessions[0].NowPlaying(); t != nil {
			return sys.TruncateCenter(t.Title(), 120)
		}
		return presenceIdle
	default:
		return fmt.Sprintf("%s in %d servers", presenceIdle, len(sessions))
	}
}
