package home

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/mp3bot/audio"
	"github.com/leeineian/mp3bot/proc"
	"github.com/leeineian/mp3bot/sys"
)

const startTimeout = 30 * time.Second

var (
	players     atomic.Pointer[proc.Manager]
	youtubeLogo []byte
	resolver    = proc.NewResolver()
)

func init() {
	connectPerm := discord.PermissionConnect

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "mp3",
		Description:              "Shuffle the local playlist into your voice channel",
		DefaultMemberPermissions: omit.New(&connectPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "start",
				Description: "Join your voice channel and start the playlist",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stop",
				Description: "Stop playback and leave the voice channel",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "request",
				Description: "Queue a YouTube video ahead of the playlist",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:         "query",
						Description:  "YouTube URL or search terms",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "queue",
				Description: "Show the current track and what plays next",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "volume",
				Description: "Change the playback volume",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "percent",
						Description: "Volume in percent (0-200)",
						Required:    true,
						MinValue:    intPtr(0),
						MaxValue:    intPtr(200),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "skip",
				Description: "Vote to skip the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "logchannel",
				Description: "Post now-playing messages in a channel",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionChannel{
						Name:         "channel",
						Description:  "Defaults to this channel",
						ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText},
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "history",
				Description: "Show the last played tracks",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		if event.GuildID() == nil {
			mp3Reply(event, sys.ErrCmdGuildOnly)
			return
		}
		data := event.SlashCommandInteractionData()
		if data.SubCommandName == nil {
			return
		}
		switch *data.SubCommandName {
		case "start":
			handleMP3Start(event)
		case "stop":
			handleMP3Stop(event)
		case "request":
			handleMP3Request(event, data)
		case "queue":
			handleMP3Queue(event)
		case "volume":
			handleMP3Volume(event, data)
		case "skip":
			handleMP3Skip(event)
		case "logchannel":
			handleMP3LogChannel(event, data)
		case "history":
			handleMP3History(event)
		}
	})

	sys.RegisterAutocompleteHandler("mp3", handleMP3Autocomplete)

	sys.RegisterVoiceStateUpdateHandler(func(event *events.GuildVoiceStateUpdate) {
		m := players.Load()
		if m == nil {
			return
		}
		m.OnVoiceStateUpdate(event.VoiceState.GuildID, event.VoiceState.UserID, event.VoiceState.ChannelID)
	})

	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		cfg := sys.GlobalConfig
		if cfg == nil || players.Load() != nil {
			return
		}
		youtubeLogo = loadLogo(cfg.YoutubeLogoFile)
		players.Store(proc.NewManager(ctx, audio.Connector(client), cfg.PlaylistDirectory, cfg.CacheLength))
	})

	sys.RegisterDaemon(sys.LogPlayer, func(ctx context.Context) (bool, func(), func()) {
		m := players.Load()
		if m == nil {
			return false, nil, nil
		}
		return true, func() { <-ctx.Done() }, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			m.Shutdown(shutdownCtx)
		}
	})
}

func handleMP3Autocomplete(event *events.AutocompleteInteractionCreate) {
	focused := event.Data.Focused()
	if focused.Name != "query" {
		return
	}
	query := focused.String()
	if query == "" {
		_ = event.AutocompleteResult(nil)
		return
	}

	results := proc.Search(context.Background(), query)
	choices := make([]discord.AutocompleteChoice, 0, len(results))
	for _, r := range results {
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  r.Title,
			Value: r.URL,
		})
	}
	_ = event.AutocompleteResult(choices)
}

// loadLogo reads the icon attached to remote-track embeds. Embeds are sent
// without it when the file is missing.
func loadLogo(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		sys.LogDebug("YouTube logo unavailable: %v", err)
		return nil
	}
	return b
}

func mp3Reply(event *events.ApplicationCommandInteractionCreate, content string) {
	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
}

func mp3Update(event *events.ApplicationCommandInteractionCreate, content string) {
	_, _ = event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
		SetContent(content).
		Build())
}

func intPtr(i int) *int {
	return &i
}
