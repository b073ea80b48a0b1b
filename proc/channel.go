package proc

import (
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// CachedChannel is a ChannelState read from the gateway voice-state cache.
// It follows the bot's own channel, and falls back to the channel it was
// asked to join until the bot's voice state arrives. Every member in the
// channel is returned; Session.Listeners decides who counts.
type CachedChannel struct {
	states    cache.VoiceStateCache
	self      func() snowflake.ID
	guildID   snowflake.ID
	channelID snowflake.ID
}

func NewCachedChannel(states cache.VoiceStateCache, self func() snowflake.ID, guildID, channelID snowflake.ID) *CachedChannel {
	return &CachedChannel{states: states, self: self, guildID: guildID, channelID: channelID}
}

func (c *CachedChannel) SelfID() snowflake.ID {
	return c.self()
}

func (c *CachedChannel) VoiceStates() []discord.VoiceState {
	channelID := c.channelID
	if self, ok := c.states.VoiceState(c.guildID, c.self()); ok && self.ChannelID != nil {
		channelID = *self.ChannelID
	}

	var out []discord.VoiceState
	for state := range c.states.VoiceStates(c.guildID) {
		if state.ChannelID != nil && *state.ChannelID == channelID {
			out = append(out, state)
		}
	}
	return out
}
