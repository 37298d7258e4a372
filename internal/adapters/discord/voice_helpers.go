package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
)

const voiceEventTimeout = 10 * time.Second

// toVoiceEvent arma el evento del watcher. BeforeUpdate es nil si el cache no
// tenía estado previo; en ese caso BeforeChannelID queda vacío.
func toVoiceEvent(vs *discordgo.VoiceStateUpdate) cycle.VoiceEvent {
	ev := cycle.VoiceEvent{
		GuildID:        vs.GuildID,
		UserID:         vs.UserID,
		AfterChannelID: vs.ChannelID,
		Mute:           vs.Mute,
	}
	if vs.Member != nil && vs.Member.User != nil {
		ev.Bot = vs.Member.User.Bot
	}
	if vs.BeforeUpdate != nil {
		ev.BeforeChannelID = vs.BeforeUpdate.ChannelID
	}
	return ev
}

func (r *Router) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.VoiceState == nil {
		return
	}
	if r.guildID != "" && vs.GuildID != r.guildID {
		return
	}
	ev := toVoiceEvent(vs)
	if vs.Member == nil && vs.UserID != "" {
		ev.Bot = r.platform.isBot(context.Background(), vs.GuildID, *vs.VoiceState)
	}

	// fuera del loop del gateway: el edit de mute es una llamada REST
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), voiceEventTimeout)
		defer cancel()
		r.cycle.HandleVoiceUpdate(ctx, ev)
	}()
}
