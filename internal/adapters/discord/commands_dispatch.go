// esta es la logica de InteractionApplicationCommand de discordgo
// aqui solo manejamos la interaccion del usuario y despachamos al motor de ciclos
package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
)

// esto es basicamente mi reciver function
func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.ApplicationCommandData()
	if ic.GuildID == "" || ic.Member == nil || ic.Member.User == nil {
		_ = SendEphemeral(s, ic, "This command only works inside a server.")
		return
	}
	log := r.log.With("cmd", data.Name, "guild", ic.GuildID, "user", ic.Member.User.ID)
	log.Info("slash command")

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in slash command", "panic", rec)
			ReplyEphemeral(s, ic, "❌ Unexpected error while running the command.")
		}
	}()

	cmd, ok := r.commands[data.Name]
	if !ok {
		_ = SendEphemeral(s, ic, "Unknown command.")
		return
	}
	if !r.limiter.Allow(ic.Member.User.ID) {
		_ = SendEphemeral(s, ic, "⏳ Slow down a little.")
		return
	}

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if cmd.AdminOnly && !r.requireAdminOrRoles(s, ic) {
		return
	}

	c := &Ctx{Log: log, Session: s, Event: ic, GuildID: ic.GuildID, UserID: ic.Member.User.ID}
	done := step(log, "cmd."+data.Name)
	err := cmd.Handler(ctx, c)
	done()
	if err != nil {
		log.Warn("slash command failed", "err", err)
		c.Reply(userMessage(err, r.voiceName))
	}
}

// userMessage traduce errores del motor a texto para el usuario.
func userMessage(err error, voiceName string) string {
	switch {
	case errors.Is(err, cycle.ErrInvalidDuration):
		return "⚠️ " + err.Error()
	case errors.Is(err, cycle.ErrAlreadyRunning):
		return "A cycle is already running. Use /stop first."
	case errors.Is(err, cycle.ErrNotRunning):
		return "No running cycle. Use /learn first."
	case errors.Is(err, cycle.ErrChannelNotFound):
		return fmt.Sprintf("Voice channel '%s' not found.", voiceName)
	case errors.Is(err, cycle.ErrPermissionDenied):
		return "🔒 I need the 'Mute Members' permission (and a role above the members) to do that."
	default:
		return "⚠️ Something went wrong: " + err.Error()
	}
}

func (r *Router) cmdLearn(ctx context.Context, c *Ctx) error {
	study, ok1 := optInt(c.Event, "study")
	brk, ok2 := optInt(c.Event, "break")
	if !ok1 || !ok2 {
		c.Reply("Usage: `/learn study:<minutes> break:<minutes>`")
		return nil
	}
	if err := r.cycle.Start(ctx, cycle.StartRequest{GuildID: c.GuildID, StudyMinutes: study, BreakMinutes: brk}); err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("✅ Cycle started: study %dm / break %dm in **%s**.", study, brk, r.voiceName))
	return nil
}

func (r *Router) cmdStop(ctx context.Context, c *Ctx) error {
	n, err := r.cycle.Stop(ctx, c.GuildID)
	if err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("⏹️ Stopped after %d study cycle(s).", n))
	return nil
}

func (r *Router) cmdExtendBreak(ctx context.Context, c *Ctx) error {
	minutes, ok := optInt(c.Event, "minutes")
	if !ok {
		c.Reply("Usage: `/extendbreak minutes:<1-1440>`")
		return nil
	}
	if err := r.cycle.QueueExtension(ctx, c.GuildID, minutes); err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("🕒 Next break gets %d extra minute(s).", minutes))
	return nil
}

func (r *Router) cmdCycleStatus(_ context.Context, c *Ctx) error {
	snap, ok := r.cycle.Status(c.GuildID)
	if !ok {
		return cycle.ErrNotRunning
	}
	c.Reply(formatSnapshot(snap))
	return nil
}

func (r *Router) cmdUnmute(ctx context.Context, c *Ctx) error {
	if userID, ok := optUser(c.Event, "user"); ok {
		if err := r.platform.SetMute(ctx, c.GuildID, userID, false); err != nil {
			return err
		}
		c.Reply(fmt.Sprintf("🔊 <@%s> unmuted.", userID))
		return nil
	}
	n, err := r.platform.UnmuteAll(ctx, c.GuildID)
	if err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("🔊 Unmuted %d member(s).", n))
	return nil
}

func (r *Router) cmdClear(ctx context.Context, c *Ctx) error {
	n, err := r.platform.PurgeOwnMessages(ctx, c.GuildID)
	if err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("🧹 Deleted %d message(s).", n))
	return nil
}

func (r *Router) cmdHistory(ctx context.Context, c *Ctx) error {
	if r.history == nil {
		c.Reply("History is disabled (no database configured).")
		return nil
	}
	limit, ok := optInt(c.Event, "limit")
	if !ok {
		limit = 5
	}
	msg, err := r.history.Describe(ctx, c.GuildID, limit)
	if err != nil {
		return err
	}
	c.Reply(msg)
	return nil
}
