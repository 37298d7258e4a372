package discord

import (
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// una invocación por usuario cada commandCooldown
const commandCooldown = 2 * time.Second

type Router struct {
	s       *discordgo.Session
	guildID string // vacío = comandos globales
	log     *slog.Logger

	cycle        CycleController
	platform     *Platform
	history      HistoryReader // nil sin base de datos
	voiceName    string
	adminRoleIDs []string

	limiter  *userLimiter
	commands map[string]Command
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	cycle CycleController,
	platform *Platform,
	history HistoryReader,
	voiceName string,
	adminRoleIDs []string,
	log *slog.Logger,
) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{
		s:            s,
		guildID:      guildID,
		log:          log.With("component", "discord"),
		cycle:        cycle,
		platform:     platform,
		history:      history,
		voiceName:    voiceName,
		adminRoleIDs: adminRoleIDs,
		limiter:      newUserLimiter(commandCooldown),
	}
	r.commands = map[string]Command{}
	for _, c := range []Command{
		{Name: "learn", Handler: r.cmdLearn},
		{Name: "stop", Handler: r.cmdStop},
		{Name: "extendbreak", Handler: r.cmdExtendBreak},
		{Name: "cyclestatus", Handler: r.cmdCycleStatus},
		{Name: "unmute", AdminOnly: true, Handler: r.cmdUnmute},
		{Name: "clear", AdminOnly: true, Handler: r.cmdClear},
		{Name: "history", Handler: r.cmdHistory},
	} {
		r.commands[c.Name] = c
	}
	return r
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		r.handleSlashCommand(s, ic)
	})
	r.s.AddHandler(r.onVoiceStateUpdate)
}
