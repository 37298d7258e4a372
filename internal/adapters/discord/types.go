package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
)

type Ctx struct {
	Log     *slog.Logger
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	GuildID string
	UserID  string
}

// Reply responde efímero a la interacción ya diferida.
func (c *Ctx) Reply(msg string) { ReplyEphemeral(c.Session, c.Event, msg) }

type CommandHandler func(ctx context.Context, c *Ctx) error

type Command struct {
	Name string
	// Opcional: permisos/middleware
	AdminOnly bool
	Handler   CommandHandler
}

// CycleController es lo que el router necesita del motor (cycle.Manager).
type CycleController interface {
	Start(ctx context.Context, req cycle.StartRequest) error
	Stop(ctx context.Context, guildID string) (int, error)
	QueueExtension(ctx context.Context, guildID string, minutes int) error
	Status(guildID string) (cycle.Snapshot, bool)
	HandleVoiceUpdate(ctx context.Context, ev cycle.VoiceEvent)
}

// HistoryReader arma el texto de /history (service.HistoryService).
type HistoryReader interface {
	Describe(ctx context.Context, guildID string, limit int) (string, error)
}
