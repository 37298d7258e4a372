package cycle

import "context"

// VoiceChannel es el canal de voz vigilado, ya resuelto.
type VoiceChannel struct {
	ID   string
	Name string
}

// VoiceMember es el estado mínimo de voz de un miembro conectado.
type VoiceMember struct {
	UserID string
	Bot    bool
	Mute   bool // server mute, no self mute
}

// VoiceEvent: join/leave/move que llega de la plataforma.
// BeforeChannelID queda vacío si no conocíamos el estado previo.
type VoiceEvent struct {
	GuildID         string
	UserID          string
	Bot             bool
	BeforeChannelID string
	AfterChannelID  string
	Mute            bool
}

// Lo implementa internal/adapters/discord.Platform
type Voice interface {
	// ResolveVoiceChannel busca por id y, si no, por nombre exacto o prefijo.
	// Devuelve ErrChannelNotFound si no existe.
	ResolveVoiceChannel(ctx context.Context, guildID, channelID, name string) (VoiceChannel, error)
	VoiceMembers(ctx context.Context, guildID, channelID string) ([]VoiceMember, error)
	SetMute(ctx context.Context, guildID, userID string, mute bool) error
}

// Lo implementa internal/adapters/discord.Platform
type Messenger interface {
	// ChatChannel devuelve (o crea) el canal de texto donde anuncia el bot.
	ChatChannel(ctx context.Context, guildID string) (string, error)
	Send(ctx context.Context, channelID, content string) (string, error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	Delete(ctx context.Context, channelID, messageID string) error
	// PurgeStatusTags borra mensajes propios con formato de StatusTag, salvo keepID.
	PurgeStatusTags(ctx context.Context, channelID, keepID string) (int, error)
}

// Lo implementa internal/adapters/discord.Platform
type Alerter interface {
	PlayAlert(ctx context.Context, guildID, channelID string) error
	Disconnect(guildID string)
}

// Lo implementa internal/app/service.Recorder (historial en Postgres).
type SessionRecorder interface {
	SessionStarted(ctx context.Context, guildID string, studyMinutes, breakMinutes int) (string, error)
	StudyCompleted(ctx context.Context, sessionID string, completed int) error
	SessionStopped(ctx context.Context, sessionID string, completed int) error
}

type noopAlerter struct{}

func (noopAlerter) PlayAlert(context.Context, string, string) error { return nil }
func (noopAlerter) Disconnect(string)                               {}

type noopRecorder struct{}

func (noopRecorder) SessionStarted(context.Context, string, int, int) (string, error) { return "", nil }
func (noopRecorder) StudyCompleted(context.Context, string, int) error                 { return nil }
func (noopRecorder) SessionStopped(context.Context, string, int) error                 { return nil }
