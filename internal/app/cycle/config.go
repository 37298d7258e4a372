package cycle

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config agrupa los tiempos del motor. Los tests los achican.
type Config struct {
	VoiceChannelName string

	Minute           time.Duration // largo de un "minuto" de fase
	ChannelBackoff   time.Duration // espera cuando el canal de voz no aparece
	UnmuteRetryDelay time.Duration // segundo unmute al parar
	StatusGrace      time.Duration // antes de borrar el mensaje de estado
	CompletedGrace   time.Duration // tras marcarlo "completed" si el borrado falló
	EditCooldown     time.Duration // debounce por (guild, miembro) al salir del canal
	SkipYield        time.Duration // pausa cuando break = 0
	CleanupTimeout   time.Duration

	MaxConcurrentEdits int
}

func DefaultConfig() Config {
	return Config{
		VoiceChannelName:   "dark-voice",
		Minute:             time.Minute,
		ChannelBackoff:     15 * time.Second,
		UnmuteRetryDelay:   500 * time.Millisecond,
		StatusGrace:        2 * time.Second,
		CompletedGrace:     3 * time.Second,
		EditCooldown:       5 * time.Second,
		SkipYield:          time.Second,
		CleanupTimeout:     15 * time.Second,
		MaxConcurrentEdits: 10,
	}
}

// Options son los colaboradores externos. Voice y Messenger son obligatorios.
type Options struct {
	Voice     Voice
	Messenger Messenger
	Alerter   Alerter
	Recorder  SessionRecorder
	Clock     clockwork.Clock
	Logger    *slog.Logger
	// SelfUserID es la cuenta del bot: nunca se auto-silencia.
	SelfUserID string
}
