package cycle

import (
	"context"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// HandleVoiceUpdate reconcilia el mute de un miembro que entra o sale del canal
// vigilado mientras hay un ciclo activo. Es best-effort: los errores se loguean.
//
//   - entra al canal: se aplica el mute de la fase actual, sin debounce.
//   - sale del canal (sigue conectado en otro) y quedó muteado: un único unmute,
//     sólo si pasó EditCooldown desde el último edit de ese miembro.
//
// Un miembro desconectado del todo no se puede editar, así que se ignora.
func (m *Manager) HandleVoiceUpdate(ctx context.Context, ev VoiceEvent) {
	if ev.Bot || ev.UserID == "" || ev.UserID == m.selfID {
		return
	}
	st, ok := m.reg.get(ev.GuildID)
	if !ok {
		return
	}
	st.mu.Lock()
	phase := st.phase
	target := st.voiceChannelID
	st.mu.Unlock()
	if phase == domain.PhaseNone || target == "" {
		return
	}

	key := memberKey{ev.GuildID, ev.UserID}
	switch {
	case ev.AfterChannelID == target:
		want := phase.WantsMute()
		if ev.Mute == want {
			return
		}
		m.debounce.Touch(key)
		if err := m.voice.SetMute(ctx, ev.GuildID, ev.UserID, want); err != nil {
			m.log.Debug("join reconcile failed", "guild", ev.GuildID, "user", ev.UserID, "err", err)
			return
		}
		m.log.Debug("join reconciled", "guild", ev.GuildID, "user", ev.UserID, "mute", want)

	case ev.BeforeChannelID == target:
		if ev.AfterChannelID == "" || !ev.Mute {
			return
		}
		if !m.debounce.Allow(key) {
			return
		}
		if err := m.voice.SetMute(ctx, ev.GuildID, ev.UserID, false); err != nil {
			m.log.Debug("leave unmute failed", "guild", ev.GuildID, "user", ev.UserID, "err", err)
			return
		}
		m.log.Debug("unmuted member who left", "guild", ev.GuildID, "user", ev.UserID)
	}
}
