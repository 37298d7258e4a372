package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// runCycle alterna Study y Break hasta que cancelan ctx.
// Siempre sale con el error del contexto y con el guild limpio (ver finish).
func (m *Manager) runCycle(ctx context.Context, st *guildState, h *cycleHandle) error {
	defer m.finish(ctx, st, h)

	for {
		ch, err := m.awaitChannel(ctx, st)
		if err != nil {
			return err
		}
		if err := m.runStudy(ctx, st, h, ch); err != nil {
			return err
		}
		if st.breakMinutes == 0 {
			// sin break: pausa corta para no girar en vacío
			if err := sleepFor(ctx, m.clock, m.cfg.SkipYield); err != nil {
				return err
			}
			continue
		}
		if err := m.runBreak(ctx, st, h, ch); err != nil {
			return err
		}
	}
}

// awaitChannel resuelve el canal vigilado; si no está, reintenta cada ChannelBackoff
// hasta que vuelva o paren el ciclo.
func (m *Manager) awaitChannel(ctx context.Context, st *guildState) (VoiceChannel, error) {
	for {
		if err := ctx.Err(); err != nil {
			return VoiceChannel{}, err
		}
		ch, err := m.voice.ResolveVoiceChannel(ctx, st.guildID, st.voiceChannel(), m.cfg.VoiceChannelName)
		if err == nil {
			st.setVoiceChannel(ch.ID)
			return ch, nil
		}
		m.log.Warn("voice channel unavailable, retrying",
			"guild", st.guildID, "backoff", m.cfg.ChannelBackoff, "err", err)
		if err := sleepFor(ctx, m.clock, m.cfg.ChannelBackoff); err != nil {
			return VoiceChannel{}, err
		}
	}
}

func (m *Manager) runStudy(ctx context.Context, st *guildState, h *cycleHandle, ch VoiceChannel) error {
	st.mu.Lock()
	number := st.studyCount + 1
	minutes := st.studyMinutes
	st.mu.Unlock()

	st.setPhase(domain.PhaseStudy)
	if _, err := m.applyMute(ctx, st.guildID, ch.ID, true); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	m.log.Info("phase started", "guild", st.guildID, "phase", "study", "number", number, "minutes", minutes)
	if err := m.runSegment(ctx, st, h, ch, domain.LabelStudy, number, minutes); err != nil {
		return err
	}

	count := st.incStudy()
	m.log.Info("study phase completed", "guild", st.guildID, "count", count)
	m.announce(ctx, st, fmt.Sprintf("✅ Finished %dm. cycle: %d.", minutes, count))
	if sid := st.session(); sid != "" {
		if err := m.rec.StudyCompleted(ctx, sid, count); err != nil {
			m.log.Warn("record study completion", "guild", st.guildID, "err", err)
		}
	}
	return nil
}

func (m *Manager) runBreak(ctx context.Context, st *guildState, h *cycleHandle, ch VoiceChannel) error {
	minutes := st.breakMinutes

	st.setPhase(domain.PhaseBreak)
	if _, err := m.applyMute(ctx, st.guildID, ch.ID, false); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	m.log.Info("phase started", "guild", st.guildID, "phase", "break", "minutes", minutes)
	if err := m.runSegment(ctx, st, h, ch, domain.LabelBreak, 0, minutes); err != nil {
		return err
	}

	extra := st.takeExtension()
	if extra <= 0 {
		return nil
	}
	st.setPhase(domain.PhaseBreak)
	if _, err := m.applyMute(ctx, st.guildID, ch.ID, false); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	m.log.Info("extended break started", "guild", st.guildID, "minutes", extra)
	return m.runSegment(ctx, st, h, ch, domain.LabelExtendedBreak, 0, extra)
}

// runSegment arranca el countdown y duerme hasta el fin de la fase, con el
// aviso de "falta un minuto" si la fase dura más de uno.
func (m *Manager) runSegment(ctx context.Context, st *guildState, h *cycleHandle, ch VoiceChannel, label domain.PhaseLabel, number, minutes int) error {
	start := m.clock.Now()
	end := start.Add(time.Duration(minutes) * m.cfg.Minute)

	m.startTimer(ctx, st, h, TimerSpec{
		Seconds:      minutes * 60,
		Label:        label,
		Number:       number,
		TotalMinutes: minutes,
		Start:        start,
	})

	if minutes > 1 {
		if err := sleepUntil(ctx, m.clock, end.Add(-m.cfg.Minute)); err != nil {
			return err
		}
		m.oneMinuteAlert(ctx, st, ch, label)
	}
	return sleepUntil(ctx, m.clock, end)
}

// startTimer lanza el countdown de la fase. Un timer anterior que no llegó a su
// final se cancela sin esperarlo.
func (m *Manager) startTimer(ctx context.Context, st *guildState, h *cycleHandle, spec TimerSpec) {
	gen := st.nextTimerGen(spec.Label, spec.TotalMinutes)
	tctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	h.mu.Lock()
	if h.timerCancel != nil {
		h.timerCancel()
	}
	h.timerCancel, h.timerDone = cancel, done
	h.mu.Unlock()

	go func() {
		defer close(done)
		m.runTimer(tctx, st, gen, spec)
	}()
}

func (m *Manager) oneMinuteAlert(ctx context.Context, st *guildState, ch VoiceChannel, label domain.PhaseLabel) {
	m.log.Info("one minute left", "guild", st.guildID, "label", string(label))
	actx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := m.alert.PlayAlert(actx, st.guildID, ch.ID); err != nil {
		m.log.Warn("alert playback failed", "guild", st.guildID, "err", err)
	}
}

// finish corre siempre al salir el motor: corta el timer, desmutea el canal
// (con un reintento por si un mute en curso pisa el primero) y resetea el estado.
func (m *Manager) finish(ctx context.Context, st *guildState, h *cycleHandle) {
	h.stopTimer()

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.CleanupTimeout)
	defer cancel()

	st.mu.Lock()
	st.stopping = true
	st.phase = domain.PhaseNone
	st.mu.Unlock()

	ch, err := m.voice.ResolveVoiceChannel(cctx, st.guildID, st.voiceChannel(), m.cfg.VoiceChannelName)
	if err != nil {
		m.log.Warn("final unmute skipped: voice channel unavailable", "guild", st.guildID, "err", err)
	} else {
		for attempt := 0; attempt < 2; attempt++ {
			if attempt > 0 {
				_ = sleepFor(cctx, m.clock, m.cfg.UnmuteRetryDelay)
			}
			if _, err := m.applyMute(cctx, st.guildID, ch.ID, false); err != nil {
				m.log.Warn("final unmute failed", "guild", st.guildID, "attempt", attempt+1, "err", err)
			}
		}
	}

	st.reset()
	m.log.Info("cycle finished", "guild", st.guildID)
}
