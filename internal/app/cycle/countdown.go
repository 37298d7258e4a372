package cycle

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// TimerSpec describe un countdown. Start alinea los ticks con el deadline del motor.
type TimerSpec struct {
	Seconds      int
	Label        domain.PhaseLabel
	Number       int // 0 en breaks
	TotalMinutes int // 0 = no se muestra "/TT"
	Start        time.Time
}

// Tick es una observación de tiempo restante, en minutos enteros.
type Tick struct {
	Label     domain.PhaseLabel
	Number    int
	Remaining int
	Total     int
	Final     bool
}

func (t Tick) Tag() domain.StatusTag {
	return domain.StatusTag{Kind: t.Label.TagKind(), Number: t.Number, Remaining: t.Remaining, Total: t.Total}
}

// Ticks emite un tick inmediato y uno por minuto hasta agotar la duración;
// el último viene con Final. Si ctx se cancela a mitad corta sin emitir más.
// El tick final sí se emite si su deadline ya pasó cuando llega la cancelación
// (el motor cambia de fase justo en ese instante).
func Ticks(ctx context.Context, clock clockwork.Clock, minute time.Duration, spec TimerSpec) iter.Seq[Tick] {
	return func(yield func(Tick) bool) {
		start := spec.Start
		if start.IsZero() {
			start = clock.Now()
		}
		for k := 0; ; k++ {
			remaining := spec.Seconds - k*60
			final := remaining <= 0
			if k == 0 {
				if ctx.Err() != nil {
					return
				}
			} else {
				deadline := start.Add(time.Duration(k) * minute)
				if err := sleepUntil(ctx, clock, deadline); err != nil {
					if !final || clock.Now().Before(deadline) {
						return
					}
				}
			}
			t := Tick{
				Label:     spec.Label,
				Number:    spec.Number,
				Remaining: max(remaining, 0) / 60,
				Total:     spec.TotalMinutes,
				Final:     final,
			}
			if !yield(t) || final {
				return
			}
		}
	}
}

func sleepUntil(ctx context.Context, clock clockwork.Clock, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := clock.Until(deadline)
	if d <= 0 {
		return nil
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

func sleepFor(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	return sleepUntil(ctx, clock, clock.Now().Add(d))
}

// runTimer publica cada tick en el mensaje de estado del guild.
// Un fallo al publicar no corta el timer. Al terminar normal, el retiro
// del mensaje corre aparte para no retrasar la fase siguiente.
func (m *Manager) runTimer(ctx context.Context, st *guildState, gen int, spec TimerSpec) {
	chatID := st.chat()
	log := m.log.With("guild", st.guildID, "label", string(spec.Label), "number", spec.Number)

	var msgID string
	finished := false
	for tick := range Ticks(ctx, m.clock, m.cfg.Minute, spec) {
		st.setRemaining(gen, tick.Remaining)
		pctx := ctx
		if tick.Final {
			pctx = context.WithoutCancel(ctx)
			finished = true
		}
		if chatID != "" {
			msgID = m.postStatus(pctx, st, gen, chatID, msgID, tick.Tag().String())
		}
	}
	if !finished {
		log.Debug("countdown cancelled")
		return
	}
	if chatID != "" && msgID != "" {
		go m.retireStatus(context.WithoutCancel(ctx), st, chatID, msgID)
	}
}

func (m *Manager) postStatus(ctx context.Context, st *guildState, gen int, chatID, msgID, content string) string {
	if msgID != "" {
		err := m.msgs.Edit(ctx, chatID, msgID, content)
		if err == nil {
			return msgID
		}
		m.log.Debug("status edit failed, re-sending", "guild", st.guildID, "err", err)
	}
	id, err := m.msgs.Send(ctx, chatID, content)
	if err != nil {
		m.log.Debug("status send failed", "guild", st.guildID, "err", err)
		return msgID
	}
	st.setStatusMessage(gen, id)
	return id
}

// retireStatus borra el mensaje tras la gracia; si no puede, lo marca completado.
func (m *Manager) retireStatus(ctx context.Context, st *guildState, chatID, msgID string) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CleanupTimeout)
	defer cancel()
	defer st.clearStatusMessage(msgID)

	_ = sleepFor(ctx, m.clock, m.cfg.StatusGrace)
	if err := m.msgs.Delete(ctx, chatID, msgID); err != nil {
		m.log.Debug("status delete failed", "guild", st.guildID, "err", err)
		if err := m.msgs.Edit(ctx, chatID, msgID, "✅ Phase completed"); err == nil {
			_ = sleepFor(ctx, m.clock, m.cfg.CompletedGrace)
			_ = m.msgs.Delete(ctx, chatID, msgID)
		}
	}
	if n, err := m.msgs.PurgeStatusTags(ctx, chatID, st.liveStatusMessage()); err != nil {
		m.log.Debug("purge status tags failed", "guild", st.guildID, "err", err)
	} else if n > 0 {
		m.log.Debug("purged leftover status tags", slog.String("guild", st.guildID), slog.Int("n", n))
	}
}
