package cycle

import (
	"context"
	"fmt"
)

// QueueExtension deja un break extra de una sola vez para después del break en curso
// o el próximo. Pisa cualquier valor anterior: gana la última escritura.
func (m *Manager) QueueExtension(ctx context.Context, guildID string, minutes int) error {
	if minutes < MinExtension || minutes > MaxMinutes {
		return fmt.Errorf("%w: extension must be between %d and %d minutes", ErrInvalidDuration, MinExtension, MaxMinutes)
	}
	st, ok := m.reg.get(guildID)
	if !ok {
		return ErrNotRunning
	}
	st.mu.Lock()
	running := st.handle != nil && st.handle.cancel != nil && !st.stopping
	if running {
		st.pendingExtension = minutes
	}
	st.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	m.log.Info("break extension queued", "guild", guildID, "minutes", minutes)
	m.announce(ctx, st, fmt.Sprintf("🕒 Will extend the break by %d minute(s) once.", minutes))
	return nil
}

// takeExtension consume la extensión pendiente (0 si no hay).
func (st *guildState) takeExtension() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := st.pendingExtension
	st.pendingExtension = 0
	return n
}
