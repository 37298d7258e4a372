package cycle

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

type applyResult struct {
	attempted int
	failed    int
	denied    int
}

// allDenied: la plataforma rechazó todos los edits por permisos.
func (r applyResult) allDenied() bool { return r.attempted > 0 && r.denied == r.attempted }

// applyMute lleva a todos los miembros del canal al mute deseado.
// Salta bots, al propio bot y a quien ya está en el estado objetivo.
// Los edits van en paralelo y los errores se cuentan por miembro, nunca cortan el batch.
func (m *Manager) applyMute(ctx context.Context, guildID, channelID string, mute bool) (applyResult, error) {
	var res applyResult
	if err := ctx.Err(); err != nil {
		return res, err
	}
	members, err := m.voice.VoiceMembers(ctx, guildID, channelID)
	if err != nil {
		return res, err
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(max(m.cfg.MaxConcurrentEdits, 1))
	for _, mem := range members {
		if mem.Bot || mem.UserID == m.selfID || mem.Mute == mute {
			continue
		}
		res.attempted++
		g.Go(func() error {
			if err := m.voice.SetMute(ctx, guildID, mem.UserID, mute); err != nil {
				mu.Lock()
				res.failed++
				if errors.Is(err, ErrPermissionDenied) {
					res.denied++
				}
				mu.Unlock()
				m.log.Debug("mute edit failed", "guild", guildID, "user", mem.UserID, "mute", mute, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if res.failed > 0 {
		m.log.Warn("mute batch finished with failures",
			"guild", guildID, "mute", mute, "attempted", res.attempted, "failed", res.failed, "denied", res.denied)
	}
	return res, nil
}
