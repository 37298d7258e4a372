package service

import (
	"context"
	"log/slog"

	"github.com/jose-valero/dark-study-bot/internal/infra/storage"
)

// Recorder guarda el historial de sesiones. Implementa cycle.SessionRecorder.
// Un id vacío significa que Begin falló: el resto de las llamadas se ignoran.
type Recorder struct {
	repo SessionRepo
	log  *slog.Logger
}

func NewRecorder(repo SessionRepo, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{repo: repo, log: log.With("component", "history")}
}

func (r *Recorder) SessionStarted(ctx context.Context, guildID string, studyMinutes, breakMinutes int) (string, error) {
	id, err := r.repo.Begin(ctx, guildID, studyMinutes, breakMinutes)
	if err != nil {
		r.log.Warn("session begin failed", "guild", guildID, "err", err)
		return "", err
	}
	return id, nil
}

func (r *Recorder) StudyCompleted(ctx context.Context, sessionID string, completed int) error {
	if sessionID == "" {
		return nil
	}
	return r.repo.SetCompleted(ctx, sessionID, completed)
}

func (r *Recorder) SessionStopped(ctx context.Context, sessionID string, completed int) error {
	if sessionID == "" {
		return nil
	}
	return r.repo.Finish(ctx, sessionID, completed, storage.EndStopped)
}

// CloseDangling se llama al boot: lo que quedó abierto lo cortó un crash o deploy.
func (r *Recorder) CloseDangling(ctx context.Context, guildIDs []string) (int64, error) {
	n, err := r.repo.CloseDangling(ctx, guildIDs)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Info("closed dangling sessions", "count", n)
	}
	return n, nil
}
