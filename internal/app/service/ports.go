package service

import (
	"context"
	"time"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// Lo implementa internal/infra/storage.SessionRepo
type SessionRepo interface {
	Begin(ctx context.Context, guildID string, studyMinutes, breakMinutes int) (string, error)
	SetCompleted(ctx context.Context, id string, completed int) error
	Finish(ctx context.Context, id string, completed int, reason string) error
	CloseDangling(ctx context.Context, guildIDs []string) (int64, error)
	ListRecent(ctx context.Context, guildID string, limit int) ([]domain.StudySession, error)
	TotalCompleted(ctx context.Context, guildID string, since time.Time) (int, error)
}
