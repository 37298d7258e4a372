package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jose-valero/dark-study-bot/internal/domain"
	"github.com/jose-valero/dark-study-bot/internal/infra/storage"
)

// ventana del total mostrado en /history
const historyWindow = 30 * 24 * time.Hour

type HistoryService struct {
	repo  SessionRepo
	clock clockwork.Clock
}

func NewHistoryService(repo SessionRepo, clock clockwork.Clock) *HistoryService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HistoryService{repo: repo, clock: clock}
}

// Describe arma el texto de /history: últimas sesiones + total de 30 días.
func (s *HistoryService) Describe(ctx context.Context, guildID string, limit int) (string, error) {
	if limit <= 0 {
		limit = 10
	}
	sessions, err := s.repo.ListRecent(ctx, guildID, limit)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "📭 No study sessions yet.", nil
	}
	now := s.clock.Now()
	total, err := s.repo.TotalCompleted(ctx, guildID, now.Add(-historyWindow))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 **Last %d session(s)**\n", len(sessions))
	for _, ss := range sessions {
		b.WriteString(sessionLine(ss, now))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nStudy phases completed in the last 30 days: **%d**", total)
	return b.String(), nil
}

func sessionLine(ss domain.StudySession, now time.Time) string {
	line := fmt.Sprintf("• <t:%d:f> study %dm / break %dm → %d cycle(s)",
		ss.StartedAt.Unix(), ss.StudyMinutes, ss.BreakMinutes, ss.CompletedStudy)

	switch {
	case ss.StoppedAt == nil:
		return line + fmt.Sprintf(" (running, %s)", roundMinutes(now.Sub(ss.StartedAt)))
	case ss.EndReason != nil && *ss.EndReason == storage.EndInterrupted:
		return line + " (interrupted)"
	default:
		return line + fmt.Sprintf(" (%s)", roundMinutes(ss.StoppedAt.Sub(ss.StartedAt)))
	}
}

func roundMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d / time.Minute)
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}
