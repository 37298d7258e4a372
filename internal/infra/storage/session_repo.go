package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// motivos de cierre de una sesión
const (
	EndStopped     = "stopped"
	EndInterrupted = "interrupted"
)

var ErrNotFound = errors.New("not found")

type SessionRepo struct{ db *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Begin crea la fila de una sesión nueva y devuelve su id.
func (r *SessionRepo) Begin(ctx context.Context, guildID string, studyMinutes, breakMinutes int) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO study_sessions (id, guild_id, study_minutes, break_minutes)
VALUES ($1,$2,$3,$4)
`, id, guildID, studyMinutes, breakMinutes)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SetCompleted guarda el conteo de study completados; no toca sesiones cerradas.
func (r *SessionRepo) SetCompleted(ctx context.Context, id string, completed int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE study_sessions
   SET completed_study = $2
 WHERE id = $1 AND stopped_at IS NULL
`, id, completed)
	return err
}

func (r *SessionRepo) Finish(ctx context.Context, id string, completed int, reason string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE study_sessions
   SET completed_study = $2,
       stopped_at      = now(),
       end_reason      = $3
 WHERE id = $1 AND stopped_at IS NULL
`, id, completed, reason)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseDangling cierra como interrupted las sesiones que quedaron abiertas
// (crash o deploy). Sin guildIDs cierra todas.
func (r *SessionRepo) CloseDangling(ctx context.Context, guildIDs []string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(guildIDs) == 0 {
		res, err = r.db.ExecContext(ctx, `
UPDATE study_sessions
   SET stopped_at = now(), end_reason = $1
 WHERE stopped_at IS NULL
`, EndInterrupted)
	} else {
		res, err = r.db.ExecContext(ctx, `
UPDATE study_sessions
   SET stopped_at = now(), end_reason = $1
 WHERE stopped_at IS NULL
   AND guild_id = ANY($2)
`, EndInterrupted, pq.Array(guildIDs))
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SessionRepo) ListRecent(ctx context.Context, guildID string, limit int) ([]domain.StudySession, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, guild_id, study_minutes, break_minutes, completed_study, started_at, stopped_at, end_reason
  FROM study_sessions
 WHERE guild_id = $1
 ORDER BY started_at DESC
 LIMIT $2
`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StudySession
	for rows.Next() {
		var s domain.StudySession
		if err := rows.Scan(&s.ID, &s.GuildID, &s.StudyMinutes, &s.BreakMinutes, &s.CompletedStudy,
			&s.StartedAt, &s.StoppedAt, &s.EndReason); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TotalCompleted suma los study completados del guild desde since.
func (r *SessionRepo) TotalCompleted(ctx context.Context, guildID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(completed_study), 0)
  FROM study_sessions
 WHERE guild_id = $1 AND started_at >= $2
`, guildID, since).Scan(&n)
	return n, err
}
