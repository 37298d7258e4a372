package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// días de historial que se conservan (HISTORY_RETENTION_DAYS)
const defaultRetentionDays = 90

func retentionDays() int {
	if n, err := strconv.Atoi(os.Getenv("HISTORY_RETENTION_DAYS")); err == nil && n > 0 {
		return n
	}
	return defaultRetentionDays
}

func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	days := retentionDays()
	// sólo sesiones cerradas: una abierta la sigue escribiendo el bot
	tag, err := pool.Exec(cctx, `
DELETE FROM study_sessions
WHERE stopped_at IS NOT NULL
  AND started_at < now() - make_interval(days => $1);`, days)
	if err != nil {
		slog.Error("prune study_sessions", "err", err)
		return fmt.Sprintf("prune: %v", err), nil
	}
	slog.Info("pruned study_sessions", "rows", tag.RowsAffected(), "retention_days", days)

	return "ok", nil
}

func main() { lambda.Start(handler) }
