package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// PurgeArchived hard-deletes cards that have been in the trash longer than retention.
func PurgeArchived(ctx context.Context, db *sql.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC()
	res, err := db.ExecContext(ctx, `
        DELETE FROM cards
         WHERE is_archived = true
           AND archived_at IS NOT NULL
           AND archived_at < $1
    `, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartArchiveCleaner runs PurgeArchived every interval until ctx is done.
// A non-positive retention disables it.
func StartArchiveCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	if retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := PurgeArchived(ctx, db, retention)
				if err != nil {
					log.Error("failed to purge archived cards", zap.Error(err))
					continue
				}
				if rows > 0 {
					log.Info("purged archived cards", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
