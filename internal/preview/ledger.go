// internal/preview/ledger.go
//
// Single-use ledger for CMS preview secrets.
//
// Context
// -------
// A preview URL secret is valid for one hour on the CMS side and may be
// replayed freely within that window.  Deployments that want each secret to
// enable preview exactly once turn on `preview.single_use_secrets`; the
// enable handler then consumes the secret here after the CMS confirms it.
//
//	preview_secret_use (secret_hash CHAR(64) PK, used_at DATETIME)
//
// Only the SHA-256 hex digest is stored, never the secret itself.
package preview

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Schema creates the ledger table when absent.
const Schema = `CREATE TABLE IF NOT EXISTS preview_secret_use (
    secret_hash CHAR(64)  NOT NULL PRIMARY KEY,
    used_at     DATETIME  NOT NULL,
    KEY idx_used_at (used_at)
)`

// Retention matches the CMS secret lifetime; older rows can never match a
// still-valid secret.
const Retention = time.Hour

// Ledger records consumed secrets in SQL.  Safe for concurrent use; the
// primary key arbitrates races between replicas.
type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewLedger wraps an open pool.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Consume marks secret as used.  It reports true only for the first caller;
// every later call with the same secret gets false.
func (l *Ledger) Consume(ctx context.Context, secret string) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT IGNORE INTO preview_secret_use (secret_hash, used_at) VALUES (?, ?)`,
		hashSecret(secret), l.now().UTC())
	if err != nil {
		return false, fmt.Errorf("consume preview secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume preview secret: %w", err)
	}
	return n == 1, nil
}

// Prune deletes rows older than Retention and returns how many went.
func (l *Ledger) Prune(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM preview_secret_use WHERE used_at < ?`,
		l.now().UTC().Add(-Retention))
	if err != nil {
		return 0, fmt.Errorf("prune preview ledger: %w", err)
	}
	return res.RowsAffected()
}

// RunPruner calls Prune every interval until ctx ends.
func (l *Ledger) RunPruner(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := l.Prune(ctx)
			if err != nil {
				zap.S().Warnw("preview ledger prune failed", "err", err)
				continue
			}
			if n > 0 {
				zap.S().Debugw("preview ledger pruned", "rows", n)
			}
		}
	}
}

func hashSecret(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
