// Package accesslog stores the access audit trail in PostgreSQL.
package accesslog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/patientdetails/internal/platform/middleware"
)

// DefaultRetention is how long access entries are kept before Purge removes them.
const DefaultRetention = 2555 * 24 * time.Hour

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Recorder writes audit entries to the access_log table. It implements
// middleware.AuditRecorder.
type Recorder struct {
	db      execer
	timeout time.Duration
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{db: pool, timeout: 2 * time.Second}
}

const insertEntry = `
	INSERT INTO access_log (
		request_id, actor_id, actor_roles, subject_id, action,
		method, path, status_code, ip_address, user_agent, accessed_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

func (r *Recorder) RecordAccess(ctx context.Context, entry middleware.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.ActorRoles == nil {
		entry.ActorRoles = []string{}
	}
	// The request context may already be cancelled by a timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, insertEntry,
		entry.RequestID, entry.ActorID, entry.ActorRoles, subjectID(entry.SubjectID), entry.Action,
		entry.Method, entry.Path, entry.StatusCode, entry.IPAddress, entry.UserAgent, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("access log insert: %w", err)
	}
	return nil
}

// Purge deletes entries older than retention and returns how many were removed.
func (r *Recorder) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	cutoff := time.Now().UTC().Add(-retention)
	tag, err := r.db.Exec(ctx, `DELETE FROM access_log WHERE accessed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("access log purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// subjectID returns nil for routes without a numeric user id.
func subjectID(raw string) *int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
