package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
)

// insertSnapshots appends snapshots inside tx. Ids are snowflakes, so they
// sort by insertion time across processes.
func (db *DB) insertSnapshots(ctx context.Context, tx *sql.Tx, snaps ...warmth.Snapshot) error {
	for _, s := range snaps {
		if !s.Logged() || s.Source == warmth.SourceAnchor {
			return goerr.New("snapshot source cannot be persisted",
				goerr.V("contact_id", s.ContactID),
				goerr.V("source", s.Source))
		}
		id := s.ID
		if id == 0 {
			id = db.ids.Generate().Int64()
		}
		if _, err := tx.ExecContext(ctx, db.rebind(`
			INSERT INTO warmth_snapshots (id, contact_id, taken_at, score, mode, source)
			VALUES (?, ?, ?, ?, ?, ?)
		`), id, s.ContactID, toMillis(s.At), warmth.Clamp(s.Score), string(s.Mode), string(s.Source)); err != nil {
			return goerr.Wrap(err, "insert snapshot",
				goerr.V("contact_id", s.ContactID),
				goerr.V("source", s.Source))
		}
	}
	return nil
}

// ListSnapshots returns logged snapshots for the contact with from <= taken_at <= to,
// oldest first.
func (db *DB) ListSnapshots(ctx context.Context, contactID string, from, to time.Time) ([]warmth.Snapshot, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT id, contact_id, taken_at, score, mode, source
		FROM warmth_snapshots
		WHERE contact_id = ? AND taken_at >= ? AND taken_at <= ?
		ORDER BY taken_at, id
	`), contactID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, goerr.Wrap(err, "list snapshots", goerr.V("contact_id", contactID))
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// LatestSnapshotBefore returns the newest snapshot taken at or before t, or nil if none.
func (db *DB) LatestSnapshotBefore(ctx context.Context, contactID string, t time.Time) (*warmth.Snapshot, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT id, contact_id, taken_at, score, mode, source
		FROM warmth_snapshots
		WHERE contact_id = ? AND taken_at <= ?
		ORDER BY taken_at DESC, id DESC
		LIMIT 1
	`), contactID, toMillis(t))
	if err != nil {
		return nil, goerr.Wrap(err, "latest snapshot", goerr.V("contact_id", contactID))
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}

// CountSnapshots returns how many snapshots are logged for the contact.
func (db *DB) CountSnapshots(ctx context.Context, contactID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT COUNT(*) FROM warmth_snapshots WHERE contact_id = ?
	`), contactID).Scan(&n)
	if err != nil {
		return 0, goerr.Wrap(err, "count snapshots", goerr.V("contact_id", contactID))
	}
	return n, nil
}

func scanSnapshots(rows *sql.Rows) ([]warmth.Snapshot, error) {
	var out []warmth.Snapshot
	for rows.Next() {
		var (
			s           warmth.Snapshot
			at          int64
			mode, src   string
		)
		if err := rows.Scan(&s.ID, &s.ContactID, &at, &s.Score, &mode, &src); err != nil {
			return nil, goerr.Wrap(err, "scan snapshot")
		}
		s.At = fromMillis(at)
		s.Mode = warmth.Mode(mode)
		s.Source = warmth.Source(src)
		out = append(out, s)
	}
	return out, rows.Err()
}
