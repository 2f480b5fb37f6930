package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
)

// ReadAnchor returns the contact's anchor. A missing contact is
// warmth.ErrContactNotFound; a contact without an anchor row is warmth.ErrNotFound.
func (db *DB) ReadAnchor(ctx context.Context, contactID string) (warmth.Anchor, error) {
	var (
		a                   warmth.Anchor
		mode                sql.NullString
		score, cachedScore  sql.NullFloat64
		anchorAt, cachedAt  sql.NullInt64
	)
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT a.mode, a.anchor_score, a.anchor_at, a.cached_score, a.cached_at
		FROM contacts c LEFT JOIN warmth_anchors a ON a.contact_id = c.id
		WHERE c.id = ?
	`), contactID).Scan(&mode, &score, &anchorAt, &cachedScore, &cachedAt)
	if err == sql.ErrNoRows {
		return a, goerr.Wrap(warmth.ErrContactNotFound, "read anchor", goerr.V("contact_id", contactID))
	}
	if err != nil {
		return a, goerr.Wrap(err, "read anchor", goerr.V("contact_id", contactID))
	}
	if !mode.Valid {
		return a, goerr.Wrap(warmth.ErrNotFound, "contact has no anchor", goerr.V("contact_id", contactID))
	}

	a.Mode = warmth.Mode(mode.String)
	a.Score = score.Float64
	a.At = fromMillis(anchorAt.Int64)
	a.CachedScore = cachedScore.Float64
	a.CachedAt = fromMillis(cachedAt.Int64)
	return a, nil
}

// ReadCached is the cheap read: the cache columns only, band derived.
func (db *DB) ReadCached(ctx context.Context, contactID string) (warmth.Cached, error) {
	var (
		c        warmth.Cached
		mode     string
		cachedAt int64
	)
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT mode, cached_score, cached_at FROM warmth_anchors WHERE contact_id = ?
	`), contactID).Scan(&mode, &c.Score, &cachedAt)
	if err == sql.ErrNoRows {
		return c, db.missing(ctx, contactID, "read cached")
	}
	if err != nil {
		return c, goerr.Wrap(err, "read cached", goerr.V("contact_id", contactID))
	}
	c.Mode = warmth.Mode(mode)
	c.Band = warmth.Classify(c.Score)
	c.CachedAt = fromMillis(cachedAt)
	return c, nil
}

// WriteAnchor replaces all anchor fields for the contact and appends the given
// snapshots in the same transaction. Partial updates are not offered.
func (db *DB) WriteAnchor(ctx context.Context, contactID string, a warmth.Anchor, snaps ...warmth.Snapshot) error {
	if err := a.Validate(); err != nil {
		return goerr.Wrap(err, "write anchor", goerr.V("contact_id", contactID))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "begin write anchor", goerr.V("contact_id", contactID))
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, db.rebind(`
		UPDATE warmth_anchors
		SET mode = ?, anchor_score = ?, anchor_at = ?, cached_score = ?, cached_at = ?
		WHERE contact_id = ?
	`), string(a.Mode), a.Score, toMillis(a.At), a.CachedScore, toMillis(a.CachedAt), contactID)
	if err != nil {
		return goerr.Wrap(err, "update anchor", goerr.V("contact_id", contactID))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		tx.Rollback()
		return db.missing(ctx, contactID, "write anchor")
	}

	if err := db.insertSnapshots(ctx, tx, snaps...); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "commit write anchor", goerr.V("contact_id", contactID))
	}
	return nil
}

// RefreshCache writes a only if the stored anchor still starts at expectedAt
// under a.Mode. It returns false when a concurrent re-anchor got there first.
func (db *DB) RefreshCache(ctx context.Context, contactID string, expectedAt time.Time, a warmth.Anchor) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, goerr.Wrap(err, "refresh cache", goerr.V("contact_id", contactID))
	}

	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE warmth_anchors
		SET mode = ?, anchor_score = ?, anchor_at = ?, cached_score = ?, cached_at = ?
		WHERE contact_id = ? AND anchor_at = ? AND mode = ? AND cached_at <= ?
	`), string(a.Mode), a.Score, toMillis(a.At), a.CachedScore, toMillis(a.CachedAt),
		contactID, toMillis(expectedAt), string(a.Mode), toMillis(a.CachedAt))
	if err != nil {
		return false, goerr.Wrap(err, "refresh cache", goerr.V("contact_id", contactID))
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ListStale returns ids of contacts whose cache was computed before cutoff, oldest first.
func (db *DB) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT contact_id FROM warmth_anchors
		WHERE cached_at < ?
		ORDER BY cached_at
		LIMIT ?
	`), toMillis(cutoff), limit)
	if err != nil {
		return nil, goerr.Wrap(err, "list stale anchors")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, goerr.Wrap(err, "scan stale anchor")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// missing distinguishes an unknown contact from a contact missing its anchor.
func (db *DB) missing(ctx context.Context, contactID, op string) error {
	c, err := db.GetContact(ctx, contactID)
	if err != nil {
		return err
	}
	if c == nil {
		return goerr.Wrap(warmth.ErrContactNotFound, op, goerr.V("contact_id", contactID))
	}
	return goerr.Wrap(warmth.ErrNotFound, op, goerr.V("contact_id", contactID))
}
