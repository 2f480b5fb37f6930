package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lazypower/warmth/internal/warmth"
	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
)

// ErrContactExists rejects provisioning a contact id twice.
var ErrContactExists = errors.New("contact already exists")

// Contact is the minimal owner record of a warmth anchor.
type Contact struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// ContactWarmth pairs a contact with its anchor for listings.
type ContactWarmth struct {
	Contact
	Anchor warmth.Anchor
}

// CreateContact inserts a contact together with its initial anchor and the
// provisioning snapshot, atomically.
func (db *DB) CreateContact(ctx context.Context, c Contact, a warmth.Anchor) error {
	if err := a.Validate(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "begin create contact", goerr.V("contact_id", c.ID))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO contacts (id, display_name, created_at) VALUES (?, ?, ?)
	`), c.ID, c.DisplayName, toMillis(c.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(ErrContactExists, "create contact", goerr.V("contact_id", c.ID))
		}
		return goerr.Wrap(err, "insert contact", goerr.V("contact_id", c.ID))
	}

	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO warmth_anchors (contact_id, mode, anchor_score, anchor_at, cached_score, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), c.ID, string(a.Mode), a.Score, toMillis(a.At), a.CachedScore, toMillis(a.CachedAt)); err != nil {
		return goerr.Wrap(err, "insert anchor", goerr.V("contact_id", c.ID))
	}

	if err := db.insertSnapshots(ctx, tx, warmth.AnchorSnapshot(c.ID, a, warmth.SourceProvision)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "commit create contact", goerr.V("contact_id", c.ID))
	}
	return nil
}

// GetContact returns a contact by id, or nil if not found.
func (db *DB) GetContact(ctx context.Context, id string) (*Contact, error) {
	var c Contact
	var created int64
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT id, display_name, created_at FROM contacts WHERE id = ?
	`), id).Scan(&c.ID, &c.DisplayName, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "get contact", goerr.V("contact_id", id))
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// DeleteContact removes a contact; its anchor and snapshots cascade.
// Returns false if the contact did not exist.
func (db *DB) DeleteContact(ctx context.Context, id string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, goerr.Wrap(err, "begin delete contact", goerr.V("contact_id", id))
	}
	defer tx.Rollback()

	// Explicit deletes keep the cascade working on connections without FK enforcement.
	for _, q := range []string{
		"DELETE FROM warmth_snapshots WHERE contact_id = ?",
		"DELETE FROM warmth_anchors WHERE contact_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, db.rebind(q), id); err != nil {
			return false, goerr.Wrap(err, "delete contact rows", goerr.V("contact_id", id))
		}
	}

	result, err := tx.ExecContext(ctx, db.rebind("DELETE FROM contacts WHERE id = ?"), id)
	if err != nil {
		return false, goerr.Wrap(err, "delete contact", goerr.V("contact_id", id))
	}
	if err := tx.Commit(); err != nil {
		return false, goerr.Wrap(err, "commit delete contact", goerr.V("contact_id", id))
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ListContacts returns contacts with their anchors, most recently created first.
func (db *DB) ListContacts(ctx context.Context, limit int) ([]ContactWarmth, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT c.id, c.display_name, c.created_at,
			a.mode, a.anchor_score, a.anchor_at, a.cached_score, a.cached_at
		FROM contacts c JOIN warmth_anchors a ON a.contact_id = c.id
		ORDER BY c.created_at DESC, c.id
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, goerr.Wrap(err, "list contacts")
	}
	defer rows.Close()

	var out []ContactWarmth
	for rows.Next() {
		var cw ContactWarmth
		var created, anchorAt, cachedAt int64
		var mode string
		if err := rows.Scan(&cw.ID, &cw.DisplayName, &created,
			&mode, &cw.Anchor.Score, &anchorAt, &cw.Anchor.CachedScore, &cachedAt); err != nil {
			return nil, goerr.Wrap(err, "scan contact")
		}
		cw.CreatedAt = fromMillis(created)
		cw.Anchor.Mode = warmth.Mode(mode)
		cw.Anchor.At = fromMillis(anchorAt)
		cw.Anchor.CachedAt = fromMillis(cachedAt)
		out = append(out, cw)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
