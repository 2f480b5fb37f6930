package store

import (
	"fmt"
	"strings"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// Column types are chosen to parse identically on sqlite, postgres and mysql.
// Times are epoch milliseconds.
var migrations = []migration{
	{
		Version:     1,
		Description: "contacts: owners of warmth anchors",
		SQL: `
CREATE TABLE contacts (
    id             VARCHAR(64) PRIMARY KEY,
    display_name   VARCHAR(255) NOT NULL DEFAULT '',
    created_at     BIGINT NOT NULL
);

CREATE INDEX idx_contacts_created_at ON contacts(created_at);
`,
	},
	{
		Version:     2,
		Description: "warmth_anchors: one decay anchor per contact",
		SQL: `
CREATE TABLE warmth_anchors (
    contact_id     VARCHAR(64) PRIMARY KEY,
    mode           VARCHAR(16) NOT NULL CHECK (mode IN ('slow', 'medium', 'fast', 'test')),
    anchor_score   DOUBLE PRECISION NOT NULL CHECK (anchor_score >= 0 AND anchor_score <= 100),
    anchor_at      BIGINT NOT NULL,
    cached_score   DOUBLE PRECISION NOT NULL CHECK (cached_score >= 0 AND cached_score <= 100),
    cached_at      BIGINT NOT NULL,

    CHECK (cached_at >= anchor_at),
    FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE INDEX idx_anchors_cached_at ON warmth_anchors(cached_at);
`,
	},
	{
		Version:     3,
		Description: "warmth_snapshots: append-only anchor history",
		SQL: `
CREATE TABLE warmth_snapshots (
    id             BIGINT PRIMARY KEY,
    contact_id     VARCHAR(64) NOT NULL,
    taken_at       BIGINT NOT NULL,
    score          DOUBLE PRECISION NOT NULL CHECK (score >= 0 AND score <= 100),
    mode           VARCHAR(16) NOT NULL,
    source         VARCHAR(16) NOT NULL CHECK (source IN ('provision', 'interaction', 'mode_switch')),

    FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE INDEX idx_snapshots_contact_taken ON warmth_snapshots(contact_id, taken_at);
`,
	},
}

// statements splits a migration into single statements; mysql refuses
// multi-statement Exec without a DSN flag.
func statements(sql string) []string {
	var out []string
	for _, s := range strings.Split(sql, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description VARCHAR(255) NOT NULL,
			applied_at  BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow(db.rebind("SELECT COUNT(*) FROM schema_versions WHERE version = ?"), m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		for _, stmt := range statements(m.SQL) {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
		}

		if _, err := tx.Exec(
			db.rebind("INSERT INTO schema_versions (version, description, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Description, time.Now().UnixMilli(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
