package survey

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// NewSQLiteSource reads an offline snapshot of the survey tables. SQLite has
// no schemas, so the tables are unqualified. Answers are read in rowid order,
// which is the order they were inserted.
func NewSQLiteSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db, seq: "rowid"}
}

// snapshotDSN builds a read-only file URI for path
func snapshotDSN(path string) string {
	u := url.URL{Scheme: "file", OmitHost: true, Path: path, RawQuery: "mode=ro"}
	return u.String()
}

// OpenSQLite opens a snapshot file read-only
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", snapshotDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	return db, nil
}
