package survey

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgresSource reads the survey tables of the "ag" schema. Answers are
// read in answer_seq order (migrations/000002_answer_order.up.sql).
func NewPostgresSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db, prefix: "ag.", seq: "answer_seq"}
}

// OpenPostgres opens and pings a PostgreSQL database
func OpenPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
