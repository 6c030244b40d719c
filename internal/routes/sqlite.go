package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

const schema = `
CREATE TABLE IF NOT EXISTS routes (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	departure_area TEXT NOT NULL,
	arrival_area   TEXT NOT NULL,
	boarding_port  TEXT NOT NULL,
	landing_port   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS routes_direction ON routes (departure_area, arrival_area);
`

// SQLiteStore keeps routes in a SQLite database file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the route database at path.
// Use ":memory:" for a throw-away database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path + "?_busy_timeout=5000"
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open route database: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open route database %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate creates the routes table if it does not exist
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate route database: %w", err)
	}
	return nil
}

// GetRoute returns the route from departure to arrival
func (s *SQLiteStore) GetRoute(ctx context.Context, departure, arrival string) (*Route, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, departure_area, arrival_area, boarding_port, landing_port
		FROM routes
		WHERE departure_area = ? AND arrival_area = ?
		ORDER BY id
		LIMIT 1`, departure, arrival)

	var r Route
	err := row.Scan(&r.ID, &r.DepartureArea, &r.ArrivalArea, &r.BoardingPort, &r.LandingPort)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query route: %w", err)
	}
	return &r, nil
}

// Insert adds routes in one transaction and fills in their IDs
func (s *SQLiteStore) Insert(ctx context.Context, routes ...*Route) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO routes (departure_area, arrival_area, boarding_port, landing_port)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range routes {
		res, err := stmt.ExecContext(ctx, r.DepartureArea, r.ArrivalArea, r.BoardingPort, r.LandingPort)
		if err != nil {
			return fmt.Errorf("failed to insert route %s->%s: %w", r.DepartureArea, r.ArrivalArea, err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read route id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit routes: %w", err)
	}
	return nil
}

// List returns every route ordered by departure and arrival
func (s *SQLiteStore) List(ctx context.Context) ([]Route, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, departure_area, arrival_area, boarding_port, landing_port
		FROM routes
		ORDER BY departure_area, arrival_area, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var out []Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.ID, &r.DepartureArea, &r.ArrivalArea, &r.BoardingPort, &r.LandingPort); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
