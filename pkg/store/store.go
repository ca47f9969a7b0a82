// Package store persists alerts, price observations and notification logs in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ticket-hunter/pkg/models"

	_ "modernc.org/sqlite"
)

var (
	// ErrPersistence wraps every failure of the underlying database.
	ErrPersistence = errors.New("persistence error")
	ErrNotFound    = errors.New("not found")
)

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL,
	url TEXT NOT NULL,
	target_price TEXT NOT NULL,
	last_notified_price TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	last_checked DATETIME,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS price_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id INTEGER NOT NULL REFERENCES alerts(id),
	price TEXT NOT NULL,
	availability TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	raw_data TEXT
);

CREATE INDEX IF NOT EXISTS idx_price_records_alert_time
	ON price_records (alert_id, timestamp);

CREATE TABLE IF NOT EXISTS notification_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id INTEGER NOT NULL REFERENCES alerts(id),
	sent_at DATETIME NOT NULL,
	trigger_reason TEXT NOT NULL,
	price TEXT NOT NULL
);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file and schema if needed. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, persistErr("open", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, persistErr("create schema", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const alertColumns = `id, name, source, url, target_price, last_notified_price, active, last_checked, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(r rowScanner) (models.Alert, error) {
	var (
		a           models.Alert
		lastChecked sql.NullTime
	)
	err := r.Scan(
		&a.ID, &a.Name, &a.Source, &a.URL, &a.TargetPrice,
		&a.LastNotifiedPrice, &a.Active, &lastChecked, &a.CreatedAt,
	)
	if err != nil {
		return models.Alert{}, err
	}
	if lastChecked.Valid {
		t := lastChecked.Time
		a.LastChecked = &t
	}
	return a, nil
}

// ActiveAlerts returns the alerts to check, oldest first.
func (s *Store) ActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE active = 1 ORDER BY id`)
}

func (s *Store) Alerts(ctx context.Context) ([]models.Alert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts ORDER BY id`)
}

func (s *Store) queryAlerts(ctx context.Context, query string, args ...any) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query alerts", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, persistErr("scan alert", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("query alerts", err)
	}
	return out, nil
}

func (s *Store) Alert(ctx context.Context, id int64) (models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Alert{}, persistErr("get alert", err)
	}
	return a, nil
}

// UpsertAlert creates the alert or updates the one with the same name.
// Notification state and check history are left untouched on update.
func (s *Store) UpsertAlert(ctx context.Context, a models.Alert) (created bool, err error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET source = ?, url = ?, target_price = ?, active = ? WHERE name = ?`,
		a.Source, a.URL, a.TargetPrice, a.Active, a.Name,
	)
	if err != nil {
		return false, persistErr("update alert", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (name, source, url, target_price, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, a.Source, a.URL, a.TargetPrice, a.Active, s.now().UTC(),
	)
	if err != nil {
		return false, persistErr("insert alert", err)
	}
	return true, nil
}

// Begin starts the unit of work for one alert check.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	return &Tx{tx: tx}, nil
}
