package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"salonvox/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the audit log of finalized bookings. The dialog never reads it; the
// scheduling provider stays the source of truth for the agenda.
type DB struct {
	db *sql.DB
}

func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            service TEXT NOT NULL,
            client_name TEXT NOT NULL,
            client_email TEXT NOT NULL,
            client_phone TEXT NOT NULL,
            start_time DATETIME NOT NULL,
            reschedule_url TEXT,
            cancel_url TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start_time ON bookings(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_service ON bookings(service)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}

func (d *DB) RecordBooking(ctx context.Context, booking *models.Booking) error {
	createdAt := booking.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := d.db.ExecContext(ctx, `
        INSERT INTO bookings (service, client_name, client_email, client_phone, start_time, reschedule_url, cancel_url, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(booking.Service), booking.ClientName, booking.ClientEmail, booking.ClientPhone,
		booking.StartTime, booking.RescheduleURL, booking.CancelURL, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record booking: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		booking.ID = id
	}
	return nil
}

func (d *DB) ListBookings(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT id, service, client_name, client_email, client_phone, start_time, reschedule_url, cancel_url, created_at
        FROM bookings
        WHERE start_time >= ? AND start_time < ?
        ORDER BY start_time`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		var b models.Booking
		var service string
		if err := rows.Scan(&b.ID, &service, &b.ClientName, &b.ClientEmail, &b.ClientPhone,
			&b.StartTime, &b.RescheduleURL, &b.CancelURL, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Service = models.ServiceKind(service)
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}

func (d *DB) Close() error {
	return d.db.Close()
}
