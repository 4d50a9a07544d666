package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitstudio/internal/models"
)

// BookSlot consumes one slot of the requested class and records the booking.
// The slot check, the decrement, and the ledger insert happen in a single
// transaction; the guarded UPDATE serializes concurrent attempts so the pool
// never goes negative and never loses a unit to a race.
func (db *DB) BookSlot(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var className string
	var slots int64
	err = tx.QueryRowContext(ctx,
		`SELECT name, available_slots FROM classes WHERE id = ?`, req.ClassID,
	).Scan(&className, &slots)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read class in tx: %w", err)
	}

	if slots <= 0 {
		return nil, &NoSlotsError{ClassName: className}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE classes SET available_slots = available_slots - 1, updated_at = ?
         WHERE id = ? AND available_slots > 0`, now, req.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement slots: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Lost the last slot to a concurrent booking.
		return nil, &NoSlotsError{ClassName: className}
	}

	insert, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (class_id, class_name, client_name, client_email, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		req.ClassID, className, req.ClientName, req.ClientEmail, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := insert.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	return &models.Booking{
		ID:          id,
		ClassID:     req.ClassID,
		ClassName:   className,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		CreatedAt:   now,
	}, nil
}

// BookingsByEmail matches stored emails by exact equality.
func (db *DB) BookingsByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	query := `SELECT id, class_id, class_name, client_name, client_email, created_at
              FROM bookings WHERE client_email = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by email: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (db *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	query := `SELECT id, class_id, class_name, client_name, client_email, created_at
              FROM bookings ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (db *DB) CountBookingsForClass(ctx context.Context, classID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE class_id = ?`, classID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		err := rows.Scan(&b.ID, &b.ClassID, &b.ClassName, &b.ClientName, &b.ClientEmail, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
