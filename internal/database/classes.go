package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitstudio/internal/models"
)

func (db *DB) CreateClass(ctx context.Context, class *models.FitnessClass) error {
	query := `INSERT INTO classes (id, name, scheduled_at, instructor, available_slots, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		class.ID,
		class.Name,
		class.ScheduledAt,
		class.Instructor,
		class.AvailableSlots,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	class.CreatedAt = now
	class.UpdatedAt = now
	return nil
}

func (db *DB) GetClass(ctx context.Context, id int64) (*models.FitnessClass, error) {
	var class models.FitnessClass
	query := `SELECT id, name, scheduled_at, instructor, available_slots, created_at, updated_at
              FROM classes WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&class.ID, &class.Name, &class.ScheduledAt, &class.Instructor,
		&class.AvailableSlots, &class.CreatedAt, &class.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return &class, nil
}

// ListClasses returns every class in storage order.
func (db *DB) ListClasses(ctx context.Context) ([]models.FitnessClass, error) {
	query := `SELECT id, name, scheduled_at, instructor, available_slots, created_at, updated_at
              FROM classes ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	var classes []models.FitnessClass
	for rows.Next() {
		var class models.FitnessClass
		err := rows.Scan(
			&class.ID, &class.Name, &class.ScheduledAt, &class.Instructor,
			&class.AvailableSlots, &class.CreatedAt, &class.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, class)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return classes, nil
}

func (db *DB) CountClasses(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count classes: %w", err)
	}
	return count, nil
}
