package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"fitstudio/internal/models"
)

// SeedClasses loads the seed file into the classes table. It is a no-op when
// the table already has rows, so restarts never duplicate or reset classes.
func (db *DB) SeedClasses(ctx context.Context, path string) error {
	count, err := db.CountClasses(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		db.logger.Debug().Int("classes", count).Msg("classes already seeded, skipping")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed []models.SeedClass
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, item := range seed {
		class := models.FitnessClass{
			ID:             item.ID,
			Name:           item.Name,
			ScheduledAt:    item.Datetime,
			Instructor:     item.Instructor,
			AvailableSlots: item.AvailableSlots,
		}
		if err := db.CreateClass(ctx, &class); err != nil {
			return fmt.Errorf("failed to seed class %d: %w", item.ID, err)
		}
	}

	db.logger.Info().Int("classes", len(seed)).Str("path", path).Msg("seeded classes")
	return nil
}
