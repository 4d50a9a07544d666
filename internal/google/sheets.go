package google

import (
	"context"
	"fmt"
	"os"
	"time"

	"fitstudio/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService appends confirmed bookings to a spreadsheet so the studio
// staff can follow the ledger without touching the database.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// AppendBooking writes one booking row to the bookings sheet.
func (s *SheetsService) AppendBooking(booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	values := &sheets.ValueRange{
		Values: [][]interface{}{{
			booking.ID,
			booking.ClassID,
			booking.ClassName,
			booking.ClientName,
			booking.ClientEmail,
			booking.CreatedAt.Format("2006-01-02 15:04:05"),
		}},
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, "A1", values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to append booking row: %w", err)
	}
	return nil
}
