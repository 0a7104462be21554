// Package sheets implements the row store on the Google Sheets API.
package sheets

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/leadscan/telegram-lead-scanner/internal/storage"
)

const (
	valueInputRaw    = "RAW"
	insertRowsOption = "INSERT_ROWS"

	defaultCallTimeout = 30 * time.Second
)

// Client is a storage.RowStore backed by one Google spreadsheet.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	callTimeout   time.Duration
	logger        *zerolog.Logger
}

// Config holds the Sheets backend settings.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CallTimeout     time.Duration
}

// New creates a Sheets-backed row store from a service account credentials
// file.
func New(ctx context.Context, cfg Config, logger *zerolog.Logger) (*Client, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = defaultCallTimeout
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		callTimeout:   timeout,
		logger:        logger,
	}, nil
}

// ReadRange implements storage.RowStore.
func (c *Client) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rng, err)
	}

	rows := make([][]string, 0, len(resp.Values))

	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}

		rows = append(rows, cells)
	}

	return rows, nil
}

// AppendRows implements storage.RowStore.
func (c *Client) AppendRows(ctx context.Context, rng string, rows [][]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, rng, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRowsOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows to %s: %w", rng, err)
	}

	c.logger.Debug().Str("range", rng).Int("rows", len(rows)).Msg("appended rows")

	return nil
}

// UpdateRange implements storage.RowStore.
func (c *Client) UpdateRange(ctx context.Context, rng string, rows [][]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, rng, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update range %s: %w", rng, err)
	}

	return nil
}

// ClearRange implements storage.RowStore.
func (c *Client) ClearRange(ctx context.Context, rng string) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	_, err := c.svc.Spreadsheets.Values.
		Clear(c.spreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear range %s: %w", rng, err)
	}

	return nil
}

// EnsureSheet implements storage.RowStore.
func (c *Client) EnsureSheet(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("get spreadsheet metadata: %w", err)
	}

	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == name {
			return false, nil
		}
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: name},
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("add sheet %s: %w", name, err)
	}

	return true, nil
}

var _ storage.RowStore = (*Client)(nil)
