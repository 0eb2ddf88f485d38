// Package sheets stores the ledger in a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m3rciful/sheetsbot/core/logger"
	"github.com/m3rciful/sheetsbot/internal/ledger"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// ErrSpreadsheetNotFound means the spreadsheet id does not resolve, or the service
// account was not given access to it.
var ErrSpreadsheetNotFound = errors.New("sheets: spreadsheet not found")

const (
	valueInputOption = "USER_ENTERED"
	majorColumns     = "COLUMNS"
)

// Config identifies the spreadsheet and the service account used to reach it.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
}

// Client implements ledger.Store on top of the Sheets API.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// New creates a Sheets API client authorized with the service account credentials file.
// Extra client options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	clientOpts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: creating service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheets.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// OpenSheet returns the worksheet titled name, or ledger.ErrWorksheetNotFound.
func (c *Client) OpenSheet(ctx context.Context, name string) (ledger.Worksheet, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s (HTTP %d)", ErrSpreadsheetNotFound, c.spreadsheetID, apiErr.Code)
		}
		return nil, fmt.Errorf("sheets: get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return &worksheet{client: c, title: name}, nil
		}
	}
	return nil, ledger.ErrWorksheetNotFound
}

type worksheet struct {
	client *Client
	title  string
}

func (w *worksheet) ColumnValues(ctx context.Context, col int) ([]string, error) {
	rng := ColumnRange(w.title, col)
	vr, err := w.client.svc.Spreadsheets.Values.Get(w.client.spreadsheetID, rng).
		MajorDimension(majorColumns).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get %s: %w", rng, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	out := make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	logger.Debug(ctx, "ledger", "sheets.read",
		slog.String("sheet", w.title),
		slog.Int("column", col),
		slog.Int("items", len(out)),
	)
	return out, nil
}

func (w *worksheet) UpdateCell(ctx context.Context, row, col int, value any) error {
	rng := CellRange(w.title, row, col)
	body := &gsheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := w.client.svc.Spreadsheets.Values.Update(w.client.spreadsheetID, rng, body).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: update %s: %w", rng, err)
	}
	return nil
}
