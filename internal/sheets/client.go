package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Client is a RecordStore and FileStore backed by one spreadsheet. The
// Sheets API has no conditional writes, so read-modify-write operations are
// serialised inside the process; run a single writer against a spreadsheet.
type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	logger        *zap.Logger

	mu sync.Mutex
}

func New(ctx context.Context, serviceAccountJSONPath, spreadsheetID string, logger *zap.Logger) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	return NewWithOptions(ctx, spreadsheetID, logger,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
}

// NewWithOptions builds a client from explicit API options, e.g. a custom
// endpoint and HTTP client.
func NewWithOptions(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		logger:        logger.With(zap.String("component", "sheets")),
	}, nil
}

