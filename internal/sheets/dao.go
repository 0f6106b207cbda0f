package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"entry-portal/internal/models"
	"entry-portal/internal/store"
	"entry-portal/internal/util"
)

const (
	SheetEntries = "Entries"
	SheetRecords = "Stage_Records"
	SheetFiles   = "Entry_Files"
)

var (
	_ store.RecordStore = (*Client)(nil)
	_ store.FileStore   = (*Client)(nil)
)

// statusColumnStart is the column of the first stage status on Entries;
// the rest follow in models.Stages() order.
const statusColumnStart = 'E'

func headers() map[string][]interface{} {
	entries := []interface{}{"entry_id", "style", "team_name", "created_at"}
	for _, st := range models.Stages() {
		entries = append(entries, string(st)+"_status")
	}
	return map[string][]interface{}{
		SheetEntries: entries,
		SheetRecords: {"entry_id", "stage", "fields", "version", "updated_at"},
		SheetFiles:   {"entry_id", "file_type", "purpose", "path", "uploaded_at"},
	}
}

func (c *Client) readAll(ctx context.Context, sheet string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:Z", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}

// updateRow writes values starting at the a1 cell.
func (c *Client) updateRow(ctx context.Context, sheet, a1 string, values ...interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{values}}
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!"+a1, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s!%s: %w", sheet, a1, err)
	}
	return nil
}

// EnsureHeaders writes the header row of every sheet that is still empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	for sheet, header := range headers() {
		values, err := c.readAll(ctx, sheet)
		if err != nil {
			return err
		}
		if len(values) > 0 {
			continue
		}
		if err := c.appendRow(ctx, sheet, header); err != nil {
			return err
		}
		c.logger.Info("sheet header written", zap.String("sheet", sheet))
	}
	return nil
}

// ---------- Entries ----------

func entryFromRow(row []interface{}) models.Entry {
	e := models.Entry{
		ID:       get(row, 0),
		Style:    get(row, 1),
		TeamName: get(row, 2),
		Statuses: map[models.Stage]models.Status{},
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, get(row, 3))
	for i, st := range models.Stages() {
		e.Statuses[st] = models.Status(get(row, 4+i))
	}
	return e
}

// findEntry returns the entry and its 1-based sheet row, or nil, 0.
func (c *Client) findEntry(ctx context.Context, entryID string) (*models.Entry, int, error) {
	values, err := c.readAll(ctx, SheetEntries)
	if err != nil {
		return nil, 0, err
	}
	// header row at index 0
	for i := 1; i < len(values); i++ {
		if get(values[i], 0) == entryID {
			e := entryFromRow(values[i])
			return &e, i + 1, nil
		}
	}
	return nil, 0, nil
}

func (c *Client) CreateEntry(ctx context.Context, e models.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, _, err := c.findEntry(ctx, e.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: entry %s exists", store.ErrConflict, e.ID)
	}
	created := util.NowISO()
	if !e.CreatedAt.IsZero() {
		created = e.CreatedAt.Format(time.RFC3339)
	}
	row := []interface{}{e.ID, e.Style, e.TeamName, created}
	for _, st := range models.Stages() {
		row = append(row, string(e.StatusOf(st)))
	}
	return c.appendRow(ctx, SheetEntries, row)
}

func (c *Client) GetEntry(ctx context.Context, entryID string) (*models.Entry, error) {
	e, _, err := c.findEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, store.ErrNotFound
	}
	return e, nil
}

func (c *Client) ListEntries(ctx context.Context) ([]models.Entry, error) {
	values, err := c.readAll(ctx, SheetEntries)
	if err != nil {
		return nil, err
	}
	out := []models.Entry{}
	for i := 1; i < len(values); i++ {
		if strings.TrimSpace(get(values[i], 0)) == "" {
			continue
		}
		out = append(out, entryFromRow(values[i]))
	}
	return out, nil
}

func statusColumn(stage models.Stage) (string, error) {
	for i, st := range models.Stages() {
		if st == stage {
			return string(rune(statusColumnStart + i)), nil
		}
	}
	return "", fmt.Errorf("unknown stage: %q", stage)
}

func (c *Client) SetEntryStatus(ctx context.Context, entryID string, stage models.Stage, status models.Status) (bool, error) {
	col, err := statusColumn(stage)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, rowNum, err := c.findEntry(ctx, entryID)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, store.ErrNotFound
	}
	if e.Statuses[stage] == status {
		return false, nil
	}
	if err := c.updateRow(ctx, SheetEntries, fmt.Sprintf("%s%d", col, rowNum), string(status)); err != nil {
		return false, err
	}
	return true, nil
}

// ---------- Stage records ----------

func (c *Client) findRecord(ctx context.Context, entryID string, stage models.Stage) (*models.StageRecord, int, error) {
	values, err := c.readAll(ctx, SheetRecords)
	if err != nil {
		return nil, 0, err
	}
	for i := 1; i < len(values); i++ {
		row := values[i]
		if get(row, 0) != entryID || get(row, 1) != string(stage) {
			continue
		}
		version, err := strconv.ParseInt(strings.TrimSpace(get(row, 3)), 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%s row %d: bad version %q", SheetRecords, i+1, get(row, 3))
		}
		r := &models.StageRecord{
			EntryID: entryID,
			Stage:   stage,
			Fields:  []byte(get(row, 2)),
			Version: version,
		}
		r.UpdatedAt, _ = time.Parse(time.RFC3339, get(row, 4))
		return r, i + 1, nil
	}
	return nil, 0, nil
}

func (c *Client) Get(ctx context.Context, entryID string, stage models.Stage) (*models.StageRecord, error) {
	r, _, err := c.findRecord(ctx, entryID, stage)
	return r, err
}

func (c *Client) Upsert(ctx context.Context, entryID string, stage models.Stage, fields []byte) (*models.StageRecord, error) {
	if err := store.ValidateFields(fields); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, _, err := c.findEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, store.ErrNotFound
	}

	existing, rowNum, err := c.findRecord(ctx, entryID, stage)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	r := &models.StageRecord{EntryID: entryID, Stage: stage, Fields: fields, Version: 1, UpdatedAt: now}
	if existing == nil {
		err = c.appendRow(ctx, SheetRecords, []interface{}{
			entryID, string(stage), string(fields), strconv.FormatInt(r.Version, 10), now.Format(time.RFC3339),
		})
	} else {
		r.Version = existing.Version + 1
		err = c.writeRecord(ctx, rowNum, fields, r.Version, now)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Update(ctx context.Context, entryID string, stage models.Stage, patch models.Patch, expectedVersion int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, rowNum, err := c.findRecord(ctx, entryID, stage)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}
	if expectedVersion != 0 && existing.Version != expectedVersion {
		return fmt.Errorf("%w: %s/%s at version %d, expected %d",
			store.ErrConflict, entryID, stage, existing.Version, expectedVersion)
	}
	merged, err := store.MergeFields(existing.Fields, patch)
	if err != nil {
		return err
	}
	return c.writeRecord(ctx, rowNum, merged, existing.Version+1, time.Now().UTC())
}

func (c *Client) writeRecord(ctx context.Context, rowNum int, fields []byte, version int64, at time.Time) error {
	a1 := fmt.Sprintf("C%d:E%d", rowNum, rowNum) // fields, version, updated_at
	return c.updateRow(ctx, SheetRecords, a1, string(fields), strconv.FormatInt(version, 10), at.Format(time.RFC3339))
}

// ---------- Files ----------

func (c *Client) Exists(ctx context.Context, entryID, fileType, purpose string) (bool, error) {
	values, err := c.readAll(ctx, SheetFiles)
	if err != nil {
		return false, err
	}
	for i := 1; i < len(values); i++ {
		row := values[i]
		if get(row, 0) != entryID || get(row, 2) != purpose {
			continue
		}
		if fileType == "" || strings.EqualFold(get(row, 1), fileType) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) AddFile(ctx context.Context, f models.EntryFile) error {
	uploaded := util.NowISO()
	if !f.UploadedAt.IsZero() {
		uploaded = f.UploadedAt.Format(time.RFC3339)
	}
	return c.appendRow(ctx, SheetFiles, []interface{}{f.EntryID, f.FileType, f.Purpose, f.Path, uploaded})
}

// ---------- helpers ----------

func get(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}
