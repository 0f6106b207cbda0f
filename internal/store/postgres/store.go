package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"entry-portal/internal/models"
	"entry-portal/internal/store"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.RecordStore and store.FileStore.
type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

var (
	_ store.RecordStore = (*Store)(nil)
	_ store.FileStore   = (*Store)(nil)
)

// statusColumns maps each stage to its status column on entries.
var statusColumns = map[models.Stage]string{
	models.StageBasic:        "basic_info_status",
	models.StagePreliminary:  "preliminary_info_status",
	models.StageProgram:      "program_info_status",
	models.StageSemifinals:   "semifinals_info_status",
	models.StageFinals:       "finals_info_status",
	models.StageSns:          "sns_info_status",
	models.StageApplications: "applications_info_status",
}

const entryColumns = `id::text, style, team_name, created_at,
	basic_info_status, preliminary_info_status, program_info_status, semifinals_info_status,
	finals_info_status, sns_info_status, applications_info_status`

func statusColumn(stage models.Stage) (string, error) {
	col, ok := statusColumns[stage]
	if !ok {
		return "", fmt.Errorf("unknown stage: %q", stage)
	}
	return col, nil
}

func (s *Store) CreateEntry(ctx context.Context, e models.Entry) error {
	query := `INSERT INTO entries (id, style, team_name, created_at) VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))`
	var created *time.Time
	if !e.CreatedAt.IsZero() {
		created = &e.CreatedAt
	}
	if _, err := s.db.Exec(ctx, query, e.ID, e.Style, e.TeamName, created); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: entry %s exists", store.ErrConflict, e.ID)
		}
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID string) (*models.Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, entryID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]models.Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

func scanEntry(row pgx.Row) (*models.Entry, error) {
	e := &models.Entry{}
	statuses := make([]string, len(models.Stages()))
	dest := []any{&e.ID, &e.Style, &e.TeamName, &e.CreatedAt}
	for i := range statuses {
		dest = append(dest, &statuses[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.Statuses = make(map[models.Stage]models.Status, len(statuses))
	for i, st := range models.Stages() {
		e.Statuses[st] = models.Status(statuses[i])
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, entryID string, stage models.Stage) (*models.StageRecord, error) {
	query := `
		SELECT fields, version, updated_at
		FROM stage_records
		WHERE entry_id = $1 AND stage = $2`

	r := &models.StageRecord{EntryID: entryID, Stage: stage}
	var fields []byte
	err := s.db.QueryRow(ctx, query, entryID, string(stage)).Scan(&fields, &r.Version, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s record: %w", stage, err)
	}
	r.Fields = fields
	return r, nil
}

func (s *Store) Upsert(ctx context.Context, entryID string, stage models.Stage, fields []byte) (*models.StageRecord, error) {
	if err := store.ValidateFields(fields); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO stage_records (entry_id, stage, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (entry_id, stage) DO UPDATE
		SET fields = EXCLUDED.fields,
		    version = stage_records.version + 1,
		    updated_at = now()
		RETURNING fields, version, updated_at`

	r := &models.StageRecord{EntryID: entryID, Stage: stage}
	var stored []byte
	err := s.db.QueryRow(ctx, query, entryID, string(stage), string(fields)).Scan(&stored, &r.Version, &r.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("upsert %s record: %w", stage, err)
	}
	r.Fields = stored
	return r, nil
}

// Update merges patch with the jsonb || operator, which replaces top-level
// keys exactly like store.MergeFields.
func (s *Store) Update(ctx context.Context, entryID string, stage models.Stage, patch models.Patch, expectedVersion int64) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	query := `
		UPDATE stage_records
		SET fields = fields || $3::jsonb,
		    version = version + 1,
		    updated_at = now()
		WHERE entry_id = $1 AND stage = $2
		  AND ($4::bigint = 0 OR version = $4::bigint)`

	tag, err := s.db.Exec(ctx, query, entryID, string(stage), string(raw), expectedVersion)
	if err != nil {
		return fmt.Errorf("update %s record: %w", stage, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current int64
	err = s.db.QueryRow(ctx, `SELECT version FROM stage_records WHERE entry_id = $1 AND stage = $2`,
		entryID, string(stage)).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s record: %w", stage, err)
	}
	return fmt.Errorf("%w: %s/%s at version %d, expected %d", store.ErrConflict, entryID, stage, current, expectedVersion)
}

func (s *Store) SetEntryStatus(ctx context.Context, entryID string, stage models.Stage, status models.Status) (bool, error) {
	col, err := statusColumn(stage)
	if err != nil {
		return false, err
	}
	query := `UPDATE entries SET ` + col + ` = $2 WHERE id = $1 AND ` + col + ` IS DISTINCT FROM $2`
	tag, err := s.db.Exec(ctx, query, entryID, string(status))
	if err != nil {
		return false, fmt.Errorf("set %s status: %w", stage, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entries WHERE id = $1)`, entryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("set %s status: %w", stage, err)
	}
	if !exists {
		return false, store.ErrNotFound
	}
	return false, nil
}

func (s *Store) Exists(ctx context.Context, entryID, fileType, purpose string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM entry_files
			WHERE entry_id = $1 AND purpose = $2
			  AND ($3::text = '' OR lower(file_type) = lower($3::text))
		)`

	var ok bool
	if err := s.db.QueryRow(ctx, query, entryID, purpose, fileType).Scan(&ok); err != nil {
		return false, fmt.Errorf("lookup file %s: %w", purpose, err)
	}
	return ok, nil
}

func (s *Store) AddFile(ctx context.Context, f models.EntryFile) error {
	query := `
		INSERT INTO entry_files (entry_id, file_type, purpose, path)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.db.Exec(ctx, query, f.EntryID, f.FileType, f.Purpose, f.Path); err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("add file: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
