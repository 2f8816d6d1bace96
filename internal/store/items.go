package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"wsideid/internal/services"
	"wsideid/internal/workflow"
)

const itemColumns = `id, image_id, token_id, name, source_path, size, checksum,
    state, prior_state, format, ledger_json, manifest_json, label_text,
    processed_json, error_message, version, finished_at, exported_at,
    created_at, updated_at`

// NewItemParams carries the fields set when a file enters management.
type NewItemParams struct {
	ImageID      string
	TokenID      string
	Name         string
	SourcePath   string
	Size         int64
	Checksum     string
	State        workflow.State
	Format       string
	LedgerJSON   string
	ManifestJSON string
}

// Insert persists a newly ingested item.
func (s *Store) Insert(ctx context.Context, params NewItemParams) (*Item, error) {
	if strings.TrimSpace(params.ImageID) == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "insert", "image identifier required", nil)
	}
	if _, ok := workflow.ParseState(string(params.State)); !ok {
		return nil, services.Wrap(services.ErrValidation, "store", "insert",
			fmt.Sprintf("unknown state %q", params.State), nil)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	format := params.Format
	if format == "" {
		format = "none"
	}

	res, err := s.execWithRetry(ctx, `INSERT INTO items (
            image_id, token_id, name, source_path, size, checksum, state,
            format, ledger_json, manifest_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.ImageID,
		params.TokenID,
		params.Name,
		params.SourcePath,
		params.Size,
		params.Checksum,
		string(params.State),
		format,
		params.LedgerJSON,
		params.ManifestJSON,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one item by its database identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get item",
			fmt.Sprintf("item %d", id), nil)
	}
	return item, err
}

// GetByImageID fetches one item by its image identifier.
func (s *Store) GetByImageID(ctx context.Context, imageID string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM items WHERE image_id = ?`, imageID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// List returns items, optionally filtered by state, ordered by name.
func (s *Store) List(ctx context.Context, states ...workflow.State) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, state := range states {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		query += ` WHERE state IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY lower(name) ASC, id ASC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemsByToken returns all items filed under the given folder token.
func (s *Store) ItemsByToken(ctx context.Context, tokenID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM items WHERE token_id = ? ORDER BY lower(name) ASC`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("items by token: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextAttention returns the first item needing reviewer attention, scanning
// states in review priority order and items alphabetically.
func (s *Store) NextAttention(ctx context.Context) (*Item, error) {
	for _, state := range workflow.AttentionOrder() {
		row := s.db.QueryRowContext(ensureContext(ctx),
			`SELECT `+itemColumns+` FROM items WHERE state = ? ORDER BY lower(name) ASC LIMIT 1`,
			string(state))
		item, err := scanItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, nil
}

// CountsByState aggregates item counts per workflow state.
func (s *Store) CountsByState(ctx context.Context) (map[workflow.State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT state, COUNT(1) FROM items GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := map[workflow.State]int{}
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		if parsed, ok := workflow.ParseState(state); ok {
			counts[parsed] = count
		}
	}
	return counts, rows.Err()
}

// ReplaceContent updates the stored file attributes when an import replaces
// an existing item's content, and resets its ledger and review state.
func (s *Store) ReplaceContent(ctx context.Context, id int64, sourcePath string, size int64, checksum, format, ledgerJSON string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx, `UPDATE items SET
            source_path = ?, size = ?, checksum = ?, format = ?,
            ledger_json = ?, state = ?, prior_state = NULL,
            processed_json = '', error_message = '', finished_at = NULL,
            exported_at = NULL, label_text = NULL,
            version = version + 1, updated_at = ?
        WHERE id = ?`,
		sourcePath, size, checksum, format, ledgerJSON,
		string(workflow.StateIngest), now, id)
	if err != nil {
		return fmt.Errorf("replace content: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace content rows: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "replace content",
			fmt.Sprintf("item %d", id), nil)
	}
	return nil
}

// SetLabelText records the recognized label words for an item. Recording an
// empty result still marks the item as scanned.
func (s *Store) SetLabelText(ctx context.Context, id int64, text string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE items SET label_text = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		text, now, id)
	if err != nil {
		return fmt.Errorf("set label text: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "set label text",
			fmt.Sprintf("item %d", id), nil)
	}
	return nil
}

// MarkExported stamps a successful transfer on the item.
func (s *Store) MarkExported(ctx context.Context, id int64, at time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`UPDATE items SET exported_at = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), now, id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item       Item
		state      string
		priorState sql.NullString
		labelText  sql.NullString
		finishedAt sql.NullString
		exportedAt sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(
		&item.ID,
		&item.ImageID,
		&item.TokenID,
		&item.Name,
		&item.SourcePath,
		&item.Size,
		&item.Checksum,
		&state,
		&priorState,
		&item.Format,
		&item.LedgerJSON,
		&item.ManifestJSON,
		&labelText,
		&item.ProcessedJSON,
		&item.ErrorMessage,
		&item.Version,
		&finishedAt,
		&exportedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.State = workflow.State(state)
	if priorState.Valid {
		item.PriorState = workflow.State(priorState.String)
	}
	if labelText.Valid {
		text := labelText.String
		item.LabelText = &text
	}
	if item.FinishedAt, err = parseNullTime(finishedAt); err != nil {
		return nil, err
	}
	if item.ExportedAt, err = parseNullTime(exportedAt); err != nil {
		return nil, err
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
