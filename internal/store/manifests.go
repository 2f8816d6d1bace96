package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ManifestRow is a persisted manifest record. Rows survive across import runs
// so refile and label-text correlation can resolve identifiers without
// re-reading the spreadsheets.
type ManifestRow struct {
	ImageID   string
	TokenID   string
	Fields    map[string]string
	Source    string
	Line      int
	UpdatedAt time.Time
}

// UpsertManifestRow records or refreshes a parsed manifest row.
func (s *Store) UpsertManifestRow(ctx context.Context, row ManifestRow) error {
	fields, err := json.Marshal(row.Fields)
	if err != nil {
		return fmt.Errorf("encode manifest fields: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.execWithRetry(ctx, `INSERT INTO manifest_rows (
            image_id, token_id, fields_json, source, line, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(image_id) DO UPDATE SET
            token_id = excluded.token_id,
            fields_json = excluded.fields_json,
            source = excluded.source,
            line = excluded.line,
            updated_at = excluded.updated_at`,
		row.ImageID, row.TokenID, string(fields), row.Source, row.Line, now)
	if err != nil {
		return fmt.Errorf("upsert manifest row: %w", err)
	}
	return nil
}

// ManifestRowByImageID fetches one persisted manifest row, or nil when the
// identifier is unknown.
func (s *Store) ManifestRowByImageID(ctx context.Context, imageID string) (*ManifestRow, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT image_id, token_id, fields_json, source, line, updated_at
         FROM manifest_rows WHERE image_id = ?`, imageID)
	parsed, err := scanManifestRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return parsed, err
}

// UnattachedManifestRows returns manifest rows whose image identifier has no
// managed item yet. These are the candidates offered when refiling an
// unfiled image.
func (s *Store) UnattachedManifestRows(ctx context.Context) ([]*ManifestRow, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT m.image_id, m.token_id, m.fields_json, m.source, m.line, m.updated_at
         FROM manifest_rows m
         LEFT JOIN items i ON i.image_id = m.image_id
         WHERE i.id IS NULL
         ORDER BY m.image_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("unattached manifest rows: %w", err)
	}
	defer rows.Close()

	var out []*ManifestRow
	for rows.Next() {
		row, err := scanManifestRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanManifestRow(row rowScanner) (*ManifestRow, error) {
	var (
		out       ManifestRow
		fields    string
		updatedAt string
	)
	if err := row.Scan(&out.ImageID, &out.TokenID, &fields, &out.Source, &out.Line, &updatedAt); err != nil {
		return nil, err
	}
	out.Fields = map[string]string{}
	if fields != "" {
		if err := json.Unmarshal([]byte(fields), &out.Fields); err != nil {
			return nil, fmt.Errorf("decode manifest fields: %w", err)
		}
	}
	parsed, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	out.UpdatedAt = parsed
	return &out, nil
}
