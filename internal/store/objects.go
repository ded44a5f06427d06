package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mkalnins/revtrack/internal/models"
)

// PutObject upserts the live state of a tracked object. Field values are
// stored in their text representations, keyed by field name.
func (s *Store) PutObject(ctx context.Context, ref models.ObjectRef, fields map[string]string) error {
	return putObject(ctx, s.db, ref, fields)
}

func putObject(ctx context.Context, db dbtx, ref models.ObjectRef, fields map[string]string) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal object %s: %w", ref, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO objects (entity_type, object_id, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(entity_type, object_id) DO UPDATE SET data = ?, updated_at = CURRENT_TIMESTAMP`,
		ref.Type, ref.ID, string(data), string(data),
	)
	if err != nil {
		return fmt.Errorf("put object %s: %w", ref, err)
	}
	return nil
}

// GetObject returns the live state of a tracked object.
func (s *Store) GetObject(ctx context.Context, ref models.ObjectRef) (map[string]string, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM objects WHERE entity_type = ? AND object_id = ?`,
		ref.Type, ref.ID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("object %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", ref, err)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal object %s: %w", ref, err)
	}
	return fields, nil
}

// HasObject reports whether a tracked object exists.
func (s *Store) HasObject(ctx context.Context, ref models.ObjectRef) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM objects WHERE entity_type = ? AND object_id = ?`,
		ref.Type, ref.ID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check object %s: %w", ref, err)
	}
	return true, nil
}

// ListObjects returns the IDs of all tracked objects of one entity type.
func (s *Store) ListObjects(ctx context.Context, entityType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_id FROM objects WHERE entity_type = ? ORDER BY object_id`,
		entityType,
	)
	if err != nil {
		return nil, fmt.Errorf("list objects of %s: %w", entityType, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
