package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkalnins/revtrack/internal/models"
)

// InsertRevision assigns the next revision number for the revision's object
// reference and persists the row. Numbering is optimistic: the candidate is
// max+1, and when a concurrent writer wins the race for that number the
// UNIQUE constraint rejects the insert and the candidate is bumped. After
// maxNumberingAttempts rejections the operation fails with
// ErrRevisionConflictExhausted. No locks are taken; the constraint is the
// sole arbiter.
func (s *Store) InsertRevision(ctx context.Context, rev *models.Revision) error {
	return insertRevision(ctx, s.db, rev)
}

func insertRevision(ctx context.Context, db dbtx, rev *models.Revision) error {
	max, err := maxRevision(ctx, db, rev.Ref)
	if err != nil {
		return err
	}

	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now().UTC()
	}

	return assignNumber(rev, max, func() error {
		return insertRevisionRow(ctx, db, rev)
	})
}

// assignNumber runs the bounded optimistic numbering loop: candidates start
// at max+1 and advance past every ErrDuplicateRevision until an insert wins
// or the attempt budget is spent.
func assignNumber(rev *models.Revision, max int, insert func() error) error {
	candidate := max + 1
	for attempt := 0; attempt < maxNumberingAttempts; attempt++ {
		rev.Revision = candidate
		err := insert()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateRevision) {
			return err
		}
		candidate++
	}

	return fmt.Errorf("%w: %s after %d attempts", ErrRevisionConflictExhausted, rev.Ref, maxNumberingAttempts)
}

// insertRevisionRow attempts one insert with rev.Revision already chosen.
// A lost race for the number surfaces as ErrDuplicateRevision.
func insertRevisionRow(ctx context.Context, db dbtx, rev *models.Revision) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO revisions (entity_type, object_id, revision, reverted, sha1, delta, created_at, comment, editor, editor_ip)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rev.Ref.Type, rev.Ref.ID, rev.Revision, rev.Reverted, rev.SHA1, rev.Delta,
		rev.CreatedAt.Format(time.RFC3339Nano), rev.Comment,
		sql.NullString{String: rev.Editor, Valid: rev.Editor != ""},
		sql.NullString{String: rev.EditorIP, Valid: rev.EditorIP != ""},
	)
	if err == nil {
		rev.ID, _ = res.LastInsertId()
		return nil
	}
	if isUniqueConstraint(err) {
		return fmt.Errorf("revision %s r%d: %w", rev.Ref, rev.Revision, ErrDuplicateRevision)
	}
	return fmt.Errorf("insert revision %s r%d: %w", rev.Ref, rev.Revision, err)
}

// MaxRevision returns the highest revision number persisted for an object
// reference, or 0 when it has no history yet.
func (s *Store) MaxRevision(ctx context.Context, ref models.ObjectRef) (int, error) {
	return maxRevision(ctx, s.db, ref)
}

func maxRevision(ctx context.Context, db dbtx, ref models.ObjectRef) (int, error) {
	var max sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT MAX(revision) FROM revisions WHERE entity_type = ? AND object_id = ?`,
		ref.Type, ref.ID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("query max revision for %s: %w", ref, err)
	}
	return int(max.Int64), nil
}

const revisionColumns = "id, entity_type, object_id, revision, reverted, sha1, delta, created_at, comment, editor, editor_ip"

// GetRevision retrieves one revision by object reference and number.
func (s *Store) GetRevision(ctx context.Context, ref models.ObjectRef, revision int) (*models.Revision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+revisionColumns+` FROM revisions
		WHERE entity_type = ? AND object_id = ? AND revision = ?`,
		ref.Type, ref.ID, revision,
	)
	rev, err := scanRevision(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("revision %s r%d: %w", ref, revision, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision %s r%d: %w", ref, revision, err)
	}
	return rev, nil
}

// ListNewestFirst returns the revisions for an object reference with
// numbers >= from (inclusive) or > from (exclusive), ordered from newest to
// oldest. This is the replay order for reconstruction and revert.
func (s *Store) ListNewestFirst(ctx context.Context, ref models.ObjectRef, from int, inclusive bool) ([]*models.Revision, error) {
	op := ">"
	if inclusive {
		op = ">="
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+revisionColumns+` FROM revisions
		WHERE entity_type = ? AND object_id = ? AND revision `+op+` ?
		ORDER BY revision DESC`,
		ref.Type, ref.ID, from,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions for %s: %w", ref, err)
	}
	defer rows.Close()

	return collectRevisions(rows)
}

// Log returns an object's full history newest-first, optionally limited.
func (s *Store) Log(ctx context.Context, ref models.ObjectRef, limit int) ([]*models.Revision, error) {
	query := `
		SELECT ` + revisionColumns + ` FROM revisions
		WHERE entity_type = ? AND object_id = ?
		ORDER BY revision DESC`
	args := []any{ref.Type, ref.ID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("log for %s: %w", ref, err)
	}
	defer rows.Close()

	return collectRevisions(rows)
}

// CommitRevert applies a revert as one transaction: every consumed revision
// gets reverted=TRUE, the object's live state is replaced with the restored
// field values, and the new forward revision is inserted through the normal
// numbering loop. Either all of it commits or none of it does.
func (s *Store) CommitRevert(ctx context.Context, ref models.ObjectRef, restored map[string]string, consumed []int, rev *models.Revision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revert: %w", err)
	}
	defer tx.Rollback()

	for _, n := range consumed {
		if _, err := tx.ExecContext(ctx, `
			UPDATE revisions SET reverted = TRUE
			WHERE entity_type = ? AND object_id = ? AND revision = ?`,
			ref.Type, ref.ID, n,
		); err != nil {
			return fmt.Errorf("mark revision %s r%d reverted: %w", ref, n, err)
		}
	}

	if err := putObject(ctx, tx, ref, restored); err != nil {
		return err
	}

	if err := insertRevision(ctx, tx, rev); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revert: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row rowScanner) (*models.Revision, error) {
	var rev models.Revision
	var createdAt string
	var editor, editorIP sql.NullString

	err := row.Scan(
		&rev.ID, &rev.Ref.Type, &rev.Ref.ID, &rev.Revision, &rev.Reverted,
		&rev.SHA1, &rev.Delta, &createdAt, &rev.Comment, &editor, &editorIP,
	)
	if err != nil {
		return nil, err
	}

	rev.CreatedAt = parseTimestamp(createdAt)
	if editor.Valid {
		rev.Editor = editor.String
	}
	if editorIP.Valid {
		rev.EditorIP = editorIP.String
	}
	return &rev, nil
}

func collectRevisions(rows *sql.Rows) ([]*models.Revision, error) {
	var revs []*models.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}
