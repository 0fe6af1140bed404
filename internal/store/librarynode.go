package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

const nodeCols = `id, document_id, path, depth, item, content_kind, content_id, created_at`

func scanNode(scan func(...any) error) (*model.LibraryNode, error) {
	var n model.LibraryNode
	var created string
	err := scan(&n.ID, &n.DocumentID, &n.Path, &n.Depth, &n.Item, &n.ContentKind, &n.ContentID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n.CreatedAt = parseTime(created)
	return &n, nil
}

func (s *Store) InsertNodeTx(ctx context.Context, tx *sql.Tx, n *model.LibraryNode) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO library_nodes (document_id, path, depth, item, content_kind, content_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.DocumentID, n.Path, n.Depth, n.Item, n.ContentKind, n.ContentID, fmtTime(n.CreatedAt))
	if err != nil {
		return err
	}
	n.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetNode(ctx context.Context, id int64) (*model.LibraryNode, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+nodeCols+` FROM library_nodes WHERE id = ?`, id)
	return scanNode(row.Scan)
}

// ListNodesByDocument returns the whole forest ordered by path, which is the
// lexicographic tree order the hierarchy assembly relies on.
func (s *Store) ListNodesByDocument(ctx context.Context, documentID int64) ([]model.LibraryNode, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+nodeCols+` FROM library_nodes WHERE document_id = ? ORDER BY path`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LibraryNode
	for rows.Next() {
		n, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// ListSubtreeTx fetches a node and its descendants (path-prefix match),
// ordered by path.
func (s *Store) ListSubtreeTx(ctx context.Context, tx *sql.Tx, documentID int64, pathPrefix string) ([]model.LibraryNode, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+nodeCols+` FROM library_nodes
		 WHERE document_id = ? AND substr(path, 1, length(?)) = ?
		 ORDER BY path`,
		documentID, pathPrefix, pathPrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LibraryNode
	for rows.Next() {
		n, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (s *Store) UpdateNodePathTx(ctx context.Context, tx *sql.Tx, id int64, path string, depth int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE library_nodes SET path = ?, depth = ? WHERE id = ?`, path, depth, id)
	return err
}

func (s *Store) DeleteNodesTx(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM library_nodes WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}

// MaxChildSegment returns the last path among direct children of parentPath
// (empty parentPath means roots), or "" when there are none.
func (s *Store) MaxChildSegment(ctx context.Context, documentID int64, parentPath string, step int) (string, error) {
	childLen := len(parentPath) + step
	var max sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT MAX(path) FROM library_nodes
		 WHERE document_id = ? AND length(path) = ? AND substr(path, 1, length(?)) = ?`,
		documentID, childLen, parentPath, parentPath).Scan(&max)
	if err != nil {
		return "", err
	}
	if !max.Valid {
		return "", nil
	}
	return max.String, nil
}

// CountNodesForContentTx counts surviving references to a content object,
// used by the user-created statement garbage collection.
func (s *Store) CountNodesForContentTx(ctx context.Context, tx *sql.Tx, kind model.EvidenceKind, contentID int64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM library_nodes WHERE content_kind = ? AND content_id = ?`,
		kind, contentID).Scan(&n)
	return n, err
}

func (s *Store) DeleteStatementTx(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM statements WHERE id = ? AND is_user_created = 1`, id)
	return err
}

// FindNodeForStatement locates the library node carrying a statement. Used
// to recover the source document and the in-document order of a statement.
func (s *Store) FindNodeForStatement(ctx context.Context, statementID int64) (*model.LibraryNode, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+nodeCols+` FROM library_nodes
		 WHERE content_kind = ? AND content_id = ?
		 ORDER BY id LIMIT 1`,
		model.KindStatement, statementID)
	return scanNode(row.Scan)
}
