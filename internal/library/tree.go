package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// ErrRootForbidden guards sibling/parent insertion on depth-1 nodes.
var ErrRootForbidden = errors.New("operation forbidden on a root node")

// Position selects where a node lands relative to a reference node.
type Position string

const (
	PosLeft  Position = "left"
	PosRight Position = "right"
	PosChild Position = "child" // appended as last child
)

type Tree struct {
	Store *store.Store
}

func NewTree(s *store.Store) *Tree {
	return &Tree{Store: s}
}

// AddRoot creates a depth-1 node after the document's last root.
func (t *Tree) AddRoot(ctx context.Context, documentID int64, kind model.EvidenceKind, contentID int64, item string) (*model.LibraryNode, error) {
	last, err := t.Store.MaxChildSegment(ctx, documentID, "", PathStep)
	if err != nil {
		return nil, err
	}
	next := 1
	if last != "" {
		next = SegmentValue(LastSegment(last)) + 1
	}
	node := &model.LibraryNode{
		DocumentID:  documentID,
		Path:        ChildPath("", next),
		Depth:       1,
		Item:        item,
		ContentKind: kind,
		ContentID:   contentID,
	}
	err = t.Store.WithTx(ctx, func(tx *sql.Tx) error {
		return t.Store.InsertNodeTx(ctx, tx, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// AddChild appends a node as the last child of parent.
func (t *Tree) AddChild(ctx context.Context, parentID int64, kind model.EvidenceKind, contentID int64, item string) (*model.LibraryNode, error) {
	parent, err := t.Store.GetNode(ctx, parentID)
	if err != nil {
		return nil, err
	}
	last, err := t.Store.MaxChildSegment(ctx, parent.DocumentID, parent.Path, PathStep)
	if err != nil {
		return nil, err
	}
	next := 1
	if last != "" {
		next = SegmentValue(LastSegment(last)) + 1
	}
	node := &model.LibraryNode{
		DocumentID:  parent.DocumentID,
		Path:        ChildPath(parent.Path, next),
		Depth:       parent.Depth + 1,
		Item:        item,
		ContentKind: kind,
		ContentID:   contentID,
	}
	err = t.Store.WithTx(ctx, func(tx *sql.Tx) error {
		return t.Store.InsertNodeTx(ctx, tx, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// AddSibling inserts a node to the left or right of ref. Forbidden on roots.
func (t *Tree) AddSibling(ctx context.Context, refID int64, pos Position, kind model.EvidenceKind, contentID int64, item string) (*model.LibraryNode, error) {
	ref, err := t.Store.GetNode(ctx, refID)
	if err != nil {
		return nil, err
	}
	if ref.Depth == 1 {
		return nil, ErrRootForbidden
	}
	refVal := SegmentValue(LastSegment(ref.Path))
	insertAt := refVal // left: take ref's slot
	if pos == PosRight {
		insertAt = refVal + 1
	}

	node := &model.LibraryNode{
		DocumentID:  ref.DocumentID,
		Depth:       ref.Depth,
		Item:        item,
		ContentKind: kind,
		ContentID:   contentID,
	}
	parent := ParentPath(ref.Path)
	err = t.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := t.shiftSiblingsFrom(ctx, tx, ref.DocumentID, parent, insertAt); err != nil {
			return err
		}
		node.Path = ChildPath(parent, insertAt)
		return t.Store.InsertNodeTx(ctx, tx, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// AddParent inserts a new node between ref and its parent; ref becomes the
// first child of the new node. Forbidden on roots.
func (t *Tree) AddParent(ctx context.Context, refID int64, kind model.EvidenceKind, contentID int64, item string) (*model.LibraryNode, error) {
	ref, err := t.Store.GetNode(ctx, refID)
	if err != nil {
		return nil, err
	}
	if ref.Depth == 1 {
		return nil, ErrRootForbidden
	}
	node := &model.LibraryNode{
		DocumentID:  ref.DocumentID,
		Path:        ref.Path,
		Depth:       ref.Depth,
		Item:        item,
		ContentKind: kind,
		ContentID:   contentID,
	}
	err = t.Store.WithTx(ctx, func(tx *sql.Tx) error {
		subtree, err := t.Store.ListSubtreeTx(ctx, tx, ref.DocumentID, ref.Path)
		if err != nil {
			return err
		}
		// Move ref's subtree down one level first so the slot frees up.
		newBase := ChildPath(ref.Path, 1)
		for i := len(subtree) - 1; i >= 0; i-- {
			n := subtree[i]
			p := Rebase(n.Path, ref.Path, newBase)
			if err := t.Store.UpdateNodePathTx(ctx, tx, n.ID, p, Depth(p)); err != nil {
				return err
			}
		}
		return t.Store.InsertNodeTx(ctx, tx, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Move relocates a whole subtree under (or beside) target. Paths of the
// subtree are rewritten; lexicographic order under the new parent holds.
func (t *Tree) Move(ctx context.Context, nodeID, targetID int64, pos Position) error {
	node, err := t.Store.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	target, err := t.Store.GetNode(ctx, targetID)
	if err != nil {
		return err
	}
	if node.DocumentID != target.DocumentID {
		return fmt.Errorf("cannot move across documents")
	}
	if len(target.Path) >= len(node.Path) && target.Path[:len(node.Path)] == node.Path {
		return fmt.Errorf("cannot move a node under its own subtree")
	}
	if pos != PosChild && target.Depth == 1 {
		return ErrRootForbidden
	}

	return t.Store.WithTx(ctx, func(tx *sql.Tx) error {
		subtree, err := t.Store.ListSubtreeTx(ctx, tx, node.DocumentID, node.Path)
		if err != nil {
			return err
		}

		// Park the subtree on a prefix that cannot collide with real paths
		// while siblings shift.
		tmp := fmt.Sprintf("~tmp:%d~", node.ID)
		for _, n := range subtree {
			p := Rebase(n.Path, node.Path, tmp)
			if err := t.Store.UpdateNodePathTx(ctx, tx, n.ID, p, n.Depth); err != nil {
				return err
			}
		}

		var newBase string
		switch pos {
		case PosChild:
			last, err := maxChildSegmentTx(ctx, tx, target.DocumentID, target.Path)
			if err != nil {
				return err
			}
			next := 1
			if last != "" {
				next = SegmentValue(LastSegment(last)) + 1
			}
			newBase = ChildPath(target.Path, next)
		case PosLeft, PosRight:
			refVal := SegmentValue(LastSegment(target.Path))
			insertAt := refVal
			if pos == PosRight {
				insertAt = refVal + 1
			}
			if err := t.shiftSiblingsFrom(ctx, tx, target.DocumentID, ParentPath(target.Path), insertAt); err != nil {
				return err
			}
			newBase = ChildPath(ParentPath(target.Path), insertAt)
		default:
			return fmt.Errorf("unknown position %q", pos)
		}

		for i := len(subtree) - 1; i >= 0; i-- {
			n := subtree[i]
			parked := Rebase(n.Path, node.Path, tmp)
			p := Rebase(parked, tmp, newBase)
			if err := t.Store.UpdateNodePathTx(ctx, tx, n.ID, p, Depth(p)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a node and its whole subtree. Statements created
// transparently by nodes (is_user_created) are garbage-collected when no
// surviving node references them; external evidence is never touched.
func (t *Tree) Delete(ctx context.Context, nodeID int64) error {
	node, err := t.Store.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	return t.Store.WithTx(ctx, func(tx *sql.Tx) error {
		subtree, err := t.Store.ListSubtreeTx(ctx, tx, node.DocumentID, node.Path)
		if err != nil {
			return err
		}
		var ids []int64
		statementIDs := make(map[int64]bool)
		for _, n := range subtree {
			ids = append(ids, n.ID)
			if n.ContentKind == model.KindStatement {
				statementIDs[n.ContentID] = true
			}
		}
		if err := t.Store.DeleteNodesTx(ctx, tx, ids); err != nil {
			return err
		}
		for sid := range statementIDs {
			count, err := t.Store.CountNodesForContentTx(ctx, tx, model.KindStatement, sid)
			if err != nil {
				return err
			}
			if count == 0 {
				// DeleteStatementTx is a no-op for externally-sourced rows.
				if err := t.Store.DeleteStatementTx(ctx, tx, sid); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// shiftSiblingsFrom moves every sibling subtree at ordinal >= from one slot
// to the right, highest first so paths never collide mid-rewrite.
func (t *Tree) shiftSiblingsFrom(ctx context.Context, tx *sql.Tx, documentID int64, parent string, from int) error {
	siblings, err := t.Store.ListSubtreeTx(ctx, tx, documentID, parent)
	if err != nil {
		return err
	}
	childLen := len(parent) + PathStep
	var heads []model.LibraryNode
	for _, n := range siblings {
		if len(n.Path) == childLen && SegmentValue(LastSegment(n.Path)) >= from {
			heads = append(heads, n)
		}
	}
	for i := len(heads) - 1; i >= 0; i-- {
		head := heads[i]
		sub, err := t.Store.ListSubtreeTx(ctx, tx, documentID, head.Path)
		if err != nil {
			return err
		}
		newHead := NextSiblingPath(head.Path)
		for j := len(sub) - 1; j >= 0; j-- {
			n := sub[j]
			p := Rebase(n.Path, head.Path, newHead)
			if err := t.Store.UpdateNodePathTx(ctx, tx, n.ID, p, n.Depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func maxChildSegmentTx(ctx context.Context, tx *sql.Tx, documentID int64, parent string) (string, error) {
	var max sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(path) FROM library_nodes
		 WHERE document_id = ? AND length(path) = ? AND substr(path, 1, length(?)) = ?`,
		documentID, len(parent)+PathStep, parent, parent).Scan(&max)
	if err != nil {
		return "", err
	}
	return max.String, nil
}

// TreeNode is one node of the assembled display hierarchy.
type TreeNode struct {
	Node     model.LibraryNode
	Label    string // derived glyph: 1. / a. / i.
	Indent   int    // pixels
	Children []*TreeNode
}

// BuildForest assembles the display hierarchy in one pass over nodes ordered
// by path: O(N) with a path->node map, no repeated traversals. Orphans
// (missing parent) are skipped, not fatal.
func BuildForest(nodes []model.LibraryNode) []*TreeNode {
	byPath := make(map[string]*TreeNode, len(nodes))
	var roots []*TreeNode
	for _, n := range nodes {
		tn := &TreeNode{Node: n, Indent: IndentPixels(n.Depth)}
		byPath[n.Path] = tn
		if n.Depth == 1 {
			roots = append(roots, tn)
			continue
		}
		parent, ok := byPath[ParentPath(n.Path)]
		if !ok {
			log.Printf("library: orphan node %d (path %s), skipping", n.ID, n.Path)
			continue
		}
		parent.Children = append(parent.Children, tn)
	}
	for _, r := range roots {
		labelChildren(r)
	}
	return roots
}

// labelChildren assigns display glyphs; each new ancestor resets the counter.
func labelChildren(tn *TreeNode) {
	for i, c := range tn.Children {
		c.Label = DisplayLabel(c.Node.Depth, i+1)
		labelChildren(c)
	}
}
