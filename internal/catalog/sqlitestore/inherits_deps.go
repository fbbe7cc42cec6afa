package sqlitestore

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
)

func (t *sqliteTx) InsertInherits(ctx context.Context, e *catalog.InheritsEdge) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO inherits (child_oid, parent_oid, seq_no) VALUES (?, ?, ?)`,
		e.ChildOID, e.ParentOID, e.SeqNo,
	)
	return err
}

func (t *sqliteTx) DeleteInherits(ctx context.Context, child, parent catalog.OID) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM inherits WHERE child_oid = ? AND parent_oid = ?`, child, parent)
	return err
}

func (t *sqliteTx) ListParents(ctx context.Context, child catalog.OID) ([]*catalog.InheritsEdge, error) {
	return t.queryInherits(ctx, `SELECT child_oid, parent_oid, seq_no FROM inherits WHERE child_oid = ? ORDER BY seq_no`, child)
}

func (t *sqliteTx) ListChildren(ctx context.Context, parent catalog.OID) ([]*catalog.InheritsEdge, error) {
	return t.queryInherits(ctx, `SELECT child_oid, parent_oid, seq_no FROM inherits WHERE parent_oid = ? ORDER BY seq_no`, parent)
}

func (t *sqliteTx) queryInherits(ctx context.Context, query string, arg catalog.OID) ([]*catalog.InheritsEdge, error) {
	rows, err := t.tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.InheritsEdge
	for rows.Next() {
		var e catalog.InheritsEdge
		if err := rows.Scan(&e.ChildOID, &e.ParentOID, &e.SeqNo); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (t *sqliteTx) InsertDependency(ctx context.Context, d *catalog.Dependency) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO dependencies (dependent_oid, dependent_sub, referenced_oid, referenced_sub, kind)
		VALUES (?, ?, ?, ?, ?)`,
		d.DependentOID, d.DependentSub, d.ReferencedOID, d.ReferencedSub, string(d.Kind),
	)
	return err
}

func (t *sqliteTx) DeleteDependenciesOf(ctx context.Context, dependent catalog.OID) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM dependencies WHERE dependent_oid = ?`, dependent)
	return err
}

func (t *sqliteTx) ListDependents(ctx context.Context, referenced catalog.OID) ([]*catalog.Dependency, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT dependent_oid, dependent_sub, referenced_oid, referenced_sub, kind
		FROM dependencies WHERE referenced_oid = ?`, referenced)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.Dependency
	for rows.Next() {
		var d catalog.Dependency
		var kind string
		if err := rows.Scan(&d.DependentOID, &d.DependentSub, &d.ReferencedOID, &d.ReferencedSub, &kind); err != nil {
			return nil, err
		}
		d.Kind = catalog.DependencyKind(kind[0])
		out = append(out, &d)
	}
	return out, rows.Err()
}
