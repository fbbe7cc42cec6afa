package doltstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
)

func (t *doltTx) InsertConstraint(ctx context.Context, c *catalog.Constraint) error {
	cols, err := marshalJSON(c.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}
	fcols, err := marshalJSON(c.ForeignColumns)
	if err != nil {
		return fmt.Errorf("marshal foreign columns: %w", err)
	}
	_, err = t.execContext(ctx, `
		INSERT INTO constraints (
			oid, name, namespace, rel_id, kind, deferrable, initially_deferred,
			no_inherit, validated, inh_count, expr, index_oid, columns,
			foreign_rel_id, foreign_columns, foreign_on_delete, foreign_on_update
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.OID, c.Name, c.Namespace, c.RelID, string(c.Kind), boolToInt(c.Deferrable),
		boolToInt(c.InitiallyDeferred), boolToInt(c.NoInherit), boolToInt(c.Validated),
		c.InhCount, c.Expr, c.IndexOID, cols, c.ForeignRelID, fcols,
		c.ForeignOnDelete, c.ForeignOnUpdate,
	)
	return err
}

func (t *doltTx) UpdateConstraint(ctx context.Context, c *catalog.Constraint) error {
	cols, err := marshalJSON(c.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}
	fcols, err := marshalJSON(c.ForeignColumns)
	if err != nil {
		return fmt.Errorf("marshal foreign columns: %w", err)
	}
	_, err = t.execContext(ctx, `
		UPDATE constraints SET
			name = ?, namespace = ?, rel_id = ?, kind = ?, deferrable = ?,
			initially_deferred = ?, no_inherit = ?, validated = ?, inh_count = ?,
			expr = ?, index_oid = ?, columns = ?, foreign_rel_id = ?,
			foreign_columns = ?, foreign_on_delete = ?, foreign_on_update = ?
		WHERE oid = ?`,
		c.Name, c.Namespace, c.RelID, string(c.Kind), boolToInt(c.Deferrable),
		boolToInt(c.InitiallyDeferred), boolToInt(c.NoInherit), boolToInt(c.Validated),
		c.InhCount, c.Expr, c.IndexOID, cols, c.ForeignRelID, fcols,
		c.ForeignOnDelete, c.ForeignOnUpdate, c.OID,
	)
	return err
}

func (t *doltTx) DeleteConstraint(ctx context.Context, oid catalog.OID) error {
	_, err := t.execContext(ctx, `DELETE FROM constraints WHERE oid = ?`, oid)
	return err
}

func (t *doltTx) ListConstraints(ctx context.Context, relid catalog.OID) ([]*catalog.Constraint, error) {
	rows, err := t.queryContext(ctx, `
		SELECT oid, name, namespace, rel_id, kind, deferrable, initially_deferred,
			no_inherit, validated, inh_count, expr, index_oid, columns,
			foreign_rel_id, foreign_columns, foreign_on_delete, foreign_on_update
		FROM constraints WHERE rel_id = ?`, relid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.Constraint
	for rows.Next() {
		var c catalog.Constraint
		var kind string
		var deferrable, initiallyDeferred, noInherit, validated int
		var cols, fcols sql.NullString
		if err := rows.Scan(&c.OID, &c.Name, &c.Namespace, &c.RelID, &kind,
			&deferrable, &initiallyDeferred, &noInherit, &validated, &c.InhCount,
			&c.Expr, &c.IndexOID, &cols, &c.ForeignRelID, &fcols,
			&c.ForeignOnDelete, &c.ForeignOnUpdate); err != nil {
			return nil, err
		}
		c.Kind = catalog.ConstraintKind(kind[0])
		c.Deferrable = deferrable != 0
		c.InitiallyDeferred = initiallyDeferred != 0
		c.NoInherit = noInherit != 0
		c.Validated = validated != 0
		if err := unmarshalJSON(cols, &c.Columns); err != nil {
			return nil, fmt.Errorf("unmarshal columns: %w", err)
		}
		if err := unmarshalJSON(fcols, &c.ForeignColumns); err != nil {
			return nil, fmt.Errorf("unmarshal foreign columns: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
