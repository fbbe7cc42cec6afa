package doltstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
)

func (t *doltTx) InsertIndex(ctx context.Context, idx *catalog.Index) error {
	keyCols, err := marshalJSON(idx.KeyColumns)
	if err != nil {
		return fmt.Errorf("marshal key columns: %w", err)
	}
	opclasses, err := marshalJSON(idx.OpClasses)
	if err != nil {
		return fmt.Errorf("marshal opclasses: %w", err)
	}
	collations, err := marshalJSON(idx.Collations)
	if err != nil {
		return fmt.Errorf("marshal collations: %w", err)
	}
	_, err = t.execContext(ctx, `
		INSERT INTO indexes (
			rel_oid, ind_rel_id, key_columns, opclasses, collations, predicate,
			is_unique, is_primary, is_valid, is_partial, is_expression, parent_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idx.RelOID, idx.IndRelID, keyCols, opclasses, collations, idx.Predicate,
		boolToInt(idx.IsUnique), boolToInt(idx.IsPrimary), boolToInt(idx.IsValid),
		boolToInt(idx.IsPartial), boolToInt(idx.IsExpression), idx.ParentIndex,
	)
	return err
}

func (t *doltTx) UpdateIndex(ctx context.Context, idx *catalog.Index) error {
	keyCols, err := marshalJSON(idx.KeyColumns)
	if err != nil {
		return fmt.Errorf("marshal key columns: %w", err)
	}
	opclasses, err := marshalJSON(idx.OpClasses)
	if err != nil {
		return fmt.Errorf("marshal opclasses: %w", err)
	}
	collations, err := marshalJSON(idx.Collations)
	if err != nil {
		return fmt.Errorf("marshal collations: %w", err)
	}
	_, err = t.execContext(ctx, `
		UPDATE indexes SET
			ind_rel_id = ?, key_columns = ?, opclasses = ?, collations = ?,
			predicate = ?, is_unique = ?, is_primary = ?, is_valid = ?,
			is_partial = ?, is_expression = ?, parent_index = ?
		WHERE rel_oid = ?`,
		idx.IndRelID, keyCols, opclasses, collations, idx.Predicate,
		boolToInt(idx.IsUnique), boolToInt(idx.IsPrimary), boolToInt(idx.IsValid),
		boolToInt(idx.IsPartial), boolToInt(idx.IsExpression), idx.ParentIndex, idx.RelOID,
	)
	return err
}

func (t *doltTx) ListIndexes(ctx context.Context, relid catalog.OID) ([]*catalog.Index, error) {
	rows, err := t.queryContext(ctx, `
		SELECT rel_oid, ind_rel_id, key_columns, opclasses, collations, predicate,
			is_unique, is_primary, is_valid, is_partial, is_expression, parent_index
		FROM indexes WHERE ind_rel_id = ?`, relid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.Index
	for rows.Next() {
		var idx catalog.Index
		var keyCols, opclasses, collations sql.NullString
		var isUnique, isPrimary, isValid, isPartial, isExpression int
		if err := rows.Scan(&idx.RelOID, &idx.IndRelID, &keyCols, &opclasses, &collations,
			&idx.Predicate, &isUnique, &isPrimary, &isValid, &isPartial, &isExpression,
			&idx.ParentIndex); err != nil {
			return nil, err
		}
		idx.IsUnique = isUnique != 0
		idx.IsPrimary = isPrimary != 0
		idx.IsValid = isValid != 0
		idx.IsPartial = isPartial != 0
		idx.IsExpression = isExpression != 0
		if err := unmarshalJSON(keyCols, &idx.KeyColumns); err != nil {
			return nil, fmt.Errorf("unmarshal key columns: %w", err)
		}
		if err := unmarshalJSON(opclasses, &idx.OpClasses); err != nil {
			return nil, fmt.Errorf("unmarshal opclasses: %w", err)
		}
		if err := unmarshalJSON(collations, &idx.Collations); err != nil {
			return nil, fmt.Errorf("unmarshal collations: %w", err)
		}
		out = append(out, &idx)
	}
	return out, rows.Err()
}
