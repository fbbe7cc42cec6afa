package sqlitestore

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
)

func identityCode(m catalog.IdentityMode) string {
	if m == catalog.IdentityNone {
		return ""
	}
	return string(rune(m))
}

func (t *sqliteTx) InsertAttribute(ctx context.Context, attr *catalog.Attribute) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO attributes (
			rel_id, attnum, name, type_oid, typmod, collation_id, storage,
			not_null, has_default, default_expr, identity, dropped, inh_count, is_local
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attr.RelID, attr.AttNum, attr.Name, attr.TypeOID, attr.TypMod, attr.CollationID,
		string(attr.Storage), boolToInt(attr.NotNull), boolToInt(attr.HasDefault),
		attr.DefaultExpr, identityCode(attr.Identity), boolToInt(attr.Dropped),
		attr.InhCount, boolToInt(attr.IsLocal),
	)
	return err
}

func (t *sqliteTx) UpdateAttribute(ctx context.Context, attr *catalog.Attribute) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE attributes SET
			name = ?, type_oid = ?, typmod = ?, collation_id = ?, storage = ?,
			not_null = ?, has_default = ?, default_expr = ?, identity = ?,
			dropped = ?, inh_count = ?, is_local = ?
		WHERE rel_id = ? AND attnum = ?`,
		attr.Name, attr.TypeOID, attr.TypMod, attr.CollationID, string(attr.Storage),
		boolToInt(attr.NotNull), boolToInt(attr.HasDefault), attr.DefaultExpr,
		identityCode(attr.Identity), boolToInt(attr.Dropped), attr.InhCount,
		boolToInt(attr.IsLocal), attr.RelID, attr.AttNum,
	)
	return err
}

func (t *sqliteTx) ListAttributes(ctx context.Context, relid catalog.OID) ([]*catalog.Attribute, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT rel_id, attnum, name, type_oid, typmod, collation_id, storage,
			not_null, has_default, default_expr, identity, dropped, inh_count, is_local
		FROM attributes WHERE rel_id = ? ORDER BY attnum`, relid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.Attribute
	for rows.Next() {
		var a catalog.Attribute
		var storage, identity string
		var notNull, hasDefault, dropped, isLocal int
		if err := rows.Scan(&a.RelID, &a.AttNum, &a.Name, &a.TypeOID, &a.TypMod,
			&a.CollationID, &storage, &notNull, &hasDefault, &a.DefaultExpr,
			&identity, &dropped, &a.InhCount, &isLocal); err != nil {
			return nil, err
		}
		a.Storage = catalog.StorageMode(storage[0])
		if identity != "" {
			a.Identity = catalog.IdentityMode(identity[0])
		}
		a.NotNull = notNull != 0
		a.HasDefault = hasDefault != 0
		a.Dropped = dropped != 0
		a.IsLocal = isLocal != 0
		out = append(out, &a)
	}
	return out, rows.Err()
}
