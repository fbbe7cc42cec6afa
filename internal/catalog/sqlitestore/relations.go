package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalJSON(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}

func (t *sqliteTx) InsertRelation(ctx context.Context, rel *catalog.Relation) error {
	bound, err := marshalJSON(rel.PartitionBound)
	if err != nil {
		return fmt.Errorf("marshal partition bound: %w", err)
	}
	key, err := marshalJSON(rel.PartitionKey)
	if err != nil {
		return fmt.Errorf("marshal partition key: %w", err)
	}
	opts, err := marshalJSON(rel.Reloptions)
	if err != nil {
		return fmt.Errorf("marshal reloptions: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO relations (
			oid, name, namespace, kind, persistence, owner, tablespace, has_oids,
			has_subclass, is_partition, partition_bound, partition_key,
			replica_identity, replica_identity_index, natts, reloptions,
			oncommit, row_security, force_row_security
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.OID, rel.Name, rel.Namespace, string(rel.Kind), string(rel.Persistence),
		rel.Owner, rel.Tablespace, boolToInt(rel.HasOIDs), boolToInt(rel.HasSubclass),
		boolToInt(rel.IsPartition), bound, key, string(rel.ReplicaIdentity),
		rel.ReplicaIdentityIndex, rel.NAtts, opts, string(rel.OnCommit),
		boolToInt(rel.RowSecurity), boolToInt(rel.ForceRowSecurity),
	)
	return err
}

func (t *sqliteTx) UpdateRelation(ctx context.Context, rel *catalog.Relation) error {
	bound, err := marshalJSON(rel.PartitionBound)
	if err != nil {
		return fmt.Errorf("marshal partition bound: %w", err)
	}
	key, err := marshalJSON(rel.PartitionKey)
	if err != nil {
		return fmt.Errorf("marshal partition key: %w", err)
	}
	opts, err := marshalJSON(rel.Reloptions)
	if err != nil {
		return fmt.Errorf("marshal reloptions: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE relations SET
			name = ?, namespace = ?, kind = ?, persistence = ?, owner = ?,
			tablespace = ?, has_oids = ?, has_subclass = ?, is_partition = ?,
			partition_bound = ?, partition_key = ?, replica_identity = ?,
			replica_identity_index = ?, natts = ?, reloptions = ?, oncommit = ?,
			row_security = ?, force_row_security = ?
		WHERE oid = ?`,
		rel.Name, rel.Namespace, string(rel.Kind), string(rel.Persistence), rel.Owner,
		rel.Tablespace, boolToInt(rel.HasOIDs), boolToInt(rel.HasSubclass), boolToInt(rel.IsPartition),
		bound, key, string(rel.ReplicaIdentity), rel.ReplicaIdentityIndex, rel.NAtts, opts,
		string(rel.OnCommit), boolToInt(rel.RowSecurity), boolToInt(rel.ForceRowSecurity),
		rel.OID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("sqlitestore: relation %d does not exist", rel.OID)
	}
	return nil
}

func scanRelation(row interface {
	Scan(dest ...any) error
}) (*catalog.Relation, error) {
	var rel catalog.Relation
	var kind, persistence, replicaIdentity, onCommit string
	var hasOIDs, hasSubclass, isPartition, rowSecurity, forceRowSecurity int
	var bound, key, opts sql.NullString

	err := row.Scan(
		&rel.OID, &rel.Name, &rel.Namespace, &kind, &persistence, &rel.Owner,
		&rel.Tablespace, &hasOIDs, &hasSubclass, &isPartition, &bound, &key,
		&replicaIdentity, &rel.ReplicaIdentityIndex, &rel.NAtts, &opts, &onCommit,
		&rowSecurity, &forceRowSecurity,
	)
	if err != nil {
		return nil, err
	}

	rel.Kind = catalog.RelKind(kind[0])
	rel.Persistence = catalog.Persistence(persistence[0])
	rel.ReplicaIdentity = catalog.ReplicaIdentity(replicaIdentity[0])
	rel.OnCommit = catalog.OnCommitAction(0)
	if onCommit != "" {
		rel.OnCommit = catalog.OnCommitAction(onCommit[0])
	}
	rel.HasOIDs = hasOIDs != 0
	rel.HasSubclass = hasSubclass != 0
	rel.IsPartition = isPartition != 0
	rel.RowSecurity = rowSecurity != 0
	rel.ForceRowSecurity = forceRowSecurity != 0

	if err := unmarshalJSON(bound, &rel.PartitionBound); err != nil {
		return nil, fmt.Errorf("unmarshal partition bound: %w", err)
	}
	if err := unmarshalJSON(key, &rel.PartitionKey); err != nil {
		return nil, fmt.Errorf("unmarshal partition key: %w", err)
	}
	if err := unmarshalJSON(opts, &rel.Reloptions); err != nil {
		return nil, fmt.Errorf("unmarshal reloptions: %w", err)
	}

	return &rel, nil
}

const relationColumns = `
	oid, name, namespace, kind, persistence, owner, tablespace, has_oids,
	has_subclass, is_partition, partition_bound, partition_key,
	replica_identity, replica_identity_index, natts, reloptions, oncommit,
	row_security, force_row_security`

func (t *sqliteTx) GetRelation(ctx context.Context, oid catalog.OID) (*catalog.Relation, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT`+relationColumns+` FROM relations WHERE oid = ?`, oid)
	rel, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlitestore: relation %d does not exist", oid)
	}
	return rel, err
}

func (t *sqliteTx) LookupRelationByName(ctx context.Context, namespace catalog.OID, name string) (*catalog.Relation, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT`+relationColumns+` FROM relations WHERE namespace = ? AND name = ?`, namespace, name)
	rel, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rel, err
}

func (t *sqliteTx) DeleteRelation(ctx context.Context, oid catalog.OID) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM relations WHERE oid = ?`, oid)
	return err
}
