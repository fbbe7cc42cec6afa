package tests

import (
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/transform"
)

// The JSON document shapes below mirror cmd/catalogctl's --file input format
// so that scenario scripts under testdata/script/ read the same way a real
// operator's input files would.

type createTableDoc struct {
	Name        string          `json:"name"`
	Columns     []columnDoc     `json:"columns"`
	PrimaryKey  []string        `json:"primary_key"`
	Unique      [][]string      `json:"unique"`
	Checks      []checkDoc      `json:"checks"`
	Inherits    []uint32        `json:"inherits"`
	Persistence string          `json:"persistence"`
	OnCommit    string          `json:"on_commit"`
	PartitionBy *partitionByDoc `json:"partition_by"`
}

type columnDoc struct {
	Name    string `json:"name"`
	TypeOID uint32 `json:"type_oid"`
	TypMod  int32  `json:"typmod"`
	NotNull bool   `json:"not_null"`
	Default string `json:"default"`
	Serial  bool   `json:"serial"`
}

type checkDoc struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

type partitionByDoc struct {
	Strategy string   `json:"strategy"`
	Columns  []string `json:"columns"`
}

func persistenceFromDoc(s string) (catalog.Persistence, error) {
	switch s {
	case "", "permanent":
		return catalog.PersistencePermanent, nil
	case "unlogged":
		return catalog.PersistenceUnlogged, nil
	case "temp", "temporary":
		return catalog.PersistenceTemp, nil
	default:
		return 0, fmt.Errorf("unknown persistence %q", s)
	}
}

func onCommitFromDoc(s string) (catalog.OnCommitAction, error) {
	switch s {
	case "":
		return catalog.OnCommitNoop, nil
	case "preserve_rows":
		return catalog.OnCommitPreserveRows, nil
	case "delete_rows":
		return catalog.OnCommitDeleteRows, nil
	case "drop":
		return catalog.OnCommitDrop, nil
	default:
		return 0, fmt.Errorf("unknown on_commit action %q", s)
	}
}

func partitionStrategyFromDoc(s string) (catalog.PartitionStrategy, error) {
	switch s {
	case "list":
		return catalog.PartitionStrategyList, nil
	case "range":
		return catalog.PartitionStrategyRange, nil
	case "hash":
		return catalog.PartitionStrategyHash, nil
	default:
		return 0, fmt.Errorf("unknown partition strategy %q", s)
	}
}

func (doc *createTableDoc) toCreateStmt(namespace catalog.OID) (*transform.CreateStmt, error) {
	persistence, err := persistenceFromDoc(doc.Persistence)
	if err != nil {
		return nil, err
	}
	onCommit, err := onCommitFromDoc(doc.OnCommit)
	if err != nil {
		return nil, err
	}

	stmt := &transform.CreateStmt{Namespace: namespace, Name: doc.Name, Persistence: persistence, OnCommit: onCommit}
	for _, c := range doc.Columns {
		stmt.Columns = append(stmt.Columns, transform.ColumnElement{
			Name: c.Name, TypeOID: catalog.OID(c.TypeOID), TypMod: c.TypMod,
			NotNull: c.NotNull, HasDefault: c.Default != "", DefaultExpr: c.Default, IsSerial: c.Serial,
		})
	}
	if len(doc.PrimaryKey) > 0 {
		stmt.Constraints = append(stmt.Constraints, transform.ConstraintElement{
			Name: doc.Name + "_pkey", Kind: catalog.ConstraintPrimary, Columns: doc.PrimaryKey,
		})
	}
	for i, cols := range doc.Unique {
		stmt.Constraints = append(stmt.Constraints, transform.ConstraintElement{
			Name: fmt.Sprintf("%s_uniq_%d", doc.Name, i+1), Kind: catalog.ConstraintUnique, Columns: cols,
		})
	}
	for _, chk := range doc.Checks {
		stmt.Constraints = append(stmt.Constraints, transform.ConstraintElement{Name: chk.Name, Kind: catalog.ConstraintCheck, Expr: chk.Expr})
	}
	for _, oid := range doc.Inherits {
		stmt.Inherits = append(stmt.Inherits, catalog.OID(oid))
	}
	if doc.PartitionBy != nil {
		strategy, err := partitionStrategyFromDoc(doc.PartitionBy.Strategy)
		if err != nil {
			return nil, err
		}
		key := &catalog.PartitionKeyDef{Strategy: strategy}
		for _, colName := range doc.PartitionBy.Columns {
			attnum, err := columnAttNum(stmt, colName)
			if err != nil {
				return nil, err
			}
			key.Columns = append(key.Columns, catalog.PartitionKeyColumn{AttNum: attnum})
		}
		stmt.PartitionBy = key
	}
	return stmt, nil
}

func columnAttNum(stmt *transform.CreateStmt, name string) (int16, error) {
	for i, c := range stmt.Columns {
		if c.Name == name {
			return int16(i + 1), nil
		}
	}
	return 0, fmt.Errorf("column %q not declared", name)
}

type alterOpDoc struct {
	Kind           string     `json:"kind"`
	Column         *columnDoc `json:"column"`
	ColumnName     string     `json:"column_name"`
	NewTypeOID     uint32     `json:"new_type_oid"`
	UsingExpr      string     `json:"using_expr"`
	ConstraintName string     `json:"constraint_name"`
	CheckExpr      string     `json:"check_expr"`
	Cascade        bool       `json:"cascade"`
	IfExists       bool       `json:"if_exists"`
	NewTablespace  uint32     `json:"new_tablespace"`
	NewOwner       string     `json:"new_owner"`
}

type alterTableDoc struct {
	Name string       `json:"name"`
	Only bool         `json:"only"`
	Ops  []alterOpDoc `json:"ops"`
}

func kindFromDoc(s string) (catalog.SubCommandKind, error) {
	switch s {
	case "add_column":
		return catalog.CmdAddColumn, nil
	case "drop_column":
		return catalog.CmdDropColumn, nil
	case "alter_column_type":
		return catalog.CmdAlterColumnType, nil
	case "set_not_null":
		return catalog.CmdSetNotNull, nil
	case "drop_not_null":
		return catalog.CmdDropNotNull, nil
	case "add_constraint":
		return catalog.CmdAddConstraint, nil
	case "drop_constraint":
		return catalog.CmdDropConstraint, nil
	case "set_tablespace":
		return catalog.CmdSetTablespace, nil
	case "owner_to":
		return catalog.CmdOwnerTo, nil
	default:
		return 0, fmt.Errorf("unknown alter-table op kind %q", s)
	}
}

func (doc *alterOpDoc) toSubCommand() (*catalog.SubCommand, error) {
	kind, err := kindFromDoc(doc.Kind)
	if err != nil {
		return nil, err
	}
	cmd := &catalog.SubCommand{Kind: kind, ColumnName: doc.ColumnName, IfExists: doc.IfExists}
	if doc.Cascade {
		cmd.Behavior = catalog.DropCascade
	}
	switch kind {
	case catalog.CmdAddColumn:
		if doc.Column == nil {
			return nil, fmt.Errorf("add_column requires a column definition")
		}
		cmd.Column = &catalog.Attribute{
			Name: doc.Column.Name, TypeOID: catalog.OID(doc.Column.TypeOID), TypMod: doc.Column.TypMod,
			NotNull: doc.Column.NotNull, HasDefault: doc.Column.Default != "", DefaultExpr: doc.Column.Default, IsLocal: true,
		}
	case catalog.CmdAlterColumnType:
		cmd.NewTypeOID = catalog.OID(doc.NewTypeOID)
		cmd.UsingExpr = doc.UsingExpr
	case catalog.CmdAddConstraint:
		cmd.Constraint = &catalog.Constraint{Name: doc.ConstraintName, Kind: catalog.ConstraintCheck, Expr: doc.CheckExpr}
	case catalog.CmdDropConstraint:
		cmd.ConstraintName = doc.ConstraintName
	case catalog.CmdSetTablespace:
		cmd.NewTablespace = catalog.OID(doc.NewTablespace)
	case catalog.CmdOwnerTo:
		cmd.NewOwner = doc.NewOwner
	}
	return cmd, nil
}

type boundDoc struct {
	Default   bool    `json:"default"`
	List      [][]any `json:"list"`
	From      []any   `json:"from"`
	To        []any   `json:"to"`
	Modulus   int32   `json:"modulus"`
	Remainder int32   `json:"remainder"`
}

func (b *boundDoc) transform(strategy catalog.PartitionStrategy) (*catalog.PartitionBound, error) {
	raw := &transform.RawPartitionBound{Strategy: strategy, IsDefault: b.Default, Modulus: b.Modulus, Remainder: b.Remainder, ListValues: b.List}
	for _, v := range b.From {
		raw.RangeFrom = append(raw.RangeFrom, catalog.RangeDatum{Kind: catalog.BoundValue, Value: v})
	}
	for _, v := range b.To {
		raw.RangeTo = append(raw.RangeTo, catalog.RangeDatum{Kind: catalog.BoundValue, Value: v})
	}
	key := &catalog.PartitionKeyDef{Strategy: strategy}
	return transform.TransformPartitionBound(key, raw)
}
