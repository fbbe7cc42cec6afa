package main

import (
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/transform"
)

// createTableDoc is the friendly JSON shape create-table reads from --file,
// translated into a transform.CreateStmt rather than asking an operator to
// type raw catalog byte codes on the command line.
type createTableDoc struct {
	Name        string          `json:"name"`
	Columns     []columnDoc     `json:"columns"`
	PrimaryKey  []string        `json:"primary_key"`
	Unique      [][]string      `json:"unique"`
	Checks      []checkDoc      `json:"checks"`
	Inherits    []uint32        `json:"inherits"`
	Persistence string          `json:"persistence"` // "permanent" | "unlogged" | "temp"
	OnCommit    string          `json:"on_commit"`    // "preserve_rows" | "delete_rows" | "drop"
	PartitionBy *partitionByDoc `json:"partition_by"`
}

type columnDoc struct {
	Name       string `json:"name"`
	TypeOID    uint32 `json:"type_oid"`
	TypMod     int32  `json:"typmod"`
	NotNull    bool   `json:"not_null"`
	Default    string `json:"default"`
	Serial     bool   `json:"serial"`
}

type checkDoc struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

type partitionByDoc struct {
	Strategy string   `json:"strategy"` // "list" | "range" | "hash"
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

// toCreateStmt resolves doc's column names into a transform.CreateStmt ready
// for TransformCreate. Column-name-to-AttNum resolution for PRIMARY
// KEY/UNIQUE/partition-key column lists happens here since the JSON doc
// addresses columns by name but catalog.PartitionKeyColumn wants an AttNum.
func (doc *createTableDoc) toCreateStmt(namespace catalog.OID) (*transform.CreateStmt, error) {
	persistence, err := persistenceFromDoc(doc.Persistence)
	if err != nil {
		return nil, err
	}
	onCommit, err := onCommitFromDoc(doc.OnCommit)
	if err != nil {
		return nil, err
	}

	stmt := &transform.CreateStmt{
		Namespace:   namespace,
		Name:        doc.Name,
		Persistence: persistence,
		OnCommit:    onCommit,
	}
	for _, c := range doc.Columns {
		stmt.Columns = append(stmt.Columns, transform.ColumnElement{
			Name:        c.Name,
			TypeOID:     catalog.OID(c.TypeOID),
			TypMod:      c.TypMod,
			NotNull:     c.NotNull,
			HasDefault:  c.Default != "",
			DefaultExpr: c.Default,
			IsSerial:    c.Serial,
		})
	}
	if len(doc.PrimaryKey) > 0 {
		stmt.Constraints = append(stmt.Constraints, transform.ConstraintElement{
			Name:    doc.Name + "_pkey",
			Kind:    catalog.ConstraintPrimary,
			Columns: doc.PrimaryKey,
		})
	}
	for i, cols := range doc.Unique {
		stmt.Constraints = append(stmt.Constraints, transform.ConstraintElement{
			Name:    fmt.Sprintf("%s_uniq_%d", doc.Name, i+1),
			Kind:    catalog.ConstraintUnique,
			Columns: cols,
		})
	}
	for _, chk := range doc.Checks {
		stmt.Constraints = append(stmt.Constraints, transform.ConstraintElement{
			Name: chk.Name,
			Kind: catalog.ConstraintCheck,
			Expr: chk.Expr,
		})
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

// columnAttNum resolves a column name to its 1-based position among
// declared columns, the AttNum a freshly defined relation will receive.
func columnAttNum(stmt *transform.CreateStmt, name string) (int16, error) {
	for i, c := range stmt.Columns {
		if c.Name == name {
			return int16(i + 1), nil
		}
	}
	return 0, fmt.Errorf("column %q not declared", name)
}
