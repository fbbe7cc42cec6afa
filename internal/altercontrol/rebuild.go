package altercontrol

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// RowSource scans the live tuples of a relation for Phase 3's per-row
// transform. A real heap access method lives outside this module's scope;
// callers supply whatever iterator their storage backend exposes.
type RowSource interface {
	Next(ctx context.Context) (row map[int16]any, ok bool, err error)
}

// RowSink receives each transformed row during Phase 3's rebuild, or is
// never called at all for a validation-only pass (spec.md §4.3).
type RowSink interface {
	Insert(ctx context.Context, row map[int16]any) error
}

// RewritePlan is the work Phase 3 must do for one relation, already decided
// by NeedsRewrite() and the presence of a partition constraint to validate.
type RewritePlan struct {
	Info               *catalog.AlteredTableInfo
	ValidateOnly       bool // true for ATTACH PARTITION's scan: check, never insert
	PartitionPredicate func(row map[int16]any) bool
}

// transformRow applies every queued NewValue, per spec.md §4.3's per-tuple
// transform step, and reports the resulting row.
func transformRow(info *catalog.AlteredTableInfo, row map[int16]any, evalExpr func(expr string, row map[int16]any) (any, error)) (map[int16]any, error) {
	out := make(map[int16]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, nv := range info.NewVals {
		if nv.NoOp {
			continue
		}
		val, err := evalExpr(nv.Expr, row)
		if err != nil {
			return nil, err
		}
		out[nv.AttNum] = val
	}
	return out, nil
}

// EvalFunc computes a USING/default expression's value for one row. The
// expression language itself is out of this module's scope (spec.md §9); a
// real engine plugs in its expression evaluator here.
type EvalFunc func(expr string, row map[int16]any) (any, error)

// RunPhase3 implements spec.md §4.3 Phase 3 for one relation: scan src,
// apply the queued column transforms, test every NOT NULL/CHECK/partition
// constraint, and — unless plan.ValidateOnly — insert the transformed row
// into dst. FK validation is the caller's job, run after every relation's
// Phase 3 has completed (spec.md §4.3: "FK validation runs last").
func RunPhase3(ctx context.Context, src RowSource, dst RowSink, plan *RewritePlan, eval EvalFunc, attrs []*catalog.Attribute, constraints []*catalog.Constraint, checkExpr func(expr string, row map[int16]any) (bool, error)) error {
	if !plan.Info.NeedsRewrite() && plan.PartitionPredicate == nil {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		newRow, err := transformRow(plan.Info, row, eval)
		if err != nil {
			return err
		}

		for _, a := range attrs {
			if a.Dropped {
				continue
			}
			if a.NotNull && newRow[a.AttNum] == nil {
				return dbcodes.New(dbcodes.NotNullViolation, "column %q contains null values", a.Name)
			}
		}
		for _, c := range constraints {
			if c.Kind != catalog.ConstraintCheck || c.Expr == "" {
				continue
			}
			ok, err := checkExpr(c.Expr, newRow)
			if err != nil {
				return err
			}
			if !ok {
				return dbcodes.New(dbcodes.CheckViolation, "check constraint %q is violated by some row", c.Name)
			}
		}
		if plan.PartitionPredicate != nil && !plan.PartitionPredicate(newRow) {
			return dbcodes.New(dbcodes.CheckViolation, "row violates the new partition constraint")
		}

		if plan.ValidateOnly {
			continue
		}
		if err := dst.Insert(ctx, newRow); err != nil {
			return err
		}
	}
}
