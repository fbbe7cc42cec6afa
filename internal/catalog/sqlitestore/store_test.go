package sqlitestore

import (
	"context"
	"testing"

	"github.com/catalogmut/enginecore/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRelationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	oid, err := tx.NextOID(ctx)
	if err != nil {
		t.Fatalf("NextOID failed: %v", err)
	}

	rel := &catalog.Relation{
		OID:         oid,
		Name:        "orders",
		Namespace:   2200,
		Kind:        catalog.RelKindTable,
		Persistence: catalog.PersistencePermanent,
		Owner:       "alice",
		NAtts:       2,
		Reloptions:  map[string]string{"fillfactor": "90"},
	}
	if err := tx.InsertRelation(ctx, rel); err != nil {
		t.Fatalf("InsertRelation failed: %v", err)
	}

	got, err := tx.GetRelation(ctx, oid)
	if err != nil {
		t.Fatalf("GetRelation failed: %v", err)
	}
	if got.Name != "orders" || got.Owner != "alice" || got.Reloptions["fillfactor"] != "90" {
		t.Fatalf("round-tripped relation mismatch: %+v", got)
	}

	byName, err := tx.LookupRelationByName(ctx, 2200, "orders")
	if err != nil {
		t.Fatalf("LookupRelationByName failed: %v", err)
	}
	if byName == nil || byName.OID != oid {
		t.Fatalf("expected to find relation by name, got %+v", byName)
	}

	missing, err := tx.LookupRelationByName(ctx, 2200, "does_not_exist")
	if err != nil {
		t.Fatalf("LookupRelationByName failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing relation, got %+v", missing)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestAttributeInheritanceCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	relOID, err := tx.NextOID(ctx)
	if err != nil {
		t.Fatalf("NextOID failed: %v", err)
	}

	attr := &catalog.Attribute{
		RelID:    relOID,
		AttNum:   1,
		Name:     "id",
		TypeOID:  23,
		NotNull:  true,
		InhCount: 0,
		IsLocal:  true,
	}
	if err := tx.InsertAttribute(ctx, attr); err != nil {
		t.Fatalf("InsertAttribute failed: %v", err)
	}

	attr.InhCount = 1
	attr.IsLocal = false
	if err := tx.UpdateAttribute(ctx, attr); err != nil {
		t.Fatalf("UpdateAttribute failed: %v", err)
	}

	attrs, err := tx.ListAttributes(ctx, relOID)
	if err != nil {
		t.Fatalf("ListAttributes failed: %v", err)
	}
	if len(attrs) != 1 || attrs[0].InhCount != 1 || attrs[0].IsLocal {
		t.Fatalf("expected inh_count=1, is_local=false after update, got %+v", attrs[0])
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
}

func TestInheritsEdgesAndNextOIDMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	parentOID, err := tx.NextOID(ctx)
	if err != nil {
		t.Fatalf("NextOID failed: %v", err)
	}
	childOID, err := tx.NextOID(ctx)
	if err != nil {
		t.Fatalf("NextOID failed: %v", err)
	}
	if childOID <= parentOID {
		t.Fatalf("expected NextOID to be strictly increasing, got parent=%d child=%d", parentOID, childOID)
	}

	if err := tx.InsertInherits(ctx, &catalog.InheritsEdge{ChildOID: childOID, ParentOID: parentOID, SeqNo: 1}); err != nil {
		t.Fatalf("InsertInherits failed: %v", err)
	}

	children, err := tx.ListChildren(ctx, parentOID)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(children) != 1 || children[0].ChildOID != childOID {
		t.Fatalf("expected one child edge, got %+v", children)
	}

	if err := tx.DeleteInherits(ctx, childOID, parentOID); err != nil {
		t.Fatalf("DeleteInherits failed: %v", err)
	}
	children, err = tx.ListChildren(ctx, parentOID)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("expected no children after delete, got %+v", children)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
}
