package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"codescanner/internal/model"
)

var ignoreRecordTS = cmpopts.IgnoreFields(model.ScanRecord{}, "CreatedAt")
var ignoreFilterTS = cmpopts.IgnoreFields(model.Filter{}, "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSchemaVersion(t *testing.T) {
	s := newTestDB(t)
	if got := s.SchemaVersion(); got != 1 {
		t.Errorf("schema version = %d, want 1", got)
	}
}

func TestRecordAndListRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	at := time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.UTC)
	records := []model.ScanRecord{
		{RunID: "run-1", Payload: "https://example.com", Kind: model.KindQR, CreatedAt: at},
		{RunID: "run-1", Payload: "4006381333931", Kind: model.KindEAN13},
		{RunID: "run-2", ErrorKind: model.ErrorInit, Detail: "capture initialization failed: busy"},
	}
	for i := range records {
		if err := s.RecordResult(ctx, &records[i]); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if records[i].ID == 0 {
			t.Fatalf("record %d: expected non-zero ID", i)
		}
	}

	got, err := s.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []model.ScanRecord{records[2], records[1]}
	if diff := cmp.Diff(want, got, ignoreRecordTS); diff != "" {
		t.Errorf("ListRecent mismatch (-want +got):\n%s", diff)
	}

	all, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if diff := cmp.Diff(at, all[2].CreatedAt); diff != "" {
		t.Errorf("created_at mismatch (-want +got):\n%s", diff)
	}
	if !all[0].Failed() || all[1].Failed() {
		t.Error("unexpected Failed() classification")
	}
}

func TestCountResults(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	ok, failed, err := s.CountResults(ctx)
	if err != nil {
		t.Fatalf("count empty: %v", err)
	}
	if ok != 0 || failed != 0 {
		t.Errorf("empty counts = %d/%d, want 0/0", ok, failed)
	}

	for _, r := range []model.ScanRecord{
		{Payload: "A", Kind: model.KindQR},
		{Payload: "B", Kind: model.KindQR},
		{ErrorKind: model.ErrorBadOutput},
	} {
		r := r
		if err := s.RecordResult(ctx, &r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ok, failed, err = s.CountResults(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff([2]int{2, 1}, [2]int{ok, failed}); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	filters := []model.Filter{
		{ChatID: 10, Kind: model.FilterInclude, Value: "example.com"},
		{ChatID: 10, Kind: model.FilterExcludeRe, Value: `^wifi:`},
		{ChatID: 20, Kind: model.FilterExclude, Value: "ads"},
	}
	for i := range filters {
		if err := s.CreateFilter(ctx, &filters[i]); err != nil {
			t.Fatalf("create filter %d: %v", i, err)
		}
	}

	got, err := s.ListFilters(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(filters[:2], got, ignoreFilterTS); diff != "" {
		t.Errorf("ListFilters mismatch (-want +got):\n%s", diff)
	}

	one, err := s.GetFilter(ctx, filters[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(filters[2], *one, ignoreFilterTS); diff != "" {
		t.Errorf("GetFilter mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteFilter(ctx, filters[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.ListFilters(ctx, 10)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if diff := cmp.Diff(filters[1:2], got, ignoreFilterTS); diff != "" {
		t.Errorf("ListFilters after delete mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.GetFilter(ctx, 9999); err == nil {
		t.Error("expected error for missing filter")
	}
}
