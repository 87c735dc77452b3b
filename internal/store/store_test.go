package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "hwcheck.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s *Store, host string, collectedAt time.Time) int64 {
	t.Helper()
	id, _, err := s.Insert(context.Background(), &ReportRecord{
		SnapshotID:    fmt.Sprintf("%s-%d", host, collectedAt.UnixNano()),
		Hostname:      host,
		OSName:        "Linux",
		KernelVersion: "6.1.0",
		CollectedAt:   collectedAt,
		ReportJSON:    `{"hostname":"` + host + `"}`,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func TestInsertGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	collected := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)

	id := insert(t, s, "bench", collected)
	rec, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ID != id || rec.Hostname != "bench" || rec.OSName != "Linux" || rec.KernelVersion != "6.1.0" {
		t.Errorf("rec = %+v", rec)
	}
	if !rec.CollectedAt.Equal(collected) {
		t.Errorf("CollectedAt = %v, want %v", rec.CollectedAt, collected)
	}
	if rec.StoredAt.IsZero() {
		t.Error("StoredAt not set")
	}
	if rec.ReportJSON != `{"hostname":"bench"}` {
		t.Errorf("ReportJSON = %q", rec.ReportJSON)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Get(missing) err = %v, want sql.ErrNoRows", err)
	}
}

func TestDuplicateSnapshotRejected(t *testing.T) {
	s := openTestStore(t)
	rec := &ReportRecord{SnapshotID: "abc", Hostname: "h", CollectedAt: time.Now(), ReportJSON: "{}"}
	if _, _, err := s.Insert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Insert(context.Background(), rec); err == nil {
		t.Error("second insert of the same snapshot succeeded")
	}
}

func TestGetLatestByHostname(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	insert(t, s, "a", base)
	latest := insert(t, s, "a", base.Add(2*time.Hour))
	insert(t, s, "a", base.Add(time.Hour))
	insert(t, s, "b", base.Add(5*time.Hour))

	rec, err := s.GetLatestByHostname(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != latest {
		t.Errorf("latest id = %d, want %d", rec.ID, latest)
	}
	if _, err := s.GetLatestByHostname(context.Background(), "c"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("unknown host err = %v", err)
	}
}

func TestListFilterAndPaging(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		insert(t, s, "a", base.Add(time.Duration(i)*time.Hour))
	}
	insert(t, s, "b", base)

	all, total, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 6 || len(all) != 6 {
		t.Fatalf("total = %d, len = %d", total, len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CollectedAt.After(all[i-1].CollectedAt) {
			t.Error("List not newest first")
		}
	}
	if all[0].ReportJSON != "" {
		t.Error("List returned report bodies")
	}

	page, total, err := s.List(ctx, ListFilter{Hostname: "a", PageSize: 2, Page: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("page total = %d, len = %d", total, len(page))
	}
	if want := base.Add(2 * time.Hour); !page[0].CollectedAt.Equal(want) {
		t.Errorf("page 2 first = %v, want %v", page[0].CollectedAt, want)
	}

	after := base.Add(3 * time.Hour)
	recent, total, err := s.List(ctx, ListFilter{CollectedAfter: &after})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(recent) != 2 {
		t.Errorf("after filter total = %d", total)
	}

	before := base
	old, _, err := s.List(ctx, ListFilter{CollectedBefore: &before})
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 2 {
		t.Errorf("before filter len = %d, want 2", len(old))
	}

	none, total, err := s.List(ctx, ListFilter{Hostname: "zzz"})
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 || total != 0 {
		t.Errorf("empty list = %v, %d", none, total)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := insert(t, s, "a", time.Now())

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second Delete err = %v, want sql.ErrNoRows", err)
	}
}

func TestPurge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	insert(t, s, "a", now.Add(-10*24*time.Hour))
	insert(t, s, "a", now.Add(-3*24*time.Hour))
	keep := insert(t, s, "a", now.Add(-time.Hour))

	n, err := s.Purge(ctx, 2*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("purged %d, want 2", n)
	}
	if _, err := s.Get(ctx, keep); err != nil {
		t.Errorf("recent report purged: %v", err)
	}
}
