package convert

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

func TestReportToRecord(t *testing.T) {
	collected := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	name := "Intel Corporation"
	r := &collector.HardwareReport{
		CollectedAt:   collected,
		Hostname:      "bench",
		OSName:        "Linux",
		KernelVersion: "6.1.0",
		PCI:           []collector.PCIDevice{{Slot: "0000:00:00.0", VendorID: 0x8086, VendorName: &name}},
	}

	rec, err := ReportToRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(rec.SnapshotID); err != nil {
		t.Errorf("SnapshotID %q is not a uuid: %v", rec.SnapshotID, err)
	}
	if rec.Hostname != "bench" || rec.OSName != "Linux" || rec.KernelVersion != "6.1.0" || !rec.CollectedAt.Equal(collected) {
		t.Errorf("rec = %+v", rec)
	}

	again, err := ReportToRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	if again.SnapshotID == rec.SnapshotID {
		t.Error("snapshot ids repeat")
	}

	back, err := RecordToReport(rec)
	if err != nil {
		t.Fatal(err)
	}
	if back.Hostname != "bench" || len(back.PCI) != 1 || back.PCI[0].VendorName == nil || *back.PCI[0].VendorName != name {
		t.Errorf("decoded = %+v", back)
	}
}

func TestReportToRecordStampsZeroTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	rec, err := ReportToRecord(&collector.HardwareReport{Hostname: "h"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.CollectedAt.Before(before) {
		t.Errorf("CollectedAt = %v, want now", rec.CollectedAt)
	}
}

func TestRecordToReportBadJSON(t *testing.T) {
	if _, err := RecordToReport(&store.ReportRecord{ReportJSON: "{"}); err == nil {
		t.Error("malformed JSON decoded")
	}
	if _, err := RecordToStored(&store.ReportRecord{ReportJSON: "nope"}); err == nil {
		t.Error("malformed JSON decoded")
	}
}

func TestRecordToSummaryAndStored(t *testing.T) {
	stored := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	rec := &store.ReportRecord{
		ID:         7,
		SnapshotID: "snap",
		Hostname:   "bench",
		StoredAt:   stored,
		ReportJSON: `{"hostname":"bench","uptime":60}`,
	}

	s := RecordToSummary(rec)
	if s.ID != 7 || s.SnapshotID != "snap" || s.Hostname != "bench" || !s.StoredAt.Equal(stored) {
		t.Errorf("summary = %+v", s)
	}

	full, err := RecordToStored(rec)
	if err != nil {
		t.Fatal(err)
	}
	if full.ID != 7 || full.Report.Uptime != 60 {
		t.Errorf("stored = %+v", full)
	}
}
