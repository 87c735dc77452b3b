// Package convert maps hardware reports to archive records and API views.
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

// ReportSummary is the list view of a stored report.
type ReportSummary struct {
	ID            int64     `json:"id" yaml:"id"`
	SnapshotID    string    `json:"snapshot_id" yaml:"snapshot_id"`
	Hostname      string    `json:"hostname" yaml:"hostname"`
	OSName        string    `json:"os_name" yaml:"os_name"`
	KernelVersion string    `json:"kernel_version" yaml:"kernel_version"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
	StoredAt      time.Time `json:"stored_at" yaml:"stored_at"`
}

// StoredReport is a full stored report with its archive metadata.
type StoredReport struct {
	ID         int64                     `json:"id" yaml:"id"`
	SnapshotID string                    `json:"snapshot_id" yaml:"snapshot_id"`
	StoredAt   time.Time                 `json:"stored_at" yaml:"stored_at"`
	Report     *collector.HardwareReport `json:"report" yaml:"report"`
}

// ReportToRecord converts a report to a store record under a fresh snapshot
// id. A zero CollectedAt is replaced by the current time.
func ReportToRecord(r *collector.HardwareReport) (*store.ReportRecord, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report to JSON: %w", err)
	}

	collectedAt := r.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = time.Now().UTC()
	}

	return &store.ReportRecord{
		SnapshotID:    uuid.NewString(),
		Hostname:      r.Hostname,
		OSName:        r.OSName,
		KernelVersion: r.KernelVersion,
		CollectedAt:   collectedAt,
		ReportJSON:    string(jsonBytes),
	}, nil
}

// RecordToReport converts a store record back to a report.
func RecordToReport(rec *store.ReportRecord) (*collector.HardwareReport, error) {
	var r collector.HardwareReport
	if err := json.Unmarshal([]byte(rec.ReportJSON), &r); err != nil {
		return nil, fmt.Errorf("unmarshal report JSON: %w", err)
	}
	return &r, nil
}

func RecordToStored(rec *store.ReportRecord) (*StoredReport, error) {
	r, err := RecordToReport(rec)
	if err != nil {
		return nil, err
	}
	return &StoredReport{
		ID:         rec.ID,
		SnapshotID: rec.SnapshotID,
		StoredAt:   rec.StoredAt,
		Report:     r,
	}, nil
}

func RecordToSummary(rec *store.ReportRecord) ReportSummary {
	return ReportSummary{
		ID:            rec.ID,
		SnapshotID:    rec.SnapshotID,
		Hostname:      rec.Hostname,
		OSName:        rec.OSName,
		KernelVersion: rec.KernelVersion,
		CollectedAt:   rec.CollectedAt,
		StoredAt:      rec.StoredAt,
	}
}
