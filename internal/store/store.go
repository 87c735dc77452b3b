// Package store archives hardware reports in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const selectColumns = `id, snapshot_id, hostname, os_name, kernel_version, collected_at, stored_at`

// DefaultPageSize is used when a ListFilter leaves PageSize unset.
const DefaultPageSize = 50

// ReportRecord represents a stored report row.
type ReportRecord struct {
	ID            int64
	SnapshotID    string
	Hostname      string
	OSName        string
	KernelVersion string
	CollectedAt   time.Time
	StoredAt      time.Time
	ReportJSON    string
}

// ListFilter holds optional query parameters for listing reports.
type ListFilter struct {
	Hostname        string
	CollectedAfter  *time.Time
	CollectedBefore *time.Time
	PageSize        int
	Page            int
}

// Store provides CRUD operations for report records.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a report record and returns the new ID and stored_at time.
func (s *Store) Insert(ctx context.Context, rec *ReportRecord) (int64, time.Time, error) {
	storedAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (snapshot_id, hostname, os_name, kernel_version, collected_at, stored_at, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SnapshotID,
		rec.Hostname,
		rec.OSName,
		rec.KernelVersion,
		formatTime(rec.CollectedAt),
		formatTime(storedAt),
		rec.ReportJSON,
	)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("get last insert id: %w", err)
	}

	return id, storedAt, nil
}

// Get retrieves a report record by ID. A missing row yields sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id int64) (*ReportRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+`, report_json FROM reports WHERE id = ?`, id)

	return scanRecord(row)
}

// GetLatestByHostname retrieves the most recent report for a hostname.
func (s *Store) GetLatestByHostname(ctx context.Context, hostname string) (*ReportRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+`, report_json FROM reports
		 WHERE hostname = ? ORDER BY collected_at DESC, id DESC LIMIT 1`, hostname)

	return scanRecord(row)
}

// Delete removes a report record by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// List returns report records matching the filter, newest first, together
// with the total number of matches. ReportJSON is left empty.
func (s *Store) List(ctx context.Context, f ListFilter) ([]ReportRecord, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + selectColumns + `, '' FROM reports` + where +
		` ORDER BY collected_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	records := []ReportRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}

	return records, total, rows.Err()
}

// Purge deletes report records collected more than olderThan ago.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE collected_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reports: %w", err)
	}
	return result.RowsAffected()
}

func buildWhere(f ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if f.Hostname != "" {
		conditions = append(conditions, "hostname = ?")
		args = append(args, f.Hostname)
	}
	if f.CollectedAfter != nil {
		conditions = append(conditions, "collected_at >= ?")
		args = append(args, formatTime(*f.CollectedAfter))
	}
	if f.CollectedBefore != nil {
		conditions = append(conditions, "collected_at <= ?")
		args = append(args, formatTime(*f.CollectedBefore))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Timestamps are stored as fixed-width UTC text so that string order is
// time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*ReportRecord, error) {
	var rec ReportRecord
	var collectedAt, storedAt string
	err := row.Scan(&rec.ID, &rec.SnapshotID, &rec.Hostname, &rec.OSName, &rec.KernelVersion, &collectedAt, &storedAt, &rec.ReportJSON)
	if err != nil {
		return nil, err
	}

	rec.CollectedAt, _ = time.Parse(timeLayout, collectedAt)
	rec.StoredAt, _ = time.Parse(timeLayout, storedAt)

	return &rec, nil
}
