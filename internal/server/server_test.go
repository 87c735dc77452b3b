package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/config"
	"github.com/go-tangra/go-tangra-hwcheck/internal/convert"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

type fixedSnapshot struct {
	calls int
}

func (f *fixedSnapshot) Collect(context.Context) collector.HardwareReport {
	f.calls++
	return collector.HardwareReport{
		CollectedAt:   time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Hostname:      "bench",
		OSName:        "Linux",
		KernelVersion: "6.1.0",
		CPU:           []collector.CPUCore{{Model: "Test CPU", Usage: 12.5}},
		Storage:       []collector.StorageVolume{},
		Network:       []collector.NetworkInterface{},
		USB:           []collector.USBDevice{},
		PCI:           []collector.PCIDevice{},
		Battery:       []collector.BatteryInfo{},
	}
}

type testEnv struct {
	srv   http.Handler
	snap  *fixedSnapshot
	store *store.Store
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "hwcheck.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.ApiSecret = secret
	snap := &fixedSnapshot{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{srv: NewHTTPServer(cfg, snap, db, logger), snap: snap, store: db}
}

func (e *testEnv) get(t *testing.T, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, "secret")
	rec := e.get(t, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetReport(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.get(t, "/v1/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var r collector.HardwareReport
	decode(t, rec, &r)
	if r.Hostname != "bench" || len(r.CPU) != 1 {
		t.Errorf("report = %+v", r)
	}
	if !strings.Contains(rec.Body.String(), `"usb": []`) {
		t.Error("empty collection not encoded as []")
	}
	if rec.Header().Get("X-Report-Id") != "" {
		t.Error("unsaved report carries an id")
	}

	_, total, err := e.store.List(context.Background(), store.ListFilter{})
	if err != nil || total != 0 {
		t.Errorf("archive total = %d, %v; want 0", total, err)
	}
}

func TestGetReportSaveAndFetch(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.get(t, "/v1/report?save=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	id := rec.Header().Get("X-Report-Id")
	if id == "" {
		t.Fatal("saved report has no id header")
	}

	list := e.get(t, "/v1/reports?hostname=bench")
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var reply ListReportsReply
	decode(t, list, &reply)
	if reply.TotalCount != 1 || len(reply.Reports) != 1 || reply.Reports[0].Hostname != "bench" {
		t.Fatalf("list = %+v", reply)
	}

	one := e.get(t, "/v1/reports/"+id)
	if one.Code != http.StatusOK {
		t.Fatalf("get status = %d: %s", one.Code, one.Body.String())
	}
	var stored convert.StoredReport
	decode(t, one, &stored)
	if stored.SnapshotID != reply.Reports[0].SnapshotID || stored.Report == nil || stored.Report.KernelVersion != "6.1.0" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestGetReportBadSave(t *testing.T) {
	e := newTestEnv(t, "")
	if rec := e.get(t, "/v1/report?save=maybe"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if e.snap.calls != 0 {
		t.Error("collected despite a bad argument")
	}
}

func TestStoredReportErrors(t *testing.T) {
	e := newTestEnv(t, "")
	if rec := e.get(t, "/v1/reports/999"); rec.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", rec.Code)
	}
	if rec := e.get(t, "/v1/reports/abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	if rec := e.get(t, "/v1/reports?page=x"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad page status = %d, want 400", rec.Code)
	}
}

func errorReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return body.Reason
}

func TestAPIKey(t *testing.T) {
	e := newTestEnv(t, "s3cret")

	rec := e.get(t, "/v1/report")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}
	if got := errorReason(t, rec); got != ReasonMissingAPIKey {
		t.Errorf("no key reason = %q, want %q", got, ReasonMissingAPIKey)
	}

	rec = e.get(t, "/v1/report", APIKeyHeader, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", rec.Code)
	}
	if got := errorReason(t, rec); got != ReasonInvalidAPIKey {
		t.Errorf("wrong key reason = %q, want %q", got, ReasonInvalidAPIKey)
	}

	if rec := e.get(t, "/v1/reports", APIKeyHeader, "s3cret"); rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want 200", rec.Code)
	}
	if e.snap.calls != 0 {
		t.Error("unauthorized request reached the collector")
	}
}

func TestCheckAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ReasonMissingAPIKey},
		{"s3cre", ReasonInvalidAPIKey},
		{"S3CRET", ReasonInvalidAPIKey},
		{"s3cret", ""},
	}
	for _, tt := range tests {
		if got := checkAPIKey(tt.key, "s3cret"); got != tt.want {
			t.Errorf("checkAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestPurgeOnce(t *testing.T) {
	e := newTestEnv(t, "")
	ctx := context.Background()
	for _, age := range []time.Duration{40 * 24 * time.Hour, time.Hour} {
		r := e.snap.Collect(ctx)
		r.CollectedAt = time.Now().Add(-age)
		rec, err := convert.ReportToRecord(&r)
		if err != nil {
			t.Fatal(err)
		}
		if _, _, err := e.store.Insert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	purgeOnce(ctx, e.store, 30, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, total, err := e.store.List(ctx, store.ListFilter{})
	if err != nil || total != 1 {
		t.Errorf("remaining = %d, %v; want 1", total, err)
	}
}
