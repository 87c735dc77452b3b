package server

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/convert"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

const (
	OperationGetReport   = "/hwcheck.v1.Reports/GetReport"
	OperationListReports = "/hwcheck.v1.Reports/ListReports"
	OperationGetStored   = "/hwcheck.v1.Reports/GetStoredReport"
)

// Snapshotter produces a fresh hardware report.
type Snapshotter interface {
	Collect(ctx context.Context) collector.HardwareReport
}

// ListReportsReply is the body of GET /v1/reports.
type ListReportsReply struct {
	Reports    []convert.ReportSummary `json:"reports"`
	TotalCount int                     `json:"total_count"`
}

// Handler serves the report routes.
type Handler struct {
	snap   Snapshotter
	store  *store.Store
	logger *slog.Logger
}

// NewHandler creates a handler. db may be nil, in which case the archive
// routes answer 503 and ?save=true is rejected.
func NewHandler(snap Snapshotter, db *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{snap: snap, store: db, logger: logger}
}

// Register mounts the routes on srv.
func (h *Handler) Register(srv *kratoshttp.Server) {
	r := srv.Route("/")
	r.GET("/healthz", h.health)
	r.GET("/v1/report", h.getReport)
	r.GET("/v1/reports", h.listReports)
	r.GET("/v1/reports/{id}", h.getStoredReport)
}

func (h *Handler) health(ctx kratoshttp.Context) error {
	return ctx.Result(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getReport(ctx kratoshttp.Context) error {
	kratoshttp.SetOperation(ctx, OperationGetReport)

	save := false
	if v := ctx.Query().Get("save"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.BadRequest(ReasonInvalidArgument, "save must be a boolean")
		}
		save = b
	}

	out, err := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		report := h.snap.Collect(c)
		if !save {
			return &report, nil
		}
		id, err := h.save(c, &report)
		if err != nil {
			return nil, err
		}
		ctx.Response().Header().Set("X-Report-Id", strconv.FormatInt(id, 10))
		return &report, nil
	})(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

func (h *Handler) save(ctx context.Context, r *collector.HardwareReport) (int64, error) {
	if h.store == nil {
		return 0, errors.ServiceUnavailable(ReasonNoArchive, "report archive is not configured")
	}
	rec, err := convert.ReportToRecord(r)
	if err != nil {
		return 0, errors.InternalServer(ReasonInternal, err.Error())
	}
	id, _, err := h.store.Insert(ctx, rec)
	if err != nil {
		return 0, errors.InternalServer(ReasonInternal, err.Error())
	}
	h.logger.Info("report archived", "id", id, "snapshot_id", rec.SnapshotID, "hostname", rec.Hostname)
	return id, nil
}

func (h *Handler) listReports(ctx kratoshttp.Context) error {
	kratoshttp.SetOperation(ctx, OperationListReports)

	q := ctx.Query()
	filter := store.ListFilter{Hostname: q.Get("hostname")}
	var err error
	if filter.Page, err = intParam(q.Get("page")); err != nil {
		return errors.BadRequest(ReasonInvalidArgument, "page must be an integer")
	}
	if filter.PageSize, err = intParam(q.Get("page_size")); err != nil {
		return errors.BadRequest(ReasonInvalidArgument, "page_size must be an integer")
	}

	out, err := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		if h.store == nil {
			return nil, errors.ServiceUnavailable(ReasonNoArchive, "report archive is not configured")
		}
		records, total, err := h.store.List(c, filter)
		if err != nil {
			return nil, errors.InternalServer(ReasonInternal, err.Error())
		}
		reply := &ListReportsReply{Reports: make([]convert.ReportSummary, len(records)), TotalCount: total}
		for i := range records {
			reply.Reports[i] = convert.RecordToSummary(&records[i])
		}
		return reply, nil
	})(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

func (h *Handler) getStoredReport(ctx kratoshttp.Context) error {
	kratoshttp.SetOperation(ctx, OperationGetStored)

	id, err := strconv.ParseInt(ctx.Vars().Get("id"), 10, 64)
	if err != nil {
		return errors.BadRequest(ReasonInvalidArgument, "id must be an integer")
	}

	out, err := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		if h.store == nil {
			return nil, errors.ServiceUnavailable(ReasonNoArchive, "report archive is not configured")
		}
		rec, err := h.store.Get(c, id)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return nil, errors.NotFound(ReasonNotFound, "report "+strconv.FormatInt(id, 10)+" not found")
			}
			return nil, errors.InternalServer(ReasonInternal, err.Error())
		}
		stored, err := convert.RecordToStored(rec)
		if err != nil {
			return nil, errors.InternalServer(ReasonInternal, err.Error())
		}
		return stored, nil
	})(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
