package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/repository"
	"github.com/volcanion-systems/volcanion-tracking/internal/service"
	"github.com/volcanion-systems/volcanion-tracking/pkg/httputil"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

const defaultReportWindow = 7 * 24 * time.Hour

// ReportHandler serves event aggregation reports.
type ReportHandler struct {
	reports *service.ReportService
	logger  *logging.Logger
}

func NewReportHandler(reports *service.ReportService, logger *logging.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func (h *ReportHandler) SubSystemReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reports.SubSystemReport(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", report)
}

func (h *ReportHandler) PartnerReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reports.PartnerReport(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", report)
}

// parseWindow reads the optional start/end RFC 3339 query parameters.
// The window defaults to the last seven days and is half-open.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.Add(-defaultReportWindow)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start must be RFC 3339")
		}
		start = parsed.UTC()
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end must be RFC 3339")
		}
		end = parsed.UTC()
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("start must be before end")
	}
	return start, end, nil
}

func (h *ReportHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrPartnerNotFound),
		errors.Is(err, repository.ErrSubSystemNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "report generation failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
