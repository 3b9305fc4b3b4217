package http

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/analytics/query"
	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

// AnalyticsHandler serves the analytics read surface (§4.J / §6).
type AnalyticsHandler struct {
	query  *query.Service
	logger *zap.Logger
}

// NewAnalyticsHandler builds an AnalyticsHandler.
func NewAnalyticsHandler(q *query.Service, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{query: q, logger: logger}
}

func parseDateRange(r *http.Request) (start, end time.Time, err error) {
	q := r.URL.Query()
	end = time.Now()
	start = end.Add(-24 * time.Hour)

	if raw := q.Get("startDate"); raw != "" {
		start, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, domain.ErrInvalidDateRange
		}
	}
	if raw := q.Get("endDate"); raw != "" {
		end, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, domain.ErrInvalidDateRange
		}
	}
	if !start.Before(end) {
		return start, end, domain.ErrInvalidDateRange
	}
	return start, end, nil
}

func parseGranularity(r *http.Request) interfaces.Granularity {
	switch interfaces.Granularity(r.URL.Query().Get("granularity")) {
	case interfaces.GranularityMinute:
		return interfaces.GranularityMinute
	case interfaces.GranularityDay:
		return interfaces.GranularityDay
	default:
		return interfaces.GranularityHour
	}
}

// parseTopLimit reads topLimit, the cardinality cap for the topReferrers/
// geographic breakdowns. 0 tells the query service to fall back to its
// default.
func parseTopLimit(r *http.Request) int {
	raw := r.URL.Query().Get("topLimit")
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// GetAnalytics handles GET /api/analytics/{code}.
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.query.GetAnalytics(r.Context(), code, start, end, parseGranularity(r), parseTopLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetSummary handles GET /api/analytics/{code}/summary.
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.query.GetSummary(r.Context(), code, start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ExportAnalytics handles GET /api/analytics/{code}/export, serving the
// time-series either as CSV (timestamp,hits) or as a JSON envelope.
func (h *AnalyticsHandler) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.query.GetAnalytics(r.Context(), code, start, end, parseGranularity(r), parseTopLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "json" {
		writeJSON(w, http.StatusOK, map[string]any{"code": code, "timeSeries": report.TimeSeries})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"analytics-"+code+".csv\"")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "hits"})
	for _, bucket := range report.TimeSeries {
		_ = cw.Write([]string{bucket.BucketStart.Format(time.RFC3339), strconv.FormatInt(bucket.Hits, 10)})
	}
	cw.Flush()
}
