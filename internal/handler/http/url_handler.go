// Package http implements the external boundary (§4.K): request decoding,
// response shaping, and error-code translation for every HTTP route this
// service exposes. Handlers are thin; all domain logic lives in the service
// and redirect packages they wrap.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/redirect"
	"github.com/northbeam-io/shortlink/internal/service"
)

const maxBatchSize = 100

// URLHandler handles HTTP requests for URL CRUD and redirect operations.
type URLHandler struct {
	service    *service.URLService
	dispatcher *redirect.Dispatcher
	logger     *zap.Logger
}

// NewURLHandler creates a new HTTP URL handler.
func NewURLHandler(svc *service.URLService, dispatcher *redirect.Dispatcher, logger *zap.Logger) *URLHandler {
	return &URLHandler{service: svc, dispatcher: dispatcher, logger: logger}
}

type createURLRequest struct {
	URL         string         `json:"url"`
	CustomAlias *string        `json:"customAlias,omitempty"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type createURLResponse struct {
	Code      string     `json:"code"`
	ShortURL  string     `json:"shortUrl"`
	Original  string     `json:"original"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	IsNew     bool       `json:"isNew"`
}

// CreateShortURL handles POST /api/urls.
func (h *URLHandler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	var req createURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidURL)
		return
	}

	ip := clientIP(r)
	ua := r.UserAgent()
	result, err := h.service.CreateShort(r.Context(), service.CreateInput{
		Original:         req.URL,
		CustomAlias:      req.CustomAlias,
		ExpiresAt:        req.ExpiresAt,
		Metadata:         req.Metadata,
		CreatorIP:        &ip,
		CreatorUserAgent: &ua,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createURLResponse{
		Code:      result.Record.Code,
		ShortURL:  result.ShortURL,
		Original:  result.Record.Original,
		CreatedAt: result.Record.CreatedAt,
		ExpiresAt: result.Record.ExpiresAt,
		IsNew:     result.IsNew,
	})
}

type listURLsResponse struct {
	URLs       []urlSummary `json:"urls"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
	HasNext    bool         `json:"hasNext"`
	HasPrev    bool         `json:"hasPrev"`
}

type urlSummary struct {
	Code      string     `json:"code"`
	Original  string     `json:"original"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	HitCount  int64      `json:"hitCount"`
}

// ListURLs handles GET /api/urls.
func (h *URLHandler) ListURLs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := parseIntDefault(q.Get("page"), 1)
	limit := parseIntDefault(q.Get("limit"), 20)
	if page < 1 || limit < 1 || limit > 100 {
		writeError(w, domain.ErrInvalidPagination)
		return
	}

	sort := domain.SortField(q.Get("sort"))
	if sort == "" {
		sort = domain.SortCreatedAt
	}
	order := domain.SortOrder(strings.ToUpper(q.Get("order")))
	if order == "" {
		order = domain.OrderDesc
	}
	status := domain.StatusFilter(q.Get("status"))
	if status == "" {
		status = domain.StatusAll
	}

	filter := domain.ListFilter{
		Search: q.Get("search"),
		Status: status,
		Sort:   sort,
		Order:  order,
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	urls := make([]urlSummary, 0, len(result.Records))
	for _, record := range result.Records {
		urls = append(urls, urlSummary{
			Code:      record.Code,
			Original:  record.Original,
			CreatedAt: record.CreatedAt,
			ExpiresAt: record.ExpiresAt,
			HitCount:  record.HitCount,
		})
	}

	totalPages := int(result.Total) / limit
	if int(result.Total)%limit != 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, listURLsResponse{
		URLs:       urls,
		Total:      result.Total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	})
}

// GetStats handles GET /api/urls/stats.
func (h *URLHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DeleteURL handles DELETE /api/urls/{code}.
func (h *URLHandler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	deleted, err := h.service.DeleteByCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, domain.ErrNotFoundCode)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchCreateRequest struct {
	URLs []createURLRequest `json:"urls"`
}

type batchError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type batchCreateResponse struct {
	Success []createURLResponse `json:"success"`
	Errors  []batchError        `json:"errors"`
}

// BatchCreate handles POST /api/urls/batch, admin-only.
func (h *URLHandler) BatchCreate(w http.ResponseWriter, r *http.Request) {
	var req batchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidURL)
		return
	}
	if len(req.URLs) > maxBatchSize {
		writeError(w, domain.ErrBatchTooLarge)
		return
	}

	ip := clientIP(r)
	ua := r.UserAgent()
	resp := batchCreateResponse{Success: []createURLResponse{}, Errors: []batchError{}}

	for _, entry := range req.URLs {
		result, err := h.service.CreateShort(r.Context(), service.CreateInput{
			Original:         entry.URL,
			CustomAlias:      entry.CustomAlias,
			ExpiresAt:        entry.ExpiresAt,
			Metadata:         entry.Metadata,
			CreatorIP:        &ip,
			CreatorUserAgent: &ua,
		})
		if err != nil {
			resp.Errors = append(resp.Errors, batchError{URL: entry.URL, Error: err.Error()})
			continue
		}
		resp.Success = append(resp.Success, createURLResponse{
			Code:      result.Record.Code,
			ShortURL:  result.ShortURL,
			Original:  result.Record.Original,
			CreatedAt: result.Record.CreatedAt,
			ExpiresAt: result.Record.ExpiresAt,
			IsNew:     result.IsNew,
		})
	}

	writeJSON(w, http.StatusCreated, resp)
}

// RedirectURL handles GET /{code}.
func (h *URLHandler) RedirectURL(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	reqCtx := redirect.RequestContext{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}

	status, target, err := h.dispatcher.ResolveAndRedirect(r.Context(), code, reqCtx)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("X-Robots-Tag", "noindex, nofollow")
	http.Redirect(w, r, target, status)
}

type previewResponse struct {
	Code      string         `json:"code"`
	Original  string         `json:"original"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	HitCount  int64          `json:"hitCount"`
	IsExpired bool           `json:"isExpired"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PreviewURL handles GET /{code}/preview.
func (h *URLHandler) PreviewURL(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	record, err := h.service.GetFullRecord(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if record == nil {
		writeError(w, domain.ErrNotFoundCode)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Code:      record.Code,
		Original:  record.Original,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
		HitCount:  record.HitCount,
		IsExpired: record.IsExpired(time.Now()),
		Metadata:  record.Metadata,
	})
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	appErr, ok := domain.As(err)
	if !ok {
		appErr = domain.Wrap(domain.CodeInternal, "internal error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": appErr.Message})
}
