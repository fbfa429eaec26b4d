package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/pagination"
	"github.com/sells-group/promoter-service/internal/tabular"
)

const maxBodyBytes = 10 << 20

// PromoterHandler routes /promoters requests to a Service.
type PromoterHandler struct {
	svc    Service
	router *chi.Mux
}

// NewPromoterHandler builds the promoter sub-router.
func NewPromoterHandler(svc Service) *PromoterHandler {
	h := &PromoterHandler{svc: svc}

	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Delete("/", h.handleDelete)
	r.Patch("/status", h.handleBulkStatus)
	r.Get("/analytics", h.handleAnalytics)
	r.Get("/stats", h.handleStats)
	r.Get("/search", h.handleSearch)
	r.Get("/expiring", h.handleExpiring)
	r.Get("/export", h.handleExport)
	r.Post("/import", h.handleImport)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/status", h.handleStatus)
		r.Get("/cv", h.handleCV)
		r.Get("/activity", h.handleActivity)
	})

	h.router = r
	return h
}

func (h *PromoterHandler) Router() *chi.Mux {
	return h.router
}

func (h *PromoterHandler) handleList(w http.ResponseWriter, r *http.Request) {
	params, filters, ok := listParams(w, r)
	if !ok {
		return
	}
	// The envelope carries any failure; listings always render.
	writeJSON(w, http.StatusOK, h.svc.List(r.Context(), params, r.URL.Query().Get("search"), filters))
}

func (h *PromoterHandler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	params, filters, ok := listParams(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Analytics(r.Context(), params, r.URL.Query().Get("search"), filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PromoterHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.PerformanceStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *PromoterHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": res})
}

func (h *PromoterHandler) handleExpiring(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.ExpiringDocuments(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": res})
}

func (h *PromoterHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := model.ParseFilters(r.URL.Query().Get)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	search := r.URL.Query().Get("search")

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		out, err := h.svc.ExportCSV(r.Context(), search, filters)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="promoters.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, out)
	case "xlsx":
		// Buffered so a failure can still be reported as JSON.
		var buf bytes.Buffer
		if err := h.svc.ExportXLSX(r.Context(), &buf, search, filters); err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="promoters.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx, got "+strconv.Quote(format))
	}
}

type importRequest struct {
	Rows   []tabular.Record `json:"rows"`
	UserID string           `json:"user_id"`
}

// handleImport accepts either a JSON body of pre-parsed rows or a raw CSV
// body (Content-Type text/csv) with the user in the user_id query parameter.
func (h *PromoterHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req importRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		rows, err := tabular.ReadCSV(r.Context(), body, tabular.CSVOptions{TrimSpace: true})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = importRequest{Rows: rows, UserID: r.URL.Query().Get("user_id")}
	} else if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "rows must not be empty")
		return
	}

	res, err := h.svc.ImportCSV(r.Context(), req.Rows, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PromoterHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.PromoterInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type idsRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status,omitempty"`
}

func (h *PromoterHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeIDs(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Delete(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *PromoterHandler) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeIDs(w, r)
	if !ok {
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.svc.BulkUpdateStatus(r.Context(), req.IDs, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *PromoterHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromoterHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.UpdateStatus(r.Context(), id, status); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

func (h *PromoterHandler) handleCV(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cv, err := h.svc.CVData(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cv)
}

func (h *PromoterHandler) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sum, err := h.svc.ActivitySummary(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// listParams reads paging and filter parameters, writing a 400 on bad input.
func listParams(w http.ResponseWriter, r *http.Request) (pagination.Params, model.PromoterFilters, bool) {
	page, err := intParam(r, "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return pagination.Params{}, model.PromoterFilters{}, false
	}
	limit, err := intParam(r, "limit")
	if err == nil {
		err = pagination.CheckLimit(limit)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return pagination.Params{}, model.PromoterFilters{}, false
	}
	filters, err := model.ParseFilters(r.URL.Query().Get)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return pagination.Params{}, model.PromoterFilters{}, false
	}
	return pagination.New(page, limit), filters, true
}

// intParam parses an optional integer query parameter. Absent is zero.
func intParam(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &paramError{key: key, value: v}
	}
	return n, nil
}

type paramError struct {
	key, value string
}

func (e *paramError) Error() string {
	return "invalid input: " + e.key + " must be an integer, got " + strconv.Quote(e.value)
}

// pathID returns the {id} segment, which must be a UUID in any of its
// accepted spellings.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid input: id must be a UUID")
		return "", false
	}
	return id, true
}

func decodeIDs(w http.ResponseWriter, r *http.Request) (idsRequest, bool) {
	var req idsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	for _, id := range req.IDs {
		if err := uuid.Validate(strings.TrimSpace(id)); err != nil {
			writeError(w, http.StatusBadRequest, "invalid input: ids must be UUIDs")
			return req, false
		}
	}
	return req, true
}
