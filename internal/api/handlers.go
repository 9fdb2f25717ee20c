package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/aggregate"
	"github.com/sells-group/lotes-cli/internal/export"
	"github.com/sells-group/lotes-cli/internal/filter"
	"github.com/sells-group/lotes-cli/internal/parcel"
	"github.com/sells-group/lotes-cli/internal/reproject"
	"github.com/sells-group/lotes-cli/internal/risk"
	"github.com/sells-group/lotes-cli/internal/store"
)

type datasetInfo struct {
	ID         uuid.UUID `json:"id"`
	Source     string    `json:"source"`
	Projection string    `json:"projection"`
	Features   int       `json:"features"`
	LoadedAt   time.Time `json:"loaded_at"`
}

func infoOf(ds *store.Dataset) datasetInfo {
	return datasetInfo{
		ID:         ds.ID,
		Source:     ds.Source,
		Projection: ds.Projection,
		Features:   ds.Len(),
		LoadedAt:   ds.LoadedAt,
	}
}

type summaryResponse struct {
	DatasetID uuid.UUID                `json:"dataset_id"`
	Nucleo    string                   `json:"nucleo"`
	Enabled   []risk.Grade             `json:"enabled_grades"`
	Summary   aggregate.Summary        `json:"summary"`
	ByGrade   []aggregate.GradeCount   `json:"by_grade"`
	ByCluster []aggregate.ClusterStats `json:"by_nucleo"`
	Extent    *parcel.BBox             `json:"extent"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetDataset(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoOf(h.sess.Dataset()))
}

// handleLoadDataset replaces the session dataset with the request body.
// The previous dataset survives any failure. A body over the size limit
// reads as truncated JSON and is reported as a parse error.
func (h *Handler) handleLoadDataset(w http.ResponseWriter, r *http.Request) {
	p := h.opts.DefaultProjection
	if sel := strings.TrimSpace(r.URL.Query().Get("projection")); sel != "" {
		parsed, err := reproject.ParseProjection(sel)
		if err != nil {
			writeErr(w, err)
			return
		}
		p = parsed
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}

	body := http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	ds, err := h.sess.Load(r.Context(), body, source, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, infoOf(ds))
}

func (h *Handler) handleNucleos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"nucleos":  h.sess.Clusters(),
		"selected": h.sess.Cluster(),
	})
}

func (h *Handler) handleGrades(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Grades())
}

func (h *Handler) handleSetGrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", `body must be {"enabled": true|false}`)
		return
	}
	if err := h.sess.SetGradeEnabled(chi.URLParam(r, "grade"), *req.Enabled); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sess.Grades())
}

func (h *Handler) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"nucleo": h.sess.Cluster()})
}

func (h *Handler) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nucleo string `json:"nucleo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", `body must be {"nucleo": "all"|name}`)
		return
	}
	h.sess.SelectCluster(req.Nucleo)
	writeJSON(w, http.StatusOK, map[string]string{"nucleo": h.sess.Cluster()})
}

func (h *Handler) handleFeatures(w http.ResponseWriter, _ *http.Request) {
	v := h.sess.Recompute()
	var buf bytes.Buffer
	if err := export.GeoJSON(&buf, v.Features); err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleSummary(w http.ResponseWriter, _ *http.Request) {
	v := h.sess.Recompute()
	writeJSON(w, http.StatusOK, summaryResponse{
		DatasetID: v.DatasetID,
		Nucleo:    v.Nucleo,
		Enabled:   v.Enabled,
		Summary:   v.Summary,
		ByGrade:   v.ByGrade,
		ByCluster: v.ByCluster,
		Extent:    v.Extent,
	})
}

// handleExport downloads the filtered set as geojson or xlsx.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	v := h.sess.Recompute()
	name := "lotes"
	if v.Nucleo != filter.All {
		name += "-" + sanitizeFilename(v.Nucleo)
	}

	var buf bytes.Buffer
	var contentType string
	switch format := chi.URLParam(r, "format"); format {
	case "geojson":
		contentType = "application/geo+json"
		name += ".geojson"
		if err := export.GeoJSON(&buf, v.Features); err != nil {
			writeErr(w, err)
			return
		}
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		name += ".xlsx"
		if err := export.WriteWorkbook(&buf, v.Features, v.Summary); err != nil {
			writeErr(w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_format", "format must be geojson or xlsx")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '/' || r == '\\' || r < 0x20:
			return '_'
		case r == ' ':
			return '-'
		}
		return r
	}, s)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case eris.Is(err, parcel.ErrParse):
		return http.StatusBadRequest, "parse_error"
	case eris.Is(err, reproject.ErrConfiguration):
		return http.StatusUnprocessableEntity, "configuration_error"
	case eris.Is(err, risk.ErrInvalidGrade):
		return http.StatusBadRequest, "invalid_argument"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeErr(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
