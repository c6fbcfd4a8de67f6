package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/Hj567/ub-unsecured-onboard/internal/export"
	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv"
)

// PreviewSchedule prices a loan without booking it
func (h *Handler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.preview(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newScheduleResponse(rows))
}

// ExportPreview prices a loan and returns the schedule as a spreadsheet
func (h *Handler) ExportPreview(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.preview(w, r)
	if !ok {
		return
	}
	h.writeExport(w, r, rows)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) (models.Schedule, bool) {
	var req termsRequest
	if !h.decode(w, r, &req) {
		return nil, false
	}
	terms, err := h.resolveTerms(r.Context(), req)
	if err != nil {
		h.serviceError(w, err)
		return nil, false
	}
	rows, err := h.svc.PreviewSchedule(r.Context(), terms)
	if err != nil {
		h.serviceError(w, err)
		return nil, false
	}
	return rows, true
}

// writeExport encodes rows in the format named by the format query parameter, xlsx by default
func (h *Handler) writeExport(w http.ResponseWriter, r *http.Request, rows models.Schedule) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}

	var buf bytes.Buffer
	var contentType string
	var err error
	switch format {
	case "xlsx":
		contentType = xlsxContentType
		err = export.WriteScheduleXLSX(&buf, rows)
	case "csv":
		contentType = csvContentType
		err = export.WriteScheduleCSV(&buf, rows)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		h.log.Errorf("Failed to export schedule: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "schedule."+format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
