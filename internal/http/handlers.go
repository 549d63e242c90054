package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"factures/internal/core"
	"factures/internal/export"
	applog "factures/internal/log"
	"factures/internal/stats"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, struct {
			Invoices []core.InvoiceAggregate `json:"invoices"`
		}{Invoices: s.session.Aggregates()})

	case http.MethodDelete:
		imageRef := strings.TrimSpace(r.URL.Query().Get("image_ref"))
		if imageRef == "" {
			writeError(w, http.StatusBadRequest, "image_ref query parameter required")
			return
		}
		if err := s.session.DeleteInvoice(r.Context(), imageRef); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Invoice delete failed",
				applog.FieldError, err, applog.FieldImageRef, imageRef)
			writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodPatch:
		imageRef := strings.TrimSpace(r.URL.Query().Get("image_ref"))
		if imageRef == "" {
			writeError(w, http.StatusBadRequest, "image_ref query parameter required")
			return
		}
		var update core.HeaderUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if update.IsZero() {
			writeError(w, http.StatusUnprocessableEntity, "no fields to update")
			return
		}
		if err := s.session.UpdateInvoice(r.Context(), imageRef, update); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Invoice update failed",
				applog.FieldError, err, applog.FieldImageRef, imageRef)
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, DELETE, PATCH")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleTva(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Records []core.TvaRecord `json:"records"`
	}{Records: s.session.TvaRecords()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	writeJSON(w, http.StatusOK, struct {
		Invoices   map[core.Window]stats.InvoiceStats `json:"invoices"`
		Tva        map[core.Window]stats.TvaStats     `json:"tva"`
		Overview   stats.Overview                     `json:"overview"`
		Categories []stats.CategoryAmount             `json:"categories"`
	}{
		Invoices:   s.session.Stats(now),
		Tva:        s.session.TvaStats(now),
		Overview:   s.session.Overview(now),
		Categories: s.session.Categories(),
	})
}

func (s *Server) handleProcessing(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, struct {
			Processing []string `json:"processing"`
		}{Processing: s.session.Processing()})

	case http.MethodPost:
		var req struct {
			ImageRef string `json:"image_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.ImageRef = strings.TrimSpace(req.ImageRef)
		if req.ImageRef == "" {
			writeError(w, http.StatusUnprocessableEntity, "image_ref required")
			return
		}
		s.session.StartProcessing(req.ImageRef)
		w.WriteHeader(http.StatusAccepted)

	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()

	domain, err := export.ParseDomain(q.Get("domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	period, err := core.ParseWindow(q.Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := export.Request{Domain: domain, Period: period, Format: format}
	key := exportCacheKey(req)
	structured := applog.NewStructuredLogger(applog.FromContext(r.Context()))

	art, found := s.exportCache.Get(key)
	if !found {
		art, err = s.session.Export(time.Now(), req)
		if err != nil {
			structured.LogError(r.Context(), "Export failed", err, applog.ComponentExport, applog.OpExport,
				applog.NewFields().WithExport(string(domain), string(period), string(format)))
			writeError(w, http.StatusInternalServerError, "export failed")
			return
		}
		s.exportCache.Set(key, art)
	}

	structured.LogExportServed(r.Context(), string(domain), string(period), string(format), art.Filename, len(art.Bytes))

	w.Header().Set("Content-Type", art.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Bytes)
}

func exportCacheKey(req export.Request) string {
	return string(req.Domain) + "|" + string(req.Period) + "|" + string(req.Format)
}
