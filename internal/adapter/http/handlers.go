package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	dashrender "github.com/couchcryptid/accident-dashboard/internal/render"
)

// dashboardResponse is the body of GET /api/dashboard.
type dashboardResponse struct {
	Source      string               `json:"source"`
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
	Selection   domain.Selection     `json:"selection"`
	Dashboard   dashrender.Dashboard `json:"dashboard"`
}

// optionsResponse is the body of GET /api/options.
type optionsResponse struct {
	Selection domain.Selection   `json:"selection"`
	Options   dashrender.Options `json:"options"`
}

// reloadResponse is the body of POST /api/reload.
type reloadResponse struct {
	Status      string           `json:"status"`
	Source      string           `json:"source"`
	Checksum    string           `json:"checksum"`
	Rows        int              `json:"rows"`
	WindowStart time.Time        `json:"window_start"`
	WindowEnd   time.Time        `json:"window_end"`
	Drops       domain.DropStats `json:"drops"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := dashrender.Page{Source: s.provider.SourceName()}

	sel, err := s.selections.parse(r)
	if err != nil {
		page.Error = err.Error()
		s.writePage(w, http.StatusBadRequest, page)
		return
	}
	page.Selection = sel

	ds, err := s.provider.Dataset(r.Context())
	if err != nil {
		page.Error = err.Error()
		s.writePage(w, statusFor(err), page)
		return
	}
	sel = domain.ReconcileSelection(ds, sel)
	page.Selection = sel

	view := s.view(ds, sel)
	page.Dashboard = dashrender.Build(view)
	page.Options = dashrender.BuildOptions(ds, sel)
	page.WindowStart = ds.WindowStart
	page.WindowEnd = ds.WindowEnd
	page.ExportURL = exportURL(sel)
	s.writePage(w, http.StatusOK, page)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sel, ds, ok := s.load(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, optionsResponse{
		Selection: sel,
		Options:   dashrender.BuildOptions(ds, sel),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, ds, ok := s.load(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, dashboardResponse{
		Source:      ds.Source,
		WindowStart: ds.WindowStart,
		WindowEnd:   ds.WindowEnd,
		Selection:   sel,
		Dashboard:   dashrender.Build(s.view(ds, sel)),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sel, ds, ok := s.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := writeWorkbook(&buf, s.view(ds, sel), ds); err != nil {
		s.logger.Error("workbook export failed", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", workbookContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="acidentes.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.provider.Reload(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.logger.Info("dataset reloaded", "rows", ds.Len(), "checksum", ds.Checksum)
	render.JSON(w, r, reloadResponse{
		Status:      "reloaded",
		Source:      ds.Source,
		Checksum:    ds.Checksum,
		Rows:        ds.Len(),
		WindowStart: ds.WindowStart,
		WindowEnd:   ds.WindowEnd,
		Drops:       ds.Drops,
	})
}

// load parses the selection and fetches the dataset, writing the error
// response itself when either fails. The selection is reconciled with the
// options the dataset offers.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (domain.Selection, *domain.Dataset, bool) {
	sel, err := s.selections.parse(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return domain.Selection{}, nil, false
	}
	ds, err := s.provider.Dataset(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return domain.Selection{}, nil, false
	}
	return domain.ReconcileSelection(ds, sel), ds, true
}

func (s *Server) view(ds *domain.Dataset, sel domain.Selection) domain.View {
	v := domain.Apply(ds, sel)
	s.metrics.ViewsRendered.Inc()
	s.metrics.ViewRows.Observe(float64(v.Len()))
	return v
}

func (s *Server) writePage(w http.ResponseWriter, status int, page dashrender.Page) {
	var buf bytes.Buffer
	if err := dashrender.WritePage(&buf, page); err != nil {
		s.logger.Error("render page failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{
		"status": "error",
		"error":  err.Error(),
	})
}

// statusFor maps load failures to HTTP status codes.
func statusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFileNotFound), errors.Is(err, domain.ErrEmptyDataset):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrParse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func exportURL(sel domain.Selection) template.URL {
	u := "/api/export.xlsx"
	if q := encodeSelection(sel).Encode(); q != "" {
		u += "?" + q
	}
	return template.URL(u) //nolint:gosec // built from url.Values.Encode
}
