package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/JonMunkholm/tableclean/internal/config"
	"github.com/JonMunkholm/tableclean/internal/core"
	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/skew"
	"github.com/go-chi/chi/v5"
)

// HealthResponse reports liveness and run capacity.
type HealthResponse struct {
	Status string                `json:"status"`
	Runs   core.RunLimiterStatus `json:"runs"`
}

// TableSkewResponse is the skew table of a stored table.
type TableSkewResponse struct {
	Table string         `json:"table"`
	Skew  skew.SkewTable `json:"skew"`
}

// Column is one numeric column of an inline table. Null is a missing value.
type Column struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// TransformRequest runs skew reduction over inline columns.
type TransformRequest struct {
	Name      string          `json:"name"`
	Columns   []Column        `json:"columns"`
	SkewTable skew.SkewTable  `json:"skew_table"` // Computed from Columns when omitted
	Skew      config.SkewPlan `json:"skew"`
}

// TransformResponse carries the report and the transformed columns.
type TransformResponse struct {
	Report  *skew.Report `json:"report"`
	Lines   []string     `json:"lines"`
	Columns []Column     `json:"columns"`
}

// handleHealth reports liveness and limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Runs:   s.service.Limiter().Status(),
	})
}

// handleTableSkew returns the skew of every numeric column of a table.
func (s *Server) handleTableSkew(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	result, err := s.service.SkewTable(r.Context(), table, "")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TableSkewResponse{Table: table, Skew: result})
}

// handleCleanTable runs a cleaning plan over a stored table. The body is an
// optional JSON plan; its table is taken from the URL. Exports always land
// in the configured export directory.
func (s *Server) handleCleanTable(w http.ResponseWriter, r *http.Request) {
	var plan config.Plan
	if err := s.decodeBody(w, r, &plan, true); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "PLAN002")
		return
	}
	if plan.Input != "" {
		writeError(w, r, http.StatusBadRequest, "input files are not accepted over HTTP", "PLAN001")
		return
	}
	plan.Table = chi.URLParam(r, "table")

	for i := range plan.Export {
		plan.Export[i].Dir = s.cfg.Export.Dir
		if plan.Export[i].Bucket == "" && s.cfg.Export.StorageEnabled() {
			plan.Export[i].Bucket = s.cfg.Export.Bucket
			plan.Export[i].Prefix = s.cfg.Export.Prefix
		}
	}

	report, err := s.service.Run(r.Context(), &plan)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleTransform reduces skew across inline columns and returns them.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "PLAN002")
		return
	}

	f, err := req.frame()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "DATA001")
		return
	}
	for _, a := range req.Skew.Allowed {
		if _, ok := skew.ParseTransform(a); !ok {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown allowed transform %q", a), "SKW003")
			return
		}
	}

	report, err := s.service.Transform(r.Context(), f, req.SkewTable, s.service.SkewOptions(req.Skew))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TransformResponse{
		Report:  report,
		Lines:   report.Lines(),
		Columns: columnsOf(f),
	})
}

// decodeBody decodes a size-limited JSON body, rejecting unknown fields.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// frame builds a frame from the request columns.
func (req *TransformRequest) frame() (*frame.Frame, error) {
	if len(req.Columns) == 0 {
		return nil, errors.New("at least one column is required")
	}

	name := req.Name
	if name == "" {
		name = "inline"
	}
	f := frame.New(name)
	for _, col := range req.Columns {
		values := make([]float64, len(col.Values))
		for i, v := range col.Values {
			if v == nil {
				values[i] = math.NaN()
				continue
			}
			values[i] = *v
		}
		if err := f.AddNumeric(col.Name, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// columnsOf converts the numeric columns of f back to the wire form.
// NaN and infinities become null.
func columnsOf(f *frame.Frame) []Column {
	var cols []Column
	for _, c := range f.Columns() {
		if c.Kind != frame.KindNumeric {
			continue
		}
		values := make([]*float64, len(c.Floats))
		for i, v := range c.Floats {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			values[i] = &v
		}
		cols = append(cols, Column{Name: c.Name, Values: values})
	}
	return cols
}
