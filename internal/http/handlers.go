package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"collegesave/internal/api"
	"collegesave/internal/chart"
	"collegesave/internal/core"
	applog "collegesave/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// pinger is implemented by shared chart caches.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleReady reports whether templates loaded and the chart cache is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{"templates": "ok", "chart_cache": "disabled"}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.charts != nil {
		checks["chart_cache"] = "ok"
		if p, ok := s.charts.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				// Charts still render without the cache, so this only degrades.
				checks["chart_cache"] = "degraded: " + err.Error()
			}
		}
	}

	NewResponse().Status(code).JSON(map[string]any{"status": status, "checks": checks}).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", newPageView(DefaultFormValues()))
}

// handleCalculate runs the engine on the submitted form. Requests sent by
// htmx get only the results fragment; plain form posts get the whole page.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Parse form error", applog.FieldError, err)
		ErrorResponse(http.StatusBadRequest, "Invalid form submission").Write(w)
		return
	}

	page := newPageView(r.PostForm)
	partial := r.Header.Get("HX-Request") == "true"

	in, p, err := s.calculate(r.Context(), func() (core.Input, error) { return ParseInputValues(r.PostForm) })
	if err != nil {
		if partial {
			ErrorResponse(statusFor(err), err.Error()).Write(w)
			return
		}
		s.render(w, r, statusFor(err), "index.html", page.withError(err))
		return
	}

	page.Results = newResultsView(in, p)
	if partial {
		s.render(w, r, http.StatusOK, "results", page.Results)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

// handleAPIProjection is the JSON form of handleCalculate.
func (s *Server) handleAPIProjection(w http.ResponseWriter, r *http.Request) {
	var includeSeries bool
	_, p, err := s.calculate(r.Context(), func() (core.Input, error) {
		in, series, err := DecodeProjectionRequest(r.Body)
		includeSeries = series
		return in, err
	})
	if err != nil {
		APIError(err).Write(w)
		return
	}
	NewResponse().JSON(api.FromProjection(p, includeSeries)).Write(w)
}

// handleChart renders the chart for the input in the query string. Rendered
// images are cached by input, size and format, and concurrent requests for
// the same image share one render.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentChart)
	q := r.URL.Query()

	opts := chart.DefaultOptions()
	f, err := chart.ParseFormat(q.Get("format"))
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	opts.Format = f
	if opts.Width, err = dimension(q.Get("width"), opts.Width); err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid width").Write(w)
		return
	}
	if opts.Height, err = dimension(q.Get("height"), opts.Height); err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid height").Write(w)
		return
	}

	in, err := ParseInputValues(q)
	if err != nil {
		ErrorResponse(statusFor(err), err.Error()).Write(w)
		return
	}
	key := chartKey(in, opts)

	if s.charts != nil {
		if img, ok := s.charts.Get(key); ok {
			logger.DebugContext(ctx, "Chart cache hit", applog.FieldCacheHit, true)
			writeImage(w, opts.Format, img)
			return
		}
	}

	v, err, shared := s.renders.Do(key, func() (any, error) {
		p, err := core.Calculate(in)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := chart.Render(&buf, p, opts); err != nil {
			return nil, err
		}
		img := buf.Bytes()
		if s.charts != nil {
			s.charts.Set(key, img)
		}
		return img, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, chart.ErrNotEnoughPoints):
			ErrorResponse(http.StatusUnprocessableEntity, "horizon too short to chart").Write(w)
		case statusFor(err) == http.StatusUnprocessableEntity:
			ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		default:
			logger.ErrorContext(ctx, "Chart render failed", applog.FieldOperation, applog.OpRender, applog.FieldError, err)
			ErrorResponse(http.StatusInternalServerError, "chart rendering failed").Write(w)
		}
		return
	}

	logger.DebugContext(ctx, "Chart rendered", applog.FieldCacheHit, false, "shared", shared)
	writeImage(w, opts.Format, v.([]byte))
}

// calculate parses the input with parse and runs the engine, logging the
// outcome either way.
func (s *Server) calculate(ctx context.Context, parse func() (core.Input, error)) (core.Input, core.Projection, error) {
	sl := applog.NewStructuredLogger(applog.FromContext(ctx))

	in, err := parse()
	if err == nil {
		var p core.Projection
		if p, err = core.Calculate(in); err == nil {
			sl.LogProjection(ctx, p.YearsUntilCollege, p.MonthsUntilCollege, p.MonthlySavings, p.AmountToCover)
			return in, p, nil
		}
	}

	var ve *core.ValidationError
	field := ""
	if errors.As(err, &ve) {
		field = ve.Field
	}
	sl.LogRejected(ctx, field, core.ErrorKind(err), err)
	return core.Input{}, core.Projection{}, err
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeImage(w http.ResponseWriter, f chart.Format, img []byte) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// dimension parses an optional chart size within sane bounds.
func dimension(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 100 || v > 4000 {
		return 0, errors.New("dimension out of range")
	}
	return v, nil
}

func chartKey(in core.Input, opts chart.Options) string {
	return in.Key() + "|" + string(opts.Format) + "|" + strconv.Itoa(opts.Width) + "x" + strconv.Itoa(opts.Height)
}
