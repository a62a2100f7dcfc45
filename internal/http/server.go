package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"collegesave/internal/cache"
	applog "collegesave/internal/log"
	"collegesave/internal/middleware/ratelimit"
	"collegesave/internal/middleware/security"
	"collegesave/internal/middleware/trace"
	appweb "collegesave/web"
)

// Config holds what NewServer needs beyond the listen address.
type Config struct {
	Logger *applog.Logger
	// ChartCache memoises rendered charts. Nil disables caching.
	ChartCache         cache.Cache[[]byte]
	RateLimitPerMinute int
	// TrustedProxies are extra CIDR networks whose forwarding headers name
	// the client, on top of loopback and private ranges.
	TrustedProxies []string
}

// Server hosts the calculator page, the chart endpoint and the JSON API.
type Server struct {
	http.Server
	templates  *template.Template
	logger     *applog.Logger
	charts     cache.Cache[[]byte]
	renders    singleflight.Group
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	started    time.Time
	shutdownMu sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	s := &Server{
		logger:   logger,
		charts:   cfg.ChartCache,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: security.NewDetector(logger.WithComponent(applog.ComponentSecurity)),
		started:  time.Now(),
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.CacheControl("public, max-age=3600")(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	noStore := security.CacheControl("no-store")
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /calculate", noStore(http.HandlerFunc(s.handleCalculate)))
	mux.Handle("POST /api/projections", noStore(http.HandlerFunc(s.handleAPIProjection)))
	mux.HandleFunc("GET /chart.png", s.handleChart)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Outermost first: every response, including rejected ones, is traced.
	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)

	if r.URL.Path == "/api/projections" {
		NewResponse().
			Status(http.StatusTooManyRequests).
			JSON(map[string]string{"error": "rate_limited", "message": "too many requests, retry later"}).
			Write(w)
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Too many calculations. Please try again in a minute.").Write(w)
}

// Shutdown gracefully shuts down the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownMu.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
