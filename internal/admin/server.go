package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/mgmtd/internal/auth"
	"github.com/danmuck/mgmtd/internal/feature"
	"github.com/danmuck/mgmtd/internal/mbean"
	"github.com/danmuck/mgmtd/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Config configures the admin façade.
type Config struct {
	ID          string
	Addr        string
	CorsOrigins []string
	// TLSCertFile and TLSKeyFile switch the listener to HTTPS when both
	// are set.
	TLSCertFile string
	TLSKeyFile  string
	// Validator guards the management routes. Nil leaves them open.
	Validator auth.Validator
	// Ready overrides the readiness probe. By default the façade is ready
	// once feature.Ready has been published.
	Ready func() bool
}

// Server exposes a management registrar over HTTP.
type Server struct {
	cfg      Config
	mbeans   *mbean.Server
	features *feature.Registry
	router   *gin.Engine
	appeared time.Time
}

// Appear builds the engine and its routes.
func Appear(cfg Config, mbeans *mbean.Server, features *feature.Registry) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.UseRawPath = true
	r.Use(gin.Recovery())
	r.Use(observability.AdminRequestLogger(log.Logger, cfg.ID))
	r.Use(observability.AdminMetrics(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if features == nil {
		features = feature.NewRegistry()
	}
	s := &Server{
		cfg:      cfg,
		mbeans:   mbeans,
		features: features,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": s.cfg.ID,
			"version": Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.isReady()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		// Ready stays published across an unload.
		var root any
		if ready {
			root, _ = s.features.Lookup(feature.Ready)
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"root":    root,
			"service": s.cfg.ID,
		})
	})

	managed := s.router.Group("/", s.requireToken())
	managed.GET("/features", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"features": s.features.Snapshot()})
	})

	managed.GET("/mbeans", func(c *gin.Context) {
		names := s.mbeans.Names(strings.TrimSpace(c.Query("domain")))
		infos := make([]mbean.Info, 0, len(names))
		for _, name := range names {
			info, err := s.mbeans.Info(name)
			if err != nil {
				// unregistered between listing and describing
				continue
			}
			infos = append(infos, info)
		}
		c.JSON(http.StatusOK, gin.H{"mbeans": infos})
	})

	managed.GET("/mbeans/:name", func(c *gin.Context) {
		info, err := s.mbeans.Info(mbean.Name(c.Param("name")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	})

	managed.GET("/mbeans/:name/attributes/:attr", func(c *gin.Context) {
		name := mbean.Name(c.Param("name"))
		attr := c.Param("attr")
		value, err := s.mbeans.Attribute(name, attr)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": name, "attribute": attr, "value": value})
	})

	managed.POST("/mbeans/:name/operations/:op", func(c *gin.Context) {
		name := mbean.Name(c.Param("name"))
		op := c.Param("op")
		var req InvokeRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		result, err := s.mbeans.Operation(name, op, req.Args)
		if err != nil {
			log.Warn().
				Str("name", name.String()).
				Str("operation", op).
				Err(err).
				Msg("admin operation failed")
			writeError(c, err)
			return
		}
		log.Info().
			Str("name", name.String()).
			Str("operation", op).
			Msg("admin operation invoked")
		c.JSON(http.StatusOK, gin.H{"name": name, "operation": op, "result": result})
	})
}

// InvokeRequest is the body of an operation call.
type InvokeRequest struct {
	Args map[string]string `json:"args"`
}

func (s *Server) isReady() bool {
	if s.cfg.Ready != nil {
		return s.cfg.Ready()
	}
	_, ok := s.features.Lookup(feature.Ready)
	return ok
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Validator == nil {
			c.Next()
			return
		}
		token, _ := auth.BearerToken(c.GetHeader("Authorization"))
		if err := s.cfg.Validator.Validate(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// Serve listens on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	useTLS := s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != ""
	errCh := make(chan error, 1)
	go func() {
		if useTLS {
			errCh <- srv.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Bool("tls", useTLS).Msg("admin server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("admin server stopped")
	return nil
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mbean.ErrNotFound), errors.Is(err, mbean.ErrUnknownMember):
		status = http.StatusNotFound
	case errors.Is(err, mbean.ErrInvalidName):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
