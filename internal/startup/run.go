package startup

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/mgmtd/internal/admin"
	"github.com/danmuck/mgmtd/internal/auth"
	"github.com/rs/zerolog/log"
)

var ErrInvalidHeartbeatInterval = errors.New("startup: invalid heartbeat interval")

// Run is Serve until parent is done or SIGINT or SIGTERM arrives.
func (s *Service) Run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve starts the service, optionally loads the tree, serves the admin
// façade and logs a heartbeat until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	if s.cfg.LoadOnStart {
		if _, err := s.EnsureLoaded(); err != nil {
			return err
		}
	}

	adminCtx, cancelAdmin := context.WithCancel(ctx)
	defer cancelAdmin()
	adminErr := make(chan error, 1)
	adminRunning := false
	if addr := strings.TrimSpace(s.cfg.AdminAddr); addr != "" {
		srv := admin.Appear(s.adminConfig(addr), s.server, s.features)
		adminRunning = true
		go func() {
			adminErr <- srv.Serve(adminCtx)
		}()
	}

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("service", s.cfg.ID).Msg("startup.Service shutdown")
			if adminRunning {
				cancelAdmin()
				if err := <-adminErr; err != nil {
					log.Warn().Err(err).Msg("startup.Service admin shutdown failed")
				}
			}
			return nil
		case err := <-adminErr:
			adminRunning = false
			if err != nil {
				return err
			}
		case <-ticker.C:
			status := s.Status()
			log.Info().
				Str("service", status.ServiceID).
				Str("phase", string(status.Phase)).
				Uint64("cycle", status.Cycle).
				Int("loaders", s.loaders.Len()).
				Int("failed", status.Failed).
				Int("objects", s.server.Count()).
				Msg("startup.Service heartbeat")
		}
	}
}

func (s *Service) adminConfig(addr string) admin.Config {
	cfg := admin.Config{
		ID:          s.cfg.ID,
		Addr:        addr,
		CorsOrigins: s.cfg.CorsOrigins,
		TLSCertFile: s.cfg.AdminTLSCert,
		TLSKeyFile:  s.cfg.AdminTLSKey,
		Ready:       s.IsReady,
	}
	if token := strings.TrimSpace(s.cfg.AdminToken); token != "" {
		cfg.Validator = auth.StaticToken{Token: token}
	}
	return cfg
}
