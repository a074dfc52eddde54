package startup

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/mgmtd/internal/feature"
	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/mbean"
	"github.com/danmuck/mgmtd/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var ErrAlreadyStarted = errors.New("startup: service already started")

// Deps are the collaborators a Service drives. Nil fields get fresh
// instances.
type Deps struct {
	Server   *mbean.Server
	Features *feature.Registry
	Loaders  *loaders.Registry
}

// Service owns the lifecycle of the management tree.
type Service struct {
	cfg      Config
	server   *mbean.Server
	tracker  *mbean.Tracker
	features *feature.Registry
	loaders  *loaders.Registry

	// mu admits one bring-up or teardown at a time.
	mu     sync.Mutex
	flight singleflight.Group

	started atomic.Bool

	statusMu sync.RWMutex
	status   Status
}

// NewService wires cfg and deps. It does not register anything; call Start.
func NewService(cfg Config, deps Deps) *Service {
	if deps.Server == nil {
		deps.Server = mbean.NewServer()
	}
	if deps.Features == nil {
		deps.Features = feature.NewRegistry()
	}
	if deps.Loaders == nil {
		deps.Loaders = loaders.NewRegistry()
	}
	tracker := mbean.NewTracker()
	tracker.Attach(deps.Server)

	return &Service{
		cfg:      cfg,
		server:   deps.Server,
		tracker:  tracker,
		features: deps.Features,
		loaders:  deps.Loaders,
		status: Status{
			ServiceID: cfg.ID,
			Phase:     PhaseNotLoaded,
		},
	}
}

func (s *Service) Server() *mbean.Server {
	return s.server
}

func (s *Service) Features() *feature.Registry {
	return s.features
}

func (s *Service) Loaders() *loaders.Registry {
	return s.loaders
}

func (s *Service) Tracker() *mbean.Tracker {
	return s.tracker
}

// Start registers the service and the tracker as managed objects.
// Any failure here is fatal to the process.
func (s *Service) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if _, err := s.server.Register(s.managed(), ServiceObjectName); err != nil {
		s.started.Store(false)
		return fmt.Errorf("startup: register service: %w", err)
	}
	if _, err := s.server.Register(s.tracker, TrackerObjectName); err != nil {
		_ = s.server.Unregister(ServiceObjectName)
		s.started.Store(false)
		return fmt.Errorf("startup: register tracker: %w", err)
	}
	observability.SetPhase(string(PhaseNotLoaded), allPhases)
	log.Info().
		Str("service", s.cfg.ID).
		Int("loaders", s.loaders.Len()).
		Msg("startup.Service started")
	return nil
}

// Stop tears the tree down and removes the support objects.
func (s *Service) Stop() {
	log.Info().Str("service", s.cfg.ID).Msg("startup.Service stopping")
	s.EnsureUnloaded()
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	for _, name := range []mbean.Name{TrackerObjectName, ServiceObjectName} {
		if err := s.server.Unregister(name); err != nil {
			log.Warn().Err(err).Str("name", name.String()).Msg("startup.Service stop unregister failed")
		}
	}
}

// EnsureLoaded returns the domain root, running a bring-up cycle first
// when none exists. Concurrent callers share one cycle. The error is
// non-nil only when the core tree could not be registered; loader
// failures are logged and otherwise ignored.
func (s *Service) EnsureLoaded() (mbean.Name, error) {
	if root, ok := s.server.Find(DomainRootName); ok {
		return root, nil
	}
	v, err, shared := s.flight.Do("bring-up", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if root, ok := s.server.Find(DomainRootName); ok {
			return root, nil
		}
		return s.bringUp()
	})
	if err != nil {
		return "", err
	}
	root := v.(mbean.Name)
	if shared {
		log.Debug().Str("root", root.String()).Msg("startup.Service joined in-flight bring-up")
	}
	return root, nil
}

func (s *Service) bringUp() (root mbean.Name, err error) {
	start := time.Now()
	cycleID := uuid.NewString()

	s.setPhase(PhaseCoreLoading)
	root, err = loadCore(s.server, cycleID, start)
	if err != nil {
		s.setPhase(PhaseNotLoaded)
		observability.RecordBringUp("core_failed", time.Since(start))
		log.Error().Err(err).Str("cycle", cycleID).Msg("startup.Service core load failed")
		return "", fmt.Errorf("startup: core load: %w", err)
	}

	s.statusMu.Lock()
	s.status.Cycle++
	s.status.CycleID = cycleID
	s.status.DomainRoot = root
	s.status.LoadedAt = start
	s.status.Loaders = 0
	s.status.Failed = 0
	s.statusMu.Unlock()
	s.setPhase(PhaseCoreReady)
	log.Info().Str("root", root.String()).Str("cycle", cycleID).Msg("startup.Service core ready")
	s.features.Publish(feature.CoreReady, root)

	var (
		runners []*loaders.Runner
		results []loaders.Result
	)
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Str("cycle", cycleID).
				Interface("panic", p).
				Msg("startup.Service subsystem load aborted")
		}
		for _, r := range runners[len(results):] {
			results = append(results, r.Result())
		}
		failed := 0
		for _, res := range results {
			if !res.OK() {
				failed++
			}
		}

		s.statusMu.Lock()
		s.status.Loaders = len(results)
		s.status.Failed = failed
		s.statusMu.Unlock()
		s.setPhase(PhaseReady)

		outcome := "ok"
		if failed > 0 {
			outcome = "partial"
		}
		observability.RecordBringUp(outcome, time.Since(start))
		log.Info().
			Str("root", root.String()).
			Str("cycle", cycleID).
			Int("loaders", len(results)).
			Int("failed", failed).
			Dur("elapsed", time.Since(start)).
			Msg("startup.Service ready")
		s.features.Publish(feature.Ready, root)
	}()

	s.setPhase(PhaseSubsystemsLoading)
	all := s.loaders.All()
	runners = make([]*loaders.Runner, 0, len(all))
	for _, loader := range all {
		runners = append(runners, loaders.NewRunner(loader, s.server, root))
	}
	loaders.StartAll(runners)
	results = loaders.WaitAll(runners)
	return root, nil
}

// EnsureUnloaded unloads every loader and removes the tree below the
// domain root. It does nothing when no domain root is registered.
func (s *Service) EnsureUnloaded() {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.server.Find(DomainRootName)
	if !ok {
		log.Debug().Msg("startup.Service unload skipped, nothing loaded")
		return
	}
	s.setPhase(PhaseUnloading)
	for _, loader := range s.loaders.All() {
		s.unloadOne(loader)
	}
	if err := mbean.UnregisterTree(s.server, s.tracker, root); err != nil {
		log.Warn().Err(err).Str("root", root.String()).Msg("startup.Service tree removal incomplete")
	}

	s.statusMu.Lock()
	s.status.DomainRoot = ""
	s.status.LoadedAt = time.Time{}
	s.statusMu.Unlock()
	s.setPhase(PhaseNotLoaded)
	log.Info().Str("root", root.String()).Msg("startup.Service unloaded")
}

func (s *Service) unloadOne(loader loaders.Loader) {
	id := loader.Metadata().ID
	defer func() {
		if p := recover(); p != nil {
			observability.RecordLoaderUnload(id, false)
			log.Error().Str("loader", id).Interface("panic", p).Msg("startup.Service loader unload panicked")
		}
	}()
	if err := loader.Unload(s.server); err != nil {
		observability.RecordLoaderUnload(id, false)
		log.Error().Str("loader", id).Err(err).Msg("startup.Service loader unload failed")
		return
	}
	observability.RecordLoaderUnload(id, true)
}

// DomainRoot returns the current domain root, if the tree is loaded.
func (s *Service) DomainRoot() (mbean.Name, bool) {
	return s.server.Find(DomainRootName)
}

// ServiceURLs lists the endpoints remote clients use to reach the tree.
func (s *Service) ServiceURLs() []string {
	if len(s.cfg.ServiceURLs) > 0 {
		out := make([]string, len(s.cfg.ServiceURLs))
		copy(out, s.cfg.ServiceURLs)
		return out
	}
	addr := strings.TrimSpace(s.cfg.AdminAddr)
	if addr == "" {
		return []string{}
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	scheme := "http://"
	if s.cfg.AdminTLS() {
		scheme = "https://"
	}
	return []string{scheme + addr}
}

func (s *Service) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// IsReady reports whether the last cycle finished and the tree is still up.
func (s *Service) IsReady() bool {
	return s.Status().Phase == PhaseReady
}

func (s *Service) setPhase(phase Phase) {
	s.statusMu.Lock()
	s.status.Phase = phase
	s.statusMu.Unlock()
	observability.SetPhase(string(phase), allPhases)
}
