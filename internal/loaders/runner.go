package loaders

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/mgmtd/internal/mbean"
	"github.com/danmuck/mgmtd/internal/observability"
	"github.com/rs/zerolog/log"
)

var (
	ErrLoaderPanic      = errors.New("loader panicked")
	ErrRunnerNotStarted = errors.New("runner not started")
)

// Runner executes one Loader's Load on its own goroutine.
//
// The result slot is written only by that goroutine and becomes visible
// to readers once done is closed.
type Runner struct {
	loader Loader
	id     string
	reg    mbean.Registrar
	root   mbean.Name

	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}

	top     mbean.Name
	err     error
	elapsed time.Duration
}

// Result is the collected outcome of one runner.
type Result struct {
	LoaderID string
	Top      mbean.Name
	Err      error
	Elapsed  time.Duration
}

func (r Result) OK() bool {
	return r.Err == nil
}

// NewRunner binds loader to the registrar and domain root of one cycle.
func NewRunner(loader Loader, reg mbean.Registrar, root mbean.Name) *Runner {
	return &Runner{
		loader: loader,
		id:     loader.Metadata().ID,
		reg:    reg,
		root:   root,
		done:   make(chan struct{}),
	}
}

func (r *Runner) LoaderID() string {
	return r.id
}

// Start launches the loader. Later calls are no-ops.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.run()
	})
}

// WaitDone blocks until the loader finished and returns its top-level
// handle. ok is false when the loader failed or was never started.
func (r *Runner) WaitDone() (mbean.Name, bool) {
	if !r.started.Load() {
		return "", false
	}
	<-r.done
	if r.err != nil {
		return "", false
	}
	return r.top, true
}

// Err blocks like WaitDone and returns the captured failure, if any.
func (r *Runner) Err() error {
	if !r.started.Load() {
		return fmt.Errorf("loader %s: %w", r.id, ErrRunnerNotStarted)
	}
	<-r.done
	return r.err
}

// Result blocks like WaitDone and returns the full outcome.
func (r *Runner) Result() Result {
	top, _ := r.WaitDone()
	res := Result{LoaderID: r.id, Top: top, Err: r.Err()}
	if r.started.Load() {
		res.Elapsed = r.elapsed
	}
	return res
}

func (r *Runner) run() {
	id := r.id
	start := time.Now()
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			r.top = ""
			r.err = fmt.Errorf("%w: %v", ErrLoaderPanic, p)
		}
		r.elapsed = time.Since(start)
		observability.RecordLoaderLoad(id, r.err == nil, r.elapsed)
		if r.err != nil {
			log.Error().
				Str("loader", id).
				Dur("elapsed", r.elapsed).
				Err(r.err).
				Msg("loaders.Runner loader failed")
			return
		}
		log.Debug().
			Str("loader", id).
			Str("top", r.top.String()).
			Dur("elapsed", r.elapsed).
			Msg("loaders.Runner loader done")
	}()

	log.Info().
		Str("loader", id).
		Str("root", r.root.String()).
		Msg("loaders.Runner loader starting")
	top, err := r.loader.Load(r.reg, r.root)
	if err != nil {
		r.err = fmt.Errorf("loader %s: %w", id, err)
		return
	}
	r.top = top
}

// StartAll starts runners in order.
func StartAll(runners []*Runner) {
	for _, runner := range runners {
		runner.Start()
	}
}

// WaitAll joins runners in start order.
func WaitAll(runners []*Runner) []Result {
	out := make([]Result, 0, len(runners))
	for _, runner := range runners {
		out = append(out, runner.Result())
	}
	return out
}
