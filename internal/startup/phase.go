package startup

import (
	"time"

	"github.com/danmuck/mgmtd/internal/mbean"
)

// Phase is the bring-up state of the management subsystem.
type Phase string

const (
	PhaseNotLoaded         Phase = "not_loaded"
	PhaseCoreLoading       Phase = "core_loading"
	PhaseCoreReady         Phase = "core_ready"
	PhaseSubsystemsLoading Phase = "subsystems_loading"
	PhaseReady             Phase = "ready"
	PhaseUnloading         Phase = "unloading"
)

var allPhases = []string{
	string(PhaseNotLoaded),
	string(PhaseCoreLoading),
	string(PhaseCoreReady),
	string(PhaseSubsystemsLoading),
	string(PhaseReady),
	string(PhaseUnloading),
}

// Status is a point-in-time view of the service.
type Status struct {
	ServiceID  string     `json:"service_id"`
	Phase      Phase      `json:"phase"`
	DomainRoot mbean.Name `json:"domain_root,omitempty"`
	Cycle      uint64     `json:"cycle"`
	CycleID    string     `json:"cycle_id,omitempty"`
	Loaders    int        `json:"loaders"`
	Failed     int        `json:"failed"`
	LoadedAt   time.Time  `json:"loaded_at,omitzero"`
}
