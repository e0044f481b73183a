package operations

import (
	"sync"
	"time"

	"hinosemi/internal/index"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run step names.
const (
	StepFetch   = "fetch"
	StepBuild   = "build"
	StepWrite   = "write"
	StepPublish = "publish"
)

// ExclusionSummary explains why an instrument did not contribute.
type ExclusionSummary struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// RunSummary describes a finished run.
type RunSummary struct {
	ID            string             `json:"id"`
	Status        RunStatus          `json:"status"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
	Snapshot      *index.Snapshot    `json:"snapshot,omitempty"`
	Points        int                `json:"points"`
	Threshold     int                `json:"coverage_threshold"`
	CoverageGaps  int                `json:"coverage_gaps"`
	Contributors  []string           `json:"contributors"`
	Excluded      []ExclusionSummary `json:"excluded"`
	PublishErrors []string           `json:"publish_errors,omitempty"`
	Error         string             `json:"error,omitempty"`
	ErrorType     ErrorType          `json:"error_type,omitempty"`

	series index.IndexSeries
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Series returns the smoothed series of a successful run.
func (s *RunSummary) Series() index.IndexSeries {
	return s.series
}

// StateView is a consistent copy of State.
type StateView struct {
	Running     bool        `json:"running"`
	CurrentRun  string      `json:"current_run,omitempty"`
	Runs        int         `json:"runs"`
	Failures    int         `json:"failures"`
	Last        *RunSummary `json:"last,omitempty"`
	LastSuccess *RunSummary `json:"last_success,omitempty"`
}

// State tracks run history for health and status endpoints.
type State struct {
	mu          sync.RWMutex
	current     string
	runs        int
	failures    int
	last        *RunSummary
	lastSuccess *RunSummary
}

// NewState creates an empty state.
func NewState() *State {
	return &State{}
}

// Begin marks run id as in progress. It returns false if another run is active.
func (s *State) Begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != "" {
		return false
	}
	s.current = id
	return true
}

// Finish records the summary of the current run.
func (s *State) Finish(summary *RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	s.runs++
	s.last = summary
	if summary.Status == RunStatusSucceeded {
		s.lastSuccess = summary
	} else {
		s.failures++
	}
}

// View returns a copy of the state.
func (s *State) View() StateView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateView{
		Running:     s.current != "",
		CurrentRun:  s.current,
		Runs:        s.runs,
		Failures:    s.failures,
		Last:        s.last,
		LastSuccess: s.lastSuccess,
	}
}

// LastSuccess returns the latest successful run, if any.
func (s *State) LastSuccess() (*RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccess, s.lastSuccess != nil
}
