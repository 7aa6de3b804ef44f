package model

import (
	"time"
)

// Stage is the coarse state of a campaign run.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageSearching Stage = "searching"
	StageAnalyzing Stage = "analyzing"
	StageFinished  Stage = "finished"
)

// StepStatus is the state of one named pipeline step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// Well-known step names, in execution order.
const (
	StepSearch = "search"
	StepEnrich = "enrich"
	StepSave   = "save"
)

// Step is one stage of the pipeline with its state and an optional
// human-readable message shown next to the progress indicator.
type Step struct {
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SearchParams are the user-supplied inputs of a run. LeadLimit is bounded
// to [1,10]; Location, Niche and Context are each optional but at least one
// search term (the campaign name counts) must be present.
type SearchParams struct {
	Location  string `json:"location"`
	Niche     string `json:"niche"`
	Context   string `json:"context"`
	LeadLimit int    `json:"lead_limit"`
}

// Run tracks one campaign execution from start to finish. Runs are
// transient: they live in the in-memory registry for the duration of a
// session and are not persisted.
type Run struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	CampaignName string       `json:"campaign_name"`
	Params       SearchParams `json:"params"`
	Stage        Stage        `json:"stage"`
	Steps        []Step       `json:"steps"`
	LeadIDs      []string     `json:"lead_ids"`
	CampaignID   string       `json:"campaign_id,omitempty"`
	Error        string       `json:"error,omitempty"`
	Refunded     bool         `json:"refunded,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Clone returns a copy safe to hand to callers while the run mutates.
func (r *Run) Clone() *Run {
	c := *r
	c.Steps = append([]Step(nil), r.Steps...)
	c.LeadIDs = append([]string(nil), r.LeadIDs...)
	return &c
}

// Step returns the step with the given name, or nil.
func (r *Run) Step(name string) *Step {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// RunEventType labels a durable run event.
type RunEventType string

const (
	EventStep RunEventType = "step"
	EventLead RunEventType = "lead"
	EventDone RunEventType = "done"
)

// RunEvent is the durable record of a pipeline transition, published to
// JetStream for audit and progress history.
type RunEvent struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	UserID    string       `json:"user_id"`
	Type      RunEventType `json:"type"`
	Step      string       `json:"step,omitempty"`
	Status    StepStatus   `json:"status,omitempty"`
	Message   string       `json:"message,omitempty"`
	LeadID    string       `json:"lead_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Sequence  uint64       `json:"sequence,omitempty"`
}
