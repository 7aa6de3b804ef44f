// Package pipeline drives a campaign run through its stages: searching for
// candidates, enriching them one at a time, and saving the resulting
// campaign. The run is an explicit ordered list of named steps; callers
// poll run snapshots for progress while the run executes in the background.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecletika/leadscope/internal/agent"
	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
	"github.com/ecletika/leadscope/pkg/metrics"
)

var (
	// ErrMissingCampaignName is returned when a run is started without a name.
	ErrMissingCampaignName = errors.New("campaign name is required")
	// ErrInvalidLeadLimit is returned when the limit is outside [1,max].
	ErrInvalidLeadLimit = errors.New("lead limit out of range")
	// ErrRunActive is returned when the user already has a run in flight.
	ErrRunActive = errors.New("a campaign run is already in progress")
	// ErrInactiveAccount is returned for deactivated accounts.
	ErrInactiveAccount = errors.New("account is deactivated")
	// ErrRunNotFound is returned for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// EventPublisher records run transitions on the durable event log.
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, event *model.RunEvent) (uint64, error)
}

// Archiver persists a completed campaign behind the in-memory store.
type Archiver interface {
	SaveCampaign(ctx context.Context, user *model.User, campaign *model.Campaign, leads []*model.Lead) error
}

// NopArchiver discards writes; used when no database is configured.
type NopArchiver struct{}

// SaveCampaign implements Archiver.
func (NopArchiver) SaveCampaign(context.Context, *model.User, *model.Campaign, []*model.Lead) error {
	return nil
}

// NopPublisher discards events; used in tests and when NATS is down.
type NopPublisher struct{}

// PublishRunEvent implements EventPublisher.
func (NopPublisher) PublishRunEvent(context.Context, *model.RunEvent) (uint64, error) {
	return 0, nil
}

// StartRequest carries the inputs of one campaign run.
type StartRequest struct {
	CampaignName string             `json:"campaign_name"`
	Params       model.SearchParams `json:"params"`
}

// Manager owns the run registry and executes runs. One run per user at a
// time; the guard also makes the credit spend safe against double submits.
type Manager struct {
	gateway      agent.Gateway
	store        *store.Store
	events       EventPublisher
	archive      Archiver
	logger       *logger.Logger
	runTimeout   time.Duration
	maxLeadLimit int
	runRetention time.Duration

	mu     sync.Mutex
	runs   map[string]*model.Run
	active map[string]string // userID -> runID
}

// Option tunes the manager.
type Option func(*Manager)

// WithRunTimeout bounds the wall-clock duration of one run.
func WithRunTimeout(d time.Duration) Option {
	return func(m *Manager) { m.runTimeout = d }
}

// WithMaxLeadLimit caps the per-run lead limit.
func WithMaxLeadLimit(n int) Option {
	return func(m *Manager) { m.maxLeadLimit = n }
}

// WithRunRetention sets how long a finished run stays pollable before it
// is dropped from the registry.
func WithRunRetention(d time.Duration) Option {
	return func(m *Manager) { m.runRetention = d }
}

// NewManager creates a run manager.
func NewManager(gateway agent.Gateway, st *store.Store, events EventPublisher, archive Archiver, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		gateway:      gateway,
		store:        st,
		events:       events,
		archive:      archive,
		logger:       log,
		runTimeout:   10 * time.Minute,
		maxLeadLimit: 10,
		runRetention: time.Hour,
		runs:         make(map[string]*model.Run),
		active:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start validates the request, charges one credit and launches the run in
// the background. Validation failures happen before any credit movement.
func (m *Manager) Start(ctx context.Context, userID string, req StartRequest) (*model.Run, error) {
	if req.CampaignName == "" {
		return nil, ErrMissingCampaignName
	}
	if req.Params.LeadLimit == 0 {
		req.Params.LeadLimit = 3
	}
	if req.Params.LeadLimit < 1 || req.Params.LeadLimit > m.maxLeadLimit {
		return nil, ErrInvalidLeadLimit
	}

	user, err := m.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user.Status == model.UserInactive {
		return nil, ErrInactiveAccount
	}

	m.mu.Lock()
	if _, busy := m.active[userID]; busy {
		m.mu.Unlock()
		return nil, ErrRunActive
	}

	// Charge inside the guard so two submissions cannot both pass the
	// balance check.
	if err := m.store.SpendCredit(userID); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	metrics.CreditsTotal.WithLabelValues("consumed").Inc()

	run := &model.Run{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       userID,
		CampaignName: req.CampaignName,
		Params:       req.Params,
		Stage:        model.StageSearching,
		Steps: []model.Step{
			{Name: model.StepSearch, Status: model.StepPending},
			{Name: model.StepEnrich, Status: model.StepPending},
			{Name: model.StepSave, Status: model.StepPending},
		},
		StartedAt: time.Now(),
	}
	m.runs[run.ID] = run
	m.active[userID] = run.ID
	m.mu.Unlock()

	metrics.ActiveRuns.Inc()

	go m.execute(run.ID)

	return run.Clone(), nil
}

// GetRun returns a snapshot of the run.
func (m *Manager) GetRun(id string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run.Clone(), nil
}

// execute drives the run to completion. The top-level recover mirrors the
// catch-all failure semantics: the run always ends at finished, with the
// failing step marked and the error recorded; no partial rollback.
func (m *Manager) execute(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.runTimeout)
	defer cancel()

	m.mu.Lock()
	run := m.runs[runID]
	m.mu.Unlock()

	log := m.logger.WithRun(run.ID, run.UserID)
	start := time.Now()
	outcome := "completed"

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", zap.Any("panic", r))
			m.failRun(ctx, runID, fmt.Errorf("internal error: %v", r))
			outcome = "failed"
		}

		m.mu.Lock()
		now := time.Now()
		run.FinishedAt = &now
		run.Stage = model.StageFinished
		if run.Error != "" && outcome == "completed" {
			outcome = "failed"
		}
		if run.Refunded {
			outcome = "empty"
		}
		delete(m.active, run.UserID)
		m.mu.Unlock()

		metrics.ActiveRuns.Dec()
		metrics.RecordRun(outcome, time.Since(start).Seconds())
		m.publish(ctx, run, model.EventDone, "", "", run.Error)
		log.Info("run finished", zap.String("outcome", outcome), zap.Int("leads", len(run.LeadIDs)))

		// The run stays pollable for a grace window, then leaves the
		// registry; its durable trace is the event log.
		time.AfterFunc(m.runRetention, func() {
			m.mu.Lock()
			delete(m.runs, runID)
			m.mu.Unlock()
		})
	}()

	// Search stage: one gateway call for candidates.
	m.setStep(ctx, run, model.StepSearch, model.StepRunning, "searching for businesses")

	raws, err := m.gateway.SearchProspects(ctx, run.Params, run.CampaignName)
	if err != nil {
		m.failRun(ctx, runID, fmt.Errorf("search: %w", err))
		return
	}
	if len(raws) == 0 {
		// Soft failure: a valid "no results" outcome. The credit goes back.
		m.setStep(ctx, run, model.StepSearch, model.StepFailed, "no businesses matched the criteria")
		if err := m.store.RefundCredit(run.UserID); err != nil {
			log.Error("credit refund failed", zap.Error(err))
		} else {
			metrics.CreditsTotal.WithLabelValues("refunded").Inc()
			m.mu.Lock()
			run.Refunded = true
			m.mu.Unlock()
		}
		return
	}

	m.setStep(ctx, run, model.StepSearch, model.StepDone,
		fmt.Sprintf("%d candidates found, analyzing top %d", len(raws), run.Params.LeadLimit))

	// Analyze stage: sequential enrichment, one awaited call per candidate.
	// A discarded candidate does not count toward the limit.
	m.mu.Lock()
	run.Stage = model.StageAnalyzing
	m.mu.Unlock()
	m.setStep(ctx, run, model.StepEnrich, model.StepRunning, "validating candidates")

	var leads []*model.Lead
	for _, raw := range raws {
		if len(leads) >= run.Params.LeadLimit {
			break
		}

		lead, err := m.gateway.EnrichProspect(ctx, raw)
		if err != nil {
			m.failRun(ctx, runID, fmt.Errorf("enrich %q: %w", raw.CompanyName, err))
			return
		}
		if lead == nil {
			// Could not be validated as a real business.
			metrics.LeadsEnrichedTotal.WithLabelValues("discarded").Inc()
			continue
		}

		metrics.LeadsEnrichedTotal.WithLabelValues("accepted").Inc()
		m.store.PutLead(lead)
		leads = append(leads, lead)

		m.mu.Lock()
		run.LeadIDs = append(run.LeadIDs, lead.ID)
		m.mu.Unlock()
		m.publish(ctx, run, model.EventLead, "", lead.ID, lead.CompanyName)
	}

	m.setStep(ctx, run, model.StepEnrich, model.StepDone,
		fmt.Sprintf("%d of %d candidates accepted", len(leads), len(raws)))

	// Save stage: build the campaign and persist everything.
	m.setStep(ctx, run, model.StepSave, model.StepRunning, "saving campaign")

	campaign := &model.Campaign{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    run.UserID,
		Name:      run.CampaignName,
		Location:  orDefault(run.Params.Location, "General"),
		Niche:     orDefault(run.Params.Niche, "Various"),
		CreatedAt: time.Now(),
		LeadIDs:   append([]string(nil), runLeadIDs(m, run)...),
	}

	for _, id := range campaign.LeadIDs {
		if _, err := m.store.UpdateLead(id, func(l *model.Lead) error {
			l.CampaignID = campaign.ID
			return nil
		}); err != nil {
			m.failRun(ctx, runID, fmt.Errorf("attach lead %s: %w", id, err))
			return
		}
	}
	leads = m.store.Leads(campaign.LeadIDs)

	if err := m.store.PutCampaign(campaign); err != nil {
		m.failRun(ctx, runID, fmt.Errorf("save campaign: %w", err))
		return
	}

	user, err := m.store.GetUser(run.UserID)
	if err != nil {
		m.failRun(ctx, runID, fmt.Errorf("load user: %w", err))
		return
	}
	if err := m.archive.SaveCampaign(ctx, user, campaign, leads); err != nil {
		m.failRun(ctx, runID, fmt.Errorf("persist campaign: %w", err))
		return
	}

	m.mu.Lock()
	run.CampaignID = campaign.ID
	m.mu.Unlock()
	m.setStep(ctx, run, model.StepSave, model.StepDone, "campaign saved")
}

// runLeadIDs snapshots the run's lead IDs under the lock.
func runLeadIDs(m *Manager, run *model.Run) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), run.LeadIDs...)
}

// setStep transitions a step and records the event.
func (m *Manager) setStep(ctx context.Context, run *model.Run, name string, status model.StepStatus, message string) {
	m.mu.Lock()
	step := run.Step(name)
	if step != nil {
		now := time.Now()
		if status == model.StepRunning && step.StartedAt == nil {
			step.StartedAt = &now
		}
		if status == model.StepDone || status == model.StepFailed {
			step.EndedAt = &now
		}
		step.Status = status
		step.Message = message
	}
	m.mu.Unlock()

	m.publish(ctx, run, model.EventStep, name, "", message)
}

// failRun marks the currently running step as failed and records the error.
func (m *Manager) failRun(ctx context.Context, runID string, err error) {
	m.mu.Lock()
	run := m.runs[runID]
	run.Error = err.Error()
	var failed string
	for i := range run.Steps {
		if run.Steps[i].Status == model.StepRunning {
			now := time.Now()
			run.Steps[i].Status = model.StepFailed
			run.Steps[i].Message = err.Error()
			run.Steps[i].EndedAt = &now
			failed = run.Steps[i].Name
		}
	}
	m.mu.Unlock()

	m.logger.WithRun(run.ID, run.UserID).Error("run failed", zap.String("step", failed), zap.Error(err))
	m.publish(ctx, run, model.EventStep, failed, "", err.Error())
}

// publish records a run event; delivery is best effort.
func (m *Manager) publish(ctx context.Context, run *model.Run, typ model.RunEventType, step, leadID, message string) {
	event := &model.RunEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		RunID:     run.ID,
		UserID:    run.UserID,
		Type:      typ,
		Step:      step,
		LeadID:    leadID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if step != "" {
		m.mu.Lock()
		if s := run.Step(step); s != nil {
			event.Status = s.Status
		}
		m.mu.Unlock()
	}

	if _, err := m.events.PublishRunEvent(ctx, event); err != nil {
		m.logger.Warn("event publish failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
