// Package agent layers typed prospecting operations on top of the LLM
// client. Each operation is a single request/response gateway call with a
// typed input/output contract; there is no autonomy or message passing here.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecletika/leadscope/internal/llm"
	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/pkg/logger"
	"github.com/ecletika/leadscope/pkg/metrics"
)

// Gateway is the contract the pipeline and services call against. An
// implementation performs one external generation call per method.
type Gateway interface {
	// SearchProspects finds candidate businesses. An empty slice is a valid
	// "no results" response, not an error.
	SearchProspects(ctx context.Context, params model.SearchParams, campaignName string) ([]model.RawProspect, error)

	// EnrichProspect validates and enriches a candidate. A nil lead with a
	// nil error means the candidate could not be validated as a real
	// business and must be discarded.
	EnrichProspect(ctx context.Context, raw model.RawProspect) (*model.Lead, error)

	// InvestigateStorefront assesses the lead's physical premises and
	// returns registry/maps updates discovered along the way.
	InvestigateStorefront(ctx context.Context, lead *model.Lead) (*Investigation, error)

	// GenerateProposal writes the full commercial proposal text.
	GenerateProposal(ctx context.Context, lead *model.Lead) (string, error)

	// GenerateOutreach writes the four-step outreach email sequence.
	GenerateOutreach(ctx context.Context, lead *model.Lead) ([]model.EmailDraft, error)

	// GenerateWebsite produces a single-file landing page for the lead.
	GenerateWebsite(ctx context.Context, lead *model.Lead) (string, error)

	// RefineWebsite applies a natural-language instruction to existing code.
	RefineWebsite(ctx context.Context, code, instruction string) (string, error)

	// AskAboutLead answers a free-form question about a lead given the
	// prior transcript. The caller owns appending to the transcript.
	AskAboutLead(ctx context.Context, lead *model.Lead, question string, history []model.ChatMessage) (string, error)
}

// Investigation is the outcome of a storefront investigation: the visual
// assessment plus partial lead fields discovered during it.
type Investigation struct {
	Analysis    model.Storefront  `json:"analysis"`
	LeadUpdates InvestigationData `json:"lead_updates"`
}

// InvestigationData carries partial lead fields; zero values are ignored
// when merging.
type InvestigationData struct {
	BusinessHours string   `json:"business_hours,omitempty"`
	MapsRating    float64  `json:"maps_rating,omitempty"`
	MapsReviews   int      `json:"maps_reviews,omitempty"`
	AllPhones     []string `json:"all_phones,omitempty"`
}

// LLMGateway implements Gateway over an llm.Client.
type LLMGateway struct {
	client llm.Client
	model  string
	logger *logger.Logger
}

// NewLLMGateway creates a gateway bound to one provider. model may be empty
// to use the provider default.
func NewLLMGateway(client llm.Client, model string, log *logger.Logger) *LLMGateway {
	return &LLMGateway{client: client, model: model, logger: log}
}

// complete performs one gateway call and records metrics for it.
func (g *LLMGateway) complete(ctx context.Context, operation, system, prompt string, temperature float64) (string, error) {
	start := time.Now()

	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		Model:       g.model,
		System:      system,
		Messages:    []llm.ChatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	})

	status := "success"
	if err != nil {
		status = "error"
		metrics.RecordLLMCall(g.client.Name(), operation, status, time.Since(start).Seconds(), 0, 0)
		return "", fmt.Errorf("%s call failed: %w", operation, err)
	}

	metrics.RecordLLMCall(g.client.Name(), operation, status, time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	g.logger.Debug("gateway call completed",
		zap.String("operation", operation),
		zap.Int64("latency_ms", resp.LatencyMs),
		zap.Int("tokens_out", resp.TokensOut),
	)

	return resp.Content, nil
}

// SearchProspects implements Gateway.
func (g *LLMGateway) SearchProspects(ctx context.Context, params model.SearchParams, campaignName string) ([]model.RawProspect, error) {
	content, err := g.complete(ctx, "search", searchSystem, searchPrompt(params, campaignName), 0.4)
	if err != nil {
		return nil, err
	}

	var raws []model.RawProspect
	if err := decodeJSON(content, &raws); err != nil {
		return nil, fmt.Errorf("search response: %w", err)
	}
	return raws, nil
}

// enrichmentPayload is the wire shape of the enrichment response. Valid set
// to false signals "not a real business".
type enrichmentPayload struct {
	Valid bool       `json:"valid"`
	Lead  model.Lead `json:"lead"`
}

// EnrichProspect implements Gateway.
func (g *LLMGateway) EnrichProspect(ctx context.Context, raw model.RawProspect) (*model.Lead, error) {
	content, err := g.complete(ctx, "enrich", enrichSystem, enrichPrompt(raw), 0.2)
	if err != nil {
		return nil, err
	}

	var payload enrichmentPayload
	if err := decodeJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("enrichment response: %w", err)
	}
	if !payload.Valid {
		return nil, nil
	}

	lead := payload.Lead
	lead.ID = uuid.Must(uuid.NewV7()).String()
	if lead.CompanyName == "" {
		lead.CompanyName = raw.CompanyName
	}
	if lead.Location == "" {
		lead.Location = raw.Location
	}
	if lead.Email == "" {
		lead.Email = raw.Email
	}
	if lead.Phone == "" {
		lead.Phone = raw.Phone
	}
	if lead.Website == "" {
		lead.Website = raw.Website
	}
	lead.HasWebsite = lead.Website != ""
	lead.ProfessionalEmail = model.IsProfessionalEmail(lead.Email)
	if !lead.Potential.Valid() {
		lead.Potential = model.PotentialMedium
	}
	if lead.WebsiteScore < 0 {
		lead.WebsiteScore = 0
	}
	if lead.WebsiteScore > 10 {
		lead.WebsiteScore = 10
	}
	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	return &lead, nil
}

// InvestigateStorefront implements Gateway.
func (g *LLMGateway) InvestigateStorefront(ctx context.Context, lead *model.Lead) (*Investigation, error) {
	content, err := g.complete(ctx, "investigate", investigateSystem, investigatePrompt(lead), 0.3)
	if err != nil {
		return nil, err
	}

	var inv Investigation
	if err := decodeJSON(content, &inv); err != nil {
		return nil, fmt.Errorf("investigation response: %w", err)
	}
	inv.Analysis.Analyzed = true
	return &inv, nil
}

// GenerateProposal implements Gateway.
func (g *LLMGateway) GenerateProposal(ctx context.Context, lead *model.Lead) (string, error) {
	return g.complete(ctx, "proposal", proposalSystem, proposalPrompt(lead), 0.7)
}

// GenerateOutreach implements Gateway.
func (g *LLMGateway) GenerateOutreach(ctx context.Context, lead *model.Lead) ([]model.EmailDraft, error) {
	content, err := g.complete(ctx, "outreach", outreachSystem, outreachPrompt(lead), 0.7)
	if err != nil {
		return nil, err
	}

	var drafts []model.EmailDraft
	if err := decodeJSON(content, &drafts); err != nil {
		return nil, fmt.Errorf("outreach response: %w", err)
	}
	for i := range drafts {
		drafts[i].ID = uuid.Must(uuid.NewV7()).String()
		drafts[i].Step = i + 1
		drafts[i].Status = "draft"
	}
	return drafts, nil
}

// GenerateWebsite implements Gateway.
func (g *LLMGateway) GenerateWebsite(ctx context.Context, lead *model.Lead) (string, error) {
	content, err := g.complete(ctx, "website", websiteSystem, websitePrompt(lead), 0.5)
	if err != nil {
		return "", err
	}
	return stripCodeFence(content), nil
}

// RefineWebsite implements Gateway.
func (g *LLMGateway) RefineWebsite(ctx context.Context, code, instruction string) (string, error) {
	content, err := g.complete(ctx, "refine", websiteSystem, refinePrompt(code, instruction), 0.5)
	if err != nil {
		return "", err
	}
	return stripCodeFence(content), nil
}

// AskAboutLead implements Gateway.
func (g *LLMGateway) AskAboutLead(ctx context.Context, lead *model.Lead, question string, history []model.ChatMessage) (string, error) {
	start := time.Now()

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: question})

	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		Model:       g.model,
		System:      chatSystem(lead),
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		metrics.RecordLLMCall(g.client.Name(), "chat", "error", time.Since(start).Seconds(), 0, 0)
		return "", fmt.Errorf("chat call failed: %w", err)
	}

	metrics.RecordLLMCall(g.client.Name(), "chat", "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return strings.TrimSpace(resp.Content), nil
}
