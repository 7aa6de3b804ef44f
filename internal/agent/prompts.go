package agent

import (
	"fmt"
	"strings"

	"github.com/ecletika/leadscope/internal/model"
)

const searchSystem = `You are a business prospecting researcher. Respond with a JSON array only, no prose. Each element: {"company_name","location","website","email","phone"}. Omit businesses you cannot verify. Return [] when nothing matches.`

func searchPrompt(params model.SearchParams, campaignName string) string {
	var b strings.Builder
	b.WriteString("Find local businesses matching these criteria.\n")
	if params.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", params.Location)
	}
	if params.Niche != "" {
		fmt.Fprintf(&b, "Niche: %s\n", params.Niche)
	}
	if params.Context != "" {
		fmt.Fprintf(&b, "Additional context: %s\n", params.Context)
	}
	fmt.Fprintf(&b, "Campaign: %s\n", campaignName)
	fmt.Fprintf(&b, "Return up to %d candidates.", params.LeadLimit*3)
	return b.String()
}

const enrichSystem = `You validate and enrich business records. Respond with JSON only:
{"valid": bool, "lead": {"company_name","location","niche","website","email","phone","all_phones":[],"socials":[],"nif","cae","secondary_cae":[],"business_activity","foundation_year","employees","business_hours","services_offered":[],"social_summary","maps_rating":0,"maps_reviews":0,"website_score":0,"diagnosis","potential":"Hot|Medium|Cold","potential_reasoning"}}.
Set valid to false when the record cannot be confirmed as a real operating business.`

func enrichPrompt(raw model.RawProspect) string {
	return fmt.Sprintf(
		"Validate and enrich this candidate:\nCompany: %s\nLocation: %s\nWebsite: %s\nEmail: %s\nPhone: %s",
		raw.CompanyName, raw.Location, raw.Website, raw.Email, raw.Phone,
	)
}

const investigateSystem = `You assess the physical storefront of a business. Respond with JSON only:
{"analysis":{"signage_condition","visual_appeal","needs_led_upgrade":bool,"description","address"},"lead_updates":{"business_hours","maps_rating":0,"maps_reviews":0,"all_phones":[]}}.`

func investigatePrompt(lead *model.Lead) string {
	return fmt.Sprintf(
		"Assess the storefront and public listing data of %s (%s). Known website: %s. Known rating: %.1f (%d reviews).",
		lead.CompanyName, lead.Location, lead.Website, lead.MapsRating, lead.MapsReviews,
	)
}

const proposalSystem = `You write concise commercial proposals for digital-presence upgrades. Respond with the full proposal text in markdown, no surrounding commentary.`

func proposalPrompt(lead *model.Lead) string {
	return fmt.Sprintf(
		"Write a commercial proposal for %s (%s, %s).\nDiagnosis: %s\nWebsite score: %d/10. Potential: %s (%s).",
		lead.CompanyName, lead.Location, lead.Niche,
		lead.Diagnosis, lead.WebsiteScore, lead.Potential, lead.PotentialReasoning,
	)
}

const outreachSystem = `You write cold outreach sequences. Respond with a JSON array of exactly 4 drafts in order intro, follow_up_1, follow_up_2, breakup. Each element: {"type","subject","body"}.`

func outreachPrompt(lead *model.Lead) string {
	return fmt.Sprintf(
		"Write the outreach sequence for %s (%s). Contact: %s. Diagnosis: %s",
		lead.CompanyName, lead.Location, lead.Email, lead.Diagnosis,
	)
}

const websiteSystem = `You generate complete single-file landing pages (HTML with inline CSS and JS). Respond with the code only.`

func websitePrompt(lead *model.Lead) string {
	services := strings.Join(lead.ServicesOffered, ", ")
	return fmt.Sprintf(
		"Generate a landing page for %s, a %s business in %s. Services: %s. Phone: %s. Email: %s.",
		lead.CompanyName, lead.Niche, lead.Location, services, lead.Phone, lead.Email,
	)
}

func refinePrompt(code, instruction string) string {
	return fmt.Sprintf("Apply this change to the page and return the full updated code.\nChange: %s\n\nCurrent code:\n%s", instruction, code)
}

func chatSystem(lead *model.Lead) string {
	return fmt.Sprintf(
		"You answer questions about the prospect %s (%s, %s). Known facts: NIF %s, CAE %s, website %s, rating %.1f, potential %s. Diagnosis: %s. Answer briefly and only from these facts.",
		lead.CompanyName, lead.Location, lead.Niche,
		lead.NIF, lead.CAE, lead.Website, lead.MapsRating, lead.Potential, lead.Diagnosis,
	)
}
