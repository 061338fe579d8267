package services

import (
	"fmt"
	"strings"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

const (
	promptDateLayout   = "2006-01-02"
	signalExcerptRunes = 100
)

// BuildPrompt renders the model instruction for a decision context. It is a
// pure function: all dates come from the context, so identical contexts
// always produce identical prompts.
func BuildPrompt(dc *entities.DecisionContext) string {
	var b strings.Builder
	hcp := dc.HCP()

	fmt.Fprintf(&b, "Reference date: %s\n\n", dc.AssembledAt().Format(promptDateLayout))

	b.WriteString("HEALTHCARE PROFESSIONAL PROFILE:\n")
	fmt.Fprintf(&b, "- Name: %s\n", hcp.FullName())
	fmt.Fprintf(&b, "- Specialty: %s\n", hcp.Specialty)
	fmt.Fprintf(&b, "- Institution: %s (%s, %s)\n", hcp.Institution, hcp.City, hcp.Region)
	fmt.Fprintf(&b, "- Patient volume: %d\n", hcp.PatientVolume)
	fmt.Fprintf(&b, "- Prescription decile: %d\n", hcp.PrescriptionDecile)
	fmt.Fprintf(&b, "- Response level: %d\n", hcp.ResponseLevel)
	fmt.Fprintf(&b, "- Buyer persona: %s\n", hcp.BuyerPersona)
	fmt.Fprintf(&b, "- Adoption stage: %s\n", hcp.AdoptionStage)
	fmt.Fprintf(&b, "- Clinical interests: %s\n", joinOrNone(hcp.ClinicalInterests))
	fmt.Fprintf(&b, "- Regulatory restrictions: %s\n", joinOrNone(hcp.RegulatoryRestrictions))
	fmt.Fprintf(&b, "- Engagement: contact frequency %.1f/month, response rate %.0f%%, interaction quality %.1f/10\n",
		hcp.Engagement.ContactFrequency, hcp.Engagement.ResponseRate*100, hcp.Engagement.InteractionQuality)

	b.WriteString("\nRECENT CONTACT HISTORY:\n")
	b.WriteString(formatContacts(dc.RecentContacts()))

	b.WriteString("\nRECENT PRESCRIPTIONS:\n")
	b.WriteString(formatPrescriptions(dc.RecentPrescriptions()))

	b.WriteString("\nRELEVANT EXTERNAL SIGNALS:\n")
	b.WriteString(formatSignals(dc.Signals()))

	b.WriteString("\nAVAILABLE PRODUCTS:\n")
	b.WriteString(formatProducts(dc.Products()))

	b.WriteString("\nAPPROVED CONTENT:\n")
	b.WriteString(formatApprovedContent(dc.ApprovedContent()))

	if settings := dc.Settings(); len(settings) > 0 {
		b.WriteString("\nSYSTEM SETTINGS:\n")
		for _, s := range settings {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Value)
		}
	}

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("Generate between 3 and 5 next best actions for this healthcare professional.\n")
	fmt.Fprintf(&b, "- action_type must be one of: %s\n", joinActionTypes())
	fmt.Fprintf(&b, "- channel must be one of: %s\n", joinChannels())
	b.WriteString("- score is a number from 0 to 100 expressing expected success probability\n")
	b.WriteString("- ideal_moment is an RFC 3339 timestamp after the reference date\n")
	b.WriteString("- restrictions lists the regulatory restrictions you applied to the message\n")
	b.WriteString("- products may only contain products listed above\n")
	b.WriteString("\nRESTRICTIONS:\n")
	b.WriteString("- Do not claim benefits that are not in the approved content\n")
	b.WriteString("- Do not make absolute efficacy claims\n")
	b.WriteString("- Do not compare with competitor products\n")
	b.WriteString("- Do not promise specific results\n")
	b.WriteString("- Respect the professional's regulatory restrictions and preferred channels\n")

	b.WriteString("\nRespond with JSON only, using this schema:\n")
	b.WriteString(`{"recommendations":[{"action_type":"string","channel":"string","ideal_moment":"RFC3339 timestamp",` +
		`"message":"string","rationale":"string","products":["product id"],"score":0,` +
		`"reasons":["string"],"restrictions":["string"]}]}`)
	b.WriteString("\n")

	return b.String()
}

func formatContacts(contacts []entities.Contact) string {
	if len(contacts) == 0 {
		return "No previous contacts\n"
	}
	var b strings.Builder
	for _, c := range contacts {
		fmt.Fprintf(&b, "- %s: %s via %s, outcome %s", c.OccurredAt.Format(promptDateLayout), c.Type, c.Channel, c.Outcome)
		if c.Notes != "" {
			fmt.Fprintf(&b, " (%s)", c.Notes)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatPrescriptions(prescriptions []entities.Prescription) string {
	if len(prescriptions) == 0 {
		return "No recent prescriptions\n"
	}
	var b strings.Builder
	for _, p := range prescriptions {
		fmt.Fprintf(&b, "- %s: product %s, %s, quantity %d\n",
			p.IssuedAt.Format(promptDateLayout), p.ProductID, p.Kind, p.Quantity)
	}
	return b.String()
}

func formatSignals(signals []entities.Signal) string {
	if len(signals) == 0 {
		return "No relevant signals\n"
	}
	var b strings.Builder
	for _, s := range signals {
		fmt.Fprintf(&b, "- %s (%s, relevance %d, %s): %s\n",
			s.Source, s.PublishedAt.Format(promptDateLayout), s.Relevance, s.Sentiment, excerpt(s.Content, signalExcerptRunes))
	}
	return b.String()
}

func formatProducts(products []entities.Product) string {
	if len(products) == 0 {
		return "No products available\n"
	}
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "- %s [%s]: %s for %s", p.Name, p.ID, p.ActiveIngredient, joinOrNone(p.Indications))
		if len(p.MarketingRestrictions) > 0 {
			fmt.Fprintf(&b, "; restrictions: %s", strings.Join(p.MarketingRestrictions, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatApprovedContent(content []entities.ApprovedContent) string {
	if len(content) == 0 {
		return "No approved content\n"
	}
	var b strings.Builder
	for _, c := range content {
		fmt.Fprintf(&b, "- %s: %s (v%s)\n", c.Type, c.Title, c.Version)
	}
	return b.String()
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func joinActionTypes() string {
	names := make([]string, 0, len(entities.ActionTypes))
	for _, a := range entities.ActionTypes {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func joinChannels() string {
	names := make([]string, 0, len(entities.Channels))
	for _, c := range entities.Channels {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
