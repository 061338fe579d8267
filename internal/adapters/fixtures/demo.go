// Package fixtures holds a small demo dataset shared by the in-memory
// backend and the database seed script.
package fixtures

import (
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

// Dataset is a complete set of directory, catalog and signal records.
type Dataset struct {
	HCPs            []entities.HCP
	Contacts        []entities.Contact
	Prescriptions   []entities.Prescription
	Products        []entities.Product
	ApprovedContent []entities.ApprovedContent
	Signals         []entities.Signal
	Settings        []entities.SystemSetting
}

// Demo builds the demo dataset relative to now so recency rules behave the same on every run.
func Demo(now time.Time) *Dataset {
	now = now.UTC()
	day := 24 * time.Hour
	lastWeek := now.Add(-7 * day)

	return &Dataset{
		HCPs: []entities.HCP{
			{
				ID: "hcp-001", FirstName: "Ana", LastName: "García", Specialty: "Cardiology",
				Institution: "Hospital Central", City: "Monterrey", Region: "North",
				PatientVolume: 180, PrescriptionDecile: 9, ResponseLevel: 4,
				BuyerPersona: entities.BuyerPersonaEarlyAdopter, AdoptionStage: entities.AdoptionStageEvaluating,
				ClinicalInterests: []string{"hypertension", "heart failure"},
				Engagement: entities.EngagementMetrics{
					ContactFrequency: 3, ResponseRate: 0.7, ResponseTimeHours: 12, InteractionQuality: 8.2,
					PrescriptionsGenerated: 14, PrescriptionValue: 21000, LastInteractionAt: &lastWeek,
				},
				Active: true, CreatedAt: now.Add(-400 * day), UpdatedAt: lastWeek,
			},
			{
				ID: "hcp-002", FirstName: "Luis", LastName: "Martínez", Specialty: "Endocrinology",
				Institution: "Clínica del Valle", City: "Guadalajara", Region: "West",
				PatientVolume: 95, PrescriptionDecile: 6, ResponseLevel: 2,
				BuyerPersona: entities.BuyerPersonaLateMajority, AdoptionStage: entities.AdoptionStageUnaware,
				ClinicalInterests:      []string{"type 2 diabetes"},
				RegulatoryRestrictions: []string{"no weekend contact"},
				Engagement: entities.EngagementMetrics{
					ContactFrequency: 0.5, ResponseRate: 0.3, ResponseTimeHours: 72, InteractionQuality: 5.1,
				},
				Active: true, CreatedAt: now.Add(-90 * day), UpdatedAt: now.Add(-60 * day),
			},
			{
				ID: "hcp-003", FirstName: "Sofía", LastName: "Ramírez", Specialty: "Internal Medicine",
				Institution: "Hospital Ángeles", City: "Mexico City", Region: "Center",
				PatientVolume: 140, PrescriptionDecile: 7, ResponseLevel: 3,
				BuyerPersona: entities.BuyerPersonaEarlyMajority, AdoptionStage: entities.AdoptionStageUser,
				ClinicalInterests: []string{"dyslipidemia", "hypertension"},
				Engagement: entities.EngagementMetrics{
					ContactFrequency: 2, ResponseRate: 0.55, ResponseTimeHours: 30, InteractionQuality: 6.8,
					PrescriptionsGenerated: 6, PrescriptionValue: 7400,
				},
				Active: true, CreatedAt: now.Add(-200 * day), UpdatedAt: now.Add(-20 * day),
			},
		},
		Contacts: []entities.Contact{
			{ID: "ct-001", HCPID: "hcp-001", Type: entities.ContactTypeVisit, OccurredAt: lastWeek,
				Outcome: entities.ContactOutcomeSuccessful, Channel: entities.ChannelPersonal,
				Notes: "Interested in updated hypertension guidelines", ProductID: "prd-001"},
			{ID: "ct-002", HCPID: "hcp-001", Type: entities.ContactTypeEmail, OccurredAt: now.Add(-35 * day),
				Outcome: entities.ContactOutcomePartial, Channel: entities.ChannelEmail, Notes: "Opened data sheet"},
			{ID: "ct-003", HCPID: "hcp-003", Type: entities.ContactTypeCall, OccurredAt: now.Add(-45 * day),
				Outcome: entities.ContactOutcomeFailed, Channel: entities.ChannelPhone, Notes: "No answer"},
		},
		Prescriptions: []entities.Prescription{
			{ID: "rx-001", HCPID: "hcp-001", ProductID: "prd-001", IssuedAt: now.Add(-5 * day),
				Quantity: 2, Kind: entities.PrescriptionKindNew, Value: 1500},
			{ID: "rx-002", HCPID: "hcp-003", ProductID: "prd-002", IssuedAt: now.Add(-12 * day),
				Quantity: 1, Kind: entities.PrescriptionKindContinued, Value: 800},
		},
		Products: []entities.Product{
			{ID: "prd-001", Name: "Cardiovex", ActiveIngredient: "valsartan",
				Indications: []string{"hypertension"}, MarketingRestrictions: []string{"no off-label use"},
				Approved: true, ApprovedAt: now.Add(-700 * day)},
			{ID: "prd-002", Name: "Lipidam", ActiveIngredient: "rosuvastatin",
				Indications: []string{"dyslipidemia"}, Approved: true, ApprovedAt: now.Add(-500 * day)},
		},
		ApprovedContent: []entities.ApprovedContent{
			{ID: "ac-001", Type: entities.ContentTypeDataSheet, Title: "Cardiovex prescribing information",
				ProductIDs: []string{"prd-001"}, Version: "3.1", ApprovedBy: "regulatory", ApprovedAt: now.Add(-100 * day), Active: true},
			{ID: "ac-002", Type: entities.ContentTypeGuideline, Title: "Hypertension management guideline summary",
				ProductIDs: []string{"prd-001"}, Version: "2024.1", ApprovedBy: "medical affairs", ApprovedAt: now.Add(-30 * day), Active: true},
			{ID: "ac-003", Type: entities.ContentTypeClinicalStudy, Title: "Lipidam long-term outcomes study",
				ProductIDs: []string{"prd-002"}, Version: "1.0", ApprovedBy: "regulatory", ApprovedAt: now.Add(-60 * day), Active: true},
		},
		Signals: []entities.Signal{
			{ID: "sg-001", Source: "linkedin", Content: "Shared a post about new hypertension targets in older adults",
				Author: "Ana García", PublishedAt: now.Add(-3 * day), Topics: []string{"hypertension"},
				Sentiment: entities.SentimentPositive, Relevance: 8, MentionedHCPIDs: []string{"hcp-001"}},
			{ID: "sg-002", Source: "medical_forum", Content: "Asked about statin intolerance management",
				Author: "Sofía Ramírez", PublishedAt: now.Add(-10 * day), Topics: []string{"dyslipidemia"},
				Sentiment: entities.SentimentNeutral, Relevance: 6, MentionedHCPIDs: []string{"hcp-003"}},
		},
		Settings: []entities.SystemSetting{
			{Name: "max_weekly_contacts", Value: "3", Category: "frequency", UpdatedAt: now.Add(-30 * day)},
			{Name: "preferred_contact_window", Value: "09:00-13:00", Category: "scheduling", UpdatedAt: now.Add(-30 * day)},
		},
	}
}
