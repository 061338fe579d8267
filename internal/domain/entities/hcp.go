package entities

import (
	"time"
)

// BuyerPersona classifies an HCP by how early they adopt new therapies
type BuyerPersona string

const (
	BuyerPersonaInnovator     BuyerPersona = "innovator"
	BuyerPersonaEarlyAdopter  BuyerPersona = "early_adopter"
	BuyerPersonaEarlyMajority BuyerPersona = "early_majority"
	BuyerPersonaLateMajority  BuyerPersona = "late_majority"
	BuyerPersonaLaggard       BuyerPersona = "laggard"
)

// AdoptionStage is the HCP's position on the product adoption ladder
type AdoptionStage string

const (
	AdoptionStageUnaware    AdoptionStage = "unaware"
	AdoptionStageEvaluating AdoptionStage = "evaluating"
	AdoptionStageUser       AdoptionStage = "user"
	AdoptionStageAdvocate   AdoptionStage = "advocate"
)

// EngagementMetrics is the directory's derived snapshot of an HCP's engagement
type EngagementMetrics struct {
	ContactFrequency       float64    `json:"contact_frequency" db:"contact_frequency"`
	ResponseRate           float64    `json:"response_rate" db:"response_rate"`
	ResponseTimeHours      float64    `json:"response_time_hours" db:"response_time_hours"`
	InteractionQuality     float64    `json:"interaction_quality" db:"interaction_quality"`
	PrescriptionsGenerated int        `json:"prescriptions_generated" db:"prescriptions_generated"`
	PrescriptionValue      float64    `json:"prescription_value" db:"prescription_value"`
	LastInteractionAt      *time.Time `json:"last_interaction_at,omitempty" db:"last_interaction_at"`
}

// HCP represents a healthcare professional profile owned by the HCP directory
type HCP struct {
	ID                     string            `json:"id" db:"id"`
	FirstName              string            `json:"first_name" db:"first_name"`
	LastName               string            `json:"last_name" db:"last_name"`
	Specialty              string            `json:"specialty" db:"specialty"`
	Institution            string            `json:"institution" db:"institution"`
	City                   string            `json:"city" db:"city"`
	Region                 string            `json:"region" db:"region"`
	PatientVolume          int               `json:"patient_volume" db:"patient_volume"`
	PrescriptionDecile     int               `json:"prescription_decile" db:"prescription_decile"`
	ResponseLevel          int               `json:"response_level" db:"response_level"`
	BuyerPersona           BuyerPersona      `json:"buyer_persona" db:"buyer_persona"`
	AdoptionStage          AdoptionStage     `json:"adoption_stage" db:"adoption_stage"`
	ClinicalInterests      []string          `json:"clinical_interests" db:"clinical_interests"`
	RegulatoryRestrictions []string          `json:"regulatory_restrictions" db:"regulatory_restrictions"`
	Engagement             EngagementMetrics `json:"engagement"`
	Active                 bool              `json:"active" db:"active"`
	CreatedAt              time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at" db:"updated_at"`
}

// FullName returns the display name used in prompts and dashboards.
func (h HCP) FullName() string {
	if h.FirstName == "" {
		return h.LastName
	}
	if h.LastName == "" {
		return h.FirstName
	}
	return h.FirstName + " " + h.LastName
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (h HCP) Clone() HCP {
	out := h
	out.ClinicalInterests = cloneStrings(h.ClinicalInterests)
	out.RegulatoryRestrictions = cloneStrings(h.RegulatoryRestrictions)
	if h.Engagement.LastInteractionAt != nil {
		ts := *h.Engagement.LastInteractionAt
		out.Engagement.LastInteractionAt = &ts
	}
	return out
}

// ContactOutcome is the result of a historical interaction
type ContactOutcome string

const (
	ContactOutcomeSuccessful ContactOutcome = "successful"
	ContactOutcomePartial    ContactOutcome = "partial"
	ContactOutcomeFailed     ContactOutcome = "failed"
	ContactOutcomePending    ContactOutcome = "pending"
)

// ContactType is the kind of historical interaction
type ContactType string

const (
	ContactTypeVisit       ContactType = "visit"
	ContactTypeEmail       ContactType = "email"
	ContactTypeCall        ContactType = "call"
	ContactTypeSample      ContactType = "sample_delivery"
	ContactTypeEvent       ContactType = "event"
	ContactTypeSocialMedia ContactType = "social_media"
)

// Contact is one append-only interaction record
type Contact struct {
	ID         string         `json:"id" db:"id"`
	HCPID      string         `json:"hcp_id" db:"hcp_id"`
	Type       ContactType    `json:"type" db:"type"`
	OccurredAt time.Time      `json:"occurred_at" db:"occurred_at"`
	Outcome    ContactOutcome `json:"outcome" db:"outcome"`
	Channel    Channel        `json:"channel" db:"channel"`
	Notes      string         `json:"notes" db:"notes"`
	ProductID  string         `json:"product_id,omitempty" db:"product_id"`
}

// PrescriptionKind distinguishes new, continued and suspended prescriptions
type PrescriptionKind string

const (
	PrescriptionKindNew       PrescriptionKind = "new"
	PrescriptionKindContinued PrescriptionKind = "continued"
	PrescriptionKindSuspended PrescriptionKind = "suspended"
)

// Prescription is a prescription written by an HCP, optionally attributed to a recommendation
type Prescription struct {
	ID               string           `json:"id" db:"id"`
	HCPID            string           `json:"hcp_id" db:"hcp_id"`
	ProductID        string           `json:"product_id" db:"product_id"`
	RecommendationID string           `json:"recommendation_id,omitempty" db:"recommendation_id"`
	IssuedAt         time.Time        `json:"issued_at" db:"issued_at"`
	Quantity         int              `json:"quantity" db:"quantity"`
	Kind             PrescriptionKind `json:"kind" db:"kind"`
	Value            float64          `json:"value" db:"value"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
