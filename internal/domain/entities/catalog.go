package entities

import "time"

// Product is a marketed product from the catalog
type Product struct {
	ID                    string    `json:"id" db:"id"`
	Name                  string    `json:"name" db:"name"`
	ActiveIngredient      string    `json:"active_ingredient" db:"active_ingredient"`
	Indications           []string  `json:"indications" db:"indications"`
	MarketingRestrictions []string  `json:"marketing_restrictions" db:"marketing_restrictions"`
	Approved              bool      `json:"approved" db:"approved"`
	ApprovedAt            time.Time `json:"approved_at" db:"approved_at"`
}

// ContentType is the kind of pre-approved material
type ContentType string

const (
	ContentTypeDataSheet     ContentType = "data_sheet"
	ContentTypeClinicalStudy ContentType = "clinical_study"
	ContentTypeMarketing     ContentType = "marketing_material"
	ContentTypeGuideline     ContentType = "clinical_guideline"
	ContentTypePresentation  ContentType = "presentation"
)

// ApprovedContent is regulator-approved material that outreach may reference
type ApprovedContent struct {
	ID         string      `json:"id" db:"id"`
	Type       ContentType `json:"type" db:"type"`
	Title      string      `json:"title" db:"title"`
	ProductIDs []string    `json:"product_ids" db:"product_ids"`
	Version    string      `json:"version" db:"version"`
	ApprovedBy string      `json:"approved_by" db:"approved_by"`
	ApprovedAt time.Time   `json:"approved_at" db:"approved_at"`
	Active     bool        `json:"active" db:"active"`
}

// SystemSetting is a named configuration value carried into the decision context
type SystemSetting struct {
	Name      string    `json:"name" db:"name"`
	Value     string    `json:"value" db:"value"`
	Category  string    `json:"category" db:"category"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
