package entities

import "time"

// DecisionContextInput carries the reads gathered for one HCP.
type DecisionContextInput struct {
	HCP                 HCP
	RecentContacts      []Contact
	RecentPrescriptions []Prescription
	Signals             []Signal
	Products            []Product
	ApprovedContent     []ApprovedContent
	Settings            []SystemSetting
	AssembledAt         time.Time
}

// DecisionContext is the immutable bundle of inputs used to generate
// recommendations for one HCP. All accessors return copies.
type DecisionContext struct {
	hcp                 HCP
	recentContacts      []Contact
	recentPrescriptions []Prescription
	signals             []Signal
	products            []Product
	approvedContent     []ApprovedContent
	settings            []SystemSetting
	assembledAt         time.Time
}

// NewDecisionContext copies in into a new context.
func NewDecisionContext(in DecisionContextInput) *DecisionContext {
	return &DecisionContext{
		hcp:                 in.HCP.Clone(),
		recentContacts:      append([]Contact(nil), in.RecentContacts...),
		recentPrescriptions: append([]Prescription(nil), in.RecentPrescriptions...),
		signals:             append([]Signal(nil), in.Signals...),
		products:            append([]Product(nil), in.Products...),
		approvedContent:     append([]ApprovedContent(nil), in.ApprovedContent...),
		settings:            append([]SystemSetting(nil), in.Settings...),
		assembledAt:         in.AssembledAt,
	}
}

func (c *DecisionContext) HCP() HCP { return c.hcp.Clone() }

// RecentContacts are ordered most recent first.
func (c *DecisionContext) RecentContacts() []Contact {
	return append([]Contact(nil), c.recentContacts...)
}

func (c *DecisionContext) RecentPrescriptions() []Prescription {
	return append([]Prescription(nil), c.recentPrescriptions...)
}

func (c *DecisionContext) Signals() []Signal { return append([]Signal(nil), c.signals...) }

func (c *DecisionContext) Products() []Product { return append([]Product(nil), c.products...) }

func (c *DecisionContext) ApprovedContent() []ApprovedContent {
	return append([]ApprovedContent(nil), c.approvedContent...)
}

func (c *DecisionContext) Settings() []SystemSetting {
	return append([]SystemSetting(nil), c.settings...)
}

// AssembledAt is the reference instant for every relative date derived from the context.
func (c *DecisionContext) AssembledAt() time.Time { return c.assembledAt }

// HasContactSince reports whether any recent contact happened at or after t.
func (c *DecisionContext) HasContactSince(t time.Time) bool {
	for _, contact := range c.recentContacts {
		if !contact.OccurredAt.Before(t) {
			return true
		}
	}
	return false
}
