package entities

import "sort"

// ViolationKind is a structural regulatory rule breach found in outbound text
type ViolationKind string

const (
	ViolationUnapprovedClaim        ViolationKind = "unapproved_claim"
	ViolationCompetitorComparison   ViolationKind = "competitor_comparison"
	ViolationUnsubstantiatedPromise ViolationKind = "unsubstantiated_promise"
)

// ComplianceResult is computed fresh for each message and never persisted on its own
type ComplianceResult struct {
	Approved   bool                   `json:"approved"`
	Violations map[ViolationKind]bool `json:"violations"`
	Warnings   []string               `json:"warnings"`
}

// HasViolation reports whether kind was recorded.
func (r ComplianceResult) HasViolation(kind ViolationKind) bool {
	return r.Violations[kind]
}

// ViolationKinds returns the recorded kinds in a stable order.
func (r ComplianceResult) ViolationKinds() []ViolationKind {
	kinds := make([]ViolationKind, 0, len(r.Violations))
	for kind, present := range r.Violations {
		if present {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
