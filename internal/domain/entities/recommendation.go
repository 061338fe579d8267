package entities

import (
	"math"
	"time"
)

// ActionType is the fixed taxonomy of outreach actions
type ActionType string

const (
	ActionTypeInitialContact      ActionType = "initial_contact"
	ActionTypeFollowUp            ActionType = "follow_up"
	ActionTypeProductPresentation ActionType = "product_presentation"
	ActionTypeSampleDelivery      ActionType = "sample_delivery"
	ActionTypeEventInvitation     ActionType = "event_invitation"
	ActionTypeMedicalEducation    ActionType = "medical_education"
	ActionTypeClinicalSupport     ActionType = "clinical_support"
)

// ActionTypes lists the taxonomy in prompt order.
var ActionTypes = []ActionType{
	ActionTypeInitialContact,
	ActionTypeFollowUp,
	ActionTypeProductPresentation,
	ActionTypeSampleDelivery,
	ActionTypeEventInvitation,
	ActionTypeMedicalEducation,
	ActionTypeClinicalSupport,
}

// Valid reports whether the action type belongs to the taxonomy.
func (a ActionType) Valid() bool {
	for _, known := range ActionTypes {
		if a == known {
			return true
		}
	}
	return false
}

// Channel is the fixed taxonomy of communication channels
type Channel string

const (
	ChannelPersonal      Channel = "personal"
	ChannelEmail         Channel = "email"
	ChannelPhone         Channel = "phone"
	ChannelWhatsApp      Channel = "whatsapp"
	ChannelLinkedIn      Channel = "linkedin"
	ChannelTwitter       Channel = "twitter"
	ChannelInPersonEvent Channel = "in_person_event"
	ChannelVirtualEvent  Channel = "virtual_event"
)

// Channels lists the channel taxonomy in prompt order.
var Channels = []Channel{
	ChannelPersonal,
	ChannelEmail,
	ChannelPhone,
	ChannelWhatsApp,
	ChannelLinkedIn,
	ChannelTwitter,
	ChannelInPersonEvent,
	ChannelVirtualEvent,
}

// Valid reports whether the channel belongs to the taxonomy.
func (c Channel) Valid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// RecommendationState is the lifecycle state of a persisted recommendation
type RecommendationState string

const (
	RecommendationStatePending   RecommendationState = "pending"
	RecommendationStateInProcess RecommendationState = "in_process"
	RecommendationStateCompleted RecommendationState = "completed"
	RecommendationStateCancelled RecommendationState = "cancelled"
	RecommendationStateRejected  RecommendationState = "rejected"
)

var recommendationTransitions = map[RecommendationState][]RecommendationState{
	RecommendationStatePending: {
		RecommendationStateInProcess,
		RecommendationStateCompleted,
		RecommendationStateCancelled,
		RecommendationStateRejected,
	},
	RecommendationStateInProcess: {
		RecommendationStateCompleted,
		RecommendationStateCancelled,
	},
}

// Valid reports whether s is a known state.
func (s RecommendationState) Valid() bool {
	switch s {
	case RecommendationStatePending, RecommendationStateInProcess, RecommendationStateCompleted,
		RecommendationStateCancelled, RecommendationStateRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s RecommendationState) Terminal() bool {
	return s.Valid() && len(recommendationTransitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the lifecycle state machine.
func CanTransition(from, to RecommendationState) bool {
	for _, next := range recommendationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RecommendationOutcome is the result recorded when a recommendation is executed
type RecommendationOutcome string

const (
	RecommendationOutcomeSuccessful    RecommendationOutcome = "successful"
	RecommendationOutcomePartial       RecommendationOutcome = "partial"
	RecommendationOutcomeFailed        RecommendationOutcome = "failed"
	RecommendationOutcomeNotApplicable RecommendationOutcome = "not_applicable"
)

// Valid reports whether the outcome is one of the recordable results.
func (o RecommendationOutcome) Valid() bool {
	switch o {
	case RecommendationOutcomeSuccessful, RecommendationOutcomePartial,
		RecommendationOutcomeFailed, RecommendationOutcomeNotApplicable:
		return true
	}
	return false
}

// Succeeded reports whether the outcome counts toward the success rate.
func (o RecommendationOutcome) Succeeded() bool {
	return o == RecommendationOutcomeSuccessful || o == RecommendationOutcomePartial
}

// RecommendationSource tells model-generated candidates apart from rule-based fallbacks
type RecommendationSource string

const (
	RecommendationSourceModel    RecommendationSource = "model"
	RecommendationSourceFallback RecommendationSource = "fallback"
)

// RawRecommendation is a candidate action between model parsing and persistence
type RawRecommendation struct {
	ActionType   ActionType           `json:"action_type"`
	Channel      Channel              `json:"channel"`
	IdealMoment  time.Time            `json:"ideal_moment"`
	Message      string               `json:"message"`
	Rationale    string               `json:"rationale"`
	Products     []string             `json:"products"`
	Score        float64              `json:"score"`
	Reasons      []string             `json:"reasons"`
	Restrictions []string             `json:"restrictions"`
	Source       RecommendationSource `json:"source"`
}

// Recommendation is the persisted next best action for an HCP
type Recommendation struct {
	ID                 string                 `json:"id" db:"id"`
	HCPID              string                 `json:"hcp_id" db:"hcp_id"`
	ActionType         ActionType             `json:"action_type" db:"action_type"`
	Priority           int                    `json:"priority" db:"priority"`
	Channel            Channel                `json:"channel" db:"channel"`
	IdealMoment        time.Time              `json:"ideal_moment" db:"ideal_moment"`
	Message            string                 `json:"message" db:"message"`
	Rationale          string                 `json:"rationale" db:"rationale"`
	Products           []string               `json:"products" db:"products"`
	ApprovedContentIDs []string               `json:"approved_content_ids" db:"approved_content_ids"`
	Restrictions       []string               `json:"restrictions" db:"restrictions"`
	Reasons            []string               `json:"reasons" db:"reasons"`
	Source             RecommendationSource   `json:"source" db:"source"`
	Score              float64                `json:"score" db:"score"`
	State              RecommendationState    `json:"state" db:"state"`
	StateReason        string                 `json:"state_reason,omitempty" db:"state_reason"`
	Outcome            *RecommendationOutcome `json:"outcome,omitempty" db:"outcome"`
	ExecutedAt         *time.Time             `json:"executed_at,omitempty" db:"executed_at"`
	Version            int                    `json:"version" db:"version"`
	Seq                int64                  `json:"-" db:"seq"`
	CreatedAt          time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at" db:"updated_at"`
}

// StateUpdate describes the fields written by a lifecycle transition.
type StateUpdate struct {
	ExpectedVersion int
	NewState        RecommendationState
	Reason          string
	Outcome         *RecommendationOutcome
	ExecutedAt      *time.Time
	UpdatedAt       time.Time
}

// PriorityFromScore converts a 0-100 score into the 1-10 ranking priority.
func PriorityFromScore(score float64) int {
	priority := int(math.Round(score / 10))
	if priority < 1 {
		return 1
	}
	if priority > 10 {
		return 10
	}
	return priority
}

// ValidScore reports whether score lies in [0,100].
func ValidScore(score float64) bool {
	return !math.IsNaN(score) && score >= 0 && score <= 100
}

// LessForRanking orders recommendations by priority desc, score desc, then creation order.
func LessForRanking(a, b *Recommendation) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Seq < b.Seq
}
