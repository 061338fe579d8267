package entities

// ProductRanking is one entry of the top products list
type ProductRanking struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Prescriptions int    `json:"prescriptions"`
}

// HCPRanking is one entry of the top HCPs list
type HCPRanking struct {
	HCPID      string  `json:"hcp_id"`
	Name       string  `json:"name"`
	Engagement float64 `json:"engagement"`
}

// DashboardStats is recomputed on every request
type DashboardStats struct {
	ActiveHCPs              int              `json:"active_hcps"`
	PendingRecommendations  int              `json:"pending_recommendations"`
	ContactsThisMonth       int              `json:"contacts_this_month"`
	AttributedPrescriptions int              `json:"attributed_prescriptions"`
	PrescriptionValue       float64          `json:"prescription_value"`
	SuccessRate             float64          `json:"success_rate"`
	TopProducts             []ProductRanking `json:"top_products"`
	TopHCPs                 []HCPRanking     `json:"top_hcps"`
}

// RecommendationStats breaks persisted recommendations down by state, type and channel
type RecommendationStats struct {
	Total        int                         `json:"total"`
	ByState      map[RecommendationState]int `json:"by_state"`
	ByActionType map[ActionType]int          `json:"by_action_type"`
	ByChannel    map[Channel]int             `json:"by_channel"`
	SuccessRate  float64                     `json:"success_rate"`
	AverageScore float64                     `json:"average_score"`
}

// OutcomeDimension names an axis of the learning statistics
type OutcomeDimension string

const (
	OutcomeDimensionChannel    OutcomeDimension = "channel"
	OutcomeDimensionActionType OutcomeDimension = "action_type"
	OutcomeDimensionHour       OutcomeDimension = "hour"
)

// OutcomeTally counts executed recommendations for one dimension value
type OutcomeTally struct {
	Dimension   OutcomeDimension `json:"dimension"`
	Value       string           `json:"value"`
	Executed    int64            `json:"executed"`
	Succeeded   int64            `json:"succeeded"`
	SuccessRate float64          `json:"success_rate"`
}

// SuccessPatterns groups tallies per dimension, best first
type SuccessPatterns struct {
	Channels    []OutcomeTally `json:"channels"`
	ActionTypes []OutcomeTally `json:"action_types"`
	Hours       []OutcomeTally `json:"hours"`
}
