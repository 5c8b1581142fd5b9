package domain

// InsightPriority orders insights for the organizer dashboard.
type InsightPriority string

const (
	InsightCritical InsightPriority = "critical"
	InsightHigh     InsightPriority = "high"
	InsightMedium   InsightPriority = "medium"
	InsightLow      InsightPriority = "low"
)

// Rank returns the sort rank of the priority, lower is more urgent.
func (p InsightPriority) Rank() int {
	switch p {
	case InsightCritical:
		return 0
	case InsightHigh:
		return 1
	case InsightMedium:
		return 2
	default:
		return 3
	}
}

// Insight is a rule-generated operational observation with an optional
// recommendation for the organizer.
type Insight struct {
	Type           string          `json:"type"`
	Priority       InsightPriority `json:"priority"`
	Description    string          `json:"description"`
	Recommendation string          `json:"recommendation,omitempty"`
}
