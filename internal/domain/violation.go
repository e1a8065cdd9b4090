package domain

// Severity classifies how serious a guardrail violation is. Only high
// severity blocks a request or response.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Violation records a single guardrail rule firing against a piece of text.
// Violations are produced per validation call and never persisted on their own.
type Violation struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// HighestSeverity returns the first high-severity violation in vs, or nil.
func HighestSeverity(vs []Violation) *Violation {
	for i := range vs {
		if vs[i].Severity == SeverityHigh {
			return &vs[i]
		}
	}
	return nil
}
