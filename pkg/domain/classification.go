package domain

// ClassificationResult is the structured answer for one row. Category holds
// the lower-case token of a member of the active CategorySet.
type ClassificationResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
