package agent

// ============================================================================
// TOOL INPUT/OUTPUT TYPES
// ============================================================================

// SaveClassificationInput is the structured input for the SaveClassification tool
type SaveClassificationInput struct {
	Category          string  `json:"category"`          // billing, technical_support, account_management, returns, general
	Product           string  `json:"product"`           // Product or service the complaint is about
	Severity          string  `json:"severity"`          // low, medium, high, critical
	Summary           string  `json:"summary"`           // One-paragraph neutral restatement of the complaint
	InitialConfidence float64 `json:"initialConfidence"` // 0..1, how complete the complaint already is
}

type SaveClassificationOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FlagMissingInfoInput lists the facts the dialogue engine should chase.
type FlagMissingInfoInput struct {
	Fields []string `json:"fields"` // e.g. order_number, incident_date, account_number
	Reason string   `json:"reason"`
}

type FlagMissingInfoOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
