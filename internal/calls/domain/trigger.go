package domain

import "strings"

// triggerWindow is how many recent human utterances the trigger scan reads.
const triggerWindow = 3

// Missing-information categories the fallback episode can ask the customer
// about. The side call asks one question per category.
const (
	FieldAccountNumber     = "account_number"
	FieldOrderNumber       = "order_number"
	FieldIncidentDate      = "incident_date"
	FieldBillingAddress    = "billing_address"
	FieldAdditionalDetails = "additional_details"
)

// triggerPhrases are what a human agent says when the call cannot proceed
// without information only the customer has.
var triggerPhrases = []string{
	"need more information",
	"need additional information",
	"cannot proceed",
	"can't proceed",
	"missing details",
	"missing information",
	"need to verify",
	"unable to locate",
}

// fieldKeywords classify a triggering utterance into the concrete field the
// agent is asking for. First match wins; unmatched utterances fall through to
// the additional-details catch-all.
var fieldKeywords = []struct {
	keyword string
	field   string
}{
	{"account", FieldAccountNumber},
	{"order", FieldOrderNumber},
	{"date", FieldIncidentDate},
	{"when", FieldIncidentDate},
	{"address", FieldBillingAddress},
}

// DetectMissingFields scans the last few human utterances for fallback
// triggers and returns the deduplicated missing-field categories, in the
// order the triggering utterances appeared. Empty when no trigger fired.
func DetectMissingFields(transcript []TranscriptEntry) []string {
	humans := HumanLines(transcript)
	start := len(humans) - triggerWindow
	if start < 0 {
		start = 0
	}

	fields := make([]string, 0, 2)
	seen := make(map[string]bool)
	for _, line := range humans[start:] {
		lower := strings.ToLower(line)
		if !containsTrigger(lower) {
			continue
		}
		field := classifyMissingField(lower)
		if !seen[field] {
			seen[field] = true
			fields = append(fields, field)
		}
	}
	return fields
}

func containsTrigger(lower string) bool {
	for _, phrase := range triggerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func classifyMissingField(lower string) string {
	for _, fk := range fieldKeywords {
		if strings.Contains(lower, fk.keyword) {
			return fk.field
		}
	}
	return FieldAdditionalDetails
}

// QuestionForField is the prompt the side call asks the customer for one
// missing-field category.
func QuestionForField(field string) string {
	switch field {
	case FieldAccountNumber:
		return "The company needs your account number to proceed. What is your account number?"
	case FieldOrderNumber:
		return "The company needs your order number. What is the order number for this complaint?"
	case FieldIncidentDate:
		return "When exactly did the issue occur? Please give the date as precisely as you can."
	case FieldBillingAddress:
		return "The company needs to verify your billing address. What is the address on the account?"
	default:
		return "The company needs a few more details to continue. What else can you tell us about the issue?"
	}
}
