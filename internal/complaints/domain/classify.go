package domain

import "strings"

// Complaint categories. These double as the department names the IVR
// navigator routes toward, so they must stay aligned with the menu plans.
const (
	CategoryBilling   = "billing"
	CategoryTechnical = "technical_support"
	CategoryAccount   = "account_management"
	CategoryReturns   = "returns"
	CategoryGeneral   = "general"
)

// FallbackInitialConfidence is assigned when the classifier agent cannot
// produce a verdict and the keyword fallback fills in.
const FallbackInitialConfidence = 0.4

// categoryRules map issue keywords to a category. Order matters: the first
// rule whose keyword appears in the text wins, so billing outranks returns
// for a "charged twice, want a refund" complaint.
var categoryRules = []struct {
	keyword  string
	category string
}{
	{"billing", CategoryBilling},
	{"charge", CategoryBilling},
	{"payment", CategoryBilling},
	{"invoice", CategoryBilling},
	{"technical", CategoryTechnical},
	{"error", CategoryTechnical},
	{"not working", CategoryTechnical},
	{"broken", CategoryTechnical},
	{"crash", CategoryTechnical},
	{"cancel", CategoryAccount},
	{"subscription", CategoryAccount},
	{"account", CategoryAccount},
	{"refund", CategoryReturns},
	{"return", CategoryReturns},
	{"replacement", CategoryReturns},
}

// CategoryForText classifies a complaint by keyword scan. Used as the
// deterministic fallback when the classifier agent fails, and by the IVR
// navigator to pick a target department.
func CategoryForText(text string) string {
	lower := strings.ToLower(text)
	for _, r := range categoryRules {
		if strings.Contains(lower, r.keyword) {
			return r.category
		}
	}
	return CategoryGeneral
}

var highSeverityMarkers = []string{"urgent", "immediately", "fraud", "lawyer", "legal action", "unauthorized"}

// SeverityForText estimates severity by keyword scan, again only for the
// classifier fallback path.
func SeverityForText(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range highSeverityMarkers {
		if strings.Contains(lower, marker) {
			return SeverityHigh
		}
	}
	return SeverityMedium
}
