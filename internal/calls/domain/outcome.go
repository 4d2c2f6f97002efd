package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Outcome is what the heuristics read out of a completed call transcript.
// Extraction is deterministic so a stored transcript always reproduces the
// same outcome.
type Outcome struct {
	Resolution      string
	ReferenceNumber string
	NextSteps       []string
}

const (
	resolutionMinLen = 20
	nextStepsMinLen  = 30

	// DefaultNextSteps is used when no transcript line describes a follow-up.
	DefaultNextSteps = "Wait for the company to follow up on the outcome discussed during the call."
)

// resolutionKeywords mark an utterance as the outcome statement. Grouped by
// kind: case identifiers, concrete remedies, commitments and timelines.
var resolutionKeywords = []string{
	"reference number",
	"confirmation number",
	"case number",
	"ticket number",
	"refund",
	"replacement",
	"resolved",
	"we will",
	"i will",
	"within",
	"business days",
}

var nextStepsKeywords = []string{
	"next steps",
	"follow up",
	"will contact",
	"within",
	"please",
	"you should",
}

// referencePattern matches an identifier announced next to a reference-style
// keyword. The token class is deliberately case-sensitive: real reference
// codes are read out in uppercase, and a case-insensitive class would swallow
// ordinary words like "number".
var referencePattern = regexp.MustCompile(`(?i:reference|confirmation|case|ticket|order|claim)\s*(?i:number|#|id)?\s*:?\s*([A-Z0-9]{4,})`)

// bareTokenPattern is the fallback: a standalone uppercase alphanumeric run.
// A post-check requires at least one digit so shouted words do not qualify.
var bareTokenPattern = regexp.MustCompile(`\b[A-Z0-9]{6,}\b`)

var digitPattern = regexp.MustCompile(`[0-9]`)

// ExtractOutcome runs all three heuristics over the transcript.
func ExtractOutcome(transcript []TranscriptEntry) Outcome {
	humans := HumanLines(transcript)
	return Outcome{
		Resolution:      ExtractResolution(humans),
		ReferenceNumber: ExtractReferenceNumber(humans),
		NextSteps:       ExtractNextSteps(humans),
	}
}

// ExtractResolution scans the human utterances newest first and returns the
// first one carrying a resolution keyword. When nothing matches it falls back
// to the last substantive utterance, and failing that returns empty.
func ExtractResolution(humanLines []string) string {
	for i := len(humanLines) - 1; i >= 0; i-- {
		lower := strings.ToLower(humanLines[i])
		for _, kw := range resolutionKeywords {
			if strings.Contains(lower, kw) {
				return strings.TrimSpace(humanLines[i])
			}
		}
	}
	for i := len(humanLines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(humanLines[i])
		if utf8.RuneCountInString(line) > resolutionMinLen {
			return line
		}
	}
	return ""
}

// ExtractReferenceNumber scans newest first for a keyword-anchored identifier
// and falls back to a bare uppercase token containing a digit.
func ExtractReferenceNumber(humanLines []string) string {
	for i := len(humanLines) - 1; i >= 0; i-- {
		if m := referencePattern.FindStringSubmatch(humanLines[i]); m != nil {
			return m[1]
		}
	}
	for i := len(humanLines) - 1; i >= 0; i-- {
		for _, token := range bareTokenPattern.FindAllString(humanLines[i], -1) {
			if digitPattern.MatchString(token) {
				return token
			}
		}
	}
	return ""
}

// ExtractNextSteps returns the most recent substantive utterance describing a
// follow-up action, or the default guidance when no line qualifies.
func ExtractNextSteps(humanLines []string) []string {
	for i := len(humanLines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(humanLines[i])
		if utf8.RuneCountInString(line) <= nextStepsMinLen {
			continue
		}
		lower := strings.ToLower(line)
		for _, kw := range nextStepsKeywords {
			if strings.Contains(lower, kw) {
				return []string{line}
			}
		}
	}
	return []string{DefaultNextSteps}
}
