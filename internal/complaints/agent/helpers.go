package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxComplaintText = 4000
	maxAnswerLength  = 2000
	userDataBegin    = "<<<BEGIN_USER_DATA>>>"
	userDataEnd      = "<<<END_USER_DATA>>>"
)

// sanitizeUserInput strips control characters that could smuggle structure
// into a prompt, then truncates runaway input. Newlines and tabs survive
// because complaint text legitimately contains them.
func sanitizeUserInput(s string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)

	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen] + "... [truncated]"
	}
	return cleaned
}

// wrapUserData fences customer text between markers the system prompt tells
// the model to treat as data, never as instructions.
func wrapUserData(content string) string {
	return userDataBegin + "\n" + content + "\n" + userDataEnd
}

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// salvageJSON decodes raw as JSON. If the whole response is not valid JSON it
// retries with the widest brace-delimited block, which rescues model output
// wrapped in prose or markdown fences.
func salvageJSON(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	block := jsonObjectRe.FindString(trimmed)
	if block == "" {
		return fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("decode salvaged JSON block: %w", err)
	}
	return nil
}
