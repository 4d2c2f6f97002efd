package dialogue

import (
	"strings"
	"unicode/utf8"
)

const (
	questionMinLen   = 10
	questionMaxLen   = 150
	questionAttempts = 2
)

// vaguePhrases disqualify a generated question. A question leaning on filler
// like "tell me more" wastes one of the few turns the dialogue gets.
var vaguePhrases = []string{
	"more details",
	"more information",
	"tell me more",
	"anything you can share",
	"clarify your issue",
	"elaborate on",
}

// questionAcceptable rejects questions that are too short, too long or vague
// instead of asking for a concrete fact.
func questionAcceptable(q string) bool {
	q = strings.TrimSpace(q)
	n := utf8.RuneCountInString(q)
	if n < questionMinLen || n > questionMaxLen {
		return false
	}
	lower := strings.ToLower(q)
	for _, p := range vaguePhrases {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// templateQuestion is the deterministic fallback used when generation fails
// or keeps producing unacceptable questions. Ordered by information value:
// incident timing first, desired outcome second, then a catch-all.
func templateQuestion(answered int) string {
	switch answered {
	case 0:
		return "When did this issue first occur, and has it happened more than once?"
	case 1:
		return "What outcome would resolve this complaint to your satisfaction?"
	default:
		return "Is there anything else about this issue the company should know?"
	}
}
