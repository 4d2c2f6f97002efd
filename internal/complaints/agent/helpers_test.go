package agent

import (
	"strings"
	"testing"
)

func TestSanitizeUserInputStripsControlCharacters(t *testing.T) {
	input := "line one\x00\x1b[31m\nline two\twith tab"
	got := sanitizeUserInput(input, 1000)
	want := "line one[31m\nline two\twith tab"
	if got != want {
		t.Fatalf("unexpected sanitized input:\nwant: %q\ngot:  %q", want, got)
	}
}

func TestSanitizeUserInputTruncates(t *testing.T) {
	got := sanitizeUserInput(strings.Repeat("a", 50), 10)
	if !strings.HasSuffix(got, "... [truncated]") {
		t.Errorf("truncated input missing marker: %q", got)
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Errorf("truncated input lost prefix: %q", got)
	}
}

func TestSalvageJSONVariants(t *testing.T) {
	type payload struct {
		Question string `json:"question"`
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"question": "q1"}`, "q1"},
		{"fenced", "```json\n{\"question\": \"q2\"}\n```", "q2"},
		{"prose", `Of course. {"question": "q3"} Let me know!`, "q3"},
		{"whitespace", "\n\t {\"question\": \"q4\"} \n", "q4"},
	}

	for _, tc := range tests {
		var p payload
		if err := salvageJSON(tc.raw, &p); err != nil {
			t.Errorf("%s: salvageJSON returned error: %v", tc.name, err)
			continue
		}
		if p.Question != tc.want {
			t.Errorf("%s: question = %q, want %q", tc.name, p.Question, tc.want)
		}
	}
}

func TestSalvageJSONNoObject(t *testing.T) {
	var p struct{}
	if err := salvageJSON("no json here at all", &p); err == nil {
		t.Fatal("salvageJSON accepted a response with no JSON object")
	}
}

func TestWrapUserDataMarkers(t *testing.T) {
	wrapped := wrapUserData("payload")
	if !strings.HasPrefix(wrapped, userDataBegin) || !strings.HasSuffix(wrapped, userDataEnd) {
		t.Errorf("wrapUserData missing markers: %q", wrapped)
	}
}
