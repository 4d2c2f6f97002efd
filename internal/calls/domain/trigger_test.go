package domain

import (
	"reflect"
	"testing"
)

func TestDetectMissingFieldsAccountTrigger(t *testing.T) {
	transcript := []TranscriptEntry{
		agentLine("I am calling about a billing complaint"),
		humanLine("Let me pull that up"),
		humanLine("I need more information about your account"),
	}

	fields := DetectMissingFields(transcript)
	if len(fields) != 1 || fields[0] != FieldAccountNumber {
		t.Errorf("DetectMissingFields = %v, want [%s]", fields, FieldAccountNumber)
	}
}

func TestDetectMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name:  "no trigger",
			lines: []string{"Thanks for calling", "How can I help", "One moment"},
			want:  []string{},
		},
		{
			name:  "order trigger",
			lines: []string{"I cannot proceed without the order number"},
			want:  []string{FieldOrderNumber},
		},
		{
			name:  "date trigger",
			lines: []string{"We are missing details about when this happened"},
			want:  []string{FieldIncidentDate},
		},
		{
			name:  "address trigger",
			lines: []string{"I need to verify the billing address on file"},
			want:  []string{FieldBillingAddress},
		},
		{
			name:  "catch-all",
			lines: []string{"I need more information before I can continue"},
			want:  []string{FieldAdditionalDetails},
		},
		{
			name: "dedupes repeated category",
			lines: []string{
				"I need more information about your account",
				"Without the account I cannot proceed",
			},
			want: []string{FieldAccountNumber},
		},
		{
			name: "only the last three utterances count",
			lines: []string{
				"I need more information about your account",
				"Thanks",
				"One moment",
				"Almost done",
			},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transcript := make([]TranscriptEntry, 0, len(tt.lines))
			for _, l := range tt.lines {
				transcript = append(transcript, humanLine(l))
			}
			got := DetectMissingFields(transcript)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectMissingFields(%v) = %v, want %v", tt.lines, got, tt.want)
			}
		})
	}
}

func TestQuestionForFieldCoversEveryCategory(t *testing.T) {
	fields := []string{
		FieldAccountNumber,
		FieldOrderNumber,
		FieldIncidentDate,
		FieldBillingAddress,
		FieldAdditionalDetails,
		"something_unknown",
	}
	for _, f := range fields {
		if QuestionForField(f) == "" {
			t.Errorf("QuestionForField(%q) returned empty prompt", f)
		}
	}
}
