package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func answeredTurn(delta float64) ConversationTurn {
	now := time.Now()
	return ConversationTurn{
		ID:              uuid.New(),
		Question:        "What outcome would resolve this complaint to your satisfaction?",
		Answer:          "A full refund",
		ConfidenceDelta: delta,
		AskedAt:         now,
		AnsweredAt:      &now,
	}
}

func TestOverallConfidenceSumsAnsweredDeltas(t *testing.T) {
	turns := []ConversationTurn{answeredTurn(0.2), answeredTurn(0.1)}
	got := OverallConfidence(0.5, turns)
	if got != 0.8 {
		t.Errorf("OverallConfidence(0.5, [0.2 0.1]) = %v, want 0.8", got)
	}
}

func TestOverallConfidenceClampsAtOne(t *testing.T) {
	turns := []ConversationTurn{answeredTurn(0.2), answeredTurn(0.2), answeredTurn(0.2)}
	got := OverallConfidence(0.9, turns)
	if got != 1.0 {
		t.Errorf("OverallConfidence(0.9, [0.2 0.2 0.2]) = %v, want 1.0", got)
	}
}

func TestOverallConfidenceIgnoresPendingTurns(t *testing.T) {
	pending := NewTurn("When did this issue first occur?", false, time.Now())
	pending.ConfidenceDelta = 0.2 // must not count: the turn has no answer
	turns := []ConversationTurn{answeredTurn(0.1), pending}
	got := OverallConfidence(0.3, turns)
	if got != 0.4 {
		t.Errorf("OverallConfidence with pending turn = %v, want 0.4", got)
	}
}

func TestOverallConfidenceNeverNegative(t *testing.T) {
	if got := OverallConfidence(-0.3, nil); got != 0 {
		t.Errorf("OverallConfidence(-0.3, nil) = %v, want 0", got)
	}
}

func TestRecordAnswerMergesFieldsLaterWins(t *testing.T) {
	ec := EnhancedContext{
		ComplaintID:     uuid.New(),
		ExtractedFields: map[string]string{"order_number": "A-100", "product": "router"},
	}
	turn := NewTurn("What is the correct order number?", false, time.Now())
	ec.Turns.Append(turn)

	err := ec.RecordAnswer(turn.ID, "It is actually A-200", map[string]string{"order_number": "A-200"}, DeltaInformativeAnswer, time.Now())
	if err != nil {
		t.Fatalf("RecordAnswer returned error: %v", err)
	}
	if ec.ExtractedFields["order_number"] != "A-200" {
		t.Errorf("order_number = %q, want later answer to win with %q", ec.ExtractedFields["order_number"], "A-200")
	}
	if ec.ExtractedFields["product"] != "router" {
		t.Errorf("unrelated field product = %q, want untouched %q", ec.ExtractedFields["product"], "router")
	}
	if got := ec.Confidence(); got != DeltaInformativeAnswer {
		t.Errorf("Confidence after informative answer = %v, want %v", got, DeltaInformativeAnswer)
	}
}
