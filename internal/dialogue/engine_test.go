package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/agent"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// scriptedExtractor replays canned decisions, questions and extractions.
type scriptedExtractor struct {
	decisions     []bool
	decisionErr   error
	decisionCalls int

	questions     []string
	questionErr   error
	questionCalls int

	fields        map[string]string
	extractErr    error
	lastExtractPC agent.PromptContext
}

func (s *scriptedExtractor) DecideContinue(_ context.Context, _ agent.PromptContext) (bool, error) {
	s.decisionCalls++
	if s.decisionErr != nil {
		return false, s.decisionErr
	}
	if len(s.decisions) == 0 {
		return false, nil
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

func (s *scriptedExtractor) GenerateQuestion(_ context.Context, _ agent.PromptContext) (string, error) {
	s.questionCalls++
	if s.questionErr != nil {
		return "", s.questionErr
	}
	if len(s.questions) == 0 {
		return "What exactly happened with your most recent order?", nil
	}
	q := s.questions[0]
	s.questions = s.questions[1:]
	return q, nil
}

func (s *scriptedExtractor) ExtractFields(_ context.Context, pc agent.PromptContext) (map[string]string, error) {
	s.lastExtractPC = pc
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	return s.fields, nil
}

// memoryStore counts durable context writes.
type memoryStore struct {
	saves int
	err   error
}

func (m *memoryStore) SaveContext(_ context.Context, _ *domain.EnhancedContext) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	return nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	out := make([]string, len(b.published))
	for i, e := range b.published {
		out[i] = e.EventName()
	}
	return out
}

type fixedDialogueConfig int

func (c fixedDialogueConfig) GetDialogueMaxQuestions() int { return int(c) }

func newTestEngine(ex *scriptedExtractor, store *memoryStore, bus *recordingBus, maxQuestions int) *Engine {
	return NewEngine(ex, store, bus, logger.New("development"), fixedDialogueConfig(maxQuestions))
}

func newTestContext(initialConfidence float64) *domain.EnhancedContext {
	return &domain.EnhancedContext{
		ComplaintID:       uuid.New(),
		Status:            domain.StatusDialogue,
		CompanyName:       "Acme Utilities",
		ComplaintText:     "I was charged twice for the March invoice.",
		Customer:          domain.CustomerDetails{Name: "Dana Smith", Email: "dana@example.com"},
		Classification:    domain.Classification{Category: domain.CategoryBilling, Severity: domain.SeverityMedium},
		InitialConfidence: initialConfidence,
	}
}

func TestAdvanceAsksGeneratedQuestion(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true}, questions: []string{"Which invoice number shows the duplicate charge?"}}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if step.Ready {
		t.Fatal("Advance reported ready, want a question")
	}
	if step.Question == nil || step.Question.Question != "Which invoice number shows the duplicate charge?" {
		t.Fatalf("unexpected question: %+v", step.Question)
	}
	if step.Question.Templated {
		t.Error("generated question marked as templated")
	}
	if store.saves != 1 {
		t.Errorf("SaveContext called %d times, want 1", store.saves)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "complaints.dialogue.question_asked" {
		t.Errorf("published events = %v, want one question_asked", got)
	}
}

func TestAdvanceWithPendingTurnIsIdempotent(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true}}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	first, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("first Advance returned error: %v", err)
	}
	second, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("second Advance returned error: %v", err)
	}

	if second.Question == nil || second.Question.ID != first.Question.ID {
		t.Error("second Advance did not return the open turn unchanged")
	}
	if store.saves != 1 {
		t.Errorf("SaveContext called %d times, want 1; a repeat Advance must not write", store.saves)
	}
	if ex.decisionCalls != 1 {
		t.Errorf("DecideContinue called %d times, want 1", ex.decisionCalls)
	}
}

func TestAdvanceFailsClosedOnDecisionError(t *testing.T) {
	ex := &scriptedExtractor{decisionErr: errors.New("model unreachable")}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if !step.Ready {
		t.Fatal("Advance kept asking on a broken continue decision, want ready")
	}
	if !ec.DialogueComplete {
		t.Error("DialogueComplete not set")
	}
	ready, ok := bus.published[0].(events.DialogueReady)
	if !ok {
		t.Fatalf("published %T, want DialogueReady", bus.published[0])
	}
	if ready.Reason != "decision_error" {
		t.Errorf("ready reason = %q, want %q", ready.Reason, "decision_error")
	}
}

func TestAdvanceStopsWhenContextSufficient(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{false}}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.8)

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if !step.Ready {
		t.Fatal("want ready when the model says the context is sufficient")
	}
	if ec.Status != domain.StatusReady {
		t.Errorf("status = %s, want %s", ec.Status, domain.StatusReady)
	}
}

func TestAdvanceHardCapSkipsDecision(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true, true, true}}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 2)
	ec := newTestContext(0.3)
	now := time.Now()
	for i := 0; i < 2; i++ {
		turn := domain.NewTurn("Question?", false, now)
		ec.Turns.Append(turn)
		if err := ec.RecordAnswer(turn.ID, "answer", nil, domain.DeltaPlainAnswer, now); err != nil {
			t.Fatalf("RecordAnswer: %v", err)
		}
	}

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if !step.Ready {
		t.Fatal("Advance asked past the question cap")
	}
	if ex.decisionCalls != 0 {
		t.Errorf("DecideContinue called %d times at the cap, want 0", ex.decisionCalls)
	}
	ready := bus.published[0].(events.DialogueReady)
	if ready.Reason != "question_cap" {
		t.Errorf("ready reason = %q, want %q", ready.Reason, "question_cap")
	}
}

func TestSubmitAnswerInformativeDelta(t *testing.T) {
	ex := &scriptedExtractor{
		decisions: []bool{true, false},
		questions: []string{"Which invoice number shows the duplicate charge?"},
		fields:    map[string]string{"invoice_number": "INV-8841"},
	}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	asked, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	step, err := e.SubmitAnswer(context.Background(), ec, asked.Question.ID, "Invoice INV-8841 from March 3rd")
	if err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}

	if !step.Ready {
		t.Fatal("want ready after the follow-up decision said stop")
	}
	if got := ec.Confidence(); got != 0.5 {
		t.Errorf("confidence = %v, want 0.3 + 0.2 = 0.5", got)
	}
	if ec.ExtractedFields["invoice_number"] != "INV-8841" {
		t.Errorf("extracted fields not merged: %v", ec.ExtractedFields)
	}
	turn, _ := ec.Turns.Get(asked.Question.ID)
	if !turn.Answered() || turn.ConfidenceDelta != domain.DeltaInformativeAnswer {
		t.Errorf("turn not recorded as informative: %+v", turn)
	}
}

func TestSubmitAnswerPlainDelta(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true, false}, fields: map[string]string{}}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	asked, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if _, err := e.SubmitAnswer(context.Background(), ec, asked.Question.ID, "I am not sure"); err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}

	if got := ec.Confidence(); got != 0.4 {
		t.Errorf("confidence = %v, want 0.3 + 0.1 = 0.4", got)
	}
}

func TestSubmitAnswerExtractionFailureDegrades(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true, false}, extractErr: errors.New("model down")}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	asked, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if _, err := e.SubmitAnswer(context.Background(), ec, asked.Question.ID, "Order O-17 on May 2nd"); err != nil {
		t.Fatalf("SubmitAnswer must not fail on extraction errors, got: %v", err)
	}

	turn, _ := ec.Turns.Get(asked.Question.ID)
	if !turn.Answered() {
		t.Fatal("answer not recorded after extraction failure")
	}
	if turn.ConfidenceDelta != domain.DeltaPlainAnswer {
		t.Errorf("delta = %v, want plain-answer delta on degraded extraction", turn.ConfidenceDelta)
	}
}

func TestSubmitAnswerExcludesOwnTurnFromExtraction(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true, true, false}, fields: map[string]string{}}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	first, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	second, err := e.SubmitAnswer(context.Background(), ec, first.Question.ID, "first answer")
	if err != nil {
		t.Fatalf("first SubmitAnswer returned error: %v", err)
	}
	if _, err := e.SubmitAnswer(context.Background(), ec, second.Question.ID, "second answer"); err != nil {
		t.Fatalf("second SubmitAnswer returned error: %v", err)
	}

	pc := ex.lastExtractPC
	if pc.LatestAnswer != "second answer" {
		t.Errorf("LatestAnswer = %q, want the submitted answer", pc.LatestAnswer)
	}
	if len(pc.PriorTurns) != 1 {
		t.Fatalf("PriorTurns has %d entries, want 1 (only the first turn)", len(pc.PriorTurns))
	}
	if pc.PriorTurns[0].ID == second.Question.ID {
		t.Error("extraction prompt contained the turn being answered")
	}
}

func TestSubmitAnswerUnknownTurn(t *testing.T) {
	e := newTestEngine(&scriptedExtractor{}, &memoryStore{}, &recordingBus{}, 4)
	ec := newTestContext(0.3)

	_, err := e.SubmitAnswer(context.Background(), ec, uuid.New(), "answer")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("SubmitAnswer(unknown turn) = %v, want KindNotFound", err)
	}
}

func TestSubmitAnswerTwiceConflicts(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true, false}, fields: map[string]string{}}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	asked, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if _, err := e.SubmitAnswer(context.Background(), ec, asked.Question.ID, "first"); err != nil {
		t.Fatalf("first SubmitAnswer returned error: %v", err)
	}
	_, err = e.SubmitAnswer(context.Background(), ec, asked.Question.ID, "again")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("second SubmitAnswer = %v, want KindConflict", err)
	}
}

func TestQuestionQualityTwoStrikesFallsBackToTemplate(t *testing.T) {
	ex := &scriptedExtractor{
		decisions: []bool{true},
		questions: []string{"Why?", "Could you share more details about everything?"},
	}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if ex.questionCalls != 2 {
		t.Errorf("GenerateQuestion called %d times, want 2 before template fallback", ex.questionCalls)
	}
	if step.Question == nil || !step.Question.Templated {
		t.Fatal("expected a templated question after two rejects")
	}
	if step.Question.Question != templateQuestion(0) {
		t.Errorf("question = %q, want first template", step.Question.Question)
	}
}

func TestQuestionGenerationErrorFallsBackToTemplate(t *testing.T) {
	ex := &scriptedExtractor{decisions: []bool{true}, questionErr: errors.New("model down")}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if ex.questionCalls != 1 {
		t.Errorf("GenerateQuestion called %d times, want 1 (no retry after hard error)", ex.questionCalls)
	}
	if step.Question == nil || !step.Question.Templated {
		t.Fatal("expected template fallback after generation error")
	}
}

// Runaway protection: a model that always wants more questions still stops at
// the cap.
func TestDialogueRunawayModelStopsAtCap(t *testing.T) {
	ex := &scriptedExtractor{
		decisions: []bool{true, true, true, true, true, true, true, true},
		fields:    map[string]string{},
	}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	for i := 0; i < 10 && !step.Ready; i++ {
		step, err = e.SubmitAnswer(context.Background(), ec, step.Question.ID, "an answer")
		if err != nil {
			t.Fatalf("SubmitAnswer returned error: %v", err)
		}
	}

	if !step.Ready {
		t.Fatal("dialogue never became ready despite the cap")
	}
	if got := ec.Turns.AnsweredCount(); got != 4 {
		t.Errorf("answered turns = %d, want exactly the cap of 4", got)
	}
	if ec.Turns.HasPending() {
		t.Error("a pending turn survived dialogue completion")
	}
}

// Full low-confidence walk: two informative answers raise 0.3 to 0.7, then
// the model reports sufficiency.
func TestDialogueLowConfidenceFlow(t *testing.T) {
	ex := &scriptedExtractor{
		decisions: []bool{true, true, false},
		fields:    map[string]string{"order_number": "A-100"},
	}
	store := &memoryStore{}
	bus := &recordingBus{}
	e := newTestEngine(ex, store, bus, 4)
	ec := newTestContext(0.3)

	step, err := e.Advance(context.Background(), ec)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	step, err = e.SubmitAnswer(context.Background(), ec, step.Question.ID, "Order A-100")
	if err != nil {
		t.Fatalf("SubmitAnswer 1 returned error: %v", err)
	}
	if step.Ready {
		t.Fatal("dialogue ended after one answer, want a second question")
	}
	step, err = e.SubmitAnswer(context.Background(), ec, step.Question.ID, "It arrived broken on May 2nd")
	if err != nil {
		t.Fatalf("SubmitAnswer 2 returned error: %v", err)
	}

	if !step.Ready {
		t.Fatal("dialogue not ready after sufficiency decision")
	}
	if got := ec.Confidence(); got != 0.7 {
		t.Errorf("final confidence = %v, want 0.3 + 0.2 + 0.2 = 0.7", got)
	}
	names := bus.names()
	readyCount := 0
	for _, n := range names {
		if n == "complaints.dialogue.ready" {
			readyCount++
		}
	}
	if readyCount != 1 {
		t.Errorf("DialogueReady published %d times, want once; events: %v", readyCount, names)
	}
}
