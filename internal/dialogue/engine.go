// Package dialogue implements the adaptive clarification loop that enriches
// a complaint context before any resolution call is placed.
package dialogue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/agent"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// Extractor is the LLM collaborator for question generation, answer
// extraction and the continue/stop decision. Satisfied by *agent.Extractor.
type Extractor interface {
	GenerateQuestion(ctx context.Context, pc agent.PromptContext) (string, error)
	ExtractFields(ctx context.Context, pc agent.PromptContext) (map[string]string, error)
	DecideContinue(ctx context.Context, pc agent.PromptContext) (bool, error)
}

// Store persists the full context after every mutation.
type Store interface {
	SaveContext(ctx context.Context, ec *domain.EnhancedContext) error
}

// Step is the externally visible outcome of a dialogue operation: either the
// question the customer must answer next, or readiness for the call phase.
type Step struct {
	Ready          bool
	Question       *domain.ConversationTurn
	Confidence     float64
	QuestionsAsked int
}

// Engine drives the question loop. It owns three rules: at most one pending
// turn at a time, a hard cap on answered questions, and a fail-closed stop
// when the continue decision cannot be read.
type Engine struct {
	extractor    Extractor
	store        Store
	bus          events.Bus
	log          *logger.Logger
	maxQuestions int
}

func NewEngine(extractor Extractor, store Store, bus events.Bus, log *logger.Logger, cfg config.DialogueConfig) *Engine {
	return &Engine{
		extractor:    extractor,
		store:        store,
		bus:          bus,
		log:          log,
		maxQuestions: cfg.GetDialogueMaxQuestions(),
	}
}

// Advance moves the dialogue forward: it either re-presents the open
// question, finishes the dialogue, or asks a new question.
//
// Calling Advance while a turn is pending returns that turn unchanged, so
// clients can safely retry. The continue decision runs only when no turn is
// open and the cap is not reached; an unreadable decision ends the dialogue
// rather than risking an unbounded loop.
func (e *Engine) Advance(ctx context.Context, ec *domain.EnhancedContext) (Step, error) {
	if turn, ok := ec.Turns.Pending(); ok {
		return e.questionStep(ec, turn), nil
	}
	if ec.DialogueComplete {
		return e.readyStep(ec), nil
	}
	if ec.Turns.AnsweredCount() >= e.maxQuestions {
		return e.finish(ctx, ec, "question_cap")
	}

	needMore, err := e.extractor.DecideContinue(ctx, agent.BuildPromptContext(ec))
	if err != nil {
		e.log.DialogueEvent("continue_decision_failed", ec.ComplaintID.String(), ec.Turns.AnsweredCount(), ec.Confidence())
		return e.finish(ctx, ec, "decision_error")
	}
	if !needMore {
		return e.finish(ctx, ec, "sufficient")
	}

	question, templated := e.nextQuestion(ctx, ec)
	turn := domain.NewTurn(question, templated, time.Now())
	ec.Turns.Append(turn)
	ec.Status = domain.StatusDialogue
	if err := e.store.SaveContext(ctx, ec); err != nil {
		return Step{}, apperr.Wrap(apperr.KindInternal, "failed to persist dialogue turn", err)
	}

	e.bus.Publish(ctx, events.QuestionAsked{
		BaseEvent:      events.NewBaseEvent(),
		ComplaintID:    ec.ComplaintID,
		TurnID:         turn.ID,
		Question:       turn.Question,
		QuestionNumber: ec.Turns.Len(),
		Templated:      templated,
	})
	e.log.DialogueEvent("question_asked", ec.ComplaintID.String(), ec.Turns.Len(), ec.Confidence())

	return e.questionStep(ec, turn), nil
}

// SubmitAnswer records the customer's answer on the identified turn, extracts
// fields from it against the prior turns only, then advances the dialogue.
func (e *Engine) SubmitAnswer(ctx context.Context, ec *domain.EnhancedContext, turnID uuid.UUID, answer string) (Step, error) {
	turn, ok := ec.Turns.Get(turnID)
	if !ok {
		return Step{}, apperr.NotFound("conversation turn not found")
	}
	if turn.Answered() {
		return Step{}, apperr.Conflict("conversation turn already answered")
	}

	pc := agent.BuildPromptContext(ec)
	pc.PriorTurns = ec.Turns.Before(turnID)
	pc.LatestAnswer = answer

	fields, err := e.extractor.ExtractFields(ctx, pc)
	if err != nil {
		// A broken extraction downgrades the answer to "recorded, nothing
		// structured": the dialogue itself must not fail on a flaky model.
		e.log.DialogueEvent("extraction_failed", ec.ComplaintID.String(), ec.Turns.AnsweredCount(), ec.Confidence())
		fields = map[string]string{}
	}

	delta := domain.DeltaPlainAnswer
	if len(fields) > 0 {
		delta = domain.DeltaInformativeAnswer
	}

	if err := ec.RecordAnswer(turnID, answer, fields, delta, time.Now()); err != nil {
		switch {
		case errors.Is(err, domain.ErrTurnNotFound):
			return Step{}, apperr.NotFound("conversation turn not found")
		case errors.Is(err, domain.ErrTurnAnswered):
			return Step{}, apperr.Conflict("conversation turn already answered")
		default:
			return Step{}, apperr.Wrap(apperr.KindInternal, "failed to record answer", err)
		}
	}
	if err := e.store.SaveContext(ctx, ec); err != nil {
		return Step{}, apperr.Wrap(apperr.KindInternal, "failed to persist answer", err)
	}

	e.bus.Publish(ctx, events.AnswerRecorded{
		BaseEvent:       events.NewBaseEvent(),
		ComplaintID:     ec.ComplaintID,
		TurnID:          turnID,
		FieldsExtracted: len(fields),
		ConfidenceDelta: delta,
		Confidence:      ec.Confidence(),
	})
	e.log.DialogueEvent("answer_recorded", ec.ComplaintID.String(), ec.Turns.AnsweredCount(), ec.Confidence())

	return e.Advance(ctx, ec)
}

// finish closes the dialogue and marks the context ready for the call phase.
func (e *Engine) finish(ctx context.Context, ec *domain.EnhancedContext, reason string) (Step, error) {
	ec.DialogueComplete = true
	ec.Status = domain.StatusReady
	if err := e.store.SaveContext(ctx, ec); err != nil {
		return Step{}, apperr.Wrap(apperr.KindInternal, "failed to persist dialogue completion", err)
	}

	e.bus.Publish(ctx, events.DialogueReady{
		BaseEvent:       events.NewBaseEvent(),
		ComplaintID:     ec.ComplaintID,
		QuestionsAsked:  ec.Turns.AnsweredCount(),
		FinalConfidence: ec.Confidence(),
		Reason:          reason,
	})
	e.log.DialogueEvent("dialogue_ready", ec.ComplaintID.String(), ec.Turns.AnsweredCount(), ec.Confidence())

	return e.readyStep(ec), nil
}

// nextQuestion tries the generator up to questionAttempts times, then falls
// back to the deterministic templates. A generation error skips straight to
// the template: the dialogue never stalls on the model.
func (e *Engine) nextQuestion(ctx context.Context, ec *domain.EnhancedContext) (string, bool) {
	pc := agent.BuildPromptContext(ec)
	for attempt := 0; attempt < questionAttempts; attempt++ {
		q, err := e.extractor.GenerateQuestion(ctx, pc)
		if err != nil {
			e.log.DialogueEvent("question_generation_failed", ec.ComplaintID.String(), ec.Turns.AnsweredCount(), ec.Confidence())
			break
		}
		if questionAcceptable(q) {
			return q, false
		}
		e.log.DialogueEvent("question_rejected", ec.ComplaintID.String(), ec.Turns.AnsweredCount(), ec.Confidence())
	}
	return templateQuestion(ec.Turns.AnsweredCount()), true
}

func (e *Engine) questionStep(ec *domain.EnhancedContext, turn domain.ConversationTurn) Step {
	return Step{
		Question:       &turn,
		Confidence:     ec.Confidence(),
		QuestionsAsked: ec.Turns.Len(),
	}
}

func (e *Engine) readyStep(ec *domain.EnhancedContext) Step {
	return Step{
		Ready:          true,
		Confidence:     ec.Confidence(),
		QuestionsAsked: ec.Turns.AnsweredCount(),
	}
}
