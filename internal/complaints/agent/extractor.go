package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Completer is the plain chat-completion surface of the LLM client.
// Satisfied by *moonshot.KimiModel.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor runs the non-agentic LLM call sites of the dialogue: question
// generation, answer extraction and the continue/stop decision. Every call
// site demands strict JSON and salvages brace-delimited blocks from chatty
// responses; what cannot be salvaged surfaces as an error so the caller can
// apply its own degradation rule.
type Extractor struct {
	model Completer
}

func NewExtractor(model Completer) *Extractor {
	return &Extractor{model: model}
}

type questionPayload struct {
	Question string `json:"question"`
}

// GenerateQuestion asks the model for the next clarification question.
func (e *Extractor) GenerateQuestion(ctx context.Context, pc PromptContext) (string, error) {
	raw, err := e.model.Complete(ctx, questionSystemPrompt, buildQuestionPrompt(pc))
	if err != nil {
		return "", fmt.Errorf("question completion: %w", err)
	}

	var out questionPayload
	if err := salvageJSON(raw, &out); err != nil {
		return "", fmt.Errorf("question response: %w", err)
	}
	question := strings.TrimSpace(out.Question)
	if question == "" {
		return "", fmt.Errorf("model returned an empty question")
	}
	return question, nil
}

type fieldsPayload struct {
	Fields map[string]string `json:"fields"`
}

// ExtractFields pulls structured facts out of a customer's answer. The prompt
// context must carry the prior turns only; the answer itself rides in
// pc.LatestAnswer.
func (e *Extractor) ExtractFields(ctx context.Context, pc PromptContext) (map[string]string, error) {
	raw, err := e.model.Complete(ctx, extractSystemPrompt, buildExtractPrompt(pc))
	if err != nil {
		return nil, fmt.Errorf("extraction completion: %w", err)
	}

	var out fieldsPayload
	if err := salvageJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("extraction response: %w", err)
	}
	return cleanFields(out.Fields), nil
}

type continuePayload struct {
	NeedMore bool   `json:"needMore"`
	Reason   string `json:"reason"`
}

// DecideContinue asks whether the dialogue needs another question. Errors are
// returned as (false, err): the engine treats an unreadable decision as "stop"
// rather than looping on a broken model.
func (e *Extractor) DecideContinue(ctx context.Context, pc PromptContext) (bool, error) {
	raw, err := e.model.Complete(ctx, continueSystemPrompt, buildContinuePrompt(pc))
	if err != nil {
		return false, fmt.Errorf("continue completion: %w", err)
	}

	var out continuePayload
	if err := salvageJSON(raw, &out); err != nil {
		return false, fmt.Errorf("continue response: %w", err)
	}
	log.Printf("extractor: continue decision needMore=%v reason=%q", out.NeedMore, out.Reason)
	return out.NeedMore, nil
}

type answersPayload struct {
	Answers map[string]string `json:"answers"`
}

// ExtractAnswers maps a fallback side-call transcript onto the requested
// missing fields. Used by the call coordinator when the company agent asked
// for information the context did not have.
func (e *Extractor) ExtractAnswers(ctx context.Context, missingFields []string, transcript string) (map[string]string, error) {
	raw, err := e.model.Complete(ctx, answersSystemPrompt, buildAnswersPrompt(missingFields, transcript))
	if err != nil {
		return nil, fmt.Errorf("answers completion: %w", err)
	}

	var out answersPayload
	if err := salvageJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("answers response: %w", err)
	}
	return cleanFields(out.Answers), nil
}

// cleanFields trims keys and values and drops blank entries so sloppy model
// output never pollutes the context.
func cleanFields(raw map[string]string) map[string]string {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		value := strings.TrimSpace(v)
		if key == "" || value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}
