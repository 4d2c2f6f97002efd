// Package complaints provides the complaint bounded context: intake,
// classification, the clarification dialogue surface and the resolution
// fan-out. It is the root aggregate of the engine; calls and notifications
// hang off the events it publishes.
package complaints

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/agent"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/handler"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/service"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/internal/dialogue"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	apphttp "github.com/DataCleaninghash/CustomerAII/internal/http"
	"github.com/DataCleaninghash/CustomerAII/internal/scheduler"
	"github.com/DataCleaninghash/CustomerAII/platform/ai/moonshot"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/validator"
)

// ModuleConfig is the slice of application config the module needs.
type ModuleConfig interface {
	config.LLMConfig
	config.DialogueConfig
}

// Module is the complaints bounded context module implementing http.Module.
type Module struct {
	handler      *handler.Handler
	service      *service.Service
	orchestrator *Orchestrator
	classifier   *agent.Classifier
	repo         *repository.Repository
	log          *logger.Logger
}

// NewModule creates and initializes the complaints module with all its
// dependencies. The calls repository, scheduler queue, contact resolver and
// mailer are cross-module collaborators built at the composition root.
func NewModule(
	pool *pgxpool.Pool,
	cfg ModuleConfig,
	callRecords CallRecords,
	queue scheduler.CallEnqueuer,
	resolver contacts.Resolver,
	mailer ResolutionMailer,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	repo := repository.New(pool)

	classifier, err := agent.NewClassifier(cfg.GetMoonshotAPIKey(), cfg.GetMoonshotModel(), repo, bus)
	if err != nil {
		return nil, fmt.Errorf("init intake classifier: %w", err)
	}

	model := moonshot.NewModel(moonshot.Config{
		APIKey: cfg.GetMoonshotAPIKey(),
		Model:  cfg.GetMoonshotModel(),
	})
	engine := dialogue.NewEngine(agent.NewExtractor(model), repo, bus, log, cfg)

	svc := service.New(repo, bus, log)
	orch := NewOrchestrator(repo, engine, callRecords, queue, resolver, mailer, bus, log)
	h := handler.New(svc, orch, val)

	return &Module{
		handler:      h,
		service:      svc,
		orchestrator: orch,
		classifier:   classifier,
		repo:         repo,
		log:          log,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "complaints"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Orchestrator returns the orchestration facade for external use.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts complaint routes on the provided router context.
// Endpoints that reach paid upstream services carry the intake limiter on
// top of the baseline per-IP budget.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/complaints")
	intakeLimit := ctx.IntakeLimiter.RateLimit()

	group.POST("", intakeLimit, m.handler.Create)
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.POST("/:id/dialogue/advance", m.handler.Advance)
	group.POST("/:id/dialogue/turns/:turnId/answer", m.handler.SubmitAnswer)
	group.POST("/:id/call", intakeLimit, m.handler.PlaceCall)
	group.POST("/:id/resolve", intakeLimit, m.handler.Resolve)
	group.GET("/:id/timeline", m.handler.Timeline)
}

// RegisterHandlers subscribes to domain events: classification kickoff and
// the timeline trail of the dialogue and resolution lifecycle.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ComplaintCreated{}.EventName(), m)
	bus.Subscribe(events.QuestionAsked{}.EventName(), m)
	bus.Subscribe(events.AnswerRecorded{}.EventName(), m)
	bus.Subscribe(events.DialogueReady{}.EventName(), m)
	bus.Subscribe(events.ComplaintResolved{}.EventName(), m)
	bus.Subscribe(events.ComplaintEscalated{}.EventName(), m)
	bus.Subscribe(events.FallbackCompleted{}.EventName(), m)
}

// Handle routes events to the appropriate handler method. Handlers run after
// the publishing request may already have completed, so they detach from its
// cancellation.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	ctx = context.WithoutCancel(ctx)

	switch e := event.(type) {
	case events.ComplaintCreated:
		return m.classifier.Run(ctx, e.ComplaintID)
	case events.QuestionAsked:
		return m.recordQuestionTimeline(ctx, e)
	case events.AnswerRecorded:
		return m.recordAnswerTimeline(ctx, e)
	case events.DialogueReady:
		return m.recordReadyTimeline(ctx, e)
	case events.ComplaintResolved:
		return m.recordResolvedTimeline(ctx, e)
	case events.ComplaintEscalated:
		return m.recordEscalatedTimeline(ctx, e)
	case events.FallbackCompleted:
		return m.recordFallbackTimeline(ctx, e)
	default:
		return nil
	}
}

func (m *Module) recordQuestionTimeline(ctx context.Context, e events.QuestionAsked) error {
	_, err := m.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: e.ComplaintID,
		ActorType:   repository.ActorTypeAI,
		ActorName:   repository.ActorNameDialogue,
		EventType:   repository.EventTypeQuestion,
		Title:       repository.EventTitleQuestionAsked,
		Summary:     repository.TruncateSummary(e.Question, repository.TimelineSummaryMaxLen),
		Metadata: map[string]any{
			"turn_id":         e.TurnID.String(),
			"question_number": e.QuestionNumber,
			"templated":       e.Templated,
		},
	})
	return err
}

func (m *Module) recordAnswerTimeline(ctx context.Context, e events.AnswerRecorded) error {
	actorName := "Customer"
	if complaint, err := m.repo.GetByID(ctx, e.ComplaintID); err == nil && complaint.Customer.Name != "" {
		actorName = complaint.Customer.Name
	}

	summary := fmt.Sprintf("Answer recorded; %d field(s) extracted, confidence now %.2f.", e.FieldsExtracted, e.Confidence)
	_, err := m.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: e.ComplaintID,
		ActorType:   repository.ActorTypeCustomer,
		ActorName:   actorName,
		EventType:   repository.EventTypeAnswer,
		Title:       repository.EventTitleAnswerRecorded,
		Summary:     repository.TruncateSummary(summary, repository.TimelineSummaryMaxLen),
		Metadata: map[string]any{
			"turn_id":          e.TurnID.String(),
			"fields_extracted": e.FieldsExtracted,
			"confidence_delta": e.ConfidenceDelta,
		},
	})
	return err
}

func (m *Module) recordReadyTimeline(ctx context.Context, e events.DialogueReady) error {
	summary := fmt.Sprintf("Dialogue finished after %d question(s) (%s), confidence %.2f.", e.QuestionsAsked, e.Reason, e.FinalConfidence)
	_, err := m.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: e.ComplaintID,
		ActorType:   repository.ActorTypeAI,
		ActorName:   repository.ActorNameDialogue,
		EventType:   repository.EventTypeDialogueReady,
		Title:       repository.EventTitleDialogueReady,
		Summary:     repository.TruncateSummary(summary, repository.TimelineSummaryMaxLen),
		Metadata: map[string]any{
			"questions_asked":  e.QuestionsAsked,
			"final_confidence": e.FinalConfidence,
			"reason":           e.Reason,
		},
	})
	return err
}

func (m *Module) recordResolvedTimeline(ctx context.Context, e events.ComplaintResolved) error {
	summary := e.Resolution
	if e.ReferenceNumber != "" {
		summary = fmt.Sprintf("%s (reference %s)", e.Resolution, e.ReferenceNumber)
	}
	_, err := m.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: e.ComplaintID,
		ActorType:   repository.ActorTypeSystem,
		ActorName:   repository.ActorNameCallExecutor,
		EventType:   repository.EventTypeResolution,
		Title:       repository.EventTitleComplaintResolved,
		Summary:     repository.TruncateSummary(summary, repository.TimelineSummaryMaxLen),
	})
	return err
}

func (m *Module) recordEscalatedTimeline(ctx context.Context, e events.ComplaintEscalated) error {
	_, err := m.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: e.ComplaintID,
		ActorType:   repository.ActorTypeSystem,
		ActorName:   repository.ActorNameCallExecutor,
		EventType:   repository.EventTypeEscalation,
		Title:       repository.EventTitleComplaintEscalated,
		Summary:     repository.TruncateSummary(e.Reason, repository.TimelineSummaryMaxLen),
	})
	return err
}

func (m *Module) recordFallbackTimeline(ctx context.Context, e events.FallbackCompleted) error {
	outcome := "the company call was not resumed"
	if e.CallResumed {
		outcome = "the company call resumed"
	}
	summary := fmt.Sprintf("Collected %d field(s) from the customer mid-call; %s.", len(e.FieldsCollected), outcome)
	_, err := m.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: e.ComplaintID,
		ActorType:   repository.ActorTypeAI,
		ActorName:   repository.ActorNameFallback,
		EventType:   repository.EventTypeFallback,
		Title:       repository.EventTitleFallbackCompleted,
		Summary:     repository.TruncateSummary(summary, repository.TimelineSummaryMaxLen),
		Metadata: map[string]any{
			"call_record_id":   e.CallRecordID.String(),
			"fields_collected": e.FieldsCollected,
			"call_resumed":     e.CallResumed,
		},
	})
	return err
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
