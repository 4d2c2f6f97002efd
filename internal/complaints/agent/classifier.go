package agent

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/ai/moonshot"
)

// Classifier categorizes fresh complaints and scores how complete they are.
type Classifier struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	repo           repository.ComplaintsRepository
	toolDeps       *ToolDependencies
	runMu          sync.Mutex
}

// NewClassifier creates a Classifier agent.
func NewClassifier(apiKey, model string, repo repository.ComplaintsRepository, eventBus events.Bus) (*Classifier, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey:          apiKey,
		Model:           model,
		DisableThinking: true,
	})

	deps := &ToolDependencies{
		Repo:     repo,
		EventBus: eventBus,
	}

	flagMissingTool, err := createFlagMissingInfoTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build FlagMissingInfo tool: %w", err)
	}
	saveClassificationTool, err := createSaveClassificationTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build SaveClassification tool: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "IntakeClassifier",
		Model:       kimi,
		Description: "Classifies consumer complaints and flags missing facts.",
		Instruction: classifierInstruction,
		Tools:       []tool.Tool{flagMissingTool, saveClassificationTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        "intake-classifier",
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier runner: %w", err)
	}

	return &Classifier{
		agent:          adkAgent,
		runner:         r,
		sessionService: sessionService,
		appName:        "intake-classifier",
		repo:           repo,
		toolDeps:       deps,
	}, nil
}

// Run executes the classifier for a complaint.
func (c *Classifier) Run(ctx context.Context, complaintID uuid.UUID) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.toolDeps.SetComplaintID(complaintID)
	c.toolDeps.ResetToolCallTracking() // Reset before each run

	complaint, err := c.repo.GetByID(ctx, complaintID)
	if err != nil {
		return err
	}

	promptText := buildClassifierPrompt(complaint)
	log.Printf("classifier: starting runWithPrompt for complaint=%s", complaintID)
	if err := c.runWithPrompt(ctx, promptText, complaintID); err != nil {
		log.Printf("classifier: runWithPrompt failed for complaint=%s: %v", complaintID, err)
	}

	// Validate that SaveClassification was called - if not, fall back to the
	// deterministic keyword verdict so intake never stalls on a flaky model.
	if !c.toolDeps.WasSaveClassificationCalled() {
		log.Printf("classifier: SaveClassification was NOT called by agent for complaint=%s, creating fallback", complaintID)
		c.createFallbackClassification(ctx, complaint)
		return nil
	}

	c.recordClassificationTimeline(ctx, complaintID)
	return nil
}

func (c *Classifier) recordClassificationTimeline(ctx context.Context, complaintID uuid.UUID) {
	fresh, err := c.repo.GetByID(ctx, complaintID)
	if err != nil {
		log.Printf("classifier: failed to re-fetch complaint for timeline: %v", err)
		return
	}
	_, _ = c.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: complaintID,
		ActorType:   repository.ActorTypeAI,
		ActorName:   repository.ActorNameClassifier,
		EventType:   repository.EventTypeClassification,
		Title:       repository.EventTitleClassified,
		Summary:     repository.TruncateSummary(fresh.Classification.Summary, repository.TimelineSummaryMaxLen),
		Metadata: map[string]any{
			"category":          fresh.Classification.Category,
			"severity":          fresh.Classification.Severity,
			"initialConfidence": fresh.InitialConfidence,
			"missingFields":     fresh.MissingFields,
		},
	})
}

// createFallbackClassification applies the keyword verdict when the agent
// fails to persist one.
func (c *Classifier) createFallbackClassification(ctx context.Context, complaint domain.Complaint) {
	classification := domain.Classification{
		Category: domain.CategoryForText(complaint.ComplaintText),
		Severity: domain.SeverityForText(complaint.ComplaintText),
		Summary:  "Automatic classification could not be completed. Category assigned by keyword match.",
	}

	err := c.repo.UpdateClassification(ctx, complaint.ID, classification, domain.FallbackInitialConfidence, nil)
	if err != nil {
		log.Printf("classifier: failed to store fallback classification: %v", err)
		return
	}

	summary := fmt.Sprintf("Keyword fallback: category %s, severity %s.", classification.Category, classification.Severity)
	_, _ = c.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: complaint.ID,
		ActorType:   repository.ActorTypeAI,
		ActorName:   repository.ActorNameClassifier,
		EventType:   repository.EventTypeClassification,
		Title:       repository.EventTitleClassifierFallback,
		Summary:     &summary,
		Metadata: map[string]any{
			"category":          classification.Category,
			"severity":          classification.Severity,
			"initialConfidence": domain.FallbackInitialConfidence,
			"fallback":          true,
		},
	})

	if c.toolDeps != nil && c.toolDeps.EventBus != nil {
		c.toolDeps.EventBus.Publish(ctx, events.ComplaintClassified{
			BaseEvent:         events.NewBaseEvent(),
			ComplaintID:       complaint.ID,
			Category:          classification.Category,
			Severity:          classification.Severity,
			InitialConfidence: domain.FallbackInitialConfidence,
		})
	}

	log.Printf("classifier: created fallback classification for complaint=%s", complaint.ID)
}

func (c *Classifier) runWithPrompt(ctx context.Context, promptText string, complaintID uuid.UUID) error {
	sessionID := uuid.New().String()
	userID := "classifier-" + complaintID.String()

	_, err := c.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   c.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to create classifier session: %w", err)
	}
	defer func() {
		_ = c.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   c.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: promptText}},
	}

	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for event := range c.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		_ = event
	}

	return nil
}
