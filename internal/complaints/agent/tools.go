package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
)

// normalizeSeverity converts various severity formats to the required values:
// low, medium, high, critical
func normalizeSeverity(severity string) string {
	normalized := strings.ToLower(strings.TrimSpace(severity))

	switch normalized {
	case "critical", "severe", "emergency":
		return domain.SeverityCritical
	case "high", "urgent", "major":
		return domain.SeverityHigh
	case "low", "minor", "trivial":
		return domain.SeverityLow
	case "medium", "mid", "moderate", "normal":
		return domain.SeverityMedium
	default:
		// If unrecognized, default to medium but log it
		log.Printf("Unrecognized severity '%s', defaulting to medium", severity)
		return domain.SeverityMedium
	}
}

// normalizeCategory maps free-form category output onto the known set.
func normalizeCategory(category string) string {
	normalized := strings.ToLower(strings.TrimSpace(category))
	normalized = strings.ReplaceAll(normalized, " ", "_")

	switch normalized {
	case domain.CategoryBilling, domain.CategoryTechnical, domain.CategoryAccount, domain.CategoryReturns, domain.CategoryGeneral:
		return normalized
	case "technical", "tech_support":
		return domain.CategoryTechnical
	case "account", "subscription":
		return domain.CategoryAccount
	case "refund", "refunds", "return":
		return domain.CategoryReturns
	default:
		log.Printf("Unrecognized category '%s', defaulting to general", category)
		return domain.CategoryGeneral
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ToolDependencies contains the dependencies needed by classifier tools
type ToolDependencies struct {
	Repo     repository.ComplaintsRepository
	EventBus events.Bus

	mu            sync.RWMutex
	complaintID   *uuid.UUID
	saveCalled    bool
	missingFields []string
}

func (d *ToolDependencies) SetComplaintID(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.complaintID = &id
}

func (d *ToolDependencies) GetComplaintID() (uuid.UUID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.complaintID == nil {
		return uuid.Nil, false
	}
	return *d.complaintID, true
}

// ResetToolCallTracking clears per-run state. Call before each agent run.
func (d *ToolDependencies) ResetToolCallTracking() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saveCalled = false
	d.missingFields = nil
}

func (d *ToolDependencies) markSaveCalled() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saveCalled = true
}

// WasSaveClassificationCalled reports whether the agent persisted a verdict
// during the current run.
func (d *ToolDependencies) WasSaveClassificationCalled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.saveCalled
}

func (d *ToolDependencies) recordMissingFields(fields []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.missingFields = fields
}

// MissingFields returns the fields flagged by the agent during the current run.
func (d *ToolDependencies) MissingFields() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.missingFields
}

// createSaveClassificationTool creates the SaveClassification tool
func createSaveClassificationTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "SaveClassification",
		Description: "Saves the complaint classification to the database. Call this ONCE after completing your analysis. Category must be one of: billing, technical_support, account_management, returns, general. Severity must be one of: low, medium, high, critical. InitialConfidence must be between 0 and 1.",
	}, func(ctx tool.Context, input SaveClassificationInput) (SaveClassificationOutput, error) {
		complaintID, ok := deps.GetComplaintID()
		if !ok {
			return SaveClassificationOutput{Success: false, Message: "Missing complaint context"}, fmt.Errorf("missing complaint context")
		}

		classification := domain.Classification{
			Category: normalizeCategory(input.Category),
			Product:  strings.TrimSpace(input.Product),
			Severity: normalizeSeverity(input.Severity),
			Summary:  strings.TrimSpace(input.Summary),
		}
		confidence := clampConfidence(input.InitialConfidence)
		missing := deps.MissingFields()

		err := deps.Repo.UpdateClassification(context.Background(), complaintID, classification, confidence, missing)
		if err != nil {
			return SaveClassificationOutput{Success: false, Message: err.Error()}, err
		}

		deps.markSaveCalled()

		if deps.EventBus != nil {
			deps.EventBus.Publish(context.Background(), events.ComplaintClassified{
				BaseEvent:         events.NewBaseEvent(),
				ComplaintID:       complaintID,
				Category:          classification.Category,
				Product:           classification.Product,
				Severity:          classification.Severity,
				InitialConfidence: confidence,
				MissingFields:     missing,
			})
		}

		return SaveClassificationOutput{Success: true, Message: "Classification saved successfully"}, nil
	})
}

// createFlagMissingInfoTool creates the FlagMissingInfo tool
func createFlagMissingInfoTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "FlagMissingInfo",
		Description: "Flags facts the complaint text does not contain, so the dialogue engine can ask the customer for them. Use snake_case field names such as order_number, incident_date, account_number, billing_address. Call BEFORE SaveClassification.",
	}, func(ctx tool.Context, input FlagMissingInfoInput) (FlagMissingInfoOutput, error) {
		fields := make([]string, 0, len(input.Fields))
		for _, f := range input.Fields {
			f = strings.TrimSpace(strings.ToLower(f))
			if f != "" {
				fields = append(fields, f)
			}
		}
		deps.recordMissingFields(fields)
		log.Printf("classifier: flagged missing fields %v (%s)", fields, input.Reason)

		return FlagMissingInfoOutput{
			Success: true,
			Message: fmt.Sprintf("Flagged %d missing field(s)", len(fields)),
		}, nil
	})
}
