package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type detailRow struct {
	Label string
	Value string
}

type complaintEmailData struct {
	baseEmailData
	CompanyName   string
	CustomerName  string
	CustomerEmail string
	Category      string
	ComplaintText string
	Details       []detailRow
}

type resolutionEmailData struct {
	baseEmailData
	CustomerName    string
	CompanyName     string
	Resolution      string
	ReferenceNumber string
	NextSteps       []string
}

type callFailedEmailData struct {
	baseEmailData
	CustomerName string
	CompanyName  string
	Reason       string
	NextSteps    []string
}

type escalationEmailData struct {
	baseEmailData
	CustomerName string
	CompanyName  string
	Reason       string
}

type fallbackSummaryEmailData struct {
	baseEmailData
	CustomerName    string
	CompanyName     string
	FieldsCollected []string
}

type escalationAlertEmailData struct {
	baseEmailData
	CompanyName  string
	CustomerName string
	Reason       string
	ComplaintURL string
}

// ComposeComplaintEmail renders the formal complaint sent to the company.
func ComposeComplaintEmail(companyName, customerName, customerEmail, category, complaintText string, details map[string]string) (string, string, error) {
	subject := fmt.Sprintf(subjectComplaintFmt, customerName)
	content, err := renderEmailTemplate("complaint.html", complaintEmailData{
		baseEmailData: baseEmailData{
			Title:      "Formal complaint",
			Heading:    "Formal complaint",
			Subheading: fmt.Sprintf("Filed on behalf of %s", customerName),
		},
		CompanyName:   companyName,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Category:      category,
		ComplaintText: complaintText,
		Details:       detailRows(details),
	})
	return subject, content, err
}

// ComposeResolutionEmail renders the customer notification for a resolved
// complaint.
func ComposeResolutionEmail(customerName, companyName, resolution, referenceNumber string, nextSteps []string) (string, string, error) {
	subject := fmt.Sprintf(subjectResolvedFmt, companyName)
	content, err := renderEmailTemplate("resolution.html", resolutionEmailData{
		baseEmailData: baseEmailData{
			Title:   "Complaint resolved",
			Heading: "Complaint resolved",
		},
		CustomerName:    customerName,
		CompanyName:     companyName,
		Resolution:      resolution,
		ReferenceNumber: referenceNumber,
		NextSteps:       nextSteps,
	})
	return subject, content, err
}

// ComposeCallFailedEmail renders the customer notification for a resolution
// call that never got through.
func ComposeCallFailedEmail(customerName, companyName, reason string, nextSteps []string) (string, string, error) {
	subject := fmt.Sprintf(subjectCallFailedFmt, companyName)
	content, err := renderEmailTemplate("call_failed.html", callFailedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Call not completed",
			Heading: "We could not complete the call",
		},
		CustomerName: customerName,
		CompanyName:  companyName,
		Reason:       reason,
		NextSteps:    nextSteps,
	})
	return subject, content, err
}

// ComposeEscalationEmail renders the customer notification for a call that
// ended without a concrete resolution.
func ComposeEscalationEmail(customerName, companyName, reason string) (string, string, error) {
	subject := fmt.Sprintf(subjectEscalatedFmt, companyName)
	content, err := renderEmailTemplate("escalation.html", escalationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Complaint escalated",
			Heading: "Your complaint needs follow-up",
		},
		CustomerName: customerName,
		CompanyName:  companyName,
		Reason:       reason,
	})
	return subject, content, err
}

// ComposeFallbackSummaryEmail renders the customer notification confirming
// the details collected during a mid-call fallback.
func ComposeFallbackSummaryEmail(customerName, companyName string, fieldsCollected []string) (string, string, error) {
	subject := fmt.Sprintf(subjectFallbackSummaryFmt, companyName)
	content, err := renderEmailTemplate("fallback_summary.html", fallbackSummaryEmailData{
		baseEmailData: baseEmailData{
			Title:   "Details received",
			Heading: "Thank you for the extra details",
		},
		CustomerName:    customerName,
		CompanyName:     companyName,
		FieldsCollected: fieldsCollected,
	})
	return subject, content, err
}

// ComposeEscalationAlertEmail renders the internal alert that asks a human
// agent to pick up an escalated complaint.
func ComposeEscalationAlertEmail(companyName, customerName, reason, complaintURL string) (string, string, error) {
	subject := fmt.Sprintf(subjectEscalationAlertFmt, companyName)
	content, err := renderEmailTemplate("escalation_alert.html", escalationAlertEmailData{
		baseEmailData: baseEmailData{
			Title:   "Escalation",
			Heading: "A complaint needs an agent",
		},
		CompanyName:  companyName,
		CustomerName: customerName,
		Reason:       reason,
		ComplaintURL: complaintURL,
	})
	return subject, content, err
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func detailRows(details map[string]string) []detailRow {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]detailRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, detailRow{Label: k, Value: details[k]})
	}
	return rows
}
