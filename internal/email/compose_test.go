package email

import (
	"strings"
	"testing"
)

func TestComposeComplaintEmailIncludesCaseDetails(t *testing.T) {
	subject, html, err := ComposeComplaintEmail(
		"Acme Utilities",
		"Dana Smith",
		"dana@example.com",
		"billing",
		"I was charged twice for the March invoice.",
		map[string]string{"invoice_number": "INV-2026-019", "account_number": "AC-100"},
	)
	if err != nil {
		t.Fatalf("ComposeComplaintEmail() error = %v", err)
	}

	if want := "Formal complaint filed on behalf of Dana Smith"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	for _, want := range []string{
		"Acme Utilities",
		"Dana Smith",
		"dana@example.com",
		"billing",
		"I was charged twice for the March invoice.",
		"invoice_number",
		"INV-2026-019",
		"account_number",
		"reference number",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("body missing %q", want)
		}
	}

	// Details render in sorted key order.
	if strings.Index(html, "account_number") > strings.Index(html, "invoice_number") {
		t.Error("details are not sorted by key")
	}
}

func TestComposeComplaintEmailOmitsEmptyOptionalParts(t *testing.T) {
	_, html, err := ComposeComplaintEmail("Acme Utilities", "Dana Smith", "", "", "Broken product.", nil)
	if err != nil {
		t.Fatalf("ComposeComplaintEmail() error = %v", err)
	}
	if strings.Contains(html, "()") {
		t.Error("empty customer email should not render empty parentheses")
	}
	if strings.Contains(html, "Relevant details") {
		t.Error("empty details should omit the details section")
	}
}

func TestComposeResolutionEmailRendersOutcome(t *testing.T) {
	subject, html, err := ComposeResolutionEmail(
		"Dana Smith",
		"Acme Utilities",
		"Refund of 49.99 approved",
		"CS-1200",
		[]string{"Refund arrives within 5 business days"},
	)
	if err != nil {
		t.Fatalf("ComposeResolutionEmail() error = %v", err)
	}

	if want := "Your complaint with Acme Utilities has been resolved"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	for _, want := range []string{"Dana Smith", "Refund of 49.99 approved", "CS-1200", "Refund arrives within 5 business days"} {
		if !strings.Contains(html, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestComposeResolutionEmailWithoutReference(t *testing.T) {
	_, html, err := ComposeResolutionEmail("Dana Smith", "Acme Utilities", "Replacement shipped", "", nil)
	if err != nil {
		t.Fatalf("ComposeResolutionEmail() error = %v", err)
	}
	if strings.Contains(html, "Reference number") {
		t.Error("missing reference should omit the reference line")
	}
}

func TestComposeCallFailedEmailListsNextSteps(t *testing.T) {
	subject, html, err := ComposeCallFailedEmail(
		"Dana Smith",
		"Acme Utilities",
		"dialing failed after 3 attempts",
		[]string{"Try the company's web form", "Retry the call tomorrow"},
	)
	if err != nil {
		t.Fatalf("ComposeCallFailedEmail() error = %v", err)
	}

	if want := "We could not reach Acme Utilities about your complaint"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	for _, want := range []string{"dialing failed after 3 attempts", "web form", "Retry the call tomorrow"} {
		if !strings.Contains(html, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestComposeEscalationEmail(t *testing.T) {
	subject, html, err := ComposeEscalationEmail("Dana Smith", "Acme Utilities", "call completed without a readable resolution")
	if err != nil {
		t.Fatalf("ComposeEscalationEmail() error = %v", err)
	}
	if want := "Your complaint with Acme Utilities has been escalated"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	if !strings.Contains(html, "human agent") {
		t.Error("body should mention the human follow-up")
	}
}

func TestComposeEscalationAlertEmailLinksComplaint(t *testing.T) {
	subject, html, err := ComposeEscalationAlertEmail(
		"Acme Utilities",
		"Dana Smith",
		"call completed without a readable resolution",
		"https://app.example.com/complaints/abc",
	)
	if err != nil {
		t.Fatalf("ComposeEscalationAlertEmail() error = %v", err)
	}
	if want := "Escalation: complaint against Acme Utilities needs an agent"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	if !strings.Contains(html, `href="https://app.example.com/complaints/abc"`) {
		t.Error("body missing the complaint link")
	}
}

func TestComposeFallbackSummaryEmailListsFields(t *testing.T) {
	subject, html, err := ComposeFallbackSummaryEmail("Dana Smith", "Acme Utilities", []string{"account_number"})
	if err != nil {
		t.Fatalf("ComposeFallbackSummaryEmail() error = %v", err)
	}
	if want := "Details added to your complaint with Acme Utilities"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	if !strings.Contains(html, "account_number") {
		t.Error("body missing the collected field")
	}
	if !strings.Contains(html, "resumed") {
		t.Error("body should confirm the company call was resumed")
	}
}
