package calls

import (
	"fmt"
	"sort"
	"strings"

	complaintsdomain "github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
)

// BuildTaskScript composes the instructions the voice agent follows on the
// company call: who is calling on whose behalf, what the complaint is, what
// is already known, and what outcome to push for.
func BuildTaskScript(ec *complaintsdomain.EnhancedContext) string {
	var b strings.Builder

	b.WriteString("You are calling the customer service line of ")
	b.WriteString(ec.CompanyName)
	b.WriteString(" on behalf of a customer to resolve a complaint.\n\n")

	b.WriteString("## Customer\n")
	fmt.Fprintf(&b, "Name: %s\n", ec.Customer.Name)
	if ec.Customer.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", ec.Customer.Email)
	}
	if ec.Customer.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", ec.Customer.Phone)
	}

	b.WriteString("\n## Complaint\n")
	if ec.Classification.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", ec.Classification.Category)
	}
	if ec.Classification.Product != "" {
		fmt.Fprintf(&b, "Product: %s\n", ec.Classification.Product)
	}
	if ec.Classification.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", ec.Classification.Summary)
	}
	fmt.Fprintf(&b, "Customer's own words: %s\n", ec.ComplaintText)

	if len(ec.ExtractedFields) > 0 {
		b.WriteString("\n## Known details\n")
		for _, key := range sortedKeys(ec.ExtractedFields) {
			fmt.Fprintf(&b, "- %s: %s\n", key, ec.ExtractedFields[key])
		}
	}

	if turns := ec.Turns.All(); len(turns) > 0 {
		b.WriteString("\n## Clarification dialogue with the customer\n")
		for i, turn := range turns {
			fmt.Fprintf(&b, "%d. Q: %s\n", i+1, turn.Question)
			if turn.Answered() {
				fmt.Fprintf(&b, "   A: %s\n", turn.Answer)
			}
		}
	}

	b.WriteString("\n## Your task\n")
	b.WriteString("1. Navigate any phone menu to reach the right department.\n")
	b.WriteString("2. Explain the complaint clearly and politely.\n")
	b.WriteString("3. Push for a concrete resolution: a refund, replacement or committed follow-up.\n")
	b.WriteString("4. Always ask for a reference or case number before the call ends.\n")
	b.WriteString("5. If the agent needs information you do not have, say you will check with the customer.\n")

	return b.String()
}

// BuildFallbackScript composes the side-call instructions for collecting the
// missing fields from the customer.
func BuildFallbackScript(customerName, companyName string, questions []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are calling %s back about their complaint against %s.\n", customerName, companyName)
	b.WriteString("The company's agent needs a few details to continue. Ask these questions one at a time, ")
	b.WriteString("confirm each answer by repeating it back, then thank the customer and end the call.\n\n")
	b.WriteString("## Questions\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
