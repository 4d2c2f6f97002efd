// Package contacts supplies customer-service contact details for a company.
// The core consumes Details read-only; resolution strategy (static seed,
// cache, external lookup) is decided at the composition root.
package contacts

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoContact is returned when no resolver can supply details for a company.
var ErrNoContact = errors.New("no contact details for company")

// IVRMenu is a known phone-tree layout: how long the greeting runs and which
// DTMF key reaches each department.
type IVRMenu struct {
	GreetingSeconds int               `json:"greeting_seconds"`
	Options         map[string]string `json:"options"`
}

// KeyFor returns the DTMF key for a department, if the menu lists one.
func (m *IVRMenu) KeyFor(department string) (string, bool) {
	if m == nil || len(m.Options) == 0 {
		return "", false
	}
	key, ok := m.Options[department]
	return key, ok
}

// Details describes how to reach a company's customer service line.
type Details struct {
	CompanyName  string
	PhoneNumbers []string
	Emails       []string
	IVRMenu      *IVRMenu
	Source       string
	FetchedAt    time.Time
}

// PrimaryPhone returns the first listed number, or empty when none exist.
func (d *Details) PrimaryPhone() string {
	if d == nil || len(d.PhoneNumbers) == 0 {
		return ""
	}
	return d.PhoneNumbers[0]
}

// PrimaryEmail returns the first listed address, or empty when none exist.
func (d *Details) PrimaryEmail() string {
	if d == nil || len(d.Emails) == 0 {
		return ""
	}
	return d.Emails[0]
}

// Resolver supplies contact details for a company name.
type Resolver interface {
	Resolve(ctx context.Context, companyName string) (*Details, error)
}

// NormalizeCompanyName produces the lookup key shared by every resolver:
// lowercased with whitespace runs collapsed to single spaces.
func NormalizeCompanyName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
