package domain

import (
	"testing"
	"time"

	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
)

func TestDepartmentFor(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I was charged twice on my invoice", "billing"},
		{"The app keeps crashing with an error", "technical_support"},
		{"I want to cancel my subscription", "account_management"},
		{"I want a refund for this order", "returns"},
		{"The staff was rude to me", "general"},
	}
	for _, tt := range tests {
		if got := DepartmentFor(tt.text); got != tt.want {
			t.Errorf("DepartmentFor(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestPlanNavigationKnownMenu(t *testing.T) {
	menu := &contacts.IVRMenu{
		GreetingSeconds: 8,
		Options:         map[string]string{"billing": "2"},
	}

	plan := PlanNavigation(menu, "billing")
	if plan.Generic {
		t.Fatal("known menu produced a generic plan")
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("plan has %d steps, want 2", len(plan.Steps))
	}
	if plan.Steps[0].Action != ActionWait || plan.Steps[0].Delay != 8*time.Second {
		t.Errorf("first step = %+v, want 8s greeting wait", plan.Steps[0])
	}
	if plan.Steps[1].Action != ActionPress || plan.Steps[1].Value != "2" {
		t.Errorf("second step = %+v, want press 2", plan.Steps[1])
	}
}

func TestPlanNavigationUnknownDepartmentFallsBackToOperator(t *testing.T) {
	menu := &contacts.IVRMenu{Options: map[string]string{"billing": "2"}}

	plan := PlanNavigation(menu, "returns")
	if !plan.Generic {
		t.Fatal("missing department should produce the generic operator plan")
	}
	assertOperatorPlan(t, plan)
}

func TestPlanNavigationNilMenu(t *testing.T) {
	plan := PlanNavigation(nil, "billing")
	if !plan.Generic {
		t.Fatal("nil menu should produce the generic operator plan")
	}
	assertOperatorPlan(t, plan)
}

func assertOperatorPlan(t *testing.T, plan NavigationPlan) {
	t.Helper()
	if len(plan.Steps) != 3 {
		t.Fatalf("generic plan has %d steps, want 3", len(plan.Steps))
	}
	if plan.Steps[1].Action != ActionPress || plan.Steps[1].Value != "0" {
		t.Errorf("generic plan second step = %+v, want press 0", plan.Steps[1])
	}
}
