package domain

import (
	"fmt"
	"time"

	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	complaintsdomain "github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
)

// StepAction is one kind of IVR navigation action.
type StepAction string

const (
	ActionWait  StepAction = "wait"
	ActionPress StepAction = "press"
	ActionSay   StepAction = "say"
)

// PlanStep is a single timed action. Delay is how long to wait before the
// action is issued, mirroring a human listening to the menu first.
type PlanStep struct {
	Action      StepAction
	Value       string
	Delay       time.Duration
	Description string
}

// NavigationPlan is an ordered key-press sequence for one call. Generated per
// call, consumed once.
type NavigationPlan struct {
	Department string
	Generic    bool
	Steps      []PlanStep
}

const (
	defaultGreetingWait = 3 * time.Second
	genericGreetingWait = 5 * time.Second
	operatorPickupWait  = 10 * time.Second
	keyPressDelay       = time.Second
)

// DepartmentFor picks the IVR target department from the complaint text. It
// reuses the intake keyword mapping so classification and menu choice always
// agree on what kind of problem this is.
func DepartmentFor(issueText string) string {
	return complaintsdomain.CategoryForText(issueText)
}

// PlanNavigation builds the plan for a target department. A known menu that
// lists the department yields a direct key press; anything else falls back to
// the generic operator plan.
func PlanNavigation(menu *contacts.IVRMenu, department string) NavigationPlan {
	key, ok := menu.KeyFor(department)
	if !ok {
		return GenericPlan(department)
	}

	greeting := defaultGreetingWait
	if menu.GreetingSeconds > 0 {
		greeting = time.Duration(menu.GreetingSeconds) * time.Second
	}

	return NavigationPlan{
		Department: department,
		Steps: []PlanStep{
			{Action: ActionWait, Delay: greeting, Description: "wait for the menu greeting"},
			{Action: ActionPress, Value: key, Delay: keyPressDelay, Description: fmt.Sprintf("press %s for %s", key, department)},
		},
	}
}

// GenericPlan targets the operator: wait out the greeting, press zero, wait
// for pickup. Used when the menu is unknown or a direct plan failed.
func GenericPlan(department string) NavigationPlan {
	return NavigationPlan{
		Department: department,
		Generic:    true,
		Steps: []PlanStep{
			{Action: ActionWait, Delay: genericGreetingWait, Description: "wait for the menu greeting"},
			{Action: ActionPress, Value: "0", Delay: keyPressDelay, Description: "press 0 for the operator"},
			{Action: ActionWait, Delay: operatorPickupWait, Description: "wait for an operator to pick up"},
		},
	}
}
