package contacts

import "time"

// Ops DTOs for the internal contact directory endpoints.

type IVRMenuPayload struct {
	GreetingSeconds int               `json:"greetingSeconds" validate:"min=0,max=600"`
	Options         map[string]string `json:"options" validate:"required,min=1"`
}

type UpsertContactRequest struct {
	PhoneNumbers []string        `json:"phoneNumbers" validate:"required,min=1,max=5,dive,dialable"`
	Emails       []string        `json:"emails" validate:"omitempty,max=5,dive,email"`
	IVRMenu      *IVRMenuPayload `json:"ivrMenu,omitempty"`
	Source       string          `json:"source,omitempty" validate:"omitempty,max=100"`
}

type ContactResponse struct {
	CompanyName  string          `json:"companyName"`
	PhoneNumbers []string        `json:"phoneNumbers"`
	Emails       []string        `json:"emails"`
	IVRMenu      *IVRMenuPayload `json:"ivrMenu,omitempty"`
	Source       string          `json:"source"`
	FetchedAt    time.Time       `json:"fetchedAt"`
}
