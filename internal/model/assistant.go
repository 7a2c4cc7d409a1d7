// Package model defines data structures for the help assistant platform.
package model

import (
	"time"
)

// User is an account managed by the external auth service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Assistant is a configured help assistant persona.
type Assistant struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Mission        string          `json:"mission"`
	Description    string          `json:"description,omitempty"`
	OperatorName   string          `json:"operator_name"`
	OperatorPic    string          `json:"operator_pic"`
	Authorizations []Authorization `json:"authorizations"`
	Tone           Tone            `json:"tone"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OwnedBy reports whether userID owns the assistant.
func (a *Assistant) OwnedBy(userID string) bool {
	return a.UserID == userID
}

// Can reports whether the assistant holds the given authorization.
func (a *Assistant) Can(auth Authorization) bool {
	for _, got := range a.Authorizations {
		if got == auth {
			return true
		}
	}
	return false
}

// Summary returns the identity fields shown next to chat messages.
func (a *Assistant) Summary() AssistantSummary {
	return AssistantSummary{
		ID:           a.ID,
		Name:         a.Name,
		OperatorName: a.OperatorName,
		OperatorPic:  a.OperatorPic,
		Tone:         a.Tone,
	}
}

// AssistantSummary is the minimal assistant identity for client display.
type AssistantSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OperatorName string `json:"operator_name"`
	OperatorPic  string `json:"operator_pic"`
	Tone         Tone   `json:"tone"`
}

// AssistantRequest is the body of create and update requests. Tone and
// authorizations arrive as raw strings and are validated by the service.
type AssistantRequest struct {
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Mission        string   `json:"mission"`
	Description    string   `json:"description,omitempty"`
	OperatorName   string   `json:"operator_name"`
	OperatorPic    string   `json:"operator_pic,omitempty"`
	Authorizations []string `json:"authorizations"`
	Tone           string   `json:"tone,omitempty"`
}
