package domain

import "time"

type ReferenceKind string

const (
	ReferenceKindLink ReferenceKind = "link"
	ReferenceKindSpot ReferenceKind = "spot"
)

type SpotSection struct {
	Name string `json:"name" validate:"required,max=100"`
	Body string `json:"body"`
}

type Reference struct {
	ID        string        `json:"id"`
	Kind      ReferenceKind `json:"kind"`
	Title     string        `json:"title"`
	URL       string        `json:"url,omitempty"`
	Content   string        `json:"content,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ReferenceResponse struct {
	Reference
	Preamble string        `json:"preamble,omitempty"`
	Sections []SpotSection `json:"sections,omitempty"`
	Links    []string      `json:"links,omitempty"`
}

type CreateReferenceRequest struct {
	Kind     ReferenceKind `json:"kind" validate:"required,oneof=link spot"`
	Title    string        `json:"title" validate:"required,max=200"`
	URL      string        `json:"url" validate:"required_if=Kind link,omitempty,url"`
	Preamble string        `json:"preamble"`
	Sections []SpotSection `json:"sections" validate:"dive"`
}

type UpdateReferenceRequest struct {
	Title    *string        `json:"title" validate:"omitempty,max=200"`
	URL      *string        `json:"url" validate:"omitempty,url"`
	Preamble *string        `json:"preamble"`
	Sections *[]SpotSection `json:"sections"`
}

func ReferencesPath(userID, itineraryID string) string {
	return ItineraryPath(userID, itineraryID) + "/references"
}
