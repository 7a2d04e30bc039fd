package domain

import (
	"encoding/json"
	"time"
)

// Field names of an activity document in the remote store.
const (
	FieldDay         = "day"
	FieldOrder       = "order"
	FieldTitle       = "title"
	FieldLocation    = "location"
	FieldStartTime   = "start_time"
	FieldEndTime     = "end_time"
	FieldDescription = "description"
	FieldIsCompleted = "is_completed"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
)

const clockLayout = "15:04"

// Activity is one planned event of an itinerary day. Order is nil when the
// stored document carries no order field.
type Activity struct {
	ID          string    `json:"id"`
	Day         int       `json:"day"`
	Order       *int      `json:"order,omitempty"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	StartTime   string    `json:"start_time,omitempty"`
	EndTime     string    `json:"end_time,omitempty"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasOrder reports whether the stored order equals pos.
func (a Activity) HasOrder(pos int) bool {
	return a.Order != nil && *a.Order == pos
}

// Duration is the span between StartTime and EndTime. It is zero when either
// end is missing or malformed; an end before the start is taken to cross midnight.
func (a Activity) Duration() time.Duration {
	if a.StartTime == "" || a.EndTime == "" {
		return 0
	}
	start, err := time.Parse(clockLayout, a.StartTime)
	if err != nil {
		return 0
	}
	end, err := time.Parse(clockLayout, a.EndTime)
	if err != nil {
		return 0
	}
	d := end.Sub(start)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// MarshalJSON adds the display duration in whole minutes.
func (a Activity) MarshalJSON() ([]byte, error) {
	type plain Activity
	return json.Marshal(struct {
		plain
		DurationMinutes int `json:"duration_minutes"`
	}{plain(a), int(a.Duration() / time.Minute)})
}

// ActivityDraft is the user input for a new activity.
type ActivityDraft struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	StartTime   string `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime     string `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	Description string `json:"description,omitempty"`
}

// ActivityPatch is a field-level update; nil fields are left untouched.
type ActivityPatch struct {
	Title       *string `json:"title"`
	Location    *string `json:"location"`
	StartTime   *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime     *string `json:"end_time" validate:"omitempty,datetime=15:04"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"is_completed"`
}

// Fields returns the patch as a merge document.
func (p ActivityPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Title != nil {
		fields[FieldTitle] = *p.Title
	}
	if p.Location != nil {
		fields[FieldLocation] = *p.Location
	}
	if p.StartTime != nil {
		fields[FieldStartTime] = *p.StartTime
	}
	if p.EndTime != nil {
		fields[FieldEndTime] = *p.EndTime
	}
	if p.Description != nil {
		fields[FieldDescription] = *p.Description
	}
	if p.IsCompleted != nil {
		fields[FieldIsCompleted] = *p.IsCompleted
	}
	return fields
}

// Empty reports whether the patch changes nothing.
func (p ActivityPatch) Empty() bool {
	return len(p.Fields()) == 0
}

type ReorderRequest struct {
	Source      int  `json:"source" validate:"min=0"`
	Destination *int `json:"destination"`
}

type MoveActivityRequest struct {
	Day int `json:"day" validate:"required,min=1"`
}

// ActivitiesPath is the collection holding the activities of one itinerary.
func ActivitiesPath(userID, itineraryID string) string {
	return ItineraryPath(userID, itineraryID) + "/activities"
}
