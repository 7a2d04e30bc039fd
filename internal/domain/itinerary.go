package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type Itinerary struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Destination  string    `json:"destination,omitempty"`
	StartDate    string    `json:"start_date"`
	Days         int       `json:"days"`
	BaseCurrency string    `json:"base_currency,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DateOfDay returns the calendar date of the given 1-based day.
func (i *Itinerary) DateOfDay(day int) (time.Time, error) {
	if day < 1 || day > i.Days {
		return time.Time{}, fmt.Errorf("day %d outside itinerary range 1..%d", day, i.Days)
	}
	start, err := time.Parse(dateLayout, i.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q: %w", i.StartDate, err)
	}
	return start.AddDate(0, 0, day-1), nil
}

type CreateItineraryRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Destination  string `json:"destination" validate:"max=200"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Days         int    `json:"days" validate:"required,min=1,max=365"`
	BaseCurrency string `json:"base_currency" validate:"omitempty,iso4217"`
}

type UpdateItineraryRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	Destination  *string `json:"destination" validate:"omitempty,max=200"`
	StartDate    *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Days         *int    `json:"days" validate:"omitempty,min=1,max=365"`
	BaseCurrency *string `json:"base_currency" validate:"omitempty,iso4217"`
}

// ItinerariesPath is the collection of one user's itineraries.
func ItinerariesPath(userID string) string {
	return "users/" + userID + "/itineraries"
}

// ItineraryPath is the root of everything nested under one itinerary.
func ItineraryPath(userID, itineraryID string) string {
	return ItinerariesPath(userID) + "/" + itineraryID
}
