package domain

import "time"

type Category struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

type ChecklistItem struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity,omitempty"`
	IsChecked  bool      `json:"is_checked"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateCategoryRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

type CreateChecklistItemRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

type UpdateChecklistItemRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=200"`
	Quantity  *int    `json:"quantity" validate:"omitempty,min=0"`
	IsChecked *bool   `json:"is_checked"`
}

func (r UpdateChecklistItemRequest) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.Name != nil {
		fields["name"] = *r.Name
	}
	if r.Quantity != nil {
		fields["quantity"] = *r.Quantity
	}
	if r.IsChecked != nil {
		fields["is_checked"] = *r.IsChecked
	}
	return fields
}

func CategoriesPath(userID, itineraryID string) string {
	return ItineraryPath(userID, itineraryID) + "/categories"
}

func ChecklistItemsPath(userID, itineraryID string) string {
	return ItineraryPath(userID, itineraryID) + "/checklist"
}
