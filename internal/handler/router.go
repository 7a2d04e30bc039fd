package handler

import (
	"net/http"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/middleware"

	"github.com/gorilla/mux"
)

// Handlers bundles everything the router serves.
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Itinerary *ItineraryHandler
	Activity  *ActivityHandler
	Checklist *ChecklistHandler
	Expense   *ExpenseHandler
	Reference *ReferenceHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
}

type RouterOptions struct {
	JWTSecret string
	// Limiter is optional.
	Limiter *middleware.RateLimiter
	// Middleware wraps every matched route, outermost first.
	Middleware []mux.MiddlewareFunc
}

func NewRouter(h Handlers, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	public := api.PathPrefix("/auth").Subrouter()
	if opts.Limiter != nil {
		public.Use(opts.Limiter.Limit)
	}
	public.HandleFunc("/register", h.Auth.Register).Methods(http.MethodPost)
	public.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)
	public.HandleFunc("/refresh", h.Auth.Refresh).Methods(http.MethodPost)
	public.HandleFunc("/logout", h.Auth.Logout).Methods(http.MethodPost)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(opts.JWTSecret))
	if opts.Limiter != nil {
		protected.Use(opts.Limiter.Limit)
	}

	protected.HandleFunc("/users/me", h.User.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", h.User.UpdateMe).Methods(http.MethodPatch)

	protected.HandleFunc("/itineraries", h.Itinerary.Create).Methods(http.MethodPost)
	protected.HandleFunc("/itineraries", h.Itinerary.List).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}", h.Itinerary.Get).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}", h.Itinerary.Update).Methods(http.MethodPut, http.MethodPatch)
	protected.HandleFunc("/itineraries/{id}", h.Itinerary.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/itineraries/{id}/days/{day}/activities", h.Activity.List).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}/days/{day}/activities", h.Activity.Create).Methods(http.MethodPost)
	protected.HandleFunc("/itineraries/{id}/days/{day}/activities/reorder", h.Activity.Reorder).Methods(http.MethodPost)
	protected.HandleFunc("/itineraries/{id}/activities/{activityId}", h.Activity.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/itineraries/{id}/activities/{activityId}", h.Activity.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/itineraries/{id}/activities/{activityId}/move", h.Activity.Move).Methods(http.MethodPost)

	protected.HandleFunc("/itineraries/{id}/categories", h.Checklist.CreateCategory).Methods(http.MethodPost)
	protected.HandleFunc("/itineraries/{id}/categories", h.Checklist.ListCategories).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}/categories/{categoryId}", h.Checklist.DeleteCategory).Methods(http.MethodDelete)
	protected.HandleFunc("/itineraries/{id}/categories/{categoryId}/items", h.Checklist.CreateItem).Methods(http.MethodPost)
	protected.HandleFunc("/itineraries/{id}/categories/{categoryId}/items", h.Checklist.ListItems).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}/items/{itemId}", h.Checklist.UpdateItem).Methods(http.MethodPatch)
	protected.HandleFunc("/itineraries/{id}/items/{itemId}", h.Checklist.DeleteItem).Methods(http.MethodDelete)

	protected.HandleFunc("/itineraries/{id}/expenses", h.Expense.Create).Methods(http.MethodPost)
	protected.HandleFunc("/itineraries/{id}/expenses", h.Expense.List).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}/expenses/totals", h.Expense.Totals).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}/expenses/{expenseId}", h.Expense.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/itineraries/{id}/expenses/{expenseId}", h.Expense.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/itineraries/{id}/references", h.Reference.Create).Methods(http.MethodPost)
	protected.HandleFunc("/itineraries/{id}/references", h.Reference.List).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}/references/{refId}", h.Reference.Get).Methods(http.MethodGet)
	protected.HandleFunc("/itineraries/{id}/references/{refId}", h.Reference.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/itineraries/{id}/references/{refId}", h.Reference.Delete).Methods(http.MethodDelete)

	if h.WebSocket != nil {
		r.HandleFunc("/ws", h.WebSocket.HandleConnection)
	}
	r.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)

	return r
}
