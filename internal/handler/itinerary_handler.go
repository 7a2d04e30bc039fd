package handler

import (
	"net/http"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/middleware"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/service"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/websocket"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ItineraryNotifier delivers a message to every live connection of a user.
type ItineraryNotifier interface {
	SendToUser(userID string, message *websocket.Message) error
}

type ItineraryHandler struct {
	service  *service.ItineraryService
	notifier ItineraryNotifier
	validate *validator.Validate
	logger   *zap.Logger
}

// NewItineraryHandler builds the handler; notifier may be nil.
func NewItineraryHandler(service *service.ItineraryService, notifier ItineraryNotifier, logger *zap.Logger) *ItineraryHandler {
	return &ItineraryHandler{
		service:  service,
		notifier: notifier,
		validate: newValidator(),
		logger:   logger,
	}
}

func (h *ItineraryHandler) notify(userID string, payload websocket.ItineraryChangedPayload) {
	if h.notifier == nil {
		return
	}
	msg, err := websocket.NewMessage(websocket.TypeItineraryChanged, payload)
	if err != nil {
		h.logger.Error("failed to build itinerary notification", zap.Error(err))
		return
	}
	if err := h.notifier.SendToUser(userID, msg); err != nil {
		h.logger.Warn("failed to notify itinerary change",
			zap.String("user_id", userID),
			zap.String("itinerary_id", payload.ItineraryID),
			zap.Error(err))
	}
}

func (h *ItineraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateItineraryRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	it, err := h.service.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, it)
}

func (h *ItineraryHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, list)
}

func (h *ItineraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.service.Get(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, it)
}

func (h *ItineraryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateItineraryRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	userID := middleware.GetUserID(r)
	it, err := h.service.Update(r.Context(), userID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notify(userID, websocket.ItineraryChangedPayload{ItineraryID: it.ID, Days: it.Days})
	response.Success(w, it)
}

// Delete removes the itinerary together with everything stored under it.
func (h *ItineraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id := middleware.GetUserID(r), mux.Vars(r)["id"]
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notify(userID, websocket.ItineraryChangedPayload{ItineraryID: id, Deleted: true})
	response.NoContent(w)
}
