package handler

import (
	"net/http"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/middleware"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/service"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	service  *service.ActivityService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewActivityHandler(service *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	day, err := intVar(r, "day")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.service.List(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], day)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, list)
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	day, err := intVar(r, "day")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var draft domain.ActivityDraft
	if !decode(w, r, h.validate, &draft) {
		return
	}

	a, err := h.service.Create(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], day, draft)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, a)
}

func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.ActivityPatch
	if !decode(w, r, h.validate, &patch) {
		return
	}

	vars := mux.Vars(r)
	a, err := h.service.Update(r.Context(), middleware.GetUserID(r), vars["id"], vars["activityId"], patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, a)
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), vars["id"], vars["activityId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

// Reorder answers with the day in its new order.
func (h *ActivityHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	day, err := intVar(r, "day")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req domain.ReorderRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	list, err := h.service.Reorder(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], day, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, list)
}

func (h *ActivityHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req domain.MoveActivityRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	vars := mux.Vars(r)
	a, err := h.service.Move(r.Context(), middleware.GetUserID(r), vars["id"], vars["activityId"], req.Day)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, a)
}
