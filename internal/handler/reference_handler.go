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

type ReferenceHandler struct {
	service  *service.ReferenceService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewReferenceHandler(service *service.ReferenceService, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

func (h *ReferenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReferenceRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	ref, err := h.service.Create(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, ref)
}

func (h *ReferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, list)
}

func (h *ReferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref, err := h.service.Get(r.Context(), middleware.GetUserID(r), vars["id"], vars["refId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, ref)
}

func (h *ReferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateReferenceRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	vars := mux.Vars(r)
	ref, err := h.service.Update(r.Context(), middleware.GetUserID(r), vars["id"], vars["refId"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, ref)
}

func (h *ReferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), vars["id"], vars["refId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}
