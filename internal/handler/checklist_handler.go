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

type ChecklistHandler struct {
	service  *service.ChecklistService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewChecklistHandler(service *service.ChecklistService, logger *zap.Logger) *ChecklistHandler {
	return &ChecklistHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

func (h *ChecklistHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, c)
}

// ListCategories returns every category with its items nested.
func (h *ChecklistHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, list)
}

func (h *ChecklistHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.DeleteCategory(r.Context(), middleware.GetUserID(r), vars["id"], vars["categoryId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

func (h *ChecklistHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateChecklistItemRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	vars := mux.Vars(r)
	item, err := h.service.CreateItem(r.Context(), middleware.GetUserID(r), vars["id"], vars["categoryId"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, item)
}

func (h *ChecklistHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	items, err := h.service.ListItems(r.Context(), middleware.GetUserID(r), vars["id"], vars["categoryId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, items)
}

func (h *ChecklistHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateChecklistItemRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	vars := mux.Vars(r)
	item, err := h.service.UpdateItem(r.Context(), middleware.GetUserID(r), vars["id"], vars["itemId"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, item)
}

func (h *ChecklistHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.DeleteItem(r.Context(), middleware.GetUserID(r), vars["id"], vars["itemId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}
