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

type ExpenseHandler struct {
	service  *service.ExpenseService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewExpenseHandler(service *service.ExpenseService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateExpenseRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	e, err := h.service.Create(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, e)
}

// List filters by ?day= when given.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	day, err := intQuery(r, "day")
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

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateExpenseRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	vars := mux.Vars(r)
	e, err := h.service.Update(r.Context(), middleware.GetUserID(r), vars["id"], vars["expenseId"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, e)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), vars["id"], vars["expenseId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

func (h *ExpenseHandler) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Totals(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, totals)
}
