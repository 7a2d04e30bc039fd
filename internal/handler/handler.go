package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/service"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. On failure the response
// has already been written.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeValidation(w, err)
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(w, err.Error())
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fmt.Sprintf("failed on %s", fe.Tag())
	}
	response.Validation(w, "Invalid request", fields)
}

// writeError maps service and store errors onto HTTP responses. Unexpected
// errors are logged and hidden behind a 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *service.ValidationError
	var rerr *activitylist.RemoteWriteError

	switch {
	case errors.As(err, &verr):
		response.Validation(w, verr.Error(), map[string]string{verr.Field: verr.Message})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, activitylist.ErrUnknownActivity):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(w, "Access denied")
	case errors.Is(err, service.ErrConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid credentials")
	case errors.Is(err, activitylist.ErrIndexOutOfRange):
		response.BadRequest(w, err.Error())
	case errors.Is(err, docstore.ErrMissingIndex):
		logger.Error("query needs an index", zap.Error(err))
		response.Unavailable(w, "Query not available yet")
	case errors.As(err, &rerr):
		logger.Error("remote write failed", zap.String("op", string(rerr.Op)), zap.Error(rerr.Err))
		response.Error(w, http.StatusBadGateway, response.CodeUnavailable, string(rerr.Op)+" failed")
	default:
		logger.Error("request failed", zap.Error(err))
		response.InternalError(w, "Internal server error")
	}
}

// intVar reads a positive integer path variable.
func intVar(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || n < 1 {
		return 0, &service.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return n, nil
}

// intQuery reads an optional non-negative integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &service.ValidationError{Field: name, Message: "must be a non-negative integer"}
	}
	return n, nil
}
