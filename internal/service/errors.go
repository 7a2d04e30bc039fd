package service

import (
	"errors"
	"fmt"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is the activitylist error type so that handlers see one
// kind of input error regardless of which layer rejected it.
type ValidationError = activitylist.ValidationError

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// translate maps repository errors onto the service sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrItineraryNotFound),
		errors.Is(err, repository.ErrActivityNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrExpenseNotFound),
		errors.Is(err, repository.ErrReferenceNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, err.Error())
	case errors.Is(err, repository.ErrUserExists):
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}
	return err
}
