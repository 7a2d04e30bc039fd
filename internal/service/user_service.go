package service

import (
	"context"
	"errors"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}

	if req.Username != nil && *req.Username != user.Username {
		_, err := s.userRepo.FindByUsername(ctx, *req.Username)
		switch {
		case err == nil:
			return nil, invalid("username", "already taken")
		case !errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}
		user.Username = *req.Username
	}
	if req.HomeCurrency != nil {
		user.HomeCurrency = strings.ToUpper(*req.HomeCurrency)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, translate(err)
	}
	user.PasswordHash = ""
	return user, nil
}
