package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// userDoc is the stored form of a user; unlike domain.User it carries the
// password hash through JSON.
type userDoc struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	HomeCurrency string    `json:"home_currency,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (d *userDoc) user() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		HomeCurrency: d.HomeCurrency,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type userRepository struct {
	users collection[userDoc]
}

func NewUserRepository(client docstore.Client) UserRepository {
	return &userRepository{users: collection[userDoc]{client: client, kind: "user"}}
}

// Create stores user and sets its ID and timestamps. Email and username must
// both be unused.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	unique := [][2]string{{"email", user.Email}, {"username", user.Username}}
	for _, kv := range unique {
		if _, err := r.findBy(ctx, kv[0], kv[1]); err == nil {
			return fmt.Errorf("%w: %s taken", ErrUserExists, kv[0])
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
	}

	doc, err := r.users.create(ctx, domain.UsersPath, map[string]interface{}{
		"username":              user.Username,
		"email":                 user.Email,
		"password_hash":         user.PasswordHash,
		"home_currency":         user.HomeCurrency,
		docstore.FieldCreatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return err
	}
	*user = *doc.user()
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	doc, err := r.users.get(ctx, domain.UsersPath, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return doc.user(), nil
}

func (r *userRepository) findBy(ctx context.Context, field, value string) (*domain.User, error) {
	docs, err := r.users.list(ctx, docstore.Query{
		Path:  domain.UsersPath,
		Where: []docstore.Filter{{Field: field, Value: value}},
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return docs[0].user(), nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	doc, err := r.users.update(ctx, domain.UsersPath, user.ID, map[string]interface{}{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"home_currency": user.HomeCurrency,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	*user = *doc.user()
	return nil
}
