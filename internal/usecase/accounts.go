package usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"go.uber.org/zap"
)

type AccountUseCase struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	logger *zap.Logger
}

func NewAccountUseCase(users port.UserRepository, hasher port.PasswordHasher, logger *zap.Logger) *AccountUseCase {
	return &AccountUseCase{users: users, hasher: hasher, logger: logger}
}

type SignupInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

func (uc *AccountUseCase) Signup(ctx context.Context, in SignupInput) (int64, error) {
	const op = "signup"

	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return 0, apperr.Validation(op, "name, username, email and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return 0, apperr.Validation(op, "email is not valid")
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindValidation, op, "password cannot be used", err)
	}

	id, err := uc.users.Create(ctx, &entity.User{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, port.ErrDuplicate) {
			return 0, apperr.Conflict(op, "username or email already exists")
		}
		return 0, apperr.Dependency(op, err)
	}

	uc.logger.Info("user registered", zap.Int64("user_id", id), zap.String("username", in.Username))
	return id, nil
}

type LoginInput struct {
	Username string
	Password string
}

// Login accepts a username or an email address. Unknown users and wrong
// passwords produce the same invalid-credentials error.
func (uc *AccountUseCase) Login(ctx context.Context, in LoginInput) (*entity.User, error) {
	const op = "login"

	login := strings.TrimSpace(in.Username)
	if login == "" || in.Password == "" {
		return nil, apperr.Validation(op, "username and password are required")
	}

	user, err := uc.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, apperr.InvalidCredentials(op)
		}
		return nil, apperr.Dependency(op, err)
	}

	if err := uc.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		uc.logger.Info("login rejected", zap.Int64("user_id", user.ID))
		return nil, apperr.InvalidCredentials(op)
	}
	return user, nil
}

func (uc *AccountUseCase) Profile(ctx context.Context, userID int64) (entity.Profile, error) {
	const op = "profile"

	if userID <= 0 {
		return entity.Profile{}, apperr.Validation(op, "userId is required")
	}
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return entity.Profile{}, apperr.NotFound(op, "user not found")
		}
		return entity.Profile{}, apperr.Dependency(op, err)
	}
	return user.Profile(), nil
}

type UpdateProfileInput struct {
	UserID int64
	Age    *int
	State  string
	Sports []string
}

func (uc *AccountUseCase) UpdateProfile(ctx context.Context, in UpdateProfileInput) error {
	const op = "update profile"

	in.State = strings.TrimSpace(in.State)
	if in.UserID <= 0 || in.Age == nil || in.State == "" || len(in.Sports) == 0 {
		return apperr.Validation(op, "userId, age, state and sports are required")
	}
	if *in.Age <= 0 || *in.Age > 120 {
		return apperr.Validation(op, "age must be between 1 and 120")
	}

	err := uc.users.UpdateProfile(ctx, in.UserID, *in.Age, in.State, in.Sports)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return apperr.NotFound(op, "user not found")
		}
		return apperr.Dependency(op, err)
	}
	return nil
}
