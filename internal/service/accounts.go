package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/npezzotti/go-notechat/internal/database"
	"github.com/npezzotti/go-notechat/internal/types"
	"golang.org/x/crypto/bcrypt"
)

type AccountService struct {
	db       database.NotesRepository
	hashCost int
}

type AccountOption func(*AccountService)

// WithHashCost overrides the bcrypt cost used for new password hashes.
func WithHashCost(cost int) AccountOption {
	return func(s *AccountService) {
		s.hashCost = cost
	}
}

func NewAccountService(db database.NotesRepository, opts ...AccountOption) *AccountService {
	s := &AccountService{
		db:       db,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func toUser(u database.User) types.User {
	user := types.User{
		Id:           u.Id,
		Username:     u.Name,
		EmailAddress: u.Email,
		CreatedAt:    u.CreatedAt,
	}

	if u.SocketId.Valid {
		socketId := u.SocketId.String
		user.SocketId = &socketId
	}

	return user
}

// Register creates an account. Emails are unique: a second registration
// with the same email fails with ErrConflict.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (types.User, error) {
	if name == "" || email == "" || password == "" {
		return types.User{}, ErrBadRequest
	}

	_, err := s.db.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return types.User{}, ErrConflict
	case !errors.Is(err, sql.ErrNoRows):
		return types.User{}, storageError("lookup user", err)
	}

	pwdHash, err := hashPassword(password, s.hashCost)
	if err != nil {
		return types.User{}, err
	}

	dbUser, err := s.db.CreateUser(ctx, database.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, database.ErrDuplicate) {
			return types.User{}, ErrConflict
		}
		return types.User{}, storageError("create user", err)
	}

	return toUser(dbUser), nil
}

// verify loads the account for email and checks password against it.
func (s *AccountService) verify(ctx context.Context, email, password string) (database.User, error) {
	if email == "" || password == "" {
		return database.User{}, ErrBadRequest
	}

	dbUser, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.User{}, ErrNotFound
		}
		return database.User{}, storageError("lookup user", err)
	}

	if !verifyPassword(dbUser.PasswordHash, password) {
		return database.User{}, ErrUnauthorized
	}

	return dbUser, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (types.User, error) {
	dbUser, err := s.verify(ctx, email, password)
	if err != nil {
		return types.User{}, err
	}

	return toUser(dbUser), nil
}

func (s *AccountService) ListAll(ctx context.Context) ([]types.User, error) {
	dbUsers, err := s.db.ListUsers(ctx)
	if err != nil {
		return nil, storageError("list users", err)
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, toUser(u))
	}

	return users, nil
}

func (s *AccountService) DeleteVerified(ctx context.Context, email, password string) error {
	if _, err := s.verify(ctx, email, password); err != nil {
		return err
	}

	if err := s.db.DeleteUser(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return storageError("delete user", err)
	}

	return nil
}

// UpdateConnection sets the mirrored connection id for email. An empty
// socketId clears it.
func (s *AccountService) UpdateConnection(ctx context.Context, email, socketId string) error {
	if email == "" {
		return ErrBadRequest
	}

	err := s.db.SetSocketId(ctx, email, sql.NullString{
		String: socketId,
		Valid:  socketId != "",
	})
	if err != nil {
		return storageError("update socket id", err)
	}

	return nil
}
