package database

import (
	"context"
	"database/sql"
	"errors"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

type NotesRepository interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, email string) error
	SetSocketId(ctx context.Context, email string, socketId sql.NullString) error
	ClearSocketId(ctx context.Context, email, socketId string) error
	CreateNote(ctx context.Context, params CreateNoteParams) (Note, error)
	ListNotesByOwner(ctx context.Context, email string) ([]Note, error)
	DeleteNote(ctx context.Context, id int, ownerEmail string) (int64, error)
}
