package database

import (
	"database/sql"
	"time"
)

type User struct {
	Id           int
	Name         string
	Email        string
	PasswordHash string
	SocketId     sql.NullString
	CreatedAt    time.Time
}

type Note struct {
	Id        int
	Title     string
	Content   string
	UserEmail string
	CreatedAt time.Time
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
}

type CreateNoteParams struct {
	Title     string
	Content   string
	UserEmail string
}
