package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (db *PgNotesRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO users (name, email, password_hash) "+
			"VALUES ($1, $2, $3) RETURNING id, name, email, socket_id, created_at",
		params.Name,
		params.Email,
		params.PasswordHash,
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Name,
		&u.Email,
		&u.SocketId,
		&u.CreatedAt,
	)

	return u, wrapQueryError("create user", err)
}

func (db *PgNotesRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, socket_id, created_at FROM users "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.SocketId,
		&u.CreatedAt,
	)

	return u, wrapQueryError("get user by email", err)
}

func (db *PgNotesRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, name, email, socket_id, created_at FROM users ORDER BY id",
	)
	if err != nil {
		return nil, wrapQueryError("list users", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Id, &u.Name, &u.Email, &u.SocketId, &u.CreatedAt); err != nil {
			return nil, wrapQueryError("scan user", err)
		}

		users = append(users, u)
	}

	return users, wrapQueryError("list users", rows.Err())
}

func (db *PgNotesRepository) DeleteUser(ctx context.Context, email string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM users WHERE email = $1", email)
	if err != nil {
		return wrapQueryError("delete user", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapQueryError("delete user", err)
	}
	if n == 0 {
		return wrapQueryError("delete user", sql.ErrNoRows)
	}

	return nil
}

func (db *PgNotesRepository) SetSocketId(ctx context.Context, email string, socketId sql.NullString) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE users SET socket_id = $2 WHERE email = $1",
		email,
		socketId,
	)

	return wrapQueryError("set socket id", err)
}

// ClearSocketId nulls the socket id only if it still holds socketId, so a
// stale connection cannot clear the binding of a newer one.
func (db *PgNotesRepository) ClearSocketId(ctx context.Context, email, socketId string) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE users SET socket_id = NULL WHERE email = $1 AND socket_id = $2",
		email,
		socketId,
	)

	return wrapQueryError("clear socket id", err)
}

func (db *PgNotesRepository) CreateNote(ctx context.Context, params CreateNoteParams) (Note, error) {
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO notes (title, content, user_email) "+
			"VALUES ($1, $2, $3) RETURNING id, title, content, user_email, created_at",
		params.Title,
		params.Content,
		params.UserEmail,
	)

	var n Note
	err := res.Scan(
		&n.Id,
		&n.Title,
		&n.Content,
		&n.UserEmail,
		&n.CreatedAt,
	)

	return n, wrapQueryError("create note", err)
}

func (db *PgNotesRepository) ListNotesByOwner(ctx context.Context, email string) ([]Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, title, content, user_email, created_at FROM notes "+
			"WHERE user_email = $1 ORDER BY id",
		email,
	)
	if err != nil {
		return nil, wrapQueryError("list notes", err)
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.Id, &n.Title, &n.Content, &n.UserEmail, &n.CreatedAt); err != nil {
			return nil, wrapQueryError("scan note", err)
		}

		notes = append(notes, n)
	}

	return notes, wrapQueryError("list notes", rows.Err())
}

// DeleteNote removes the note with id owned by ownerEmail and reports the
// number of rows deleted.
func (db *PgNotesRepository) DeleteNote(ctx context.Context, id int, ownerEmail string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM notes WHERE id = $1 AND user_email = $2",
		id,
		ownerEmail,
	)
	if err != nil {
		return 0, wrapQueryError("delete note", err)
	}

	n, err := res.RowsAffected()
	return n, wrapQueryError("delete note", err)
}
