package database

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"
)

type MockNotesRepository struct {
	mock.Mock
}

func (m *MockNotesRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockNotesRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockNotesRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockNotesRepository) ListUsers(ctx context.Context) ([]User, error) {
	args := m.Called()
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockNotesRepository) DeleteUser(ctx context.Context, email string) error {
	args := m.Called(email)
	return args.Error(0)
}
func (m *MockNotesRepository) SetSocketId(ctx context.Context, email string, socketId sql.NullString) error {
	args := m.Called(email, socketId)
	return args.Error(0)
}
func (m *MockNotesRepository) ClearSocketId(ctx context.Context, email, socketId string) error {
	args := m.Called(email, socketId)
	return args.Error(0)
}
func (m *MockNotesRepository) CreateNote(ctx context.Context, params CreateNoteParams) (Note, error) {
	args := m.Called(params)
	return args.Get(0).(Note), args.Error(1)
}
func (m *MockNotesRepository) ListNotesByOwner(ctx context.Context, email string) ([]Note, error) {
	args := m.Called(email)
	return args.Get(0).([]Note), args.Error(1)
}
func (m *MockNotesRepository) DeleteNote(ctx context.Context, id int, ownerEmail string) (int64, error) {
	args := m.Called(id, ownerEmail)
	return args.Get(0).(int64), args.Error(1)
}
