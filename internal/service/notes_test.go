package service

import (
	"context"
	"errors"
	"testing"

	"github.com/npezzotti/go-notechat/internal/database"
	"github.com/stretchr/testify/assert"
)

func TestNoteService_AddNote(t *testing.T) {
	mockRepo := &database.MockNotesRepository{}
	defer mockRepo.AssertExpectations(t)

	params := database.CreateNoteParams{Title: "groceries", Content: "milk", UserEmail: "alice@example.com"}
	mockRepo.On("CreateNote", params).Return(database.Note{
		Id:        3,
		Title:     params.Title,
		Content:   params.Content,
		UserEmail: params.UserEmail,
	}, nil).Once()

	note, err := NewNoteService(mockRepo).AddNote(context.Background(), "groceries", "milk", "alice@example.com")
	assert.NoError(t, err)
	assert.Equal(t, 3, note.Id)
	assert.Equal(t, "alice@example.com", note.Email)

	t.Run("missing owner", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)

		_, err := NewNoteService(mockRepo).AddNote(context.Background(), "t", "c", "")
		assert.ErrorIs(t, err, ErrBadRequest)
	})
}

func TestNoteService_ListNotes(t *testing.T) {
	t.Run("missing email fails before storage access", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)

		_, err := NewNoteService(mockRepo).ListNotes(context.Background(), "")
		assert.ErrorIs(t, err, ErrBadRequest)
		mockRepo.AssertNotCalled(t, "ListNotesByOwner")
	})

	t.Run("returns notes in storage order", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListNotesByOwner", "alice@example.com").Return([]database.Note{
			{Id: 1, Title: "first", UserEmail: "alice@example.com"},
			{Id: 2, Title: "second", UserEmail: "alice@example.com"},
		}, nil).Once()

		notes, err := NewNoteService(mockRepo).ListNotes(context.Background(), "alice@example.com")
		assert.NoError(t, err)
		if assert.Len(t, notes, 2) {
			assert.Equal(t, "first", notes[0].Title)
			assert.Equal(t, "second", notes[1].Title)
		}
	})

	t.Run("storage error", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListNotesByOwner", "alice@example.com").Return([]database.Note(nil), errors.New("db error")).Once()

		_, err := NewNoteService(mockRepo).ListNotes(context.Background(), "alice@example.com")
		var storageErr *StorageError
		assert.ErrorAs(t, err, &storageErr)
	})
}

func TestNoteService_DeleteNote(t *testing.T) {
	t.Run("nonexistent id", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteNote", 99, "alice@example.com").Return(int64(0), nil).Once()

		err := NewNoteService(mockRepo).DeleteNote(context.Background(), 99, "alice@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("second delete of the same id fails", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteNote", 5, "alice@example.com").Return(int64(1), nil).Once()
		mockRepo.On("DeleteNote", 5, "alice@example.com").Return(int64(0), nil).Once()

		svc := NewNoteService(mockRepo)
		assert.NoError(t, svc.DeleteNote(context.Background(), 5, "alice@example.com"))
		assert.ErrorIs(t, svc.DeleteNote(context.Background(), 5, "alice@example.com"), ErrNotFound)
	})

	t.Run("note owned by someone else", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteNote", 5, "mallory@example.com").Return(int64(0), nil).Once()

		err := NewNoteService(mockRepo).DeleteNote(context.Background(), 5, "mallory@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage error", func(t *testing.T) {
		mockRepo := &database.MockNotesRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteNote", 5, "alice@example.com").Return(int64(0), errors.New("db error")).Once()

		err := NewNoteService(mockRepo).DeleteNote(context.Background(), 5, "alice@example.com")
		var storageErr *StorageError
		assert.ErrorAs(t, err, &storageErr)
	})
}
