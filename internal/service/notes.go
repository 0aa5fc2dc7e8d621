package service

import (
	"context"

	"github.com/npezzotti/go-notechat/internal/database"
	"github.com/npezzotti/go-notechat/internal/types"
)

type NoteService struct {
	db database.NotesRepository
}

func NewNoteService(db database.NotesRepository) *NoteService {
	return &NoteService{db: db}
}

func toNote(n database.Note) types.Note {
	return types.Note{
		Id:        n.Id,
		Title:     n.Title,
		Content:   n.Content,
		Email:     n.UserEmail,
		CreatedAt: n.CreatedAt,
	}
}

func (s *NoteService) AddNote(ctx context.Context, title, content, ownerEmail string) (types.Note, error) {
	if ownerEmail == "" {
		return types.Note{}, ErrBadRequest
	}

	dbNote, err := s.db.CreateNote(ctx, database.CreateNoteParams{
		Title:     title,
		Content:   content,
		UserEmail: ownerEmail,
	})
	if err != nil {
		return types.Note{}, storageError("create note", err)
	}

	return toNote(dbNote), nil
}

func (s *NoteService) ListNotes(ctx context.Context, ownerEmail string) ([]types.Note, error) {
	if ownerEmail == "" {
		return nil, ErrBadRequest
	}

	dbNotes, err := s.db.ListNotesByOwner(ctx, ownerEmail)
	if err != nil {
		return nil, storageError("list notes", err)
	}

	notes := make([]types.Note, 0, len(dbNotes))
	for _, n := range dbNotes {
		notes = append(notes, toNote(n))
	}

	return notes, nil
}

// DeleteNote deletes note id if it belongs to ownerEmail. A note owned by
// someone else is reported as ErrNotFound.
func (s *NoteService) DeleteNote(ctx context.Context, id int, ownerEmail string) error {
	if ownerEmail == "" {
		return ErrBadRequest
	}

	n, err := s.db.DeleteNote(ctx, id, ownerEmail)
	if err != nil {
		return storageError("delete note", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
