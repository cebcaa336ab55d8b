package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/venue-booking/internal/model"
)

type NoteRepo struct{ db *sqlx.DB }

func NewNoteRepo(db *sqlx.DB) *NoteRepo { return &NoteRepo{db: db} }

// Create inserts n and fills its ID and CreatedAt.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (author_id, title, content) VALUES (?, ?, ?)",
		n.AuthorID, n.Title, n.Content)
	if err != nil {
		return translate("insert note", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return translate("reload note",
		r.db.GetContext(ctx, &n.CreatedAt, "SELECT created_at FROM notes WHERE id = ?", n.ID))
}

// ListByAuthor returns the author's notes in creation order.
func (r *NoteRepo) ListByAuthor(ctx context.Context, authorID uint64) ([]model.Note, error) {
	out := []model.Note{}
	err := r.db.SelectContext(ctx, &out,
		"SELECT id, author_id, title, content, created_at FROM notes WHERE author_id = ? ORDER BY id",
		authorID)
	if err != nil {
		return nil, translate("list notes", err)
	}
	return out, nil
}

// DeleteForAuthor removes a note only if authorID wrote it.  Someone
// else's note is reported as ErrNotFound.
func (r *NoteRepo) DeleteForAuthor(ctx context.Context, id, authorID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ? AND author_id = ?", id, authorID)
	if err != nil {
		return translate("delete note", err)
	}
	return expectOne(res)
}
